package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/marks/internal/api/client"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/engine"
	"github.com/MrSnakeDoc/marks/internal/kv"
	"github.com/MrSnakeDoc/marks/internal/legacy"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/migration"
	"github.com/MrSnakeDoc/marks/internal/orchestrator"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// Migration choices accepted by --migrate.
const (
	MigrateImport  = "import"
	MigrateDiscard = "discard"
)

var errMigrationPending = errors.New("local data is waiting to be migrated")

// session is one signed-in engine backed by the local store.
type session struct {
	cfg    *config.Client
	log    logger.Logger
	store  kv.Store
	engine *engine.Engine
}

func openSession(ctx context.Context, cfg *config.Client, log logger.Logger) (*session, error) {
	log = log.With(logger.String("user", cfg.UserID))
	c, err := client.New(cfg.ServerURL, client.Options{
		Identity: client.StaticIdentity(cfg.UserID),
		APIKey:   cfg.APIKey,
		Timeout:  cfg.RequestTimeout,
		Logger:   log.Named("client"),
	})
	if err != nil {
		return nil, err
	}

	store, err := openLocal(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	e := engine.New(engine.Config{
		Remote:    c.Remote(),
		Legacy:    legacy.New(store),
		Migration: migration.Options{RememberDiscard: cfg.RememberDiscard},
		Policy: orchestrator.Policy{
			MaxRetries: cfg.BootstrapRetries,
			BaseDelay:  cfg.BootstrapBaseDelay,
		},
		Logger: log,
	})
	return &session{cfg: cfg, log: log, store: store, engine: e}, nil
}

func (s *session) Close() error {
	s.engine.Logout()
	return s.store.Close()
}

type settled struct {
	state orchestrator.State
	err   error
}

// bootstrap logs in and blocks until the stores are loaded. A migration
// prompt raised on the way is answered with choice; without a choice the
// session is logged out and errMigrationPending is returned.
func (s *session) bootstrap(ctx context.Context, choice string) error {
	prompted := make(chan struct{}, 1)
	unsubscribe := s.engine.Migration.Prompt().Subscribe(func(open bool) {
		if !open {
			return
		}
		select {
		case prompted <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	s.engine.Login(orchestrator.Identity{
		UserID:  s.cfg.UserID,
		Profile: domain.Profile{Email: s.cfg.Email, Name: s.cfg.Name},
	})

	done := make(chan settled, 1)
	go func() {
		st, err := s.engine.Bootstrap.Wait(ctx)
		done <- settled{st, err}
	}()

	for {
		select {
		case r := <-done:
			if r.err != nil {
				return r.err
			}
			if r.state != orchestrator.Loaded {
				return fmt.Errorf("bootstrap %s: %s", r.state, s.engine.Bootstrap.Error().Get())
			}
			return nil

		case <-prompted:
			if err := s.resolve(ctx, choice); err != nil {
				s.engine.Logout()
				<-done
				return err
			}
		}
	}
}

func (s *session) resolve(ctx context.Context, choice string) error {
	switch choice {
	case MigrateImport:
		s.log.Info("importing local data")
		return s.engine.Migration.ConfirmImport(ctx)
	case MigrateDiscard:
		s.log.Info("discarding local data")
		return s.engine.Migration.ConfirmDiscard(ctx)
	}

	ds, _ := s.engine.Migration.Pending()
	return fmt.Errorf("%w (%d spaces, %d groups, %d bookmarks): rerun with --migrate=%s or --migrate=%s",
		errMigrationPending, len(ds.Spaces), len(ds.Groups), len(ds.Bookmarks), MigrateImport, MigrateDiscard)
}

// withSession opens a session, bootstraps it and runs fn against it.
func withSession(ctx context.Context, cfg *config.Client, log logger.Logger, choice string, fn func(*engine.Engine) error) error {
	switch choice {
	case "", MigrateImport, MigrateDiscard:
	default:
		return fmt.Errorf("%w: --migrate must be %q or %q", domain.ErrInvalidInput, MigrateImport, MigrateDiscard)
	}

	s, err := openSession(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer utils.CloseLogged(s, log, "session")

	if err := s.bootstrap(ctx, choice); err != nil {
		return err
	}
	return fn(s.engine)
}
