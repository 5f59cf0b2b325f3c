// Package orchestrator drives the post-login bootstrap: ensure the remote
// user, run the migration handshake once per identity, load every store
// concurrently, and retry failures with exponential backoff.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/observable"
)

// Clock schedules backoff waits.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// UserRegistrar upserts the remote user record.
type UserRegistrar interface {
	EnsureUser(ctx context.Context, profile domain.Profile) (domain.User, error)
}

// Gate is the migration handshake as seen by the bootstrap.
type Gate interface {
	// Check reports whether a decision from the user is pending for userID.
	Check(ctx context.Context, userID string) (pending bool, err error)
	// Wait blocks until the pending decision is resolved.
	Wait(ctx context.Context) error
	Reset()
}

// Target is what the bootstrap loads and clears.
type Target interface {
	Loaders() []func(ctx context.Context) error
	SelectDefaults()
	Reset()
}

// Recorder observes bootstrap attempts.
type Recorder interface {
	Bootstrap(err error)
}

// Identity is the logged-in user as given by the identity provider.
type Identity struct {
	UserID  string
	Profile domain.Profile
}

type Config struct {
	Users    UserRegistrar
	Gate     Gate // optional
	Target   Target
	Policy   Policy
	Clock    Clock
	Logger   logger.Logger
	Recorder Recorder
}

type Orchestrator struct {
	users  UserRegistrar
	gate   Gate
	target Target
	clock  Clock
	log    logger.Logger
	rec    Recorder

	mu       sync.Mutex
	machine  Machine
	identity *Identity
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	migrated map[string]bool

	state   *observable.Value[State]
	loading *observable.Value[bool]
	loaded  *observable.Value[bool]
	errMsg  *observable.Value[string]
}

func New(cfg Config) *Orchestrator {
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	closed := make(chan struct{})
	close(closed)
	return &Orchestrator{
		users:    cfg.Users,
		gate:     cfg.Gate,
		target:   cfg.Target,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		rec:      cfg.Recorder,
		machine:  Machine{Policy: cfg.Policy},
		done:     closed,
		migrated: make(map[string]bool),
		state:    observable.NewValue(Idle),
		loading:  observable.NewValue(false),
		loaded:   observable.NewValue(false),
		errMsg:   observable.NewValue(""),
	}
}

func (o *Orchestrator) State() *observable.Value[State] { return o.state }
func (o *Orchestrator) Loading() *observable.Value[bool] { return o.loading }
func (o *Orchestrator) Loaded() *observable.Value[bool]  { return o.loaded }
func (o *Orchestrator) Error() *observable.Value[string] { return o.errMsg }

// Retries returns the failed attempts since the last login or retry.
func (o *Orchestrator) Retries() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.Retries
}

// Login starts the bootstrap for id in the background. Logging in again
// with the identity already loading or loaded is a no-op; another identity
// logs the current one out first.
func (o *Orchestrator) Login(id Identity) {
	o.mu.Lock()
	if o.identity != nil {
		same := o.identity.UserID == id.UserID
		st := o.machine.State
		if same && (st.Loading() || st == Loaded) {
			o.mu.Unlock()
			return
		}
		if !same {
			o.mu.Unlock()
			o.Logout()
			o.mu.Lock()
		}
	}
	o.identity = &id
	o.startLocked(EventLogin)
	o.mu.Unlock()

	o.log.Info("bootstrap started", logger.String("user", id.UserID))
}

// Retry re-enters Loading from Errored with a fresh retry budget. It
// reports whether a new attempt was started.
func (o *Orchestrator) Retry() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.identity == nil || o.machine.State != Errored {
		return false
	}
	o.startLocked(EventRetry)
	return true
}

// Logout cancels the bootstrap in flight, returns to Idle and clears every
// store. It returns once the cancelled attempt has stopped.
func (o *Orchestrator) Logout() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	done := o.done
	o.gen++
	o.identity = nil
	o.machine, _ = o.machine.Next(EventLogout)
	o.mu.Unlock()

	<-done

	if o.gate != nil {
		o.gate.Reset()
	}
	o.target.Reset()
	o.publish(Idle, "")
	o.log.Info("logged out, stores cleared")
}

// Wait blocks until the current bootstrap settles (Loaded, Errored or
// cancelled) or ctx is done, and returns the state reached.
func (o *Orchestrator) Wait(ctx context.Context) (State, error) {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	select {
	case <-done:
		return o.state.Get(), nil
	case <-ctx.Done():
		return o.state.Get(), ctx.Err()
	}
}

func (o *Orchestrator) startLocked(ev Event) {
	var step Step
	o.machine, step = o.machine.Next(ev)
	o.gen++
	gen := o.gen
	id := *o.identity

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	o.cancel, o.done = cancel, done
	o.publishLocked("")

	if step.Attempt {
		go o.run(ctx, gen, id, done)
	} else {
		close(done)
	}
}

func (o *Orchestrator) run(ctx context.Context, gen uint64, id Identity, done chan struct{}) {
	defer close(done)

	for {
		err := o.attempt(ctx, gen, id)
		if o.rec != nil {
			o.rec.Bootstrap(err)
		}
		if ctx.Err() != nil {
			return
		}

		if err == nil {
			if o.fire(gen, EventSucceeded, "") {
				o.target.SelectDefaults()
				o.log.Info("bootstrap complete", logger.String("user", id.UserID))
			}
			return
		}

		step, ok := o.fireStep(gen, EventFailed, err.Error())
		if !ok {
			return
		}
		if !step.Attempt {
			o.log.Error("bootstrap failed, giving up",
				logger.String("user", id.UserID),
				logger.Int("retries", o.Retries()),
				logger.Error(err))
			return
		}
		o.log.Warn("bootstrap failed, retrying",
			logger.String("user", id.UserID),
			logger.Duration("backoff", step.Delay),
			logger.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(step.Delay):
		}
	}
}

func (o *Orchestrator) attempt(ctx context.Context, gen uint64, id Identity) error {
	if _, err := o.users.EnsureUser(ctx, id.Profile); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	if o.gate != nil && !o.isMigrated(id.UserID) {
		pending, err := o.gate.Check(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		if pending {
			o.fire(gen, EventPrompted, "")
			if err := o.gate.Wait(ctx); err != nil {
				return fmt.Errorf("migration: %w", err)
			}
			o.fire(gen, EventResumed, "")
		}
		o.markMigrated(id.UserID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, load := range o.target.Loaders() {
		g.Go(func() error { return load(gctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

func (o *Orchestrator) fire(gen uint64, ev Event, msg string) bool {
	_, ok := o.fireStep(gen, ev, msg)
	return ok
}

// fireStep applies ev if gen is still the current run.
func (o *Orchestrator) fireStep(gen uint64, ev Event, msg string) (Step, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return Step{}, false
	}
	var step Step
	o.machine, step = o.machine.Next(ev)
	if ev == EventPrompted || ev == EventResumed {
		msg = o.errMsg.Get()
	}
	o.publishLocked(msg)
	return step, true
}

// publishLocked runs observers with o.mu held: they must not call methods
// of o that lock it.
func (o *Orchestrator) publishLocked(msg string) {
	o.publish(o.machine.State, msg)
}

func (o *Orchestrator) publish(st State, msg string) {
	o.state.Set(st)
	o.loading.Set(st.Loading())
	o.loaded.Set(st == Loaded)
	o.errMsg.Set(msg)
}

func (o *Orchestrator) isMigrated(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.migrated[userID]
}

func (o *Orchestrator) markMigrated(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.migrated[userID] = true
}
