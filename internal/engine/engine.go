// Package engine assembles the client side of marks: the three entity
// stores, their cascade links, the bootstrap orchestrator, the migration
// handshake and the UI selection. One Engine is one signed-in session
// context; it owns no globals.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/cascade"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/entity"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/migration"
	"github.com/MrSnakeDoc/marks/internal/observable"
	"github.com/MrSnakeDoc/marks/internal/orchestrator"
)

// Recorder receives mutation and bootstrap outcomes.
type Recorder interface {
	entity.Recorder
	orchestrator.Recorder
}

type Config struct {
	Remote api.Remote
	// Legacy enables the migration handshake when set.
	Legacy    migration.Source
	Migration migration.Options
	Policy    orchestrator.Policy
	Clock     orchestrator.Clock
	Logger    logger.Logger
	Recorder  Recorder
	Now       func() time.Time
}

type Engine struct {
	Spaces    *entity.SpaceStore
	Groups    *entity.GroupStore
	Bookmarks *entity.BookmarkStore
	Cascade   *cascade.Coordinator
	Bootstrap *orchestrator.Orchestrator
	// Migration is nil when no legacy source is configured.
	Migration *migration.Handshake

	session *session
	log     logger.Logger

	activeSpace   *observable.Value[string]
	selectedGroup *observable.Value[string]
}

func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	var rec entity.Recorder
	var bootRec orchestrator.Recorder
	if cfg.Recorder != nil {
		rec, bootRec = cfg.Recorder, cfg.Recorder
	}

	s := &session{}
	e := &Engine{
		session:       s,
		log:           cfg.Logger,
		activeSpace:   observable.NewValue(""),
		selectedGroup: observable.NewValue(""),
	}

	e.Spaces = entity.NewSpaceStore(entity.Config[domain.Space, domain.SpacePatch]{
		Remote: cfg.Remote.Spaces, Session: s, Logger: cfg.Logger.Named("spaces"), Recorder: rec, Now: cfg.Now,
	})
	e.Groups = entity.NewGroupStore(entity.Config[domain.Group, domain.GroupPatch]{
		Remote: cfg.Remote.Groups, Session: s, Logger: cfg.Logger.Named("groups"), Recorder: rec, Now: cfg.Now,
	})
	e.Bookmarks = entity.NewBookmarkStore(cfg.Remote.Bookmarks, entity.Config[domain.Bookmark, domain.BookmarkPatch]{
		Session: s, Logger: cfg.Logger.Named("bookmarks"), Recorder: rec, Now: cfg.Now,
	})
	e.Cascade = cascade.Link(e.Spaces, e.Groups, e.Bookmarks, cfg.Logger.Named("cascade"))

	var gate orchestrator.Gate
	if cfg.Legacy != nil {
		e.Migration = migration.New(cfg.Remote.Sync, cfg.Legacy, cfg.Migration, cfg.Logger.Named("migration"))
		gate = e.Migration
	}

	e.Bootstrap = orchestrator.New(orchestrator.Config{
		Users:    cfg.Remote.Sync,
		Gate:     gate,
		Target:   (*target)(e),
		Policy:   cfg.Policy,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger.Named("bootstrap"),
		Recorder: bootRec,
	})
	return e
}

// Login sets the identity mutations run under and starts the bootstrap.
func (e *Engine) Login(id orchestrator.Identity) {
	e.session.set(id.UserID)
	e.Bootstrap.Login(id)
}

// Logout forgets the identity, cancels the bootstrap and clears every store
// and the selection.
func (e *Engine) Logout() {
	e.session.set("")
	e.Bootstrap.Logout()
}

// UserID returns the signed-in identity, "" when logged out.
func (e *Engine) UserID() string { return e.session.UserID() }

// UpdateGroup updates a group; relocating it to another space also moves
// its bookmarks.
func (e *Engine) UpdateGroup(ctx context.Context, id string, patch domain.GroupPatch) (domain.Group, error) {
	return e.Cascade.UpdateGroup(ctx, id, patch)
}

func (e *Engine) ActiveSpace() *observable.Value[string]   { return e.activeSpace }
func (e *Engine) SelectedGroup() *observable.Value[string] { return e.selectedGroup }

// SetActiveSpace selects a space and clears the group selection.
func (e *Engine) SetActiveSpace(id string) {
	e.activeSpace.Set(id)
	e.selectedGroup.Set("")
}

func (e *Engine) SetSelectedGroup(id string) { e.selectedGroup.Set(id) }

// Snapshot returns the live content of every store.
func (e *Engine) Snapshot() domain.Dataset {
	return domain.Dataset{
		Spaces:    e.Spaces.Items(),
		Groups:    e.Groups.Items(),
		Bookmarks: e.Bookmarks.Items(),
	}
}

// target adapts Engine to orchestrator.Target.
type target Engine

func (t *target) Loaders() []func(ctx context.Context) error {
	return []func(ctx context.Context) error{
		func(ctx context.Context) error { _, err := t.Spaces.Load(ctx); return err },
		func(ctx context.Context) error { _, err := t.Groups.Load(ctx); return err },
		func(ctx context.Context) error { _, err := t.Bookmarks.Load(ctx); return err },
	}
}

// SelectDefaults picks the first space and its first group when nothing
// valid is selected.
func (t *target) SelectDefaults() {
	space := t.activeSpace.Get()
	if !t.Spaces.Has(space) {
		spaces := t.Spaces.Live("")
		if len(spaces) == 0 {
			return
		}
		space = spaces[0].ID
		t.activeSpace.Set(space)
		t.selectedGroup.Set("")
	}

	if g, ok := t.Groups.Get(t.selectedGroup.Get()); ok && g.SpaceID == space && !g.IsArchived {
		return
	}
	if groups := t.Groups.Live(space); len(groups) > 0 {
		t.selectedGroup.Set(groups[0].ID)
	}
}

func (t *target) Reset() {
	t.Spaces.Clear()
	t.Groups.Clear()
	t.Bookmarks.Clear()
	t.activeSpace.Set("")
	t.selectedGroup.Set("")
}

type session struct {
	mu     sync.RWMutex
	userID string
}

func (s *session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *session) set(id string) {
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}
