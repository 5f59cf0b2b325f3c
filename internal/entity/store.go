// Package entity implements the optimistic entity store shared by spaces,
// groups and bookmarks.
//
// Every mutation is applied to the in-memory collection before the remote
// call starts, reconciled with the server's echo when the call succeeds, and
// rolled back to the exact pre-call state when it fails. Overlapping
// mutations on the same id are last-response-wins.
package entity

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/observable"
	"github.com/MrSnakeDoc/marks/internal/optimistic"
)

// Session yields the identity mutations run under. An empty id means no
// user is logged in.
type Session interface {
	UserID() string
}

// Recorder observes mutation outcomes.
type Recorder interface {
	Mutation(kind, op string, err error)
}

// Dependent is a store whose entities live under another store's entities.
// The cascade package wires dependents; a store never removes entities of
// another store on its own.
type Dependent interface {
	DetachScopes(tx *optimistic.Tx, scopes map[string]struct{})
}

// Guard validates a staged entity against other stores before it is
// committed locally.
type Guard[T any] func(item T) error

type Config[T any, P any] struct {
	Kind     string // "space", "group", "bookmark"
	Prefix   string // id prefix, see domain.Prefix*
	Remote   api.Collection[T, P]
	Session  Session
	Logger   logger.Logger
	Recorder Recorder
	Now      func() time.Time
}

type Cell[T any] = observable.Value[T]

// Store owns one entity kind's collection.
type Store[T domain.Record[T], P domain.Patch[T]] struct {
	kind    string
	prefix  string
	remote  api.Collection[T, P]
	session Session
	log     logger.Logger
	rec     Recorder
	now     func() time.Time

	// mu serializes local staging and restores. It is never held across a
	// remote call.
	mu sync.Mutex
	// gen changes whenever Load or Clear replaces the whole collection.
	// Snapshots taken under an older generation are dropped on restore.
	gen        uint64
	cells      *observable.Value[[]*Cell[T]]
	loading    *observable.Value[bool]
	errMsg     *observable.Value[string]
	dependents []Dependent
	guard      Guard[T]
}

func New[T domain.Record[T], P domain.Patch[T]](cfg Config[T, P]) *Store[T, P] {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Store[T, P]{
		kind:    cfg.Kind,
		prefix:  cfg.Prefix,
		remote:  cfg.Remote,
		session: cfg.Session,
		log:     cfg.Logger,
		rec:     cfg.Recorder,
		now:     cfg.Now,
		cells:   observable.NewValue[[]*Cell[T]](nil),
		loading: observable.NewValue(false),
		errMsg:  observable.NewValue(""),
	}
}

// ─────────────────────────────────────────────────────────────────
// Observation
// ─────────────────────────────────────────────────────────────────

func (s *Store[T, P]) Kind() string { return s.kind }

// Remote returns the collection the store commits to.
func (s *Store[T, P]) Remote() api.Collection[T, P] { return s.remote }

// Cells returns the ordered list of entity cells.
func (s *Store[T, P]) Cells() []*Cell[T] { return s.cells.Get() }

// Watch subscribes to list-level changes (insert, remove, reorder, load).
func (s *Store[T, P]) Watch(fn func([]*Cell[T])) (unsubscribe func()) {
	return s.cells.Subscribe(fn)
}

// Loading is true while Load runs.
func (s *Store[T, P]) Loading() *observable.Value[bool] { return s.loading }

// Error holds the last Load failure message, "" when none.
func (s *Store[T, P]) Error() *observable.Value[string] { return s.errMsg }

// Items returns every entity value in collection order.
func (s *Store[T, P]) Items() []T {
	cells := s.cells.Get()
	out := make([]T, 0, len(cells))
	for _, c := range cells {
		out = append(out, c.Get())
	}
	return out
}

// Get returns the entity with id.
func (s *Store[T, P]) Get(id string) (T, bool) {
	if c, ok := s.Cell(id); ok {
		return c.Get(), true
	}
	var zero T
	return zero, false
}

// Has reports whether a live entity with id exists.
func (s *Store[T, P]) Has(id string) bool {
	v, ok := s.Get(id)
	return ok && !v.Archived()
}

// Cell returns the observable cell of id.
func (s *Store[T, P]) Cell(id string) (*Cell[T], bool) {
	for _, c := range s.cells.Get() {
		if c.Get().Key() == id {
			return c, true
		}
	}
	return nil, false
}

// Live returns the non-archived entities of scope sorted by order.
func (s *Store[T, P]) Live(scope string) []T {
	members := members(s.cells.Get(), scope, "")
	out := make([]T, 0, len(members))
	for _, c := range members {
		out = append(out, c.Get())
	}
	return out
}

// Count returns the number of live entities under scope.
func (s *Store[T, P]) Count(scope string) int {
	return len(members(s.cells.Get(), scope, ""))
}

// AddDependent registers a child store detached when entities of s go away.
func (s *Store[T, P]) AddDependent(d Dependent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dependents = append(s.dependents, d)
}

// SetGuard installs the cross-store validation run on staged entities.
func (s *Store[T, P]) SetGuard(g Guard[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard = g
}

// Clear drops the collection and resets the status slots.
func (s *Store[T, P]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cells.Set(nil)
	s.errMsg.Set("")
	s.loading.Set(false)
}

// ─────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────

// Load replaces the collection with the remote list sorted by order.
// A failure is recorded in the error slot and returned.
func (s *Store[T, P]) Load(ctx context.Context) ([]T, error) {
	s.loading.Set(true)
	defer s.loading.Set(false)
	s.errMsg.Set("")

	items, err := s.remote.List(ctx)
	if err != nil {
		s.errMsg.Set(err.Error())
		s.log.Warn("failed to load collection",
			logger.String("kind", s.kind),
			logger.Error(err))
		return nil, s.remoteErr("list", err)
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int { return a.Position() - b.Position() })

	cells := make([]*Cell[T], 0, len(sorted))
	for _, item := range sorted {
		cells = append(cells, observable.NewValue(item))
	}

	s.mu.Lock()
	s.gen++
	s.cells.Set(cells)
	s.mu.Unlock()

	s.log.Debug("collection loaded",
		logger.String("kind", s.kind),
		logger.Int("count", len(cells)))
	return sorted, nil
}

// Create inserts the entity built from draft immediately, then persists it.
// On failure the inserted entity is removed and nothing else changes.
func (s *Store[T, P]) Create(ctx context.Context, draft domain.Draft[T]) (T, error) {
	var zero T
	userID, err := s.requireSession()
	if err != nil {
		return zero, err
	}
	if err := draft.Validate(); err != nil {
		return zero, fmt.Errorf("create %s: %w", s.kind, err)
	}

	var (
		item T
		cell *Cell[T]
		out  T
	)
	err = optimistic.Do(ctx, func(tx *optimistic.Tx) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		order := len(members(s.cells.Get(), draft.Scope(), ""))
		item = draft.Build(domain.NewID(s.prefix), userID, order, s.now())
		if err := s.checkLocked(item); err != nil {
			return fmt.Errorf("create %s: %w", s.kind, err)
		}

		cell = observable.NewValue(item)
		gen := s.gen
		tx.Capture(cell, optimistic.SnapshotFunc(func() { s.removeCell(gen, cell) }))
		s.cells.Set(append(slices.Clone(s.cells.Get()), cell))

		s.log.Debug("optimistic create",
			logger.String("kind", s.kind),
			logger.String("id", item.Key()),
			logger.Int("order", order))
		return nil
	}, func(ctx context.Context) error {
		echo, err := s.remote.Create(ctx, item)
		if err != nil {
			return s.rollbackErr("create", item.Key(), err)
		}
		cell.Set(echo)
		out = echo
		return nil
	})
	s.rec.Mutation(s.kind, "create", err)
	if err != nil {
		return zero, err
	}
	return out, nil
}

// Update applies patch optimistically and restores the previous value if
// the remote update fails.
func (s *Store[T, P]) Update(ctx context.Context, id string, patch P) (T, error) {
	if err := patch.Validate(); err != nil {
		var zero T
		return zero, fmt.Errorf("update %s %s: %w", s.kind, id, err)
	}
	return s.Mutate(ctx, "update", id,
		func(st Staging[T, P], current T) (T, error) {
			next := patch.Apply(current)
			switch {
			case next.Archived() && !current.Archived():
				// leaving the live set: close the gap
				st.Compact(current.Scope(), current.Key())
			case !next.Archived() && current.Archived():
				next = next.WithPosition(st.Count(next.Scope(), next.Key()))
			}
			return next, nil
		},
		func(ctx context.Context) (T, error) { return s.remote.Update(ctx, id, patch) },
	)
}

// Mutate is the single-entity optimistic protocol behind Update and Move.
// stage runs with the store locked and returns the new value; it may
// capture and change siblings through Staging. call performs the remote
// request and returns the server's echo.
func (s *Store[T, P]) Mutate(
	ctx context.Context,
	op, id string,
	stage func(st Staging[T, P], current T) (T, error),
	call func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if _, err := s.requireSession(); err != nil {
		return zero, err
	}

	var (
		cell *Cell[T]
		out  T
	)
	err := optimistic.Do(ctx, func(tx *optimistic.Tx) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		cell = s.findLocked(id)
		if cell == nil {
			return fmt.Errorf("%s %s %s: %w", op, s.kind, id, domain.ErrNotFound)
		}
		s.captureCell(tx, cell)

		next, err := stage(Staging[T, P]{s: s, tx: tx}, cell.Get())
		if err != nil {
			return fmt.Errorf("%s %s %s: %w", op, s.kind, id, err)
		}
		if err := s.checkLocked(next); err != nil {
			return fmt.Errorf("%s %s %s: %w", op, s.kind, id, err)
		}
		cell.Set(next.Touched(s.now()))
		return nil
	}, func(ctx context.Context) error {
		echo, err := call(ctx)
		if err != nil {
			return s.rollbackErr(op, id, err)
		}
		cell.Set(echo)
		out = echo
		return nil
	})
	s.rec.Mutation(s.kind, op, err)
	if err != nil {
		return zero, err
	}
	return out, nil
}

// Delete removes id and, through the dependents wired by the cascade
// package, everything beneath it. Remaining siblings are renumbered so the
// scope keeps orders 0..n-1. Every touched collection is restored if the
// remote delete fails.
func (s *Store[T, P]) Delete(ctx context.Context, id string) error {
	if _, err := s.requireSession(); err != nil {
		return err
	}

	err := optimistic.Do(ctx, func(tx *optimistic.Tx) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.findLocked(id) == nil {
			return fmt.Errorf("delete %s %s: %w", s.kind, id, domain.ErrNotFound)
		}
		removed := s.detachLocked(tx, func(v T) bool { return v.Key() == id })

		s.log.Debug("optimistic delete",
			logger.String("kind", s.kind),
			logger.String("id", id),
			logger.Int("snapshots", tx.Len()),
			logger.Int("removed", len(removed)))
		return nil
	}, func(ctx context.Context) error {
		if err := s.remote.Delete(ctx, id); err != nil {
			return s.rollbackErr("delete", id, err)
		}
		return nil
	})
	s.rec.Mutation(s.kind, "delete", err)
	return err
}

// Reorder assigns order = index to orderedIDs, which must be exactly the
// live members of scope.
func (s *Store[T, P]) Reorder(ctx context.Context, scope string, orderedIDs []string) error {
	if _, err := s.requireSession(); err != nil {
		return err
	}

	err := optimistic.Do(ctx, func(tx *optimistic.Tx) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		byID := make(map[string]*Cell[T])
		for _, c := range members(s.cells.Get(), scope, "") {
			byID[c.Get().Key()] = c
		}
		for _, id := range orderedIDs {
			if s.findLocked(id) == nil {
				return fmt.Errorf("reorder %s %s: %w", s.kind, id, domain.ErrNotFound)
			}
		}
		if err := checkPermutation(orderedIDs, byID); err != nil {
			return fmt.Errorf("reorder %s in %q: %w", s.kind, scope, err)
		}

		s.captureList(tx)
		now := s.now()
		for i, id := range orderedIDs {
			c := byID[id]
			s.captureCell(tx, c)
			c.Set(c.Get().WithPosition(i).Touched(now))
		}
		s.cells.Set(sortByPosition(s.cells.Get()))
		return nil
	}, func(ctx context.Context) error {
		if err := s.remote.Reorder(ctx, scope, orderedIDs); err != nil {
			return s.rollbackErr("reorder", scope, err)
		}
		return nil
	})
	s.rec.Mutation(s.kind, "reorder", err)
	return err
}

// ─────────────────────────────────────────────────────────────────
// Cross-store hooks (used by the cascade package)
// ─────────────────────────────────────────────────────────────────

// DetachScopes removes every entity whose scope is in scopes, capturing the
// previous state in tx. It recurses into the store's own dependents.
func (s *Store[T, P]) DetachScopes(tx *optimistic.Tx, scopes map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked(tx, func(v T) bool {
		_, ok := scopes[v.Scope()]
		return ok
	})
}

// Rewrite replaces every entity matching match with change(entity),
// capturing each previous value in tx. It returns the number rewritten.
func (s *Store[T, P]) Rewrite(tx *optimistic.Tx, match func(T) bool, change func(T) T) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.cells.Get() {
		v := c.Get()
		if !match(v) {
			continue
		}
		s.captureCell(tx, c)
		c.Set(change(v))
		n++
	}
	return n
}

// Staging exposes sibling bookkeeping to a Mutate stage. It is only valid
// inside the stage callback.
type Staging[T domain.Record[T], P domain.Patch[T]] struct {
	s  *Store[T, P]
	tx *optimistic.Tx
}

// Tx is the transaction the mutation runs in.
func (st Staging[T, P]) Tx() *optimistic.Tx { return st.tx }

// Count returns the live members of scope, ignoring exclude.
func (st Staging[T, P]) Count(scope, exclude string) int {
	return len(members(st.s.cells.Get(), scope, exclude))
}

// Compact renumbers the live members of scope (ignoring exclude) to 0..n-1.
func (st Staging[T, P]) Compact(scope, exclude string) {
	st.s.compactLocked(st.tx, scope, exclude)
}

// ─────────────────────────────────────────────────────────────────
// Internals (s.mu held unless stated otherwise)
// ─────────────────────────────────────────────────────────────────

func (s *Store[T, P]) requireSession() (string, error) {
	if s.session == nil {
		return "", domain.ErrNotAuthenticated
	}
	id := s.session.UserID()
	if id == "" {
		return "", domain.ErrNotAuthenticated
	}
	return id, nil
}

func (s *Store[T, P]) checkLocked(item T) error {
	if s.guard == nil {
		return nil
	}
	return s.guard(item)
}

func (s *Store[T, P]) findLocked(id string) *Cell[T] {
	for _, c := range s.cells.Get() {
		if c.Get().Key() == id {
			return c
		}
	}
	return nil
}

// detachLocked removes the entities matching match together with their
// dependents and compacts the scopes they left. Parents are captured before
// children and children are removed before parents, so no observer sees a
// child whose parent is gone.
func (s *Store[T, P]) detachLocked(tx *optimistic.Tx, match func(T) bool) map[string]struct{} {
	cells := s.cells.Get()
	keep := make([]*Cell[T], 0, len(cells))
	removed := make(map[string]struct{})
	scopes := make(map[string]struct{})
	for _, c := range cells {
		v := c.Get()
		if match(v) {
			removed[v.Key()] = struct{}{}
			scopes[v.Scope()] = struct{}{}
			continue
		}
		keep = append(keep, c)
	}
	if len(removed) == 0 {
		return removed
	}

	s.captureList(tx)
	for _, d := range s.dependents {
		d.DetachScopes(tx, removed)
	}
	s.cells.Set(keep)
	for scope := range scopes {
		s.compactLocked(tx, scope, "")
	}
	return removed
}

func (s *Store[T, P]) compactLocked(tx *optimistic.Tx, scope, exclude string) {
	for i, c := range members(s.cells.Get(), scope, exclude) {
		v := c.Get()
		if v.Position() == i {
			continue
		}
		s.captureCell(tx, c)
		c.Set(v.WithPosition(i))
	}
}

// captureList snapshots the list arrangement. Restoring puts back the
// captured cells in their captured order and keeps cells added since by
// concurrent creates. Nothing is restored once the collection was reloaded
// or cleared.
func (s *Store[T, P]) captureList(tx *optimistic.Tx) {
	prev := s.cells.Get()
	gen := s.gen
	tx.Capture(s, optimistic.SnapshotFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}

		seen := make(map[*Cell[T]]struct{}, len(prev))
		out := slices.Clone(prev)
		for _, c := range prev {
			seen[c] = struct{}{}
		}
		for _, c := range s.cells.Get() {
			if _, ok := seen[c]; !ok {
				out = append(out, c)
			}
		}
		s.cells.Set(out)
	}))
}

// removeCell drops exactly cell unless the collection was replaced since
// gen; it takes s.mu itself.
func (s *Store[T, P]) removeCell(gen uint64, cell *Cell[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.cells.Set(slices.DeleteFunc(slices.Clone(s.cells.Get()), func(c *Cell[T]) bool { return c == cell }))
}

func (s *Store[T, P]) remoteErr(op string, err error) error {
	return &domain.RemoteError{Op: s.kind + "." + op, Err: err}
}

func (s *Store[T, P]) rollbackErr(op, id string, err error) error {
	s.log.Warn("remote call failed, rolling back",
		logger.String("kind", s.kind),
		logger.String("op", op),
		logger.String("id", id),
		logger.Error(err))
	return s.remoteErr(op, err)
}

// captureCell snapshots one entity value. Like captureList it restores
// nothing into a collection that was replaced since.
func (s *Store[T, P]) captureCell(tx *optimistic.Tx, c *Cell[T]) {
	prev := c.Get()
	gen := s.gen
	tx.Capture(c, optimistic.SnapshotFunc(func() {
		s.mu.Lock()
		stale := s.gen != gen
		s.mu.Unlock()
		if !stale {
			c.Set(prev)
		}
	}))
}

// members returns the live cells of scope sorted by order.
func members[T domain.Record[T]](cells []*Cell[T], scope, exclude string) []*Cell[T] {
	var out []*Cell[T]
	for _, c := range cells {
		v := c.Get()
		if v.Scope() != scope || v.Archived() || v.Key() == exclude {
			continue
		}
		out = append(out, c)
	}
	return sortByPosition(out)
}

func sortByPosition[T domain.Record[T]](cells []*Cell[T]) []*Cell[T] {
	out := slices.Clone(cells)
	slices.SortStableFunc(out, func(a, b *Cell[T]) int {
		return a.Get().Position() - b.Get().Position()
	})
	return out
}

func checkPermutation[T any](ids []string, byID map[string]*Cell[T]) error {
	if len(ids) != len(byID) {
		return fmt.Errorf("%w: expected %d ids, got %d", domain.ErrInvalidInput, len(byID), len(ids))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("%w: %s is not a member of the scope", domain.ErrInvalidInput, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Mutation(string, string, error) {}
