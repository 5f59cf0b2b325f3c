// Package apitest provides in-memory remotes with fault injection for tests
// of the sync engine.
package apitest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
)

// ErrUnavailable is a convenient injected failure.
var ErrUnavailable = errors.New("remote unavailable")

// Collection is an in-memory api.Collection.
type Collection[T domain.Record[T], P domain.Patch[T]] struct {
	mu     sync.Mutex
	items  []T
	errs   map[string]error
	calls  []string
	onCall func(op string)
}

func NewCollection[T domain.Record[T], P domain.Patch[T]](seed ...T) *Collection[T, P] {
	return &Collection[T, P]{items: slices.Clone(seed), errs: map[string]error{}}
}

// Fail makes every later call of op return err. A nil err clears it.
func (c *Collection[T, P]) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, op)
		return
	}
	c.errs[op] = err
}

// OnCall registers fn to run at the start of every call, before any
// failure is returned. Tests use it to observe optimistic state.
func (c *Collection[T, P]) OnCall(fn func(op string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCall = fn
}

// Calls returns the ops received so far.
func (c *Collection[T, P]) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// Items returns the stored entities.
func (c *Collection[T, P]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Collection[T, P]) begin(ctx context.Context, op string) error {
	c.mu.Lock()
	c.calls = append(c.calls, op)
	hook := c.onCall
	err := c.errs[op]
	c.mu.Unlock()

	if hook != nil {
		hook(op)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return err
}

func (c *Collection[T, P]) List(ctx context.Context) ([]T, error) {
	if err := c.begin(ctx, "list"); err != nil {
		return nil, err
	}
	return c.Items(), nil
}

func (c *Collection[T, P]) Create(ctx context.Context, item T) (T, error) {
	if err := c.begin(ctx, "create"); err != nil {
		var zero T
		return zero, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return item, nil
}

func (c *Collection[T, P]) Update(ctx context.Context, id string, patch P) (T, error) {
	var zero T
	if err := c.begin(ctx, "update"); err != nil {
		return zero, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it.Key() == id {
			c.items[i] = patch.Apply(it)
			return c.items[i], nil
		}
	}
	return zero, domain.ErrNotFound
}

func (c *Collection[T, P]) Delete(ctx context.Context, id string) error {
	if err := c.begin(ctx, "delete"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.DeleteFunc(c.items, func(it T) bool { return it.Key() == id })
	return nil
}

func (c *Collection[T, P]) Reorder(ctx context.Context, _ string, orderedIDs []string) error {
	if err := c.begin(ctx, "reorder"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for pos, id := range orderedIDs {
		for i, it := range c.items {
			if it.Key() == id {
				c.items[i] = it.WithPosition(pos)
			}
		}
	}
	return nil
}

// Bookmarks adds Move to the bookmark collection.
type Bookmarks struct {
	*Collection[domain.Bookmark, domain.BookmarkPatch]
}

func NewBookmarks(seed ...domain.Bookmark) *Bookmarks {
	return &Bookmarks{Collection: NewCollection[domain.Bookmark, domain.BookmarkPatch](seed...)}
}

func (b *Bookmarks) Move(ctx context.Context, id string, to domain.Move) (domain.Bookmark, error) {
	if err := b.begin(ctx, "move"); err != nil {
		return domain.Bookmark{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	order := 0
	for _, it := range b.items {
		if it.GroupID == to.GroupID && it.ID != id && !it.IsArchived {
			order++
		}
	}
	for i, it := range b.items {
		if it.ID == id {
			it.GroupID, it.SpaceID, it.Order = to.GroupID, to.SpaceID, order
			b.items[i] = it
			return it, nil
		}
	}
	return domain.Bookmark{}, domain.ErrNotFound
}

// Sync is an in-memory api.SyncAPI over the three fake collections. Push
// upserts by id.
type Sync struct {
	spaces    *Collection[domain.Space, domain.SpacePatch]
	groups    *Collection[domain.Group, domain.GroupPatch]
	bookmarks *Bookmarks

	mu     sync.Mutex
	user   domain.User
	errs   map[string]error
	calls  []string
	pushes int
}

// NewSync returns a Sync holding seed in fresh collections.
func NewSync(seed domain.Dataset) *Sync {
	return &Sync{
		spaces:    NewCollection[domain.Space, domain.SpacePatch](seed.Spaces...),
		groups:    NewCollection[domain.Group, domain.GroupPatch](seed.Groups...),
		bookmarks: NewBookmarks(seed.Bookmarks...),
		errs:      map[string]error{},
	}
}

func (s *Sync) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

func (s *Sync) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *Sync) Pushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes
}

// Data returns everything stored.
func (s *Sync) Data() domain.Dataset {
	return domain.Dataset{
		Spaces:    s.spaces.Items(),
		Groups:    s.groups.Items(),
		Bookmarks: s.bookmarks.Items(),
	}
}

func (s *Sync) begin(ctx context.Context, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.errs[op]
}

func (s *Sync) EnsureUser(ctx context.Context, p domain.Profile) (domain.User, error) {
	if err := s.begin(ctx, "ensureUser"); err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.Email, s.user.Name, s.user.AvatarURL = p.Email, p.Name, p.AvatarURL
	return s.user, nil
}

func (s *Sync) Pull(ctx context.Context) (domain.Dataset, error) {
	if err := s.begin(ctx, "pull"); err != nil {
		return domain.Dataset{}, err
	}
	return s.Data(), nil
}

func (s *Sync) Push(ctx context.Context, ds domain.Dataset) error {
	if err := s.begin(ctx, "push"); err != nil {
		return err
	}
	s.mu.Lock()
	s.pushes++
	s.mu.Unlock()

	s.spaces.upsert(ds.Spaces)
	s.groups.upsert(ds.Groups)
	s.bookmarks.upsert(ds.Bookmarks)
	return nil
}

func (s *Sync) Status(ctx context.Context) (api.Status, error) {
	if err := s.begin(ctx, "status"); err != nil {
		return api.Status{}, err
	}
	return api.Status{HasServerData: len(s.spaces.Items()) > 0}, nil
}

func (c *Collection[T, P]) upsert(src []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, in := range src {
		i := slices.IndexFunc(c.items, func(it T) bool { return it.Key() == in.Key() })
		if i >= 0 {
			c.items[i] = in
			continue
		}
		c.items = append(c.items, in)
	}
}

// Remote bundles fresh fakes into an api.Remote.
type Remote struct {
	Spaces    *Collection[domain.Space, domain.SpacePatch]
	Groups    *Collection[domain.Group, domain.GroupPatch]
	Bookmarks *Bookmarks
	Sync      *Sync
}

// NewRemote returns fakes sharing one dataset: what Push writes, List reads.
func NewRemote(seed domain.Dataset) *Remote {
	s := NewSync(seed)
	return &Remote{Spaces: s.spaces, Groups: s.groups, Bookmarks: s.bookmarks, Sync: s}
}

func (r *Remote) API() api.Remote {
	return api.Remote{Spaces: r.Spaces, Groups: r.Groups, Bookmarks: r.Bookmarks, Sync: r.Sync}
}
