// Package backend is the server side of marks: per-user CRUD over spaces,
// groups and bookmarks with last-write-wins semantics, plus the sync
// endpoints used at sign-in.
package backend

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time

	// compound operations (cascade, compaction) are serialized per user
	locks sync.Map // userID -> *sync.Mutex
}

func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Repository returns the underlying persistence.
func (s *Service) Repository() Repository { return s.repo }

// For returns the remote contract bound to userID.
func (s *Service) For(userID string) api.Remote {
	return api.Remote{
		Spaces:    &spaces{s: s, uid: userID},
		Groups:    &groups{s: s, uid: userID},
		Bookmarks: &bookmarks{s: s, uid: userID},
		Sync:      &syncer{s: s, uid: userID},
	}
}

func (s *Service) lock(userID string) func() {
	m, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ─────────────────────────────────────────────────────────────────
// Helpers shared by the three collections
// ─────────────────────────────────────────────────────────────────

func find[T domain.Record[T]](items []T, id string) (T, bool) {
	for _, it := range items {
		if it.Key() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// live returns the non-archived items of scope sorted by order.
func live[T domain.Record[T]](items []T, scope, exclude string) []T {
	var out []T
	for _, it := range items {
		if it.Scope() == scope && !it.Archived() && it.Key() != exclude {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b T) int { return a.Position() - b.Position() })
	return out
}

func liveAll[T domain.Record[T]](items []T) []T {
	var out []T
	for _, it := range items {
		if !it.Archived() {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b T) int { return a.Position() - b.Position() })
	return out
}

// compact renumbers the live members of scope to 0..n-1 and returns those
// whose order changed.
func compact[T domain.Record[T]](items []T, scope, exclude string) []T {
	var changed []T
	for i, it := range live(items, scope, exclude) {
		if it.Position() != i {
			changed = append(changed, it.WithPosition(i))
		}
	}
	return changed
}

// transition handles the archive flag flipping: leaving the live set closes
// the gap, re-entering appends at the end.
func transition[T domain.Record[T]](items []T, before, after T) (T, []T) {
	switch {
	case after.Archived() && !before.Archived():
		return after, compact(items, before.Scope(), before.Key())
	case !after.Archived() && before.Archived():
		return after.WithPosition(len(live(items, after.Scope(), after.Key()))), nil
	}
	return after, nil
}

func reorder[T domain.Record[T]](items []T, scope string, ids []string, now time.Time) ([]T, error) {
	members := live(items, scope, "")
	if len(ids) != len(members) {
		return nil, fmt.Errorf("%w: expected %d ids, got %d", domain.ErrInvalidInput, len(members), len(ids))
	}
	out := make([]T, 0, len(ids))
	for i, id := range ids {
		it, ok := find(members, id)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not in scope %q", domain.ErrInvalidInput, id, scope)
		}
		out = append(out, it.WithPosition(i).Touched(now))
	}
	return out, nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────
// Spaces
// ─────────────────────────────────────────────────────────────────

type spaces struct {
	s   *Service
	uid string
}

func (c *spaces) List(ctx context.Context) ([]domain.Space, error) {
	items, err := c.s.repo.Spaces().List(ctx, c.uid)
	if err != nil {
		return nil, err
	}
	return liveAll(items), nil
}

func (c *spaces) Create(ctx context.Context, item domain.Space) (domain.Space, error) {
	in := domain.SpaceInput{Name: item.Name, Icon: item.Icon, Color: item.Color}
	if err := in.Validate(); err != nil {
		return domain.Space{}, err
	}
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Spaces().List(ctx, c.uid)
	if err != nil {
		return domain.Space{}, err
	}
	if item.ID == "" {
		item.ID = domain.NewID(domain.PrefixSpace)
	}
	now := c.s.now()
	out := in.Build(item.ID, c.uid, len(live(items, "", item.ID)), now)
	if err := c.s.repo.Spaces().Put(ctx, c.uid, out); err != nil {
		return domain.Space{}, err
	}
	return out, nil
}

func (c *spaces) Update(ctx context.Context, id string, patch domain.SpacePatch) (domain.Space, error) {
	if err := patch.Validate(); err != nil {
		return domain.Space{}, err
	}
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Spaces().List(ctx, c.uid)
	if err != nil {
		return domain.Space{}, err
	}
	cur, ok := find(items, id)
	if !ok {
		return domain.Space{}, notFound("space", id)
	}
	next, siblings := transition(items, cur, patch.Apply(cur))
	next.UpdatedAt = c.s.now()
	if err := c.s.repo.Spaces().Put(ctx, c.uid, append(siblings, next)...); err != nil {
		return domain.Space{}, err
	}
	return next, nil
}

// Delete removes the space, its groups and their bookmarks.
func (c *spaces) Delete(ctx context.Context, id string) error {
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Spaces().List(ctx, c.uid)
	if err != nil {
		return err
	}
	if _, ok := find(items, id); !ok {
		return notFound("space", id)
	}

	groupItems, err := c.s.repo.Groups().List(ctx, c.uid)
	if err != nil {
		return err
	}
	var groupIDs []string
	for _, g := range groupItems {
		if g.SpaceID == id {
			groupIDs = append(groupIDs, g.ID)
		}
	}
	if err := c.s.deleteBookmarksIn(ctx, c.uid, groupIDs); err != nil {
		return err
	}
	if err := c.s.repo.Groups().Delete(ctx, c.uid, groupIDs...); err != nil {
		return err
	}
	if err := c.s.repo.Spaces().Delete(ctx, c.uid, id); err != nil {
		return err
	}

	items = slices.DeleteFunc(items, func(s domain.Space) bool { return s.ID == id })
	if changed := compact(items, "", ""); len(changed) > 0 {
		return c.s.repo.Spaces().Put(ctx, c.uid, changed...)
	}
	return nil
}

func (c *spaces) Reorder(ctx context.Context, _ string, orderedIDs []string) error {
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Spaces().List(ctx, c.uid)
	if err != nil {
		return err
	}
	out, err := reorder(items, "", orderedIDs, c.s.now())
	if err != nil {
		return err
	}
	return c.s.repo.Spaces().Put(ctx, c.uid, out...)
}

// ─────────────────────────────────────────────────────────────────
// Groups
// ─────────────────────────────────────────────────────────────────

type groups struct {
	s   *Service
	uid string
}

func (c *groups) List(ctx context.Context) ([]domain.Group, error) {
	items, err := c.s.repo.Groups().List(ctx, c.uid)
	if err != nil {
		return nil, err
	}
	return liveAll(items), nil
}

func (c *groups) Create(ctx context.Context, item domain.Group) (domain.Group, error) {
	in := domain.GroupInput{SpaceID: item.SpaceID, Name: item.Name, Icon: item.Icon}
	if err := in.Validate(); err != nil {
		return domain.Group{}, err
	}
	defer c.s.lock(c.uid)()

	if err := c.s.requireSpace(ctx, c.uid, item.SpaceID); err != nil {
		return domain.Group{}, err
	}
	items, err := c.s.repo.Groups().List(ctx, c.uid)
	if err != nil {
		return domain.Group{}, err
	}
	if item.ID == "" {
		item.ID = domain.NewID(domain.PrefixGroup)
	}
	out := in.Build(item.ID, c.uid, len(live(items, item.SpaceID, item.ID)), c.s.now())
	if err := c.s.repo.Groups().Put(ctx, c.uid, out); err != nil {
		return domain.Group{}, err
	}
	return out, nil
}

// Update applies patch. A spaceId change appends the group to the target
// space and rewrites the spaceId of its bookmarks.
func (c *groups) Update(ctx context.Context, id string, patch domain.GroupPatch) (domain.Group, error) {
	if err := patch.Validate(); err != nil {
		return domain.Group{}, err
	}
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Groups().List(ctx, c.uid)
	if err != nil {
		return domain.Group{}, err
	}
	cur, ok := find(items, id)
	if !ok {
		return domain.Group{}, notFound("group", id)
	}
	next := patch.Apply(cur)
	var siblings []domain.Group

	if next.SpaceID != cur.SpaceID {
		if err := c.s.requireSpace(ctx, c.uid, next.SpaceID); err != nil {
			return domain.Group{}, err
		}
		siblings = compact(items, cur.SpaceID, cur.ID)
		next.Order = len(live(items, next.SpaceID, cur.ID))
		if err := c.s.relocateBookmarks(ctx, c.uid, cur.ID, next.SpaceID); err != nil {
			return domain.Group{}, err
		}
	} else {
		next, siblings = transition(items, cur, next)
	}

	next.UpdatedAt = c.s.now()
	if err := c.s.repo.Groups().Put(ctx, c.uid, append(siblings, next)...); err != nil {
		return domain.Group{}, err
	}
	return next, nil
}

// Delete removes the group and its bookmarks.
func (c *groups) Delete(ctx context.Context, id string) error {
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Groups().List(ctx, c.uid)
	if err != nil {
		return err
	}
	cur, ok := find(items, id)
	if !ok {
		return notFound("group", id)
	}
	if err := c.s.deleteBookmarksIn(ctx, c.uid, []string{id}); err != nil {
		return err
	}
	if err := c.s.repo.Groups().Delete(ctx, c.uid, id); err != nil {
		return err
	}

	items = slices.DeleteFunc(items, func(g domain.Group) bool { return g.ID == id })
	if changed := compact(items, cur.SpaceID, ""); len(changed) > 0 {
		return c.s.repo.Groups().Put(ctx, c.uid, changed...)
	}
	return nil
}

func (c *groups) Reorder(ctx context.Context, spaceID string, orderedIDs []string) error {
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Groups().List(ctx, c.uid)
	if err != nil {
		return err
	}
	out, err := reorder(items, spaceID, orderedIDs, c.s.now())
	if err != nil {
		return err
	}
	return c.s.repo.Groups().Put(ctx, c.uid, out...)
}

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

type bookmarks struct {
	s   *Service
	uid string
}

func (c *bookmarks) List(ctx context.Context) ([]domain.Bookmark, error) {
	items, err := c.s.repo.Bookmarks().List(ctx, c.uid)
	if err != nil {
		return nil, err
	}
	return liveAll(items), nil
}

func (c *bookmarks) Create(ctx context.Context, item domain.Bookmark) (domain.Bookmark, error) {
	in := domain.BookmarkInput{
		SpaceID:     item.SpaceID,
		GroupID:     item.GroupID,
		Title:       item.Title,
		URL:         item.URL,
		FaviconURL:  item.FaviconURL,
		Description: item.Description,
	}
	if err := in.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	defer c.s.lock(c.uid)()

	if err := c.s.requirePlacement(ctx, c.uid, item.GroupID, item.SpaceID); err != nil {
		return domain.Bookmark{}, err
	}
	items, err := c.s.repo.Bookmarks().List(ctx, c.uid)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if item.ID == "" {
		item.ID = domain.NewID(domain.PrefixBookmark)
	}
	out := in.Build(item.ID, c.uid, len(live(items, item.GroupID, item.ID)), c.s.now())
	out.IsPinned = item.IsPinned
	if err := c.s.repo.Bookmarks().Put(ctx, c.uid, out); err != nil {
		return domain.Bookmark{}, err
	}
	return out, nil
}

func (c *bookmarks) Update(ctx context.Context, id string, patch domain.BookmarkPatch) (domain.Bookmark, error) {
	if err := patch.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Bookmarks().List(ctx, c.uid)
	if err != nil {
		return domain.Bookmark{}, err
	}
	cur, ok := find(items, id)
	if !ok {
		return domain.Bookmark{}, notFound("bookmark", id)
	}
	next, siblings := transition(items, cur, patch.Apply(cur))
	next.UpdatedAt = c.s.now()
	if err := c.s.repo.Bookmarks().Put(ctx, c.uid, append(siblings, next)...); err != nil {
		return domain.Bookmark{}, err
	}
	return next, nil
}

func (c *bookmarks) Delete(ctx context.Context, id string) error {
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Bookmarks().List(ctx, c.uid)
	if err != nil {
		return err
	}
	cur, ok := find(items, id)
	if !ok {
		return notFound("bookmark", id)
	}
	if err := c.s.repo.Bookmarks().Delete(ctx, c.uid, id); err != nil {
		return err
	}
	items = slices.DeleteFunc(items, func(b domain.Bookmark) bool { return b.ID == id })
	if changed := compact(items, cur.GroupID, ""); len(changed) > 0 {
		return c.s.repo.Bookmarks().Put(ctx, c.uid, changed...)
	}
	return nil
}

func (c *bookmarks) Reorder(ctx context.Context, groupID string, orderedIDs []string) error {
	defer c.s.lock(c.uid)()

	items, err := c.s.repo.Bookmarks().List(ctx, c.uid)
	if err != nil {
		return err
	}
	out, err := reorder(items, groupID, orderedIDs, c.s.now())
	if err != nil {
		return err
	}
	return c.s.repo.Bookmarks().Put(ctx, c.uid, out...)
}

// Move appends the bookmark to the target group and closes the gap in the
// source group.
func (c *bookmarks) Move(ctx context.Context, id string, to domain.Move) (domain.Bookmark, error) {
	if err := to.Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	defer c.s.lock(c.uid)()

	if err := c.s.requirePlacement(ctx, c.uid, to.GroupID, to.SpaceID); err != nil {
		return domain.Bookmark{}, err
	}
	items, err := c.s.repo.Bookmarks().List(ctx, c.uid)
	if err != nil {
		return domain.Bookmark{}, err
	}
	cur, ok := find(items, id)
	if !ok {
		return domain.Bookmark{}, notFound("bookmark", id)
	}

	siblings := compact(items, cur.GroupID, cur.ID)
	next := cur
	next.Order = len(live(items, to.GroupID, cur.ID))
	next.GroupID, next.SpaceID = to.GroupID, to.SpaceID
	next.UpdatedAt = c.s.now()

	if err := c.s.repo.Bookmarks().Put(ctx, c.uid, append(siblings, next)...); err != nil {
		return domain.Bookmark{}, err
	}
	return next, nil
}

// ─────────────────────────────────────────────────────────────────
// Cross-table helpers (user lock held)
// ─────────────────────────────────────────────────────────────────

func (s *Service) requireSpace(ctx context.Context, uid, spaceID string) error {
	items, err := s.repo.Spaces().List(ctx, uid)
	if err != nil {
		return err
	}
	if _, ok := find(items, spaceID); !ok {
		return notFound("space", spaceID)
	}
	return nil
}

func (s *Service) requirePlacement(ctx context.Context, uid, groupID, spaceID string) error {
	items, err := s.repo.Groups().List(ctx, uid)
	if err != nil {
		return err
	}
	g, ok := find(items, groupID)
	if !ok {
		return notFound("group", groupID)
	}
	if g.SpaceID != spaceID {
		return fmt.Errorf("%w: group %s belongs to space %s", domain.ErrInvalidInput, groupID, g.SpaceID)
	}
	return nil
}

func (s *Service) deleteBookmarksIn(ctx context.Context, uid string, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	items, err := s.repo.Bookmarks().List(ctx, uid)
	if err != nil {
		return err
	}
	var ids []string
	for _, b := range items {
		if slices.Contains(groupIDs, b.GroupID) {
			ids = append(ids, b.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return s.repo.Bookmarks().Delete(ctx, uid, ids...)
}

func (s *Service) relocateBookmarks(ctx context.Context, uid, groupID, spaceID string) error {
	items, err := s.repo.Bookmarks().List(ctx, uid)
	if err != nil {
		return err
	}
	var changed []domain.Bookmark
	for _, b := range items {
		if b.GroupID == groupID && b.SpaceID != spaceID {
			b.SpaceID = spaceID
			changed = append(changed, b)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return s.repo.Bookmarks().Put(ctx, uid, changed...)
}
