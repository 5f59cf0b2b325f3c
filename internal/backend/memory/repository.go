// Package memory is an in-process backend.Repository, used when redis is
// not configured and in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Repository keeps every table in maps guarded by one RWMutex.
type Repository struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	spaces    *table[domain.Space]
	groups    *table[domain.Group]
	bookmarks *table[domain.Bookmark]
}

func New() *Repository {
	r := &Repository{users: make(map[string]domain.User)}
	r.spaces = &table[domain.Space]{mu: &r.mu, rows: map[string]map[string]domain.Space{}}
	r.groups = &table[domain.Group]{mu: &r.mu, rows: map[string]map[string]domain.Group{}}
	r.bookmarks = &table[domain.Bookmark]{mu: &r.mu, rows: map[string]map[string]domain.Bookmark{}}
	return r
}

func (r *Repository) Spaces() backend.Table[domain.Space]       { return r.spaces }
func (r *Repository) Groups() backend.Table[domain.Group]       { return r.groups }
func (r *Repository) Bookmarks() backend.Table[domain.Bookmark] { return r.bookmarks }

func (r *Repository) GetUser(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

func (r *Repository) PutUser(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[u.ID] = u
	return nil
}

func (r *Repository) Users(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Import writes the three collections under one lock.
func (r *Repository) Import(_ context.Context, userID string, ds domain.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spaces.putLocked(userID, ds.Spaces)
	r.groups.putLocked(userID, ds.Groups)
	r.bookmarks.putLocked(userID, ds.Bookmarks)
	return nil
}

func (r *Repository) Ping(context.Context) error { return nil }

type table[T domain.Record[T]] struct {
	mu   *sync.RWMutex
	rows map[string]map[string]T // userID -> id -> row
}

func (t *table[T]) List(_ context.Context, userID string) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := t.rows[userID]
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	// map iteration order is random; keep List deterministic
	slices.SortFunc(out, func(a, b T) int {
		if d := a.Position() - b.Position(); d != 0 {
			return d
		}
		switch {
		case a.Key() < b.Key():
			return -1
		case a.Key() > b.Key():
			return 1
		}
		return 0
	})
	return out, nil
}

func (t *table[T]) Put(_ context.Context, userID string, items ...T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.putLocked(userID, items)
	return nil
}

func (t *table[T]) putLocked(userID string, items []T) {
	rows, ok := t.rows[userID]
	if !ok {
		rows = make(map[string]T, len(items))
		t.rows[userID] = rows
	}
	for _, it := range items {
		rows[it.Key()] = it
	}
}

func (t *table[T]) Delete(_ context.Context, userID string, ids ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		delete(t.rows[userID], id)
	}
	return nil
}
