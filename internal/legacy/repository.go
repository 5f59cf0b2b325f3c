// Package legacy reads and writes the dataset a user built before signing
// in (local mode), one JSON document per collection.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/kv"
)

type Repository struct {
	store kv.Store
}

func New(store kv.Store) *Repository {
	return &Repository{store: store}
}

// Load returns the legacy dataset of identity. Missing collections are empty.
func (r *Repository) Load(ctx context.Context, identity string) (domain.Dataset, error) {
	var ds domain.Dataset
	if err := r.get(ctx, DatasetKey(identity, CollectionSpaces), &ds.Spaces); err != nil {
		return domain.Dataset{}, err
	}
	if err := r.get(ctx, DatasetKey(identity, CollectionGroups), &ds.Groups); err != nil {
		return domain.Dataset{}, err
	}
	if err := r.get(ctx, DatasetKey(identity, CollectionBookmarks), &ds.Bookmarks); err != nil {
		return domain.Dataset{}, err
	}
	return ds, nil
}

// Save replaces the legacy dataset of identity.
func (r *Repository) Save(ctx context.Context, identity string, ds domain.Dataset) error {
	if err := r.put(ctx, DatasetKey(identity, CollectionSpaces), ds.Spaces); err != nil {
		return err
	}
	if err := r.put(ctx, DatasetKey(identity, CollectionGroups), ds.Groups); err != nil {
		return err
	}
	return r.put(ctx, DatasetKey(identity, CollectionBookmarks), ds.Bookmarks)
}

// Clear removes the legacy dataset of identity.
func (r *Repository) Clear(ctx context.Context, identity string) error {
	for _, c := range []string{CollectionSpaces, CollectionGroups, CollectionBookmarks} {
		if err := r.store.Delete(ctx, DatasetKey(identity, c)); err != nil {
			return fmt.Errorf("failed to clear legacy %s: %w", c, err)
		}
	}
	return nil
}

// Discarded reports whether identity chose to discard its legacy data.
func (r *Repository) Discarded(ctx context.Context, identity string) (bool, error) {
	_, err := r.store.Get(ctx, DiscardedKey(identity))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read discard marker: %w", err)
	}
	return true, nil
}

func (r *Repository) MarkDiscarded(ctx context.Context, identity string) error {
	if err := r.store.Set(ctx, DiscardedKey(identity), []byte("1")); err != nil {
		return fmt.Errorf("failed to write discard marker: %w", err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, key string, dst any) error {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (r *Repository) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return r.store.Set(ctx, key, data)
}
