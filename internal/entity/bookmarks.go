package entity

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
)

type (
	SpaceStore = Store[domain.Space, domain.SpacePatch]
	GroupStore = Store[domain.Group, domain.GroupPatch]
)

func NewSpaceStore(cfg Config[domain.Space, domain.SpacePatch]) *SpaceStore {
	cfg.Kind, cfg.Prefix = "space", domain.PrefixSpace
	return New(cfg)
}

func NewGroupStore(cfg Config[domain.Group, domain.GroupPatch]) *GroupStore {
	cfg.Kind, cfg.Prefix = "group", domain.PrefixGroup
	return New(cfg)
}

// BookmarkStore adds Move to the generic store.
type BookmarkStore struct {
	*Store[domain.Bookmark, domain.BookmarkPatch]
	remote api.BookmarkAPI
}

func NewBookmarkStore(remote api.BookmarkAPI, cfg Config[domain.Bookmark, domain.BookmarkPatch]) *BookmarkStore {
	cfg.Kind, cfg.Prefix = "bookmark", domain.PrefixBookmark
	cfg.Remote = remote
	return &BookmarkStore{Store: New(cfg), remote: remote}
}

// Move places id at the end of to.GroupID and closes the gap it leaves in
// its source group. A failed remote move restores both groups.
func (s *BookmarkStore) Move(ctx context.Context, id string, to domain.Move) (domain.Bookmark, error) {
	if err := to.Validate(); err != nil {
		return domain.Bookmark{}, fmt.Errorf("move bookmark %s: %w", id, err)
	}
	return s.Mutate(ctx, "move", id,
		func(st Staging[domain.Bookmark, domain.BookmarkPatch], current domain.Bookmark) (domain.Bookmark, error) {
			st.Compact(current.GroupID, current.ID)
			current.Order = st.Count(to.GroupID, current.ID)
			current.GroupID = to.GroupID
			current.SpaceID = to.SpaceID
			return current, nil
		},
		func(ctx context.Context) (domain.Bookmark, error) { return s.remote.Move(ctx, id, to) },
	)
}
