package backend

import (
	"context"
	"slices"
	"time"
)

// Purged counts the rows removed by PurgeArchived, per kind.
type Purged struct {
	Spaces    int
	Groups    int
	Bookmarks int
}

func (p Purged) Total() int { return p.Spaces + p.Groups + p.Bookmarks }

// PurgeArchived hard-deletes the user's entities archived before cutoff,
// together with every descendant of a purged space or group.
func (s *Service) PurgeArchived(ctx context.Context, userID string, cutoff time.Time) (Purged, error) {
	defer s.lock(userID)()

	var out Purged

	spaces, err := s.repo.Spaces().List(ctx, userID)
	if err != nil {
		return out, err
	}
	spaceIDs := expired(spaces, cutoff)

	groups, err := s.repo.Groups().List(ctx, userID)
	if err != nil {
		return out, err
	}
	groupIDs := expired(groups, cutoff)
	for _, g := range groups {
		if slices.Contains(spaceIDs, g.SpaceID) && !slices.Contains(groupIDs, g.ID) {
			groupIDs = append(groupIDs, g.ID)
		}
	}

	bookmarks, err := s.repo.Bookmarks().List(ctx, userID)
	if err != nil {
		return out, err
	}
	bookmarkIDs := expired(bookmarks, cutoff)
	for _, b := range bookmarks {
		if slices.Contains(groupIDs, b.GroupID) && !slices.Contains(bookmarkIDs, b.ID) {
			bookmarkIDs = append(bookmarkIDs, b.ID)
		}
	}

	// children first so an interrupted sweep never leaves orphans
	if len(bookmarkIDs) > 0 {
		if err := s.repo.Bookmarks().Delete(ctx, userID, bookmarkIDs...); err != nil {
			return out, err
		}
		out.Bookmarks = len(bookmarkIDs)
	}
	if len(groupIDs) > 0 {
		if err := s.repo.Groups().Delete(ctx, userID, groupIDs...); err != nil {
			return out, err
		}
		out.Groups = len(groupIDs)
	}
	if len(spaceIDs) > 0 {
		if err := s.repo.Spaces().Delete(ctx, userID, spaceIDs...); err != nil {
			return out, err
		}
		out.Spaces = len(spaceIDs)
	}
	return out, nil
}

type stamped interface {
	Key() string
	Archived() bool
	Updated() time.Time
}

func expired[T stamped](items []T, cutoff time.Time) []string {
	var ids []string
	for _, it := range items {
		if it.Archived() && !it.Updated().IsZero() && it.Updated().Before(cutoff) {
			ids = append(ids, it.Key())
		}
	}
	return ids
}
