// Package cascade keeps spaces, groups and bookmarks referentially
// consistent. It wires the three entity stores together so that removing a
// parent removes its descendants inside the same optimistic transaction,
// and so that staged entities always point at existing parents.
package cascade

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/entity"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Coordinator performs the operations that span more than one store.
type Coordinator struct {
	spaces    *entity.SpaceStore
	groups    *entity.GroupStore
	bookmarks *entity.BookmarkStore
	log       logger.Logger
}

// Link registers groups as dependents of spaces and bookmarks as dependents
// of groups, and installs parent checks on the child stores.
func Link(spaces *entity.SpaceStore, groups *entity.GroupStore, bookmarks *entity.BookmarkStore, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}

	spaces.AddDependent(groups)
	groups.AddDependent(bookmarks)

	// Live children need a live parent. Archiving a child under an archived
	// parent stays allowed.
	groups.SetGuard(func(g domain.Group) error {
		if !g.IsArchived && !spaces.Has(g.SpaceID) {
			return fmt.Errorf("space %s: %w", g.SpaceID, domain.ErrNotFound)
		}
		return nil
	})
	bookmarks.SetGuard(func(b domain.Bookmark) error {
		g, ok := groups.Get(b.GroupID)
		if !ok || (!b.IsArchived && g.IsArchived) {
			return fmt.Errorf("group %s: %w", b.GroupID, domain.ErrNotFound)
		}
		if g.SpaceID != b.SpaceID {
			return fmt.Errorf("%w: bookmark spaceId %s does not match group space %s",
				domain.ErrInvalidInput, b.SpaceID, g.SpaceID)
		}
		return nil
	})

	return &Coordinator{spaces: spaces, groups: groups, bookmarks: bookmarks, log: log}
}

// UpdateGroup applies patch to a group. A patch that relocates the group to
// another space goes through MoveGroup.
func (c *Coordinator) UpdateGroup(ctx context.Context, id string, patch domain.GroupPatch) (domain.Group, error) {
	if patch.SpaceID != nil {
		if g, ok := c.groups.Get(id); ok && g.SpaceID != *patch.SpaceID {
			return c.MoveGroup(ctx, id, patch)
		}
	}
	return c.groups.Update(ctx, id, patch)
}

// MoveGroup relocates a group to patch.SpaceID, appending it to the target
// space and closing the gap in the source space. Every bookmark of the group
// follows with its spaceId rewritten; a failed remote update restores the
// group, both spaces' orders and the bookmarks.
func (c *Coordinator) MoveGroup(ctx context.Context, id string, patch domain.GroupPatch) (domain.Group, error) {
	if patch.SpaceID == nil {
		return domain.Group{}, fmt.Errorf("move group %s: %w: spaceId is required", id, domain.ErrInvalidInput)
	}
	if err := patch.Validate(); err != nil {
		return domain.Group{}, fmt.Errorf("move group %s: %w", id, err)
	}
	target := *patch.SpaceID

	return c.groups.Mutate(ctx, "update", id,
		func(st entity.Staging[domain.Group, domain.GroupPatch], current domain.Group) (domain.Group, error) {
			st.Compact(current.SpaceID, current.ID)
			next := patch.Apply(current)
			next.Order = st.Count(target, current.ID)

			n := c.bookmarks.Rewrite(st.Tx(),
				func(b domain.Bookmark) bool { return b.GroupID == current.ID },
				func(b domain.Bookmark) domain.Bookmark {
					b.SpaceID = target
					return b
				})
			c.log.Debug("group relocated",
				logger.String("group", id),
				logger.String("from", current.SpaceID),
				logger.String("to", target),
				logger.Int("bookmarks", n))
			return next, nil
		},
		func(ctx context.Context) (domain.Group, error) {
			return c.groups.Remote().Update(ctx, id, patch)
		},
	)
}

// Orphan is an entity whose parent reference does not resolve.
type Orphan struct {
	Kind   string
	ID     string
	Reason string
}

// Orphans lists every referential violation in the loaded stores. It is
// empty whenever the stores are only mutated through their operations.
func (c *Coordinator) Orphans() []Orphan {
	var out []Orphan
	for _, g := range c.groups.Items() {
		if _, ok := c.spaces.Get(g.SpaceID); !ok {
			out = append(out, Orphan{Kind: "group", ID: g.ID, Reason: "space " + g.SpaceID + " missing"})
		}
	}
	for _, b := range c.bookmarks.Items() {
		g, ok := c.groups.Get(b.GroupID)
		switch {
		case !ok:
			out = append(out, Orphan{Kind: "bookmark", ID: b.ID, Reason: "group " + b.GroupID + " missing"})
		case g.SpaceID != b.SpaceID:
			out = append(out, Orphan{Kind: "bookmark", ID: b.ID, Reason: "spaceId " + b.SpaceID + " differs from group space " + g.SpaceID})
		}
	}
	return out
}
