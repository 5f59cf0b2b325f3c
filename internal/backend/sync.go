package backend

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

type syncer struct {
	s   *Service
	uid string
}

// EnsureUser upserts the user keyed by the caller's identity. The creation
// time of an existing record is kept.
func (c *syncer) EnsureUser(ctx context.Context, p domain.Profile) (domain.User, error) {
	defer c.s.lock(c.uid)()

	now := c.s.now()
	u, err := c.s.repo.GetUser(ctx, c.uid)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		u = domain.User{ID: c.uid, CreatedAt: now}
		c.s.log.Info("user created", logger.String("user", c.uid))
	case err != nil:
		return domain.User{}, err
	}
	u.Email, u.Name, u.AvatarURL = p.Email, p.Name, p.AvatarURL
	u.UpdatedAt = now

	if err := c.s.repo.PutUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Pull returns the user's full dataset, archived entities included.
func (c *syncer) Pull(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ds.Spaces, err = c.s.repo.Spaces().List(gctx, c.uid)
		return err
	})
	g.Go(func() (err error) {
		ds.Groups, err = c.s.repo.Groups().List(gctx, c.uid)
		return err
	})
	g.Go(func() (err error) {
		ds.Bookmarks, err = c.s.repo.Bookmarks().List(gctx, c.uid)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Dataset{}, err
	}
	return ds, nil
}

// Push upserts every entity of ds by id under the caller's identity. Pushing
// the same dataset twice leaves the same state.
func (c *syncer) Push(ctx context.Context, ds domain.Dataset) error {
	defer c.s.lock(c.uid)()

	owned := domain.Dataset{
		Spaces:    make([]domain.Space, 0, len(ds.Spaces)),
		Groups:    make([]domain.Group, 0, len(ds.Groups)),
		Bookmarks: make([]domain.Bookmark, 0, len(ds.Bookmarks)),
	}
	for _, s := range ds.Spaces {
		s.UserID = c.uid
		owned.Spaces = append(owned.Spaces, s)
	}
	for _, g := range ds.Groups {
		g.UserID = c.uid
		owned.Groups = append(owned.Groups, g)
	}
	for _, b := range ds.Bookmarks {
		b.UserID = c.uid
		owned.Bookmarks = append(owned.Bookmarks, b)
	}

	if err := c.s.repo.Import(ctx, c.uid, owned); err != nil {
		return err
	}
	c.s.log.Info("dataset imported",
		logger.String("user", c.uid),
		logger.Int("spaces", len(owned.Spaces)),
		logger.Int("groups", len(owned.Groups)),
		logger.Int("bookmarks", len(owned.Bookmarks)))
	return nil
}

// Status reports whether the user already has spaces on the server.
func (c *syncer) Status(ctx context.Context) (api.Status, error) {
	items, err := c.s.repo.Spaces().List(ctx, c.uid)
	if err != nil {
		return api.Status{}, err
	}
	return api.Status{HasServerData: len(items) > 0}, nil
}
