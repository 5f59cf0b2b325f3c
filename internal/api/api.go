// Package api declares the remote calls the sync engine consumes. The
// transport behind them is a collaborator; package client implements it
// over HTTP.
package api

import (
	"context"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Collection is the RPC surface of one entity kind. T is the entity, P its
// patch type.
type Collection[T any, P any] interface {
	List(ctx context.Context) ([]T, error)
	// Create persists item under the id the client minted and echoes the
	// server's representation.
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, patch P) (T, error)
	Delete(ctx context.Context, id string) error
	// Reorder assigns order = index to every id under parentID. Spaces
	// ignore parentID.
	Reorder(ctx context.Context, parentID string, orderedIDs []string) error
}

type (
	SpaceAPI = Collection[domain.Space, domain.SpacePatch]
	GroupAPI = Collection[domain.Group, domain.GroupPatch]
)

// BookmarkAPI adds the move call to the bookmark collection.
type BookmarkAPI interface {
	Collection[domain.Bookmark, domain.BookmarkPatch]
	Move(ctx context.Context, id string, to domain.Move) (domain.Bookmark, error)
}

// Status reports what the server already holds for the identity.
type Status struct {
	HasServerData bool `json:"hasServerData"`
}

// SyncAPI covers account bootstrap and whole-dataset transfer.
type SyncAPI interface {
	// EnsureUser upserts the user record keyed by the caller's identity.
	EnsureUser(ctx context.Context, profile domain.Profile) (domain.User, error)
	Pull(ctx context.Context) (domain.Dataset, error)
	// Push upserts every entity by id in one batch.
	Push(ctx context.Context, ds domain.Dataset) error
	Status(ctx context.Context) (Status, error)
}

// Remote groups every endpoint family.
type Remote struct {
	Spaces    SpaceAPI
	Groups    GroupAPI
	Bookmarks BookmarkAPI
	Sync      SyncAPI
}
