package backend

import (
	"context"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Table stores one entity kind, partitioned by user.
type Table[T any] interface {
	List(ctx context.Context, userID string) ([]T, error)
	// Put inserts or replaces items by id.
	Put(ctx context.Context, userID string, items ...T) error
	Delete(ctx context.Context, userID string, ids ...string) error
}

// Repository is the persistence behind Service.
type Repository interface {
	Spaces() Table[domain.Space]
	Groups() Table[domain.Group]
	Bookmarks() Table[domain.Bookmark]

	GetUser(ctx context.Context, id string) (domain.User, error)
	PutUser(ctx context.Context, u domain.User) error
	// Users lists every known user id.
	Users(ctx context.Context) ([]string, error)

	// Import upserts a whole dataset in one atomic batch.
	Import(ctx context.Context, userID string, ds domain.Dataset) error

	Ping(ctx context.Context) error
}
