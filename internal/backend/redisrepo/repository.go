// Package redisrepo stores backend tables in redis: one JSON document per
// row plus a set of row ids per user and table.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
)

type Repository struct {
	client    *redis.Client
	spaces    *table[domain.Space]
	groups    *table[domain.Group]
	bookmarks *table[domain.Bookmark]
}

func New(client *redis.Client) *Repository {
	return &Repository{
		client:    client,
		spaces:    &table[domain.Space]{client: client, name: TableSpaces},
		groups:    &table[domain.Group]{client: client, name: TableGroups},
		bookmarks: &table[domain.Bookmark]{client: client, name: TableBookmarks},
	}
}

func (r *Repository) Spaces() backend.Table[domain.Space]       { return r.spaces }
func (r *Repository) Groups() backend.Table[domain.Group]       { return r.groups }
func (r *Repository) Bookmarks() backend.Table[domain.Bookmark] { return r.bookmarks }

// GetUser retrieves a user from Redis by ID
func (r *Repository) GetUser(ctx context.Context, id string) (domain.User, error) {
	data, err := r.client.Get(ctx, UserKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		return domain.User{}, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return u, nil
}

// PutUser stores a user in Redis
func (r *Repository) PutUser(ctx context.Context, u domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, UserKey(u.ID), data, 0)
	pipe.SAdd(ctx, KeyAllUsers, u.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *Repository) Users(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, KeyAllUsers).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user IDs: %w", err)
	}
	return ids, nil
}

// Import writes a whole dataset inside one MULTI/EXEC transaction.
func (r *Repository) Import(ctx context.Context, userID string, ds domain.Dataset) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := r.spaces.queuePut(ctx, pipe, userID, ds.Spaces); err != nil {
			return err
		}
		if err := r.groups.queuePut(ctx, pipe, userID, ds.Groups); err != nil {
			return err
		}
		return r.bookmarks.queuePut(ctx, pipe, userID, ds.Bookmarks)
	})
	if err != nil {
		return fmt.Errorf("failed to import dataset: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type table[T domain.Record[T]] struct {
	client *redis.Client
	name   string
}

// List retrieves every row of the user's table
func (t *table[T]) List(ctx context.Context, userID string) ([]T, error) {
	ids, err := t.client.SMembers(ctx, TableKey(userID, t.name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s IDs: %w", t.name, err)
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, RowKey(userID, t.name, id))
	}
	values, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s rows: %w", t.name, err)
	}

	out := make([]T, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Skip ids whose row vanished
			continue
		}
		var row T
		if err := json.Unmarshal([]byte(s), &row); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s %s: %w", t.name, ids[i], err)
		}
		out = append(out, row)
	}
	return out, nil
}

// Put stores rows in Redis (bulk operation)
func (t *table[T]) Put(ctx context.Context, userID string, items ...T) error {
	if len(items) == 0 {
		return nil
	}
	pipe := t.client.Pipeline()
	if err := t.queuePut(ctx, pipe, userID, items); err != nil {
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %s rows: %w", t.name, err)
	}
	return nil
}

func (t *table[T]) queuePut(ctx context.Context, pipe redis.Pipeliner, userID string, items []T) error {
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", t.name, it.Key(), err)
		}
		pipe.Set(ctx, RowKey(userID, t.name, it.Key()), data, 0)
		pipe.SAdd(ctx, TableKey(userID, t.name), it.Key())
	}
	return nil
}

// Delete removes rows from Redis
func (t *table[T]) Delete(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := t.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, RowKey(userID, t.name, id))
		pipe.SRem(ctx, TableKey(userID, t.name), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete %s rows: %w", t.name, err)
	}
	return nil
}
