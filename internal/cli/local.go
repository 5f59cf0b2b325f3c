package cli

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/kv"
	"github.com/MrSnakeDoc/marks/internal/kv/pebblekv"
	"github.com/MrSnakeDoc/marks/internal/kv/rediskv"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/redis"
)

// ownedStore closes the connection it was opened with.
type ownedStore struct {
	kv.Store
	close func() error
}

func (s ownedStore) Close() error { return s.close() }

// openLocal opens the store holding local-mode data.
func openLocal(ctx context.Context, cfg *config.Client, log logger.Logger) (kv.Store, error) {
	switch cfg.LocalStore {
	case "", "pebble":
		s, err := pebblekv.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		client, err := redis.Connect(ctx, redis.OptionsFrom(cfg.Redis), log)
		if err != nil {
			return nil, err
		}
		return ownedStore{Store: rediskv.New(client), close: client.Close}, nil
	}
	return nil, fmt.Errorf("unknown local store %q", cfg.LocalStore)
}
