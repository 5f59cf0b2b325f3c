package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/kv"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

func TestOpenLocalPebble(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Client{LocalStore: "pebble", DataDir: filepath.Join(t.TempDir(), "db")}

	s, err := openLocal(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	require.NoError(t, s.Close())

	s, err = openLocal(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, kv.ErrNotFound))
}

func TestOpenLocalRedisUnreachable(t *testing.T) {
	cfg := &config.Client{LocalStore: "redis", Redis: config.Redis{
		Addr:           "127.0.0.1:1",
		DialTimeout:    50 * time.Millisecond,
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
	}}

	_, err := openLocal(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestOpenLocalUnknown(t *testing.T) {
	_, err := openLocal(context.Background(), &config.Client{LocalStore: "sqlite"}, logger.Nop())
	assert.Error(t, err)
}
