package rediskv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/kv"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestGetMissingIsNotFound(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestSetGetDelete(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "legacy:u1", []byte(`{"spaces":[]}`)))
	got, err := s.Get(ctx, "legacy:u1")
	require.NoError(t, err)
	assert.Equal(t, `{"spaces":[]}`, string(got))
	assert.True(t, mr.Exists("legacy:u1"))

	require.NoError(t, s.Delete(ctx, "legacy:u1"))
	_, err = s.Get(ctx, "legacy:u1")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	// deleting twice is not an error
	assert.NoError(t, s.Delete(ctx, "legacy:u1"))
}

func TestConnectionErrorIsNotNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	s := New(client)
	mr.Close()

	_, err = s.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNotFound)
}
