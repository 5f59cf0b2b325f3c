package redisrepo

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

func newRepo(t *testing.T) (*Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func dataset() domain.Dataset {
	return domain.Dataset{
		Spaces: []domain.Space{{ID: "S1", UserID: "u1", Name: "Work", Icon: "💼"}},
		Groups: []domain.Group{
			{ID: "G1", UserID: "u1", SpaceID: "S1", Name: "Dev"},
			{ID: "G2", UserID: "u1", SpaceID: "S1", Name: "Ops", Order: 1},
		},
		Bookmarks: []domain.Bookmark{
			{ID: "B1", UserID: "u1", SpaceID: "S1", GroupID: "G1", Title: "Go", URL: "https://go.dev"},
		},
	}
}

func TestImportIsIdempotent(t *testing.T) {
	r, mr := newRepo(t)
	ctx := context.Background()
	ds := dataset()

	require.NoError(t, r.Import(ctx, "u1", ds))
	keys := len(mr.Keys())
	require.NoError(t, r.Import(ctx, "u1", ds))
	assert.Equal(t, keys, len(mr.Keys()), "second import adds no keys")

	spaces, err := r.Spaces().List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ds.Spaces, spaces)

	groups, err := r.Groups().List(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, ds.Groups, groups)

	bookmarks, err := r.Bookmarks().List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ds.Bookmarks, bookmarks)

	other, err := r.Spaces().List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPutReplacesAndDeleteRemoves(t *testing.T) {
	r, mr := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Groups().Put(ctx, "u1", domain.Group{ID: "G1", Name: "old"}))
	require.NoError(t, r.Groups().Put(ctx, "u1", domain.Group{ID: "G1", Name: "new"}))

	got, err := r.Groups().List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Name)

	require.NoError(t, r.Groups().Delete(ctx, "u1", "G1", "missing"))
	got, err = r.Groups().List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, mr.Exists(RowKey("u1", TableGroups, "G1")))
}

func TestListSkipsVanishedRows(t *testing.T) {
	r, mr := newRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Spaces().Put(ctx, "u1", domain.Space{ID: "S1"}, domain.Space{ID: "S2"}))
	mr.Del(RowKey("u1", TableSpaces, "S2"))

	got, err := r.Spaces().List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S1", got[0].ID)
}

func TestUsers(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	_, err := r.GetUser(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	u := domain.User{ID: "u1", Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, r.PutUser(ctx, u))
	require.NoError(t, r.PutUser(ctx, u))

	got, err := r.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	ids, err := r.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)

	require.NoError(t, r.Ping(ctx))
}
