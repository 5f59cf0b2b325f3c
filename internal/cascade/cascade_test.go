package cascade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/api/apitest"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/entity"
)

type session string

func (s session) UserID() string { return string(s) }

type fixture struct {
	remote    *apitest.Remote
	spaces    *entity.SpaceStore
	groups    *entity.GroupStore
	bookmarks *entity.BookmarkStore
	coord     *Coordinator
}

func seed() domain.Dataset {
	return domain.Dataset{
		Spaces: []domain.Space{
			{ID: "S1", Name: "Work", Icon: "💼", Order: 0},
			{ID: "S2", Name: "Home", Icon: "🏠", Order: 1},
		},
		Groups: []domain.Group{
			{ID: "G1", SpaceID: "S1", Name: "Dev", Order: 0},
			{ID: "G2", SpaceID: "S1", Name: "Ops", Order: 1},
			{ID: "G3", SpaceID: "S2", Name: "Misc", Order: 0},
		},
		Bookmarks: []domain.Bookmark{
			{ID: "B1", SpaceID: "S1", GroupID: "G1", Order: 0, Title: "a", URL: "https://a.test"},
			{ID: "B2", SpaceID: "S1", GroupID: "G1", Order: 1, Title: "b", URL: "https://b.test"},
			{ID: "B3", SpaceID: "S1", GroupID: "G2", Order: 0, Title: "c", URL: "https://c.test"},
			{ID: "B4", SpaceID: "S2", GroupID: "G3", Order: 0, Title: "d", URL: "https://d.test"},
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := apitest.NewRemote(seed())
	f := &fixture{
		remote:    r,
		spaces:    entity.NewSpaceStore(entity.Config[domain.Space, domain.SpacePatch]{Remote: r.Spaces, Session: session("u1")}),
		groups:    entity.NewGroupStore(entity.Config[domain.Group, domain.GroupPatch]{Remote: r.Groups, Session: session("u1")}),
		bookmarks: entity.NewBookmarkStore(r.Bookmarks, entity.Config[domain.Bookmark, domain.BookmarkPatch]{Session: session("u1")}),
	}
	f.coord = Link(f.spaces, f.groups, f.bookmarks, nil)

	ctx := context.Background()
	_, err := f.spaces.Load(ctx)
	require.NoError(t, err)
	_, err = f.groups.Load(ctx)
	require.NoError(t, err)
	_, err = f.bookmarks.Load(ctx)
	require.NoError(t, err)
	return f
}

func keys[T domain.Record[T]](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key())
	}
	return out
}

func TestDeleteSpaceRemovesDescendants(t *testing.T) {
	f := newFixture(t)

	// every time bookmarks change, each one must still have its group
	var dangling []string
	defer f.bookmarks.Watch(func(cells []*entity.Cell[domain.Bookmark]) {
		for _, c := range cells {
			if _, ok := f.groups.Get(c.Get().GroupID); !ok {
				dangling = append(dangling, c.Get().ID)
			}
		}
	})()

	require.NoError(t, f.spaces.Delete(context.Background(), "S1"))

	assert.Equal(t, []string{"S2"}, keys(f.spaces.Items()))
	assert.Equal(t, []string{"G3"}, keys(f.groups.Items()))
	assert.Equal(t, []string{"B4"}, keys(f.bookmarks.Items()))
	s2, _ := f.spaces.Get("S2")
	assert.Equal(t, 0, s2.Order)
	assert.Empty(t, dangling)
	assert.Empty(t, f.coord.Orphans())
}

type state struct {
	spaces    []domain.Space
	groups    []domain.Group
	bookmarks []domain.Bookmark
}

func (f *fixture) state() state {
	return state{f.spaces.Items(), f.groups.Items(), f.bookmarks.Items()}
}

func TestDeleteSpaceFailureRestoresEverything(t *testing.T) {
	f := newFixture(t)
	before := f.state()
	f.remote.Spaces.Fail("delete", apitest.ErrUnavailable)

	var orphanedGroups []string
	defer f.groups.Watch(func(cells []*entity.Cell[domain.Group]) {
		for _, c := range cells {
			if _, ok := f.spaces.Get(c.Get().SpaceID); !ok {
				orphanedGroups = append(orphanedGroups, c.Get().ID)
			}
		}
	})()

	err := f.spaces.Delete(context.Background(), "S1")
	require.ErrorIs(t, err, apitest.ErrUnavailable)

	assert.Equal(t, before, f.state())
	assert.Equal(t, []string{"B1", "B3", "B4", "B2"}, keys(f.bookmarks.Items()))
	assert.Empty(t, orphanedGroups)
}

func TestDeleteGroupFailureRestoresBookmarks(t *testing.T) {
	f := newFixture(t)
	before := f.state()
	f.remote.Groups.Fail("delete", apitest.ErrUnavailable)

	var during state
	f.remote.Groups.OnCall(func(op string) {
		if op == "delete" {
			during = f.state()
		}
	})

	require.ErrorIs(t, f.groups.Delete(context.Background(), "G1"), apitest.ErrUnavailable)

	assert.Equal(t, []string{"B3", "B4"}, keys(during.bookmarks))
	assert.Equal(t, before, f.state())
}

func TestLogoutDuringFailingDeleteKeepsStoresEmpty(t *testing.T) {
	f := newFixture(t)
	f.remote.Spaces.Fail("delete", apitest.ErrUnavailable)
	f.remote.Spaces.OnCall(func(op string) {
		if op == "delete" {
			f.spaces.Clear()
			f.groups.Clear()
			f.bookmarks.Clear()
		}
	})

	require.Error(t, f.spaces.Delete(context.Background(), "S1"))

	assert.Empty(t, f.spaces.Items())
	assert.Empty(t, f.groups.Items())
	assert.Empty(t, f.bookmarks.Items())
}

func TestDeleteGroupRemovesItsBookmarks(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.groups.Delete(context.Background(), "G1"))
	assert.Equal(t, []string{"G3", "G2"}, keys(f.groups.Items()))
	assert.Equal(t, []string{"B3", "B4"}, keys(f.bookmarks.Items()))
	g2, _ := f.groups.Get("G2")
	assert.Equal(t, 0, g2.Order)
}

func TestCreateUnderMissingParentIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.groups.Create(ctx, domain.GroupInput{SpaceID: "S9", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bookmarks.Create(ctx, domain.BookmarkInput{SpaceID: "S1", GroupID: "G9", Title: "x", URL: "https://x.test"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bookmarks.Create(ctx, domain.BookmarkInput{SpaceID: "S2", GroupID: "G1", Title: "x", URL: "https://x.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.bookmarks.Move(ctx, "B1", domain.Move{GroupID: "G3", SpaceID: "S1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Len(t, f.groups.Items(), 3)
	assert.Len(t, f.bookmarks.Items(), 4)
}

func TestArchivedParentRejectsNewChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yes := true

	_, err := f.spaces.Update(ctx, "S2", domain.SpacePatch{IsArchived: &yes})
	require.NoError(t, err)
	_, err = f.groups.Update(ctx, "G2", domain.GroupPatch{IsArchived: &yes})
	require.NoError(t, err)

	_, err = f.groups.Create(ctx, domain.GroupInput{SpaceID: "S2", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	target := "S2"
	_, err = f.coord.MoveGroup(ctx, "G1", domain.GroupPatch{SpaceID: &target})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bookmarks.Create(ctx, domain.BookmarkInput{SpaceID: "S1", GroupID: "G2", Title: "x", URL: "https://x.test"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bookmarks.Move(ctx, "B1", domain.Move{GroupID: "G2", SpaceID: "S1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.groups.Update(ctx, "G3", domain.GroupPatch{IsArchived: &yes})
	require.NoError(t, err, "archiving under an archived space is allowed")

	g1, _ := f.groups.Get("G1")
	assert.Equal(t, "S1", g1.SpaceID)
	assert.Len(t, f.groups.Items(), 3)
	assert.Len(t, f.bookmarks.Items(), 4)
}

func TestMoveGroupRewritesBookmarks(t *testing.T) {
	f := newFixture(t)
	target := "S2"

	var staged domain.Group
	f.remote.Groups.OnCall(func(op string) {
		if op == "update" {
			staged, _ = f.groups.Get("G1")
		}
	})

	g, err := f.coord.UpdateGroup(context.Background(), "G1", domain.GroupPatch{SpaceID: &target})
	require.NoError(t, err)
	assert.Equal(t, "S2", g.SpaceID)

	assert.Equal(t, "S2", staged.SpaceID)
	assert.Equal(t, 1, staged.Order, "appended after G3")
	g2, _ := f.groups.Get("G2")
	assert.Equal(t, 0, g2.Order, "source space compacted")
	for _, id := range []string{"B1", "B2"} {
		b, _ := f.bookmarks.Get(id)
		assert.Equal(t, "S2", b.SpaceID)
	}
	assert.Empty(t, f.coord.Orphans())
}

func TestMoveGroupFailureRestoresBookmarks(t *testing.T) {
	f := newFixture(t)
	before := f.state()
	f.remote.Groups.Fail("update", apitest.ErrUnavailable)
	target := "S2"

	_, err := f.coord.MoveGroup(context.Background(), "G1", domain.GroupPatch{SpaceID: &target})
	require.Error(t, err)

	assert.Equal(t, before, f.state())
}

func TestUpdateGroupWithoutRelocationIsPlainUpdate(t *testing.T) {
	f := newFixture(t)
	name := "Backend"
	same := "S1"

	g, err := f.coord.UpdateGroup(context.Background(), "G1", domain.GroupPatch{Name: &name, SpaceID: &same})
	require.NoError(t, err)
	assert.Equal(t, "Backend", g.Name)
	assert.Equal(t, 0, g.Order)
}
