package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

func TestTableListIsSortedAndPartitioned(t *testing.T) {
	r := New()
	ctx := context.Background()

	_ = r.Spaces().Put(ctx, "u1",
		domain.Space{ID: "b", Order: 1},
		domain.Space{ID: "a", Order: 1},
		domain.Space{ID: "c", Order: 0},
	)
	_ = r.Spaces().Put(ctx, "u2", domain.Space{ID: "z"})

	got, err := r.Spaces().List(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("row %d: expected %s, got %s", i, id, got[i].ID)
		}
	}

	other, _ := r.Spaces().List(ctx, "u2")
	if len(other) != 1 {
		t.Errorf("expected 1 row for u2, got %d", len(other))
	}
}

func TestTablePutReplacesAndDeleteRemoves(t *testing.T) {
	r := New()
	ctx := context.Background()

	_ = r.Groups().Put(ctx, "u1", domain.Group{ID: "g", Name: "old"})
	_ = r.Groups().Put(ctx, "u1", domain.Group{ID: "g", Name: "new"})

	got, _ := r.Groups().List(ctx, "u1")
	if len(got) != 1 || got[0].Name != "new" {
		t.Fatalf("expected single replaced row, got %+v", got)
	}

	_ = r.Groups().Delete(ctx, "u1", "g", "missing")
	got, _ = r.Groups().List(ctx, "u1")
	if len(got) != 0 {
		t.Errorf("expected empty table, got %+v", got)
	}
}

func TestUsers(t *testing.T) {
	r := New()
	ctx := context.Background()

	if _, err := r.GetUser(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_ = r.PutUser(ctx, domain.User{ID: "u2"})
	_ = r.PutUser(ctx, domain.User{ID: "u1", Name: "Alice"})

	u, err := r.GetUser(ctx, "u1")
	if err != nil || u.Name != "Alice" {
		t.Errorf("unexpected user %+v, err %v", u, err)
	}
	ids, _ := r.Users(ctx)
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestImport(t *testing.T) {
	r := New()
	ctx := context.Background()

	ds := domain.Dataset{
		Spaces:    []domain.Space{{ID: "s"}},
		Groups:    []domain.Group{{ID: "g", SpaceID: "s"}},
		Bookmarks: []domain.Bookmark{{ID: "b", SpaceID: "s", GroupID: "g"}},
	}
	if err := r.Import(ctx, "u1", ds); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := r.Import(ctx, "u1", ds); err != nil {
		t.Fatalf("import again: %v", err)
	}

	s, _ := r.Spaces().List(ctx, "u1")
	g, _ := r.Groups().List(ctx, "u1")
	b, _ := r.Bookmarks().List(ctx, "u1")
	if len(s) != 1 || len(g) != 1 || len(b) != 1 {
		t.Errorf("expected 1/1/1 rows, got %d/%d/%d", len(s), len(g), len(b))
	}
}
