package legacy

import (
	"context"
	"testing"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/kv"
)

func TestLoadMissingIsEmpty(t *testing.T) {
	r := New(kv.NewMemory())
	ds, err := r.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ds.Empty() {
		t.Errorf("expected empty dataset, got %d entities", ds.Len())
	}
}

func TestSaveLoadIsolatedPerIdentity(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := New(store)

	ds := domain.Dataset{
		Spaces: []domain.Space{{ID: "space_1", Name: "Home", Icon: "🏠"}},
		Groups: []domain.Group{{ID: "group_1", SpaceID: "space_1", Name: "Dev"}},
	}
	if err := r.Save(ctx, "u1", ds); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 2 || got.Spaces[0].Name != "Home" || got.Groups[0].SpaceID != "space_1" {
		t.Errorf("unexpected dataset: %+v", got)
	}

	other, _ := r.Load(ctx, "u2")
	if !other.Empty() {
		t.Error("dataset leaked to another identity")
	}

	if _, err := store.Get(ctx, "marks:legacy:u1:spaces"); err != nil {
		t.Errorf("expected spaces key, got %v", err)
	}

	if err := r.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = r.Load(ctx, "u1")
	if !got.Empty() {
		t.Error("dataset not cleared")
	}
}

func TestDiscardMarker(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemory())

	if ok, _ := r.Discarded(ctx, "u1"); ok {
		t.Fatal("fresh identity must not be marked")
	}
	if err := r.MarkDiscarded(ctx, "u1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if ok, _ := r.Discarded(ctx, "u1"); !ok {
		t.Error("expected marker")
	}
}
