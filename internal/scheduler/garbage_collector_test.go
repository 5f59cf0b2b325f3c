package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/backend/memory"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

type countingRecorder map[string]int

func (c countingRecorder) Purged(kind string, n int) { c[kind] += n }

func TestGarbageCollector_Collect(t *testing.T) {
	log := logger.New("error", false)
	repo := memory.New()
	ctx := context.Background()
	now := time.Now()

	for _, uid := range []string{"u1", "u2"} {
		_ = repo.PutUser(ctx, domain.User{ID: uid})
	}
	_ = repo.Bookmarks().Put(ctx, "u1",
		domain.Bookmark{ID: "active", GroupID: "g", UpdatedAt: now.Add(-90 * 24 * time.Hour)},
		domain.Bookmark{ID: "recently-archived", GroupID: "g", IsArchived: true, UpdatedAt: now.Add(-10 * 24 * time.Hour)}, // 10 days ago
		domain.Bookmark{ID: "old-archived", GroupID: "g", IsArchived: true, UpdatedAt: now.Add(-35 * 24 * time.Hour)},      // 35 days ago
	)
	_ = repo.Spaces().Put(ctx, "u2",
		domain.Space{ID: "old-space", IsArchived: true, UpdatedAt: now.Add(-31 * 24 * time.Hour)},
	)

	rec := countingRecorder{}
	// Create GC with 30 day threshold
	gc := NewGarbageCollector(backend.NewService(repo, log), rec, log, 24*time.Hour, 30*24*time.Hour)

	got, err := gc.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got.Bookmarks != 1 || got.Spaces != 1 {
		t.Errorf("Expected 1 bookmark and 1 space purged, got %+v", got)
	}

	left, _ := repo.Bookmarks().List(ctx, "u1")
	if len(left) != 2 {
		t.Errorf("Expected 2 bookmarks after GC, got %d", len(left))
	}
	for _, b := range left {
		if b.ID == "old-archived" {
			t.Error("Old archived bookmark was not removed")
		}
	}
	if spaces, _ := repo.Spaces().List(ctx, "u2"); len(spaces) != 0 {
		t.Errorf("Expected u2 spaces to be purged, got %d", len(spaces))
	}
	if rec["bookmark"] != 1 || rec["space"] != 1 {
		t.Errorf("Recorder got %v", rec)
	}
}

func TestGarbageCollector_DefaultThreshold(t *testing.T) {
	gc := NewGarbageCollector(backend.NewService(memory.New(), nil), nil, logger.Nop(), 0, 0)
	if gc.threshold != DefaultGCThreshold {
		t.Errorf("Expected default threshold %v, got %v", DefaultGCThreshold, gc.threshold)
	}
	if gc.interval != 24*time.Hour {
		t.Errorf("Expected default interval 24h, got %v", gc.interval)
	}
}

func TestGarbageCollector_StartStop(t *testing.T) {
	gc := NewGarbageCollector(backend.NewService(memory.New(), nil), nil, logger.Nop(), time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	gc.Stop()
}
