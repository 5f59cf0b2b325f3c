package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

const (
	// DefaultGCThreshold is the duration after which archived entities are deleted
	DefaultGCThreshold = 30 * 24 * time.Hour // 30 days
)

// Purger is the part of backend.Service the collector drives.
type Purger interface {
	Repository() backend.Repository
	PurgeArchived(ctx context.Context, userID string, cutoff time.Time) (backend.Purged, error)
}

// Recorder receives per-kind purge counts.
type Recorder interface {
	Purged(kind string, n int)
}

// GarbageCollector hard-deletes entities that have been archived for longer
// than the threshold.
type GarbageCollector struct {
	svc       Purger
	recorder  Recorder
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stopCh    chan struct{}
}

// NewGarbageCollector creates a new garbage collector. recorder may be nil.
func NewGarbageCollector(
	svc Purger,
	recorder Recorder,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &GarbageCollector{
		svc:       svc,
		recorder:  recorder,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	// Run immediately on start
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	// Start periodic collection
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect sweeps every known user. A failing user is logged and skipped; the
// first such error is returned once the sweep is over.
func (gc *GarbageCollector) Collect(ctx context.Context) (backend.Purged, error) {
	gc.logger.Info("running garbage collection for archived entities")

	var total backend.Purged
	users, err := gc.svc.Repository().Users(ctx)
	if err != nil {
		return total, err
	}

	cutoff := gc.now().Add(-gc.threshold)
	gc.logger.Debug("sweeping", logger.Int("users", len(users)), logger.Time("cutoff", cutoff))
	var firstErr error
	for _, uid := range users {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		p, err := gc.svc.PurgeArchived(ctx, uid, cutoff)
		if err != nil {
			gc.logger.Warn("failed to purge archived entities",
				logger.String("user", uid),
				logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if p.Total() > 0 {
			gc.logger.Info("garbage collected archived entities",
				logger.String("user", uid),
				logger.Int("spaces", p.Spaces),
				logger.Int("groups", p.Groups),
				logger.Int("bookmarks", p.Bookmarks))
		}
		total.Spaces += p.Spaces
		total.Groups += p.Groups
		total.Bookmarks += p.Bookmarks
	}

	if gc.recorder != nil {
		gc.recorder.Purged("space", total.Spaces)
		gc.recorder.Purged("group", total.Groups)
		gc.recorder.Purged("bookmark", total.Bookmarks)
	}
	if total.Total() == 0 {
		gc.logger.Debug("no items to garbage collect")
	}
	return total, firstErr
}
