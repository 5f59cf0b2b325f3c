// Package migration decides, once per sign-in, whether data the user kept in
// local mode should be imported into their server account.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/observable"
)

// ErrNothingPending is returned by the confirm calls when no prompt is open.
var ErrNothingPending = errors.New("migration: no decision pending")

// Remote is the part of the sync API the handshake needs.
type Remote interface {
	Status(ctx context.Context) (api.Status, error)
	Push(ctx context.Context, ds domain.Dataset) error
}

// Source holds the legacy local-mode data.
type Source interface {
	Load(ctx context.Context, identity string) (domain.Dataset, error)
	Discarded(ctx context.Context, identity string) (bool, error)
	MarkDiscarded(ctx context.Context, identity string) error
}

type Options struct {
	// RememberDiscard persists a discard so the identity is not prompted
	// again on later sign-ins.
	RememberDiscard bool
}

type Handshake struct {
	remote Remote
	source Source
	opts   Options
	log    logger.Logger

	mu       sync.Mutex
	identity string
	dataset  domain.Dataset
	resolved chan struct{}

	prompt *observable.Value[bool]
}

func New(remote Remote, source Source, opts Options, log logger.Logger) *Handshake {
	if log == nil {
		log = logger.Nop()
	}
	return &Handshake{
		remote: remote,
		source: source,
		opts:   opts,
		log:    log,
		prompt: observable.NewValue(false),
	}
}

// Prompt is true while the user must choose between import and discard.
func (h *Handshake) Prompt() *observable.Value[bool] { return h.prompt }

// Pending returns the dataset awaiting a decision.
func (h *Handshake) Pending() (domain.Dataset, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dataset, h.resolved != nil
}

// Check looks at the server and the local legacy data. It opens the prompt
// and returns true only when the server has no spaces for the identity and
// legacy data exists.
func (h *Handshake) Check(ctx context.Context, identity string) (bool, error) {
	if h.opts.RememberDiscard {
		discarded, err := h.source.Discarded(ctx, identity)
		if err != nil {
			return false, err
		}
		if discarded {
			h.log.Debug("legacy data previously discarded", logger.String("user", identity))
			return false, nil
		}
	}

	status, err := h.remote.Status(ctx)
	if err != nil {
		return false, &domain.RemoteError{Op: "sync.status", Err: err}
	}
	if status.HasServerData {
		return false, nil
	}

	ds, err := h.source.Load(ctx, identity)
	if err != nil {
		return false, fmt.Errorf("failed to read legacy data: %w", err)
	}
	if ds.Empty() {
		return false, nil
	}

	h.mu.Lock()
	h.identity = identity
	h.dataset = ds
	if h.resolved == nil {
		h.resolved = make(chan struct{})
	}
	h.mu.Unlock()
	h.prompt.Set(true)

	h.log.Info("legacy data found, waiting for decision",
		logger.String("user", identity),
		logger.Int("spaces", len(ds.Spaces)),
		logger.Int("groups", len(ds.Groups)),
		logger.Int("bookmarks", len(ds.Bookmarks)))
	return true, nil
}

// Wait blocks until the open prompt is resolved or ctx is done.
func (h *Handshake) Wait(ctx context.Context) error {
	h.mu.Lock()
	ch := h.resolved
	h.mu.Unlock()
	if ch == nil {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConfirmImport pushes the legacy dataset to the server. The push is an
// upsert by id, so a repeated import is harmless. On failure the prompt
// stays open.
func (h *Handshake) ConfirmImport(ctx context.Context) error {
	h.mu.Lock()
	ds, open := h.dataset, h.resolved != nil
	h.mu.Unlock()
	if !open {
		return ErrNothingPending
	}

	if err := h.remote.Push(ctx, ds); err != nil {
		h.log.Warn("legacy import failed", logger.Error(err))
		return &domain.RemoteError{Op: "sync.push", Err: err}
	}
	h.log.Info("legacy data imported", logger.Int("entities", ds.Len()))
	h.resolve()
	return nil
}

// ConfirmDiscard proceeds without importing. Local data is left in place.
func (h *Handshake) ConfirmDiscard(ctx context.Context) error {
	h.mu.Lock()
	identity, open := h.identity, h.resolved != nil
	h.mu.Unlock()
	if !open {
		return ErrNothingPending
	}

	if h.opts.RememberDiscard {
		if err := h.source.MarkDiscarded(ctx, identity); err != nil {
			return err
		}
	}
	h.log.Info("legacy data discarded", logger.String("user", identity))
	h.resolve()
	return nil
}

// Reset drops any open prompt without resolving it. Waiters are released by
// their own context.
func (h *Handshake) Reset() {
	h.mu.Lock()
	h.identity, h.dataset, h.resolved = "", domain.Dataset{}, nil
	h.mu.Unlock()
	h.prompt.Set(false)
}

func (h *Handshake) resolve() {
	h.mu.Lock()
	if h.resolved != nil {
		close(h.resolved)
	}
	h.identity, h.dataset, h.resolved = "", domain.Dataset{}, nil
	h.mu.Unlock()
	h.prompt.Set(false)
}
