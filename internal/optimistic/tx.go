// Package optimistic pairs a local mutation with its remote commit and
// guarantees the pre-mutation state comes back when the commit fails.
package optimistic

import "context"

// Snapshot restores one piece of local state captured before a mutation.
type Snapshot interface {
	Restore()
}

// SnapshotFunc adapts a function to Snapshot.
type SnapshotFunc func()

func (f SnapshotFunc) Restore() { f() }

// Tx collects the snapshots taken while staging a mutation.
//
// Snapshots are keyed: only the first capture of a key is kept, so the state
// restored is always the one that existed before the transaction touched it.
// Restores run in capture order, parents must therefore be captured before
// their children.
type Tx struct {
	keys  map[any]struct{}
	snaps []Snapshot
}

// Capture records s under key unless key was already captured.
func (tx *Tx) Capture(key any, s Snapshot) {
	if tx.keys == nil {
		tx.keys = make(map[any]struct{})
	}
	if _, ok := tx.keys[key]; ok {
		return
	}
	tx.keys[key] = struct{}{}
	tx.snaps = append(tx.snaps, s)
}

// Captured reports whether key has a snapshot in tx.
func (tx *Tx) Captured(key any) bool {
	_, ok := tx.keys[key]
	return ok
}

// Len returns the number of snapshots held.
func (tx *Tx) Len() int { return len(tx.snaps) }

func (tx *Tx) rollback() {
	for _, s := range tx.snaps {
		s.Restore()
	}
}

// Do runs stage, then commit. If stage or commit returns an error, or either
// panics, every snapshot captured by stage is restored before Do returns.
// Stage must not perform remote I/O; commit must not touch local state other
// than reconciling with the remote answer.
func Do(ctx context.Context, stage func(tx *Tx) error, commit func(ctx context.Context) error) error {
	tx := &Tx{}
	settled := false
	defer func() {
		if !settled {
			tx.rollback()
		}
	}()

	if err := stage(tx); err != nil {
		return err
	}
	if err := commit(ctx); err != nil {
		return err
	}
	settled = true
	return nil
}
