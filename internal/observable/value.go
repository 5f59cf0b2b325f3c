// Package observable provides independently subscribable value cells.
//
// A Value is the unit of change notification: entity stores hold one Value
// per entity plus one Value for the ordered list of entity cells, so changing
// one entity never wakes observers of its siblings while insertions,
// removals and reorders are visible to list-level observers.
package observable

import "sync"

// Value holds a T and notifies subscribers on every Set.
//
// Subscribers run synchronously on the goroutine that changed the value,
// after the value's own lock is released. They must not block and must not
// mutate the store that owns the value from inside the callback.
type Value[T any] struct {
	mu   sync.RWMutex
	v    T
	next uint64
	subs map[uint64]func(T)
}

// NewValue returns a cell holding v.
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{v: v}
}

// Get returns the current value.
func (x *Value[T]) Get() T {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.v
}

// Set replaces the value and notifies subscribers.
func (x *Value[T]) Set(v T) {
	x.mu.Lock()
	x.v = v
	subs := x.snapshotLocked()
	x.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update applies fn to the current value atomically and returns the result.
func (x *Value[T]) Update(fn func(T) T) T {
	x.mu.Lock()
	v := fn(x.v)
	x.v = v
	subs := x.snapshotLocked()
	x.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
	return v
}

// Subscribe registers fn and returns a function that removes it.
func (x *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.subs == nil {
		x.subs = make(map[uint64]func(T))
	}
	id := x.next
	x.next++
	x.subs[id] = fn

	return func() {
		x.mu.Lock()
		delete(x.subs, id)
		x.mu.Unlock()
	}
}

// Subscribers returns the number of registered subscribers.
func (x *Value[T]) Subscribers() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.subs)
}

func (x *Value[T]) snapshotLocked() []func(T) {
	if len(x.subs) == 0 {
		return nil
	}
	out := make([]func(T), 0, len(x.subs))
	for _, fn := range x.subs {
		out = append(out, fn)
	}
	return out
}
