package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRestoresOnCommitFailure(t *testing.T) {
	state := []string{"a", "b"}
	boom := errors.New("boom")

	err := Do(context.Background(), func(tx *Tx) error {
		prev := append([]string(nil), state...)
		tx.Capture("state", SnapshotFunc(func() { state = prev }))
		state = append(state, "c")
		return nil
	}, func(context.Context) error {
		assert.Equal(t, []string{"a", "b", "c"}, state, "optimistic state visible during commit")
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, state)
}

func TestDoKeepsStateOnSuccess(t *testing.T) {
	n := 1
	err := Do(context.Background(), func(tx *Tx) error {
		prev := n
		tx.Capture("n", SnapshotFunc(func() { n = prev }))
		n = 2
		return nil
	}, func(context.Context) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDoRestoresOnStageError(t *testing.T) {
	n := 1
	stageErr := errors.New("not found")
	committed := false

	err := Do(context.Background(), func(tx *Tx) error {
		prev := n
		tx.Capture("n", SnapshotFunc(func() { n = prev }))
		n = 5
		return stageErr
	}, func(context.Context) error {
		committed = true
		return nil
	})

	require.ErrorIs(t, err, stageErr)
	assert.False(t, committed, "commit must not run after a stage error")
	assert.Equal(t, 1, n)
}

func TestDoRestoresOnPanic(t *testing.T) {
	n := 1
	func() {
		defer func() { _ = recover() }()
		_ = Do(context.Background(), func(tx *Tx) error {
			prev := n
			tx.Capture("n", SnapshotFunc(func() { n = prev }))
			n = 9
			return nil
		}, func(context.Context) error { panic("transport exploded") })
	}()
	assert.Equal(t, 1, n)
}

func TestCaptureKeepsFirstSnapshot(t *testing.T) {
	n := 1
	_ = Do(context.Background(), func(tx *Tx) error {
		first := n
		tx.Capture("n", SnapshotFunc(func() { n = first }))
		n = 2
		second := n
		tx.Capture("n", SnapshotFunc(func() { n = second }))
		n = 3
		assert.Equal(t, 1, tx.Len())
		assert.True(t, tx.Captured("n"))
		return nil
	}, func(context.Context) error { return errors.New("fail") })

	assert.Equal(t, 1, n)
}
