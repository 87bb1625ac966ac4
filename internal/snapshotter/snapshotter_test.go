package snapshotter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSaver struct {
	calls atomic.Int32
	err   error
}

func (s *countingSaver) Save() error {
	s.calls.Add(1)
	return s.err
}

func TestSnapshotterRunsOnSchedule(t *testing.T) {
	theSaver := &countingSaver{}
	theSnapshotter, err := New(theSaver, "@every 1s")
	require.NoError(t, err)

	theSnapshotter.Start()
	assert.Eventually(t, func() bool {
		return theSaver.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	before := theSaver.calls.Load()
	require.NoError(t, theSnapshotter.Stop(context.Background()))
	assert.GreaterOrEqual(t, theSaver.calls.Load(), before+1)
}

func TestSnapshotterBadSchedule(t *testing.T) {
	_, err := New(&countingSaver{}, "every now and then")
	assert.Error(t, err)
}

func TestSnapshotterFailingSaver(t *testing.T) {
	theSaver := &countingSaver{err: errors.New("disk full")}
	theSnapshotter, err := New(theSaver, "@every 1h")
	require.NoError(t, err)

	theSnapshotter.snapshot()
	assert.Equal(t, int32(1), theSaver.calls.Load())

	theSnapshotter.Start()
	assert.ErrorIs(t, theSnapshotter.Stop(context.Background()), theSaver.err)
}
