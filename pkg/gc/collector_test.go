package gc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	orphans   []uint64
	batches   [][]uint64
	failBatch int
	listErr   error
}

func (s *fakeStore) OrphanPermissions() ([]uint64, error) {
	return s.orphans, s.listErr
}

func (s *fakeStore) RemoveOrphanPermissions(ids []uint64) (int, error) {
	s.batches = append(s.batches, append([]uint64(nil), ids...))
	if len(s.batches) == s.failBatch {
		return 0, errors.New("boom")
	}
	return len(ids), nil
}

type fakePruner struct {
	calls int
	n     int
}

func (p *fakePruner) PruneSessions() (int, error) {
	p.calls++
	return p.n, nil
}

func TestRunNow_RemovesInBatches(t *testing.T) {
	store := &fakeStore{orphans: []uint64{1, 2, 3, 4, 5}}
	pruner := &fakePruner{n: 2}
	c := NewCollector(store, pruner, Config{BatchSize: 2})

	stats, err := c.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]uint64{{1, 2}, {3, 4}, {5}}, store.batches)
	assert.Equal(t, uint64(5), stats.OrphanedCount)
	assert.Equal(t, uint64(5), stats.DeletedCount)
	assert.Zero(t, stats.FailedCount)
	assert.Equal(t, uint64(2), stats.SessionsPruned)
	assert.Equal(t, 1, pruner.calls)
	assert.False(t, stats.EndTime.IsZero())
}

func TestRunNow_FailedBatchIsCounted(t *testing.T) {
	store := &fakeStore{orphans: []uint64{1, 2, 3}, failBatch: 1}
	c := NewCollector(store, nil, Config{BatchSize: 2})

	stats, err := c.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), stats.FailedCount)
	assert.Equal(t, uint64(1), stats.DeletedCount)
}

func TestRunNow_DryRun(t *testing.T) {
	store := &fakeStore{orphans: []uint64{7, 8}}
	pruner := &fakePruner{}
	c := NewCollector(store, pruner, Config{DryRun: true})

	stats, err := c.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), stats.OrphanedCount)
	assert.Empty(t, store.batches)
	assert.Zero(t, pruner.calls)
}

func TestRunNow_ListError(t *testing.T) {
	store := &fakeStore{listErr: errors.New("disk gone")}
	c := NewCollector(store, nil, Config{})

	_, err := c.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestRunNow_Cancelled(t *testing.T) {
	store := &fakeStore{orphans: []uint64{1}}
	c := NewCollector(store, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.RunNow(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.batches)
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(&fakeStore{}, nil, Config{})
	assert.Equal(t, time.Hour, c.config.Interval)
	assert.Equal(t, 500, c.config.BatchSize)
}

func TestStartStop(t *testing.T) {
	store := &fakeStore{orphans: []uint64{1}}
	c := NewCollector(store, nil, Config{Enabled: true, Interval: time.Millisecond})
	c.Start()
	time.Sleep(10 * time.Millisecond)

	c.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))
}

func TestStop_NeverStarted(t *testing.T) {
	c := NewCollector(&fakeStore{}, nil, Config{Enabled: true, Interval: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.Stop(ctx))
	assert.NoError(t, ctx.Err())
}

func TestStop_Disabled(t *testing.T) {
	c := NewCollector(&fakeStore{}, nil, Config{})
	c.Start()
	assert.NoError(t, c.Stop(context.Background()))
}
