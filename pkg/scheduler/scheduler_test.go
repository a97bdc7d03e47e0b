package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/storage/sqlite"
)

func newTestScheduler(t *testing.T) (*Scheduler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, DefaultConfig()), store
}

func TestBackoffFloorAndCap(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.Equal(t, 1*time.Second, s.Backoff(0))
	assert.Equal(t, 2*time.Second, s.Backoff(1))
	assert.Equal(t, 4*time.Second, s.Backoff(2))
	assert.Equal(t, 8*time.Second, s.Backoff(3))
}

func TestBackoffIsNonDecreasing(t *testing.T) {
	s, _ := newTestScheduler(t)
	prev := time.Duration(0)
	for attempt := 0; attempt < 40; attempt++ {
		d := s.Backoff(attempt)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestBackoffNeverOverflowsOrExceedsCap(t *testing.T) {
	cfg := Config{BackoffBase: 2, MaxBackoff: time.Hour}
	s := New(nil, cfg)
	assert.Equal(t, time.Hour, s.Backoff(63))
	assert.Equal(t, time.Hour, s.Backoff(1000))
}

func TestFinalizeRetryThenDLQArithmetic(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	job := &models.Job{ID: "b", Command: "exit 1", State: models.StateProcessing, MaxRetries: 2}
	require.NoError(t, store.Insert(ctx, job))

	require.NoError(t, s.Finalize(ctx, job, models.ExecutionOutcome{Success: false, Error: "boom"}))
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, models.StateFailed, job.State)
	require.NotNil(t, job.NextRetryAt)

	job.State = models.StateProcessing
	require.NoError(t, s.Finalize(ctx, job, models.ExecutionOutcome{Success: false, Error: "boom"}))
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, models.StateDead, job.State)
	assert.Nil(t, job.NextRetryAt)
	assert.Equal(t, "boom", job.Error)
}

func TestFinalizeSuccessClearsErrorState(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	job := &models.Job{ID: "a", Command: "echo hi", State: models.StateProcessing, MaxRetries: 3}
	require.NoError(t, store.Insert(ctx, job))

	require.NoError(t, s.Finalize(ctx, job, models.ExecutionOutcome{Success: true, Output: "hi\n"}))
	assert.Equal(t, models.StateCompleted, job.State)
	assert.Equal(t, 0, job.Attempts)
	assert.Empty(t, job.Error)
}

func TestPickNextPrefersReadyRetryOverPending(t *testing.T) {
	s, store := newTestScheduler(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Second)
	require.NoError(t, store.Insert(ctx, &models.Job{ID: "retry", Command: "true", State: models.StateFailed, NextRetryAt: &past}))
	require.NoError(t, store.Insert(ctx, &models.Job{ID: "pending", Command: "true", State: models.StatePending, Priority: 100}))

	job, err := s.PickNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "retry", job.ID)
	assert.Equal(t, models.StateProcessing, job.State)
}

func TestPickNextReturnsNilWhenEmpty(t *testing.T) {
	s, _ := newTestScheduler(t)
	job, err := s.PickNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}
