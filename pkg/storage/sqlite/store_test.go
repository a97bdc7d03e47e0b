package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := &models.Job{ID: "a", Command: "echo hi", State: models.StatePending}
	require.NoError(t, s.Insert(ctx, job))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "echo hi", got.Command)

	err = s.Insert(ctx, &models.Job{ID: "a", Command: "echo again", State: models.StatePending})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClaimPendingOrdersByPriorityThenAge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &models.Job{ID: "low", Command: "echo l", State: models.StatePending, Priority: 0}))
	require.NoError(t, s.Insert(ctx, &models.Job{ID: "hi", Command: "echo h", State: models.StatePending, Priority: 5}))

	claimed, err := s.ClaimPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "hi", claimed.ID)
	assert.Equal(t, models.StateProcessing, claimed.State)
}

func TestClaimPendingRespectsRunAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	require.NoError(t, s.Insert(ctx, &models.Job{ID: "later", Command: "echo x", State: models.StatePending, RunAt: &future}))

	claimed, err := s.ClaimPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestClaimPendingConcurrentNoDoubleClaim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, s.Insert(ctx, &models.Job{ID: fmt.Sprintf("job-%d", i), Command: "true", State: models.StatePending}))
	}

	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := s.ClaimPending(ctx)
				require.NoError(t, err)
				if job == nil {
					return
				}
				mu.Lock()
				assert.False(t, seen[job.ID], "job %s claimed twice", job.ID)
				seen[job.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestReleaseRetryable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Second)
	require.NoError(t, s.Insert(ctx, &models.Job{ID: "f", Command: "false", State: models.StateFailed, NextRetryAt: &past}))

	ok, err := s.ReleaseRetryable(ctx, "f")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, got.State)
	assert.Nil(t, got.NextRetryAt)

	ok, err = s.ReleaseRetryable(ctx, "f")
	require.NoError(t, err)
	assert.False(t, ok, "second release must not re-fire")
}

func TestResetFromDLQ(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, &models.Job{ID: "d", Command: "false", State: models.StateDead, Attempts: 4, Error: "boom"}))

	got, err := s.ResetFromDLQ(ctx, "d")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatePending, got.State)
	assert.Equal(t, 0, got.Attempts)
	assert.Empty(t, got.Error)

	none, err := s.ResetFromDLQ(ctx, "d")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, &models.Job{ID: "p1", Command: "true", State: models.StatePending}))
	require.NoError(t, s.Insert(ctx, &models.Job{ID: "p2", Command: "true", State: models.StatePending}))
	require.NoError(t, s.Insert(ctx, &models.Job{ID: "c1", Command: "true", State: models.StateCompleted}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(3), stats.Total)
}

func TestReapStale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, &models.Job{ID: "stuck", Command: "true", State: models.StatePending}))
	_, err := s.ClaimPending(ctx)
	require.NoError(t, err)

	n, err := s.ReapStale(ctx, 10000)
	require.NoError(t, err)
	assert.Zero(t, n, "job updated moments ago is not yet stale")

	n, err = s.ReapStale(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "zero threshold disables the sweep")
}
