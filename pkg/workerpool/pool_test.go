package workerpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/executor"
	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/scheduler"
	"github.com/taskforge/taskforge/pkg/storage/sqlite"
)

func newTestPool(t *testing.T) (*Pool, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sched := scheduler.New(store, scheduler.DefaultConfig())
	exec := executor.New(nil)
	p := New(store, store, sched, exec, nil, 20*time.Millisecond, 0, nil)
	return p, store
}

func TestPoolStartRunsJobsThenStopAll(t *testing.T) {
	p, store := newTestPool(t)
	ctx := context.Background()

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, store.Insert(ctx, &models.Job{ID: string(rune('a' + i)), Command: "true", State: models.StatePending}))
	}

	done := make(chan struct{})
	go func() {
		_ = p.Start(ctx, 4)
		close(done)
	}()

	require.Eventually(t, func() bool {
		stats, err := store.Stats(ctx)
		return err == nil && stats.Pending == 0 && stats.Processing == 0
	}, 2*time.Second, 10*time.Millisecond)

	p.StopAll(time.Second)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), stats.Completed)
}

func TestStopAllIdempotentWithNoWorkers(t *testing.T) {
	p, _ := newTestPool(t)
	assert.NotPanics(t, func() { p.StopAll(time.Second) })
}

func TestAutoCountPositive(t *testing.T) {
	assert.Greater(t, AutoCount(), 0)
}
