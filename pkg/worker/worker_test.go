package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/executor"
	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/scheduler"
	"github.com/taskforge/taskforge/pkg/storage/sqlite"
)

func newHarness(t *testing.T) (*Worker, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sched := scheduler.New(store, scheduler.DefaultConfig())
	exec := executor.New(nil)
	w := New(1, store, store, sched, exec, nil, 50*time.Millisecond, nil)
	return w, store
}

func TestRunIterationCompletesJob(t *testing.T) {
	w, store := newHarness(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &models.Job{ID: "a", Command: "echo hi", State: models.StatePending, MaxRetries: 3}))

	claimed := w.runIteration(ctx)
	assert.True(t, claimed)

	job, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StateCompleted, job.State)
	assert.Contains(t, job.Output, "hi")
	assert.NotEmpty(t, job.LastExecutionID)
}

func TestRunIterationNoWorkReturnsFalse(t *testing.T) {
	w, _ := newHarness(t)
	assert.False(t, w.runIteration(context.Background()))
	assert.Equal(t, StateIdle, w.Status().State)
}

func TestStopEndsRunLoop(t *testing.T) {
	w, _ := newHarness(t)
	ctx := context.Background()

	go w.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	w.Stop()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunIterationZeroRetriesGoesStraightToDLQ(t *testing.T) {
	w, store := newHarness(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &models.Job{ID: "b", Command: "exit 1", State: models.StatePending, MaxRetries: 0}))

	assert.True(t, w.runIteration(ctx))

	job, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, models.StateDead, job.State)
	assert.Equal(t, 1, job.Attempts)
	assert.NotEmpty(t, job.Error)
}

func TestStatusIdleWithNoCurrentJobAfterRuns(t *testing.T) {
	w, store := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(ctx, &models.Job{ID: fmt.Sprintf("j%d", i), Command: "true", State: models.StatePending}))
	}
	for i := 0; i < 3; i++ {
		w.runIteration(ctx)
	}
	status := w.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Empty(t, status.CurrentJobID)
}
