// Package worker implements a single long-lived polling consumer of the job
// queue, grounded on the reference backend's executor.Executor main loop
// (semaphore-free here, since concurrency comes from running several
// Workers rather than one executor fanning out goroutines per poll).
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/taskforge/pkg/executor"
	"github.com/taskforge/taskforge/pkg/metrics"
	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/scheduler"
	"github.com/taskforge/taskforge/pkg/storage"
)

// State is a Worker's externally observable phase.
type State string

const (
	StateIdle     State = "idle"
	StateClaiming State = "claiming"
	StateRunning  State = "running"
	StateReporting State = "reporting"
	StateStopping State = "stopping"
)

// Worker polls the scheduler for work, executes it, and reports the
// outcome back. Its exported fields are only ever written by its own
// goroutine; Status() is the safe read path for other goroutines.
type Worker struct {
	ID           int
	store        storage.JobStore
	execStore    storage.ExecutionStore
	scheduler    *scheduler.Scheduler
	executor     *executor.Executor
	collector    *metrics.Collector
	pollInterval time.Duration
	log          *zap.Logger

	state     atomic.Value // State
	currentID atomic.Value // string, empty when idle
	stopping  atomic.Bool
	done      chan struct{}
}

// New constructs a Worker. collector may be nil.
func New(id int, store storage.JobStore, execStore storage.ExecutionStore, sched *scheduler.Scheduler, exec *executor.Executor, collector *metrics.Collector, pollInterval time.Duration, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Worker{
		ID:           id,
		store:        store,
		execStore:    execStore,
		scheduler:    sched,
		executor:     exec,
		collector:    collector,
		pollInterval: pollInterval,
		log:          log.With(zap.Int("worker_id", id)),
		done:         make(chan struct{}),
	}
	w.state.Store(StateIdle)
	w.currentID.Store("")
	return w
}

// Status is a point-in-time snapshot for observation (CLI status, dashboard).
type Status struct {
	ID            int    `json:"id"`
	State         State  `json:"state"`
	CurrentJobID  string `json:"current_job_id"`
}

// Status returns the worker's current phase and job, if any.
func (w *Worker) Status() Status {
	return Status{ID: w.ID, State: w.state.Load().(State), CurrentJobID: w.currentID.Load().(string)}
}

// Stop asks the worker to exit cooperatively; it honours the request at
// the next loop iteration boundary, finishing any job already in flight.
func (w *Worker) Stop() {
	w.stopping.Store(true)
}

// Done is closed once Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run is the worker's main loop. It never returns due to an error; every
// unexpected failure is logged and the loop continues after sleeping one
// poll interval, per the engine's "workers are restart-free" policy. Run
// returns only once Stop has been called (or ctx is cancelled).
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		if w.stopping.Load() || ctx.Err() != nil {
			w.state.Store(StateStopping)
			w.log.Info("worker stopping")
			return
		}

		if w.runIteration(ctx) {
			continue // claimed and ran a job; check for more work immediately
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// runIteration runs one loop body and reports whether a job was claimed,
// executed and finalized (in which case the caller should re-poll
// immediately rather than sleep a full interval).
func (w *Worker) runIteration(ctx context.Context) bool {
	w.state.Store(StateClaiming)

	job, err := w.scheduler.PickNext(ctx)
	if err != nil {
		w.log.Error("storage error while claiming work", zap.Error(err))
		w.state.Store(StateIdle)
		return false
	}
	if job == nil {
		w.state.Store(StateIdle)
		return false
	}

	w.currentID.Store(job.ID)
	w.state.Store(StateRunning)
	w.log.Info("claimed job", zap.String("job_id", job.ID), zap.String("command", job.Command))

	start := time.Now()
	execID, outcome := w.executor.Execute(ctx, job)
	duration := time.Since(start)

	if w.execStore != nil {
		_ = w.execStore.Create(ctx, &models.Execution{ID: execID, JobID: job.ID, StartedAt: start})
		_ = w.execStore.Finish(ctx, execID, outcome)
	}
	job.LastExecutionID = execID

	w.state.Store(StateReporting)
	finalizeErr := w.scheduler.Finalize(ctx, job, outcome)
	if finalizeErr != nil {
		w.log.Error("storage error while finalizing job", zap.String("job_id", job.ID), zap.Error(finalizeErr))
	}

	metrics.RecordExecution(outcome.Success, duration)
	if w.collector != nil {
		w.collector.Observe(outcome.Success, duration)
	}

	w.currentID.Store("")
	w.state.Store(StateIdle)
	return finalizeErr == nil
}
