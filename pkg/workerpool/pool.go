// Package workerpool manages the lifecycle of a fixed number of Workers:
// start, graceful stop, status introspection, and OS signal handling,
// grounded on the original source's WorkerManager and the reference
// backend's signal-handling main()s.
package workerpool

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/pkg/executor"
	"github.com/taskforge/taskforge/pkg/metrics"
	"github.com/taskforge/taskforge/pkg/scheduler"
	"github.com/taskforge/taskforge/pkg/storage"
	"github.com/taskforge/taskforge/pkg/worker"
)

// StaleSweepInterval is how often the optional processing-staleness sweep
// runs when enabled.
const StaleSweepInterval = 30 * time.Second

// Pool supervises N Workers sharing one store/scheduler/executor.
type Pool struct {
	store     storage.JobStore
	execStore storage.ExecutionStore
	scheduler *scheduler.Scheduler
	executor  *executor.Executor
	collector *metrics.Collector
	log       *zap.Logger

	pollInterval     time.Duration
	staleAfterSecs   int64

	mu      sync.Mutex
	workers []*worker.Worker
	cancel  context.CancelFunc
}

// New constructs an idle Pool. staleAfterSeconds <= 0 disables the sweep.
func New(store storage.JobStore, execStore storage.ExecutionStore, sched *scheduler.Scheduler, exec *executor.Executor, collector *metrics.Collector, pollInterval time.Duration, staleAfterSeconds int64, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		store: store, execStore: execStore, scheduler: sched, executor: exec,
		collector: collector, pollInterval: pollInterval, staleAfterSecs: staleAfterSeconds, log: log,
	}
}

// AutoCount returns a sensible default worker count when the caller did not
// request a specific size, grounded on the reference backend's
// runtime.NumCPU()-based executor sizing; gopsutil is consulted first so the
// same host-introspection path backs both the pool's sizing decision and the
// dashboard's /api/v1/host endpoint.
func AutoCount() int {
	if counts, err := cpu.Counts(true); err == nil && counts > 0 {
		return counts
	}
	return runtime.NumCPU()
}

// Start stops any existing workers, then spawns n new ones with sequential
// ids 1..n. n == 0 auto-sizes from AutoCount(); a negative n is rejected.
// Blocks until every worker has exited (after StopAll, or once ctx is
// cancelled) — callers that want to run the pool in the background should
// invoke this in a goroutine.
func (p *Pool) Start(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("worker count must be >= 0, got %d", n)
	}
	if n == 0 {
		n = AutoCount()
	}

	p.StopAll(5 * time.Second)

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.workers = make([]*worker.Worker, 0, n)
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		w := worker.New(i, p.store, p.execStore, p.scheduler, p.executor, p.collector, p.pollInterval, p.log)
		p.workers = append(p.workers, w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(runCtx)
		}()
	}
	metrics.WorkersRunning.Set(float64(n))
	p.mu.Unlock()

	p.log.Info("worker pool started", zap.Int("count", n))

	if p.staleAfterSecs > 0 {
		go p.runStaleSweep(runCtx)
	}

	wg.Wait()
	return nil
}

func (p *Pool) runStaleSweep(ctx context.Context) {
	ticker := time.NewTicker(StaleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.store.ReapStale(ctx, p.staleAfterSecs)
			if err != nil {
				p.log.Error("stale sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				p.log.Info("reaped stale jobs", zap.Int64("count", n))
				metrics.OrphansReaped.Add(float64(n))
			}
		}
	}
}

// StopAll signals every worker to stop, waits up to timeout for each to
// finish its current job, then abandons any still running. Always
// idempotent: calling it with no active workers is a no-op.
func (p *Pool) StopAll(timeout time.Duration) {
	p.mu.Lock()
	workers := p.workers
	cancel := p.cancel
	p.workers = nil
	p.cancel = nil
	p.mu.Unlock()

	if len(workers) == 0 {
		return
	}
	for _, w := range workers {
		w.Stop()
	}

	deadline := time.After(timeout)
wait:
	for _, w := range workers {
		select {
		case <-w.Done():
		case <-deadline:
			p.log.Warn("timed out waiting for workers to stop; abandoning")
			break wait
		}
	}
	if cancel != nil {
		cancel()
	}
	metrics.WorkersRunning.Set(0)
}

// Status returns a point-in-time snapshot of every worker in the pool.
func (p *Pool) Status() []worker.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	statuses := make([]worker.Status, 0, len(p.workers))
	for _, w := range p.workers {
		statuses = append(statuses, w.Status())
	}
	return statuses
}

// RunWithSignalHandling blocks running Start(ctx, n) and installs SIGINT/
// SIGTERM handlers that trigger a graceful StopAll and return, grounded on
// the reference backend's cmd/*/main.go signal-handling shape.
func (p *Pool) RunWithSignalHandling(ctx context.Context, n int, stopTimeout time.Duration) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Start(runCtx, n) }()

	select {
	case sig := <-sigCh:
		p.log.Info("received signal, stopping pool", zap.String("signal", sig.String()))
		p.StopAll(stopTimeout)
		cancel()
		return nil
	case err := <-errCh:
		return err
	}
}
