// Package scheduler holds the job queue's pure policy layer: candidate
// selection, backoff computation, and the retry-vs-DLQ decision after a
// failed execution. It holds no mutable state beyond a store handle and
// config values, grounded on the reference backend's scheduler.Core but
// stripped of everything that layer did for a distributed cron system
// (leader election, AI-gated dispatch, cron parsing) since none of it
// applies to a single-process, one-shot job queue.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/taskforge/taskforge/pkg/metrics"
	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/storage"
)

// Config carries the tunables the scheduler's policy depends on.
type Config struct {
	BackoffBase float64
	// MaxBackoff caps the computed delay; the reference backend's
	// calculateBackoff had no cap and would overflow at high attempt
	// counts, called out explicitly as a defect to fix here.
	MaxBackoff time.Duration
}

// DefaultConfig mirrors the original source's Config defaults.
func DefaultConfig() Config {
	return Config{BackoffBase: 2, MaxBackoff: 24 * time.Hour}
}

// Scheduler is the policy layer described above. It is safe for concurrent
// use by multiple workers: every method either reads, or delegates its one
// write to an atomic store operation.
type Scheduler struct {
	store storage.JobStore
	cfg   Config
}

// New constructs a Scheduler over store using cfg.
func New(store storage.JobStore, cfg Config) *Scheduler {
	if cfg.BackoffBase <= 1 {
		cfg.BackoffBase = 2
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 24 * time.Hour
	}
	return &Scheduler{store: store, cfg: cfg}
}

// PickNext first drains any retryable jobs whose backoff has elapsed,
// releasing the first one that wins its atomic release race back to
// pending, then reloads and claims it. If none are ready, it falls
// through to the store's atomic ClaimPending, which selects and claims a
// pending candidate in one step. Returns (nil, nil) if there is no work.
//
// This collapses the two-step "scheduler picks, worker claims" shape into
// a single call: since ClaimPending is already atomic at the storage
// layer, there is nothing left for a separate worker-side claim to add.
func (s *Scheduler) PickNext(ctx context.Context) (*models.Job, error) {
	ready, err := s.store.ListRetryableReady(ctx)
	if err != nil {
		return nil, fmt.Errorf("list retryable ready: %w", err)
	}
	for _, candidate := range ready {
		released, err := s.store.ReleaseRetryable(ctx, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("release retryable %s: %w", candidate.ID, err)
		}
		if !released {
			continue // lost the race to another worker; try the next candidate
		}
		// The job is now pending. Claim it the same way any other pending
		// job would be claimed, so it still competes fairly on priority.
		job, err := s.store.ClaimPending(ctx)
		if err != nil {
			return nil, err
		}
		if job != nil {
			return job, nil
		}
		// Extremely unlikely: released it but something else claimed it
		// (or a higher-priority job) first. Fall through to a fresh claim.
		break
	}
	return s.store.ClaimPending(ctx)
}

// Backoff computes the retry delay for a job whose Attempts has already
// been incremented for this failure: floor(base^attempts), minimum one
// second, capped at cfg.MaxBackoff so high attempt counts cannot overflow
// or produce an absurd delay.
func (s *Scheduler) Backoff(attempts int) time.Duration {
	seconds := math.Floor(math.Pow(s.cfg.BackoffBase, float64(attempts)))
	if seconds <= 0 || math.IsInf(seconds, 1) || seconds >= s.cfg.MaxBackoff.Seconds() {
		return s.cfg.MaxBackoff
	}
	d := time.Duration(seconds) * time.Second
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Finalize applies the outcome of an execution to a claimed (processing)
// job and persists the result through Store.Update. Attempts increments on
// every failure, and the job is promoted to dead once attempts reaches
// max_retries: a job with max_retries=k (k >= 1) is dead after its k-th
// failure, and one with max_retries=0 after its first.
func (s *Scheduler) Finalize(ctx context.Context, job *models.Job, outcome models.ExecutionOutcome) error {
	job.Output = outcome.Output

	if outcome.Success {
		job.State = models.StateCompleted
		job.Error = ""
		job.NextRetryAt = nil
		return s.store.Update(ctx, job)
	}

	job.Attempts++
	if job.Attempts < job.MaxRetries {
		delay := s.Backoff(job.Attempts)
		next := time.Now().UTC().Add(delay)
		job.State = models.StateFailed
		job.NextRetryAt = &next
		job.Error = outcome.Error
		metrics.RetriesTotal.Inc()
	} else {
		job.State = models.StateDead
		job.NextRetryAt = nil
		if outcome.Error != "" {
			job.Error = outcome.Error
		} else {
			job.Error = "Max retries exceeded"
		}
		metrics.DeadLettersTotal.Inc()
	}
	return s.store.Update(ctx, job)
}
