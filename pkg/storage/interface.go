// Package storage defines the Job Store contract: the engine's single
// serialisation point for every state transition in the job lifecycle.
package storage

import (
	"context"
	"errors"

	"github.com/taskforge/taskforge/pkg/models"
)

var (
	// ErrNotFound is returned by Get/Update when no record matches the
	// given id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by Insert when id already exists.
	ErrDuplicate = errors.New("record already exists")
)

// JobStore is the durable, concurrency-safe repository of jobs. Every
// mutation below must be implemented as a single conditional statement at
// the storage layer, never as a read-then-write from calling code: that is
// what makes ClaimPending and ReleaseRetryable safe under concurrent
// callers.
type JobStore interface {
	// Insert adds a new job. Returns ErrDuplicate if id already exists.
	Insert(ctx context.Context, job *models.Job) error

	// Get returns the current record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Job, error)

	// Update performs an unconditional full-record update by id. Returns
	// ErrNotFound if absent. Callers needing conditional semantics must use
	// ClaimPending or ReleaseRetryable instead.
	Update(ctx context.Context, job *models.Job) error

	// ClaimPending atomically selects one pending, eligible job (ordered by
	// priority DESC, created_at ASC) and transitions it to processing,
	// returning the claimed record. Returns (nil, nil) if no candidate
	// exists. Safe under arbitrarily many concurrent callers: exactly one
	// caller wins each row.
	ClaimPending(ctx context.Context) (*models.Job, error)

	// ReleaseRetryable atomically transitions a single failed job back to
	// pending if its retry delay has elapsed. Returns whether the
	// transition occurred.
	ReleaseRetryable(ctx context.Context, id string) (bool, error)

	// ListRetryableReady returns all failed jobs whose NextRetryAt has
	// elapsed, oldest NextRetryAt first. Read-only.
	ListRetryableReady(ctx context.Context) ([]models.Job, error)

	// List returns jobs newest-first by CreatedAt, optionally filtered by
	// state. A nil state lists every job. limit <= 0 means unbounded.
	List(ctx context.Context, state *models.State, limit int) ([]models.Job, error)

	// Stats returns a point-in-time count of jobs per state.
	Stats(ctx context.Context) (models.Stats, error)

	// ResetFromDLQ resets a dead job back to pending with a clean retry
	// budget. Returns (nil, nil) if id is absent or not currently dead.
	ResetFromDLQ(ctx context.Context, id string) (*models.Job, error)

	// ReapStale transitions jobs stuck in processing for longer than
	// olderThan back to pending, incrementing their attempts. Used by the
	// worker pool's optional staleness sweep (disabled unless configured).
	// Returns the number of rows reclaimed.
	ReapStale(ctx context.Context, olderThan int64) (int64, error)
}

// ExecutionStore records one durable row per execution attempt, independent
// of the job row's own Attempts counter. It backs the dashboard's history
// view and gives metrics something to backfill from after a restart.
type ExecutionStore interface {
	Create(ctx context.Context, exec *models.Execution) error
	Finish(ctx context.Context, id string, outcome models.ExecutionOutcome) error
	ListForJob(ctx context.Context, jobID string, limit int) ([]models.Execution, error)
	ListRecent(ctx context.Context, limit int) ([]models.Execution, error)
}
