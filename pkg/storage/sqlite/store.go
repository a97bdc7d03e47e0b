// Package sqlite implements storage.JobStore and storage.ExecutionStore on
// top of a single embedded SQLite file via GORM, grounded on the reference
// backend's Postgres store but with claim/release reworked into the two
// atomic conditional transitions the job queue's concurrency model requires.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskforge/taskforge/pkg/models"
	"github.com/taskforge/taskforge/pkg/storage"
)

// Store is a gorm-backed JobStore/ExecutionStore over a SQLite file.
type Store struct {
	db *gorm.DB
}

// Open connects to (creating if absent) the SQLite file at path and
// AutoMigrates the schema. Schema already present is left untouched.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A single SQLite file only ever has one writer at a time; keep the
	// pool small so callers serialise through the database rather than
	// piling up half-open connections.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Job{}, &models.Execution{}); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Insert(ctx context.Context, job *models.Job) error {
	result := s.db.WithContext(ctx).Create(job)
	if result.Error != nil {
		if gorm.ErrDuplicatedKey == result.Error {
			return storage.ErrDuplicate
		}
		// SQLite reports PK collisions as a plain constraint error, not
		// gorm.ErrDuplicatedKey, when Create is used without sqlite
		// dialector-specific extensions. Detect it by re-reading.
		var existing models.Job
		if s.db.WithContext(ctx).First(&existing, "id = ?", job.ID).Error == nil {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert job: %w", result.Error)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	result := s.db.WithContext(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, result.Error
	}
	return &job, nil
}

// Update performs an unconditional full-record update by id. GORM's
// Updates(struct) skips zero-value fields by default, which would silently
// leave a stale error/next_retry_at behind once a job clears them on a
// later success; an explicit column map forces every field to be written
// regardless of its value, the same way ClaimPending/ReleaseRetryable/
// ResetFromDLQ already do.
func (s *Store) Update(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"command":           job.Command,
		"state":             job.State,
		"attempts":          job.Attempts,
		"max_retries":       job.MaxRetries,
		"priority":          job.Priority,
		"run_at":            job.RunAt,
		"timeout":           job.Timeout,
		"output":            job.Output,
		"error":             job.Error,
		"next_retry_at":     job.NextRetryAt,
		"last_execution_id": job.LastExecutionID,
		"updated_at":        job.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("update job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ClaimPending is the claim protocol's atomic half. It selects one eligible
// candidate with a plain read, then performs a single conditional UPDATE ...
// WHERE id = ? AND state = 'pending' guarded by SQLite's serialised-writer
// semantics (one open connection, see Open). A RowsAffected of zero means
// another caller won the race; the candidate is simply skipped rather than
// retried here, mirroring the reference backend's rowcount-checked updates.
func (s *Store) ClaimPending(ctx context.Context) (*models.Job, error) {
	const maxCandidates = 8
	now := time.Now().UTC()

	var candidates []models.Job
	result := s.db.WithContext(ctx).
		Where("state = ?", models.StatePending).
		Where("run_at IS NULL OR run_at <= ?", now).
		Order("priority DESC, created_at ASC").
		Limit(maxCandidates).
		Find(&candidates)
	if result.Error != nil {
		return nil, fmt.Errorf("select claim candidates: %w", result.Error)
	}

	for _, candidate := range candidates {
		upd := s.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND state = ?", candidate.ID, models.StatePending).
			Updates(map[string]interface{}{
				"state":      models.StateProcessing,
				"updated_at": now,
			})
		if upd.Error != nil {
			return nil, fmt.Errorf("claim job %s: %w", candidate.ID, upd.Error)
		}
		if upd.RowsAffected == 1 {
			claimed, err := s.Get(ctx, candidate.ID)
			if err != nil {
				return nil, err
			}
			return claimed, nil
		}
		// Lost the race on this candidate; try the next one.
	}
	return nil, nil
}

// ReleaseRetryable is the claim protocol's retry-side atomic transition.
func (s *Store) ReleaseRetryable(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND state = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", id, models.StateFailed, now).
		Updates(map[string]interface{}{
			"state":         models.StatePending,
			"next_retry_at": nil,
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("release retryable %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) ListRetryableReady(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Where("state = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.StateFailed, now).
		Order("next_retry_at ASC").
		Find(&jobs)
	if result.Error != nil {
		return nil, fmt.Errorf("list retryable ready: %w", result.Error)
	}
	return jobs, nil
}

func (s *Store) List(ctx context.Context, state *models.State, limit int) ([]models.Job, error) {
	var jobs []models.Job
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if state != nil {
		q = q.Where("state = ?", *state)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if result := q.Find(&jobs); result.Error != nil {
		return nil, fmt.Errorf("list jobs: %w", result.Error)
	}
	return jobs, nil
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	counts := []struct {
		state *int64
		value models.State
	}{
		{&stats.Pending, models.StatePending},
		{&stats.Processing, models.StateProcessing},
		{&stats.Failed, models.StateFailed},
		{&stats.Completed, models.StateCompleted},
		{&stats.Dead, models.StateDead},
	}
	for _, c := range counts {
		if result := s.db.WithContext(ctx).Model(&models.Job{}).Where("state = ?", c.value).Count(c.state); result.Error != nil {
			return stats, fmt.Errorf("stats: %w", result.Error)
		}
		stats.Total += *c.state
	}
	return stats, nil
}

func (s *Store) ResetFromDLQ(ctx context.Context, id string) (*models.Job, error) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND state = ?", id, models.StateDead).
		Updates(map[string]interface{}{
			"state":         models.StatePending,
			"attempts":      0,
			"error":         "",
			"next_retry_at": nil,
			"updated_at":    now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("reset from dlq %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.Get(ctx, id)
}

// ReapStale reclaims jobs stuck in processing past olderThan seconds. Guarded
// on both state and updated_at so it never races a worker that is actively
// reporting a result; idempotent by construction (a re-run sees the rows it
// already moved back to pending and does nothing further to them).
func (s *Store) ReapStale(ctx context.Context, olderThanSeconds int64) (int64, error) {
	if olderThanSeconds <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(olderThanSeconds) * time.Second)
	result := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("state = ? AND updated_at < ?", models.StateProcessing, cutoff).
		Updates(map[string]interface{}{
			"state":      models.StatePending,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("reap stale: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// --- ExecutionStore ---

func (s *Store) Create(ctx context.Context, exec *models.Execution) error {
	if result := s.db.WithContext(ctx).Create(exec); result.Error != nil {
		return fmt.Errorf("create execution: %w", result.Error)
	}
	return nil
}

func (s *Store) Finish(ctx context.Context, id string, outcome models.ExecutionOutcome) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Execution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"finished_at": now,
			"success":     outcome.Success,
			"error":       outcome.Error,
		})
	if result.Error != nil {
		return fmt.Errorf("finish execution %s: %w", id, result.Error)
	}
	return nil
}

func (s *Store) ListForJob(ctx context.Context, jobID string, limit int) ([]models.Execution, error) {
	var execs []models.Execution
	q := s.db.WithContext(ctx).Where("job_id = ?", jobID).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if result := q.Find(&execs); result.Error != nil {
		return nil, fmt.Errorf("list executions for %s: %w", jobID, result.Error)
	}
	return execs, nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]models.Execution, error) {
	var execs []models.Execution
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if result := q.Find(&execs); result.Error != nil {
		return nil, fmt.Errorf("list recent executions: %w", result.Error)
	}
	return execs, nil
}
