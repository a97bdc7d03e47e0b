// Package models holds the durable record types stored by the job queue.
package models

import (
	"time"

	"gorm.io/gorm"
)

// State is the lifecycle state of a Job, per the five-value state machine.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateFailed     State = "failed"
	StateCompleted  State = "completed"
	StateDead       State = "dead"
)

// Job is a durable unit of work. ID is caller-supplied, never generated here
// (BeforeCreate only rejects the zero value rather than minting one).
type Job struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	Command         string    `json:"command" gorm:"not null"`
	State           State     `json:"state" gorm:"type:varchar(20);not null;index:idx_claim,priority:1"`
	Attempts        int       `json:"attempts" gorm:"not null;default:0"`
	MaxRetries      int       `json:"max_retries" gorm:"not null;default:0"`
	Priority        int       `json:"priority" gorm:"not null;default:0;index:idx_claim,priority:2,sort:desc"`
	RunAt           *time.Time `json:"run_at" gorm:"index"`
	Timeout         int       `json:"timeout" gorm:"not null;default:0"` // 0 means "use engine default"
	Output          string    `json:"output"`
	Error           string    `json:"error"`
	NextRetryAt     *time.Time `json:"next_retry_at" gorm:"index"`
	LastExecutionID string    `json:"last_execution_id"`
	CreatedAt       time.Time `json:"created_at" gorm:"index:idx_claim,priority:3"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate rejects jobs without a caller-supplied id; the store layer
// is responsible for turning that into a validation error.
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		return gorm.ErrPrimaryKeyRequired
	}
	return nil
}

// Remaining reports how many more attempts this job may take before DLQ
// promotion, purely as a read-side convenience for the dashboard.
func (j Job) Remaining() int {
	total := j.MaxRetries
	if total < 1 {
		total = 1
	}
	r := total - j.Attempts
	if r < 0 {
		return 0
	}
	return r
}

// ExecutionOutcome describes the result of a single Executor.Execute call.
type ExecutionOutcome struct {
	Success bool
	Output  string
	Error   string
}

// Execution is a durable record of one attempt at running a Job, independent
// of the job row's own Attempts counter. It exists purely for history and
// metrics backfill across restarts; nothing in the claim/retry protocol
// reads it.
type Execution struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	JobID      string     `json:"job_id" gorm:"not null;index"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Success    bool       `json:"success"`
	Error      string     `json:"error"`
}

// Stats is a point-in-time count of jobs per state.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
	Completed  int64 `json:"completed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}
