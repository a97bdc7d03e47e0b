// Package metrics exposes Prometheus instrumentation for the job queue,
// grounded on the reference backend's metrics package (promauto, a shared
// namespace, per-status label cardinality) but re-labelled for this engine's
// five-state job lifecycle instead of a cron scheduler's.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsByState tracks the current count of jobs in each state. It only
	// changes when SetJobsByState is called; nothing in this repository
	// calls it periodically.
	JobsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "taskforge",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Current number of jobs by state",
		},
		[]string{"state"},
	)

	// ExecutionsTotal counts completed executions by outcome.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskforge",
			Subsystem: "executions",
			Name:      "total",
			Help:      "Total number of job executions by outcome",
		},
		[]string{"outcome"},
	)

	// ExecutionDuration tracks execution wall-clock time.
	ExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "taskforge",
			Subsystem: "executions",
			Name:      "duration_seconds",
			Help:      "Duration of job executions in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 16),
		},
	)

	// RetriesTotal counts jobs moved from processing back to failed (pending
	// a future retry), i.e. every backoff scheduled.
	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskforge",
			Subsystem: "scheduler",
			Name:      "retries_total",
			Help:      "Total number of retries scheduled",
		},
	)

	// DeadLettersTotal counts DLQ promotions.
	DeadLettersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskforge",
			Subsystem: "scheduler",
			Name:      "dead_letters_total",
			Help:      "Total number of jobs promoted to the dead-letter queue",
		},
	)

	// OrphansReaped counts jobs reclaimed from a stuck processing state by
	// the worker pool's optional staleness sweep.
	OrphansReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskforge",
			Subsystem: "pool",
			Name:      "orphans_reaped_total",
			Help:      "Total number of jobs reclaimed from a stale processing state",
		},
	)

	// WorkersRunning tracks the current size of the worker pool.
	WorkersRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taskforge",
			Subsystem: "pool",
			Name:      "workers_running",
			Help:      "Number of workers currently running in the pool",
		},
	)
)

// RecordExecution records the Prometheus outcome counter and duration
// histogram for one execution. It does not touch any Collector; callers
// that keep one call Collector.Observe separately. Durable per-attempt
// history lives in the executions table (see pkg/storage).
func RecordExecution(success bool, duration time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	ExecutionsTotal.WithLabelValues(outcome).Inc()
	ExecutionDuration.Observe(duration.Seconds())
}

// SetJobsByState overwrites the JobsByState gauge vector from a fresh stats
// snapshot; callers pass state name -> count.
func SetJobsByState(counts map[string]int64) {
	for state, n := range counts {
		JobsByState.WithLabelValues(state).Set(float64(n))
	}
}

// Collector is an in-process, restart-scoped timing aggregator, grounded on
// the original source's lightweight Metrics class: min/max/average
// execution duration and a running success/failure tally, kept in memory
// by the worker pool's process. Neither the `status` CLI command nor the
// dashboard's /api/v1/stats endpoint reads it.
type Collector struct {
	mu         sync.Mutex
	count      int64
	successes  int64
	failures   int64
	totalTime  time.Duration
	minTime    time.Duration
	maxTime    time.Duration
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Observe records one execution's outcome and duration.
func (c *Collector) Observe(success bool, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if success {
		c.successes++
	} else {
		c.failures++
	}
	c.totalTime += d
	if c.minTime == 0 || d < c.minTime {
		c.minTime = d
	}
	if d > c.maxTime {
		c.maxTime = d
	}
}

// Snapshot is a read-only view of the collector's current state.
type Snapshot struct {
	Count     int64         `json:"count"`
	Successes int64         `json:"successes"`
	Failures  int64         `json:"failures"`
	AvgTime   time.Duration `json:"avg_time"`
	MinTime   time.Duration `json:"min_time"`
	MaxTime   time.Duration `json:"max_time"`
}

// Snapshot returns the current aggregate values.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Count: c.count, Successes: c.successes, Failures: c.failures, MinTime: c.minTime, MaxTime: c.maxTime}
	if c.count > 0 {
		s.AvgTime = c.totalTime / time.Duration(c.count)
	}
	return s
}
