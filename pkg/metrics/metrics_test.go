package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector()
	c.Observe(true, 100*time.Millisecond)
	c.Observe(false, 300*time.Millisecond)
	c.Observe(true, 200*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.Count)
	assert.Equal(t, int64(2), snap.Successes)
	assert.Equal(t, int64(1), snap.Failures)
	assert.Equal(t, 100*time.Millisecond, snap.MinTime)
	assert.Equal(t, 300*time.Millisecond, snap.MaxTime)
	assert.Equal(t, 200*time.Millisecond, snap.AvgTime)
}

func TestCollectorEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()
	assert.Zero(t, snap.Count)
	assert.Zero(t, snap.AvgTime)
}
