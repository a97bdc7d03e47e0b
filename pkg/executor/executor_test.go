package executor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/models"
)

func TestExecuteSuccess(t *testing.T) {
	e := New(nil)
	id, outcome := e.Execute(context.Background(), &models.Job{ID: "a", Command: "echo hi"})
	require.NotEmpty(t, id)
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Output, "hi")
	assert.Empty(t, outcome.Error)
}

func TestExecuteNonZeroExitNoStderr(t *testing.T) {
	e := New(nil)
	_, outcome := e.Execute(context.Background(), &models.Job{ID: "b", Command: "exit 7"})
	assert.False(t, outcome.Success)
	assert.Equal(t, "Command failed with exit code 7", outcome.Error)
}

func TestExecuteNonZeroExitWithStderr(t *testing.T) {
	e := New(nil)
	_, outcome := e.Execute(context.Background(), &models.Job{ID: "c", Command: "echo boom 1>&2; exit 1"})
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "boom")
}

func TestExecuteTimeoutKillsProcessGroup(t *testing.T) {
	e := New(nil)
	job := &models.Job{ID: "t", Command: "sleep 30", Timeout: 1}

	start := time.Now()
	_, outcome := e.Execute(context.Background(), job)
	elapsed := time.Since(start)

	assert.False(t, outcome.Success)
	assert.Equal(t, "Job timed out after 1 seconds", outcome.Error)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestExecuteTimeoutKillsDescendants(t *testing.T) {
	e := New(nil)
	// Spawns a grandchild that would outlive a plain (non-group) kill of sh.
	job := &models.Job{ID: "grp", Command: "sh -c 'sleep 30 & wait'", Timeout: 1}

	_, outcome := e.Execute(context.Background(), job)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "timed out")
}

func TestExecuteOutputOrdering(t *testing.T) {
	e := New(nil)
	_, outcome := e.Execute(context.Background(), &models.Job{ID: "d", Command: "echo out; echo err 1>&2"})
	assert.True(t, strings.Index(outcome.Output, "out") < strings.Index(outcome.Output, "err"))
}

func TestExecuteUsesDefaultTimeoutWhenUnset(t *testing.T) {
	job := &models.Job{ID: "e", Command: "echo ok"}
	assert.Zero(t, job.Timeout)

	// A zero Timeout must fall back to DefaultTimeout rather than expire
	// the command immediately.
	_, outcome := New(nil).Execute(context.Background(), job)
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Output, "ok")
}
