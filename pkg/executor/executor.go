// Package executor runs a Job's shell command as a supervised child process
// with an enforced timeout, grounded on the reference backend's
// executor/runner ShellRunner but reworked to own the process group through
// the full lifetime of the call, including on timeout.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskforge/taskforge/pkg/models"
)

// DefaultTimeout is used when a job does not specify one.
const DefaultTimeout = 300 * time.Second

// Executor runs one job's command at a time on behalf of whichever worker
// calls it; it holds no per-job state between calls.
type Executor struct {
	log *zap.Logger
}

// New constructs an Executor. log may be nil, in which case a no-op logger
// is used.
func New(log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{log: log}
}

// Execute runs job.Command via the system shell in a fresh process group and
// enforces the job's timeout (or the engine default). It never panics or
// returns a Go error to the caller: all failure modes are reported through
// the returned ExecutionOutcome, and execID is always returned so the caller
// can correlate it with an Execution row.
func (e *Executor) Execute(ctx context.Context, job *models.Job) (execID string, outcome models.ExecutionOutcome) {
	execID = uuid.NewString()
	timeout := DefaultTimeout
	if job.Timeout > 0 {
		timeout = time.Duration(job.Timeout) * time.Second
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.log.Debug("execution starting", zap.String("execution_id", execID), zap.String("job_id", job.ID))

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", job.Command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// exec.CommandContext only signals the direct child on cancellation; to
	// reach grandchildren (the whole point of Setpgid above) the process
	// group itself must be killed explicitly once the context is done.
	if err := cmd.Start(); err != nil {
		outcome = models.ExecutionOutcome{Success: false, Output: "", Error: err.Error()}
		e.log.Warn("execution failed to start", zap.String("execution_id", execID), zap.Error(err))
		return execID, outcome
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitDone:
	case <-runCtx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		waitErr = <-waitDone
	}

	output := stdout.String() + stderr.String()

	if runCtx.Err() == context.DeadlineExceeded {
		msg := fmt.Sprintf("Job timed out after %d seconds", int(timeout.Seconds()))
		e.log.Info("execution timed out", zap.String("execution_id", execID), zap.Duration("timeout", timeout))
		return execID, models.ExecutionOutcome{Success: false, Output: output, Error: msg}
	}

	if waitErr == nil {
		e.log.Debug("execution succeeded", zap.String("execution_id", execID))
		return execID, models.ExecutionOutcome{Success: true, Output: output, Error: ""}
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		// Spawn failure or other host error not tied to a specific exit code.
		e.log.Warn("execution host error", zap.String("execution_id", execID), zap.Error(waitErr))
		return execID, models.ExecutionOutcome{Success: false, Output: output, Error: waitErr.Error()}
	}

	var errMsg string
	if stderr.Len() > 0 {
		errMsg = stderr.String()
	} else {
		errMsg = fmt.Sprintf("Command failed with exit code %d", exitErr.ExitCode())
	}
	e.log.Info("execution failed", zap.String("execution_id", execID), zap.Int("exit_code", exitErr.ExitCode()))
	return execID, models.ExecutionOutcome{Success: false, Output: output, Error: errMsg}
}
