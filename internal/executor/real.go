package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"time"
)

// RealExecutor executes commands using os/exec.
type RealExecutor struct {
	now func() time.Time
}

// NewRealExecutor creates a new RealExecutor.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{now: time.Now}
}

// Execute runs a command and returns the result. It never returns an error:
// every failure is described by the response Status and Error.
func (e *RealExecutor) Execute(ctx context.Context, req ExecuteRequest) ExecuteResponse {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = req.Workdir
	cmd.Env = req.Env
	setupProcessGroup(cmd)

	stdout := &cappedBuffer{limit: req.MaxOutputBytes}
	stderr := &cappedBuffer{limit: req.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	now := e.now
	if now == nil {
		now = time.Now
	}
	start := now()
	err := cmd.Run()
	resp := ExecuteResponse{
		ExitCode:  -1,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  now().Sub(start),
		Truncated: stdout.truncated || stderr.truncated,
	}

	if err == nil {
		resp.Status = StatusCompleted
		resp.ExitCode = 0
		return resp
	}

	// Check the context first: a killed child also reports an ExitError.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		resp.Status = StatusTimeout
		resp.Error = fmt.Sprintf("Command timed out after %s", formatTimeout(req.Timeout))
		return resp
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		resp.Status = StatusError
		resp.Error = "Command canceled"
		return resp
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		resp.Status = StatusNotFound
		resp.Error = "Command not found: " + req.Command
		return resp
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		resp.Status = StatusCompleted
		resp.ExitCode = exitErr.ExitCode()
		return resp
	}

	// Permission denied and other start failures
	resp.Status = StatusError
	resp.Error = fmt.Sprintf("Failed to execute %s: %v", req.Command, err)
	return resp
}

// formatTimeout renders whole-second timeouts as "30 seconds".
func formatTimeout(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int64(d/time.Second))
	}
	return d.String()
}
