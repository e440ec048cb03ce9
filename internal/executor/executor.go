// Package executor runs an already-validated argument vector on the host.
// It never involves a shell: the program and its arguments go straight to
// the OS process-creation primitive.
package executor

import (
	"context"
	"time"
)

// Executor executes commands on the host system.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) ExecuteResponse
}

// ExecuteRequest contains the command execution parameters.
type ExecuteRequest struct {
	Command string
	Args    []string
	Workdir string
	// Env is the complete child environment. Nil inherits the parent's.
	Env     []string
	Timeout time.Duration
	// MaxOutputBytes caps each captured stream. Zero means unlimited.
	MaxOutputBytes int
}

// ExecuteResponse contains the result of command execution.
type ExecuteResponse struct {
	Status    Status
	ExitCode  int
	Stdout    string
	Stderr    string
	Error     string
	Duration  time.Duration
	Truncated bool
}

// Status is the terminal state of an execution.
type Status string

// Status values for ExecuteResponse.Status.
const (
	StatusCompleted Status = "completed"
	StatusTimeout   Status = "timeout"
	StatusNotFound  Status = "not_found"
	StatusError     Status = "error"
)
