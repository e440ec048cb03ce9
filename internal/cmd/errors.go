package cmd

import (
	"errors"
	"fmt"
)

// ExitCodeError carries a process exit code out of a command. main exits
// with Code without printing anything further.
type ExitCodeError struct {
	Code int
}

// NewExitCodeError returns an ExitCodeError for code.
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// errNoAuditStore is returned by `cmdgate audit` when no sqlite store is configured.
var errNoAuditStore = errors.New("audit.sqlite is not configured; set it in the config file to keep a queryable audit trail")

// configLoadError wraps a config failure with a pointer to the file.
func configLoadError(path string, err error) error {
	return fmt.Errorf("failed to load config %s: %w (run 'cmdgate config edit' to fix it)", path, err)
}
