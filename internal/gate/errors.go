package gate

import (
	"errors"
	"fmt"
)

// Kind classifies why a command was rejected.
type Kind string

// Violation kinds. Every kind is a SecurityViolation; the specific kinds
// narrow it down.
const (
	KindSecurityViolation Kind = "security_violation"
	KindNotWhitelisted    Kind = "command_not_whitelisted"
	KindDangerousCommand  Kind = "dangerous_command"
	KindInvalidWorkdir    Kind = "invalid_working_directory"
)

// Sentinel errors for errors.Is checks against a *Violation.
var (
	ErrSecurityViolation = errors.New("security violation")
	ErrNotWhitelisted    = fmt.Errorf("%w: command not whitelisted", ErrSecurityViolation)
	ErrDangerousCommand  = fmt.Errorf("%w: dangerous command", ErrSecurityViolation)
	ErrInvalidWorkdir    = fmt.Errorf("%w: invalid working directory", ErrSecurityViolation)
)

// Violation is a rejection produced by one of the validation stages.
// Reason is the human-readable message returned to callers.
type Violation struct {
	Kind   Kind
	Reason string
}

func (v *Violation) Error() string {
	return v.Reason
}

// Unwrap maps the kind onto its sentinel so errors.Is works for both the
// specific kind and ErrSecurityViolation.
func (v *Violation) Unwrap() error {
	switch v.Kind {
	case KindNotWhitelisted:
		return ErrNotWhitelisted
	case KindDangerousCommand:
		return ErrDangerousCommand
	case KindInvalidWorkdir:
		return ErrInvalidWorkdir
	default:
		return ErrSecurityViolation
	}
}

func violationf(kind Kind, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
