// Package audit records every decision the gate makes about a command.
// Text log entries follow a key=value format suitable for parsing and analysis.
package audit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EventType represents the type of gate event.
type EventType string

// Event types emitted over the life of one invocation.
const (
	EventRequest  EventType = "REQUEST"
	EventReject   EventType = "REJECT"
	EventAllow    EventType = "ALLOW"
	EventClamp    EventType = "CLAMP"
	EventComplete EventType = "COMPLETE"
	EventTimeout  EventType = "TIMEOUT"
	EventNotFound EventType = "NOT_FOUND"
	EventError    EventType = "ERROR"
)

// Record is one append-only audit entry.
type Record struct {
	// ID identifies the invocation; every record of one Execute call shares it.
	ID string

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Type is the event type (REQUEST, REJECT, etc.)
	Type EventType

	// Op is the gate operation that produced the record (execute, validate).
	Op string

	// Stage is the gate state the invocation was in when the event was emitted.
	Stage string

	// Cmd is the raw command as received.
	Cmd string

	// Workdir is the requested or resolved working directory.
	Workdir string

	// Timeout is the effective timeout (requested timeout for CLAMP events).
	Timeout time.Duration

	// Violation is the violation kind (for REJECT events).
	Violation string

	// Reason is the human-readable rejection or failure message.
	Reason string

	// ExitCode is the process exit code (for COMPLETE events).
	ExitCode int

	// Success reports exit code zero (for COMPLETE events).
	Success bool

	// Duration is the execution time (for terminal events).
	Duration time.Duration
}

// Sink receives audit records. Implementations must be safe for concurrent use.
type Sink interface {
	Record(r *Record) error
}

// Format returns the log entry as a formatted string.
// Format: 2024-01-15T14:32:05Z GATE REQUEST id=... op=execute cmd="ls -la" workdir="/tmp" timeout=30s
func (r *Record) Format() string {
	var b strings.Builder

	b.WriteString(r.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(" GATE ")
	b.WriteString(string(r.Type))

	b.WriteString(" id=")
	b.WriteString(r.ID)
	if r.Op != "" {
		b.WriteString(" op=")
		b.WriteString(r.Op)
	}
	b.WriteString(" cmd=")
	b.WriteString(quoteValue(r.Cmd))
	writeOptionalField(&b, "workdir", r.Workdir)
	if r.Timeout > 0 {
		b.WriteString(" timeout=")
		b.WriteString(r.Timeout.String())
	}

	r.formatTypeSpecificFields(&b)

	return b.String()
}

// formatTypeSpecificFields appends type-specific key=value pairs to the builder.
func (r *Record) formatTypeSpecificFields(b *strings.Builder) {
	switch r.Type {
	case EventReject:
		writeOptionalField(b, "violation", r.Violation)
		writeOptionalField(b, "reason", r.Reason)
	case EventClamp, EventError, EventNotFound:
		writeOptionalField(b, "reason", r.Reason)
	case EventComplete:
		b.WriteString(" exit=")
		b.WriteString(strconv.Itoa(r.ExitCode))
		b.WriteString(" success=")
		b.WriteString(strconv.FormatBool(r.Success))
		b.WriteString(" duration=")
		b.WriteString(formatDuration(r.Duration))
	case EventTimeout:
		b.WriteString(" duration=")
		b.WriteString(formatDuration(r.Duration))
	}
}

// writeOptionalField appends " key=quoted_value" to the builder if value is non-empty.
func writeOptionalField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(quoteValue(value))
}

// quoteValue returns a quoted string value.
// Values are always quoted so embedded newlines cannot forge a second entry.
func quoteValue(s string) string {
	return strconv.Quote(s)
}

// formatDuration formats a duration as a human-readable string (e.g., "2.3s", "1m30s").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Logger writes audit records to an io.Writer, one line per record.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogger creates a new audit logger that writes to the given writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

// OpenFile opens path for appending, creating it and its directory if needed,
// and returns a Logger writing to it. Close the Logger to release the file.
func OpenFile(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return NewLogger(f), nil
}

// Record writes a record to the audit log.
func (l *Logger) Record(r *Record) error {
	if l == nil || l.w == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	line := r.Format() + "\n"
	_, err := l.w.Write([]byte(line))
	if err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// Close closes the underlying writer if it is an io.Closer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.w.(io.Closer); ok {
		l.w = nil
		return c.Close()
	}
	return nil
}

// Multi fans a record out to every sink. Every sink is attempted; errors are joined.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(r *Record) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that implements io.Closer.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
