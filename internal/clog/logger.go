package clog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Logger handles leveled logging with support for multiple outputs.
// Outputs are slog handlers combined with slogmulti.Fanout; the combined
// handler is rebuilt whenever an output changes.
type Logger struct {
	mu         sync.Mutex
	level      slog.LevelVar
	fileWriter io.Writer // receives logs at or above level
	errWriter  io.Writer // receives warn/error in CLI mode
	daemonMode bool      // when true, errWriter is ignored
	journal    slog.Handler
	logger     *slog.Logger
}

// NewLogger creates a new logger with default settings.
// By default, warnings and errors go to stderr and the level is Info.
func NewLogger() *Logger {
	l := &Logger{errWriter: os.Stderr}
	l.level.Set(slog.LevelInfo)
	l.rebuild()
	return l
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slogLevel())
}

// SetFileOutput sets the file writer for log output.
// Pass nil to disable file logging.
func (l *Logger) SetFileOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fileWriter = w
	l.rebuild()
}

// SetErrOutput sets the stderr writer for warn/error output in CLI mode.
// Pass nil to disable stderr logging.
func (l *Logger) SetErrOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errWriter = w
	l.rebuild()
}

// SetDaemonMode enables or disables daemon mode.
// In daemon mode, logs only go to the file writer and journal, not stderr.
func (l *Logger) SetDaemonMode(daemon bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.daemonMode = daemon
	l.rebuild()
}

// EnableJournal adds a systemd journal output.
// Returns an error if the journal socket is unavailable.
func (l *Logger) EnableJournal() error {
	h, err := slogjournal.NewHandler(&slogjournal.Options{
		ReplaceGroup: journalKey,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a.Key = journalKey(a.Key)
			return a
		},
	})
	if err != nil {
		return fmt.Errorf("open systemd journal: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.journal = &leveled{Handler: h, level: &l.level}
	l.rebuild()
	return nil
}

// journalKey converts an attribute key to a valid journal field name.
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
}

// leveled gates a handler on the logger's level.
type leveled struct {
	slog.Handler
	level slog.Leveler
}

func (h *leveled) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// rebuild recomputes the fan-out handler. Caller must hold mu.
func (l *Logger) rebuild() {
	var handlers []slog.Handler
	if l.fileWriter != nil {
		handlers = append(handlers, slog.NewTextHandler(l.fileWriter, &slog.HandlerOptions{
			Level:       &l.level,
			ReplaceAttr: utcTime,
		}))
	}
	if !l.daemonMode && l.errWriter != nil {
		handlers = append(handlers, slog.NewTextHandler(l.errWriter, &slog.HandlerOptions{
			Level:       slog.LevelWarn,
			ReplaceAttr: dropTime,
		}))
	}
	if l.journal != nil {
		handlers = append(handlers, l.journal)
	}
	l.logger = slog.New(slogmulti.Fanout(handlers...))
}

// utcTime renders the record time in UTC so log files from different hosts line up.
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		a.Value = slog.TimeValue(a.Value.Time().UTC())
	}
	return a
}

// dropTime removes the timestamp from terminal output.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// Slog returns the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// Attrs logs msg at level with structured key/value attributes.
func (l *Logger) Attrs(level Level, msg string, attrs ...any) {
	l.Slog().Log(context.Background(), level.slogLevel(), msg, attrs...)
}

func (l *Logger) log(level Level, format string, args ...any) {
	logger := l.Slog()
	if !logger.Enabled(context.Background(), level.slogLevel()) {
		return
	}
	logger.Log(context.Background(), level.slogLevel(), fmt.Sprintf(format, args...))
}

// OpenLogFile opens a log file for writing, creating parent directories if needed.
// The file is opened in append mode.
func OpenLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return f, nil
}

// StateDir returns the cmdgate state directory following XDG conventions.
// Returns ~/.local/state/cmdgate
func StateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "cmdgate")
}

// DefaultLogPath returns the default operational log path.
// Returns ~/.local/state/cmdgate/cmdgate.log
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "cmdgate.log")
}
