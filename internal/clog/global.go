package clog

import (
	"io"
	"sync/atomic"
)

// std is the global logger instance used by package-level functions.
var std atomic.Pointer[Logger]

func init() {
	std.Store(NewLogger())
}

func global() *Logger {
	return std.Load()
}

// Options configures the global logger.
type Options struct {
	// Path is the log file. Empty disables file logging.
	Path string
	// Level is the minimum level written to the file.
	Level Level
	// Daemon disables stderr output.
	Daemon bool
	// Journal additionally sends records to the systemd journal.
	Journal bool
}

// Configure sets up the global logger. A journal that cannot be opened is
// reported as a warning and otherwise ignored.
func Configure(opts Options) error {
	l := global()
	l.SetLevel(opts.Level)
	l.SetDaemonMode(opts.Daemon)

	if opts.Path != "" {
		f, err := OpenLogFile(opts.Path)
		if err != nil {
			return err
		}
		l.SetFileOutput(f)
	}

	if opts.Journal {
		if err := l.EnableJournal(); err != nil {
			l.Warn("journal logging disabled: %v", err)
		}
	}
	return nil
}

// SetLevel sets the minimum log level for the global logger.
func SetLevel(level Level) {
	global().SetLevel(level)
}

// SetFileOutput sets the file writer for the global logger.
func SetFileOutput(w io.Writer) {
	global().SetFileOutput(w)
}

// SetErrOutput sets the stderr writer for the global logger.
func SetErrOutput(w io.Writer) {
	global().SetErrOutput(w)
}

// SetDaemonMode enables or disables daemon mode for the global logger.
func SetDaemonMode(daemon bool) {
	global().SetDaemonMode(daemon)
}

// Debug logs a debug message using the global logger.
func Debug(format string, args ...any) {
	global().Debug(format, args...)
}

// Info logs an informational message using the global logger.
func Info(format string, args ...any) {
	global().Info(format, args...)
}

// Warn logs a warning message using the global logger.
func Warn(format string, args ...any) {
	global().Warn(format, args...)
}

// Error logs an error message using the global logger.
func Error(format string, args ...any) {
	global().Error(format, args...)
}

// Attrs logs a structured message using the global logger.
func Attrs(level Level, msg string, attrs ...any) {
	global().Attrs(level, msg, attrs...)
}

// Close closes the file writer if it implements io.Closer.
// This should be called during shutdown to ensure logs are flushed.
func Close() error {
	l := global()
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.fileWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Reset resets the global logger to default state.
// This is primarily useful for testing.
func Reset() {
	std.Store(NewLogger())
}

// Discard configures the global logger to discard all output.
// This is useful for silencing logs in tests.
func Discard() {
	l := global()
	l.SetFileOutput(nil)
	l.SetErrOutput(nil)
}

// TestLogger returns a debug-level logger that writes to the provided writer.
// Useful for capturing log output in tests.
func TestLogger(w io.Writer) *Logger {
	l := NewLogger()
	l.SetErrOutput(nil)
	l.SetFileOutput(w)
	l.SetLevel(LevelDebug)
	return l
}

// ReplaceGlobal replaces the global logger and returns the previous one.
// Useful for testing. Caller should restore the original logger after test.
func ReplaceGlobal(l *Logger) *Logger {
	return std.Swap(l)
}
