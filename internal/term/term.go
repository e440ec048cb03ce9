// Package term provides user-facing terminal output for the cmdgate CLI.
// This is distinct from operational logging (see internal/clog) and from
// the audit trail (see internal/audit).
//
// Output functions:
//   - Print/Printf/Println: Normal output to stdout (suppressed with --silent)
//   - Allowed/Rejected: Gate verdicts to stdout (suppressed with --silent)
//   - Warn/Error: Diagnostics to stderr (NOT suppressed with --silent)
//
// Prefixes are colored only when the destination is a terminal.
package term

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	xterm "golang.org/x/term"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	denyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

var (
	mu        sync.Mutex
	stdout    io.Writer = os.Stdout
	stderr    io.Writer = os.Stderr
	outStyled           = isTerminal(os.Stdout)
	errStyled           = isTerminal(os.Stderr)
	silent    bool
)

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && xterm.IsTerminal(int(f.Fd()))
}

func render(styled bool, s lipgloss.Style, text string) string {
	if !styled {
		return text
	}
	return s.Render(text)
}

// SetSilent enables or disables silent mode.
// When silent, stdout output is suppressed; Warn and Error still print.
func SetSilent(s bool) {
	mu.Lock()
	defer mu.Unlock()
	silent = s
}

// IsSilent returns whether silent mode is enabled.
func IsSilent() bool {
	mu.Lock()
	defer mu.Unlock()
	return silent
}

// SetOutput sets the writer for stdout output.
// Pass nil to use os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	stdout = w
	outStyled = isTerminal(w)
}

// SetErrOutput sets the writer for stderr output.
// Pass nil to use os.Stderr.
func SetErrOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	stderr = w
	errStyled = isTerminal(w)
}

// Print formats and writes to stdout.
func Print(a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprint(stdout, a...)
}

// Printf formats according to a format specifier and writes to stdout.
func Printf(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprintf(stdout, format, a...)
}

// Println formats and writes to stdout with a trailing newline.
func Println(a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprintln(stdout, a...)
}

// Allowed writes a passing gate verdict, e.g. "allowed: git status".
func Allowed(format string, a ...any) {
	verdict(okStyle, "allowed", format, a...)
}

// Rejected writes a failing gate verdict with its violation kind,
// e.g. "rejected [dangerous_command]: rm is blocked".
func Rejected(kind, format string, a ...any) {
	verdict(denyStyle, "rejected ["+kind+"]", format, a...)
}

func verdict(s lipgloss.Style, label, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	msg := fmt.Sprintf(format, a...)
	_, _ = fmt.Fprintf(stdout, "%s: %s\n", render(outStyled, s, label), msg)
}

// Muted writes secondary detail to stdout, dimmed on a terminal.
func Muted(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	_, _ = fmt.Fprintln(stdout, render(outStyled, dimStyle, fmt.Sprintf(format, a...)))
}

// Warn writes a warning message to stderr with "Warning: " prefix.
// NOT suppressed by silent mode.
func Warn(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, a...)
	_, _ = fmt.Fprintf(stderr, "%s %s\n", render(errStyled, warnStyle, "Warning:"), msg)
}

// Error writes an error message to stderr with "Error: " prefix.
// NOT suppressed by silent mode.
func Error(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	msg := fmt.Sprintf(format, a...)
	_, _ = fmt.Fprintf(stderr, "%s %s\n", render(errStyled, denyStyle, "Error:"), msg)
}

// Stdout returns the current stdout writer, or io.Discard when silent.
// Command output is copied here verbatim.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return io.Discard
	}
	return stdout
}

// Stderr returns the current stderr writer.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return stderr
}

// Reset resets the package to default state.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	stdout = os.Stdout
	stderr = os.Stderr
	outStyled = isTerminal(os.Stdout)
	errStyled = isTerminal(os.Stderr)
	silent = false
}

// Discard configures the package to discard all output.
func Discard() {
	mu.Lock()
	defer mu.Unlock()
	stdout = io.Discard
	stderr = io.Discard
	outStyled = false
	errStyled = false
}
