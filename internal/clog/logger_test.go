package clog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_RecordsCarryLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := TestLogger(&buf)

	l.Debug("classify %q", "git status")
	l.Info("serving on %s", "cmdgate.sock")
	l.Warn("overlay %s ignored", ".cmdgate.yaml")
	l.Error("audit sink: %v", os.ErrClosed)

	output := buf.String()
	for _, want := range []string{
		`level=DEBUG msg="classify \"git status\""`,
		`level=INFO msg="serving on cmdgate.sock"`,
		`level=WARN msg="overlay .cmdgate.yaml ignored"`,
		`level=ERROR msg="audit sink: file already closed"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestJournalKey(t *testing.T) {
	tests := map[string]string{
		"id":            "ID",
		"exit":          "EXIT",
		"invocation-id": "INVOCATION_ID",
		"stage.kind":    "STAGE_KIND",
		"Op2":           "OP2",
	}
	for in, want := range tests {
		if got := journalKey(in); got != want {
			t.Errorf("journalKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&buf)
	l.SetErrOutput(nil)
	l.SetLevel(LevelWarn) // Only warn and above

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Errorf("debug message should be filtered, got: %s", output)
	}
	if strings.Contains(output, "info message") {
		t.Errorf("info message should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Errorf("expected warn message in output, got: %s", output)
	}
	if !strings.Contains(output, "error message") {
		t.Errorf("expected error message in output, got: %s", output)
	}
}

func TestLogger_LevelChangeAppliesToExistingOutputs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetErrOutput(nil)
	l.SetFileOutput(&buf)

	l.Debug("hidden")
	l.SetLevel(LevelDebug)
	l.Debug("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug before SetLevel should be filtered, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug after SetLevel should be logged, got: %s", buf.String())
	}
}

func TestLogger_DaemonMode(t *testing.T) {
	var fileBuf, errBuf bytes.Buffer
	l := NewLogger()
	l.SetFileOutput(&fileBuf)
	l.SetErrOutput(&errBuf)
	l.SetLevel(LevelDebug)

	// CLI mode: warn/error go to both file and stderr
	l.Info("cli info")
	l.Warn("cli warning")

	if !strings.Contains(fileBuf.String(), "cli warning") {
		t.Errorf("expected warning in file output")
	}
	if !strings.Contains(errBuf.String(), "cli warning") {
		t.Errorf("expected warning in stderr output")
	}
	if strings.Contains(errBuf.String(), "cli info") {
		t.Errorf("info should not reach stderr, got: %s", errBuf.String())
	}
	if strings.Contains(errBuf.String(), "time=") {
		t.Errorf("stderr output should not carry timestamps, got: %s", errBuf.String())
	}

	fileBuf.Reset()
	errBuf.Reset()

	// Daemon mode: only file output
	l.SetDaemonMode(true)
	l.Warn("daemon warning")

	if !strings.Contains(fileBuf.String(), "daemon warning") {
		t.Errorf("expected warning in file output")
	}
	if errBuf.Len() != 0 {
		t.Errorf("daemon mode should not write to stderr, got: %s", errBuf.String())
	}
}

func TestLogger_Attrs(t *testing.T) {
	var buf bytes.Buffer
	l := TestLogger(&buf)

	l.Attrs(LevelInfo, "stage", "id", "abc", "state", "CLASSIFIED")

	output := buf.String()
	if !strings.Contains(output, "msg=stage") || !strings.Contains(output, "id=abc") || !strings.Contains(output, "state=CLASSIFIED") {
		t.Errorf("expected structured attrs, got: %s", output)
	}
}

func TestLogger_TimestampIsUTC(t *testing.T) {
	var buf bytes.Buffer
	l := TestLogger(&buf)

	l.Info("test")

	output := buf.String()
	if !strings.Contains(output, "time=") || !strings.Contains(output, "Z ") {
		t.Errorf("expected UTC timestamp, got: %s", output)
	}
}

func TestOpenLogFile_AppendsAndCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cmdgate", "cmdgate.log")

	for _, line := range []string{"first run\n", "second run\n"} {
		f, err := OpenLogFile(path)
		if err != nil {
			t.Fatalf("OpenLogFile() error = %v", err)
		}
		if _, err := f.WriteString(line); err != nil {
			t.Fatalf("WriteString() error = %v", err)
		}
		_ = f.Close()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(content) != "first run\nsecond run\n" {
		t.Errorf("log file = %q, want both runs appended", content)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0o007 != 0 {
		t.Errorf("log file is world-accessible: %v", perm)
	}
}

func TestDefaultLogPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")

	if got, want := DefaultLogPath(), filepath.Join("/tmp/state", "cmdgate", "cmdgate.log"); got != want {
		t.Errorf("DefaultLogPath() = %q, want %q", got, want)
	}
}
