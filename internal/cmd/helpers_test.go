package cmd

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/term"
)

// setupTest isolates a test: HOME and XDG directories point into a temp
// dir, package flags are reset, and terminal output is captured.
func setupTest(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv(config.PathEnvVar, "")

	configFlag, debugFlag, silentFlag = "", false, false
	runTimeout, runWorkdir, runJSON = 0, "", false
	validateJSON, whitelistJSON, configShowTOML = false, false, false
	auditLimit = 50
	if f := runCmd.Flags().Lookup("timeout"); f != nil {
		f.Changed = false
	}

	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	term.SetOutput(stdout)
	term.SetErrOutput(stderr)
	t.Cleanup(term.Reset)
	t.Cleanup(clog.Reset)
	return stdout, stderr
}

// writeConfig writes the default-location config file.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "cmdgate")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("os.MkdirAll() error = %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	return path
}

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func testCommand() *cobra.Command {
	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*ExitCodeError)
	if !ok {
		t.Fatalf("error = %v (%T), want *ExitCodeError", err, err)
	}
	return exitErr.Code
}
