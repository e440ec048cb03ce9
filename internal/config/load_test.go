package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("os.MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
}

func TestLoadGlobalConfig_Missing(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.Gate.DefaultTimeout != "30s" {
		t.Errorf("Gate.DefaultTimeout = %q, want %q", cfg.Gate.DefaultTimeout, "30s")
	}
	if strings.HasPrefix(cfg.Log.File, "~") {
		t.Errorf("Log.File = %q, want ~ expanded", cfg.Log.File)
	}

	configPath := filepath.Join(tmpDir, "cmdgate", "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("LoadGlobalConfig() should create default config file when missing")
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	writeFile(t, filepath.Join(tmpDir, "cmdgate", "config.yaml"), `
gate:
  default_timeout: 15s
  whitelist:
    ls:
    cat:
log:
  level: debug
`)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.Gate.DefaultTimeout != "15s" {
		t.Errorf("Gate.DefaultTimeout = %q, want %q", cfg.Gate.DefaultTimeout, "15s")
	}
	if len(cfg.Gate.Whitelist) != 2 {
		t.Errorf("Gate.Whitelist = %v, want exactly ls and cat", cfg.Gate.Whitelist)
	}
	// Unset sections take defaults.
	if cfg.Gate.MaxTimeout != "5m0s" {
		t.Errorf("Gate.MaxTimeout = %q, want default %q", cfg.Gate.MaxTimeout, "5m0s")
	}
	if !slices.Contains(cfg.Gate.Blocklist, "rm") {
		t.Error("Gate.Blocklist should take the default")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoadGlobalConfig_DefaultFileLoads(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if err := WriteDefaultConfig(); err != nil {
		t.Fatalf("WriteDefaultConfig() error = %v", err)
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.Gate.MaxTimeout != "5m" {
		t.Errorf("Gate.MaxTimeout = %q, want %q", cfg.Gate.MaxTimeout, "5m")
	}
	if _, err := cfg.Policy(); err != nil {
		t.Errorf("Policy() from default file error = %v", err)
	}
}

func TestLoadGlobalConfig_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	writeFile(t, filepath.Join(tmpDir, "cmdgate", "config.yaml"), "log:\n  level: loud\n")

	_, err := LoadGlobalConfig()
	if err == nil {
		t.Fatal("LoadGlobalConfig() expected error")
	}
	if !strings.Contains(err.Error(), "log.level") {
		t.Errorf("error = %v, want it to mention log.level", err)
	}
}

func TestLoadGlobalConfig_UnknownField(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	writeFile(t, filepath.Join(tmpDir, "cmdgate", "config.yaml"), "proxy:\n  listen: \":3128\"\n")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Fatal("LoadGlobalConfig() should reject unknown sections")
	}
}

func TestLoadGlobalConfigFrom_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := LoadGlobalConfigFrom(path); err == nil {
		t.Fatal("LoadGlobalConfigFrom() should fail for a missing explicit path")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("LoadGlobalConfigFrom() should not create the file")
	}
}

func TestLoadGlobalConfigFrom_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmdgate.toml")
	writeFile(t, path, `
[gate]
max_timeout = "1m"
blocklist = ["rm", "sudo"]

[gate.whitelist]
ls = []
`)

	cfg, err := LoadGlobalConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadGlobalConfigFrom() error = %v", err)
	}
	if cfg.Gate.MaxTimeout != "1m" {
		t.Errorf("Gate.MaxTimeout = %q, want %q", cfg.Gate.MaxTimeout, "1m")
	}
	if !slices.Equal(cfg.Gate.Blocklist, []string{"rm", "sudo"}) {
		t.Errorf("Gate.Blocklist = %v", cfg.Gate.Blocklist)
	}
}

func TestLoadGlobalConfigFrom_DefaultAboveMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "gate:\n  max_timeout: 10s\n")

	// The default of 30s is now above the configured ceiling.
	_, err := LoadGlobalConfigFrom(path)
	if err == nil || !strings.Contains(err.Error(), "exceeds gate.max_timeout") {
		t.Errorf("LoadGlobalConfigFrom() error = %v, want default/max conflict", err)
	}
}

func TestLoadGlobalConfigFrom_ExpandsPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
gate:
  restricted_dirs: [~/secrets]
audit:
  file: ~/audit.log
  sqlite: ~/audit.db
log:
  file: ~/cmdgate.log
server:
  socket: ~/cmdgate.sock
`)

	cfg, err := LoadGlobalConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadGlobalConfigFrom() error = %v", err)
	}

	checks := map[string]string{
		"Audit.File":             cfg.Audit.File,
		"Audit.SQLite":           cfg.Audit.SQLite,
		"Log.File":               cfg.Log.File,
		"Server.Socket":          cfg.Server.Socket,
		"Gate.RestrictedDirs[0]": cfg.Gate.RestrictedDirs[0],
	}
	for field, got := range checks {
		if !strings.HasPrefix(got, home) {
			t.Errorf("%s = %q, want it under %q", field, got, home)
		}
	}
}

func TestLoadOverlay(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), OverlayFileName)
	writeFile(t, path, "blocklist: [git]\nrestricted_dirs: [~/private]\n")

	o, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("LoadOverlay() error = %v", err)
	}
	if !slices.Equal(o.Blocklist, []string{"git"}) {
		t.Errorf("Blocklist = %v", o.Blocklist)
	}
	if want := filepath.Join(home, "private"); o.RestrictedDirs[0] != want {
		t.Errorf("RestrictedDirs[0] = %q, want %q", o.RestrictedDirs[0], want)
	}

	writeFile(t, path, "max_timeout: never\n")
	if _, err := LoadOverlay(path); err == nil {
		t.Error("LoadOverlay() should reject an invalid max_timeout")
	}
}
