package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDefaultConfigTemplate_Valid(t *testing.T) {
	cfg, err := ParseGlobalConfig([]byte(defaultConfigTemplate))
	if err != nil {
		t.Fatalf("ParseGlobalConfig(template) error = %v", err)
	}
	ApplyDefaults(cfg)
	if err := ValidateGlobalConfig(cfg); err != nil {
		t.Fatalf("ValidateGlobalConfig(template) error = %v", err)
	}

	def := DefaultGlobalConfig()
	if cfg.Gate.DefaultTimeout != def.Gate.DefaultTimeout {
		t.Errorf("template default_timeout = %q, want %q", cfg.Gate.DefaultTimeout, def.Gate.DefaultTimeout)
	}
	if cfg.Audit.File != def.Audit.File {
		t.Errorf("template audit.file = %q, want %q", cfg.Audit.File, def.Audit.File)
	}
	if cfg.Server.RateLimit != def.Server.RateLimit || cfg.Server.Burst != def.Server.Burst {
		t.Errorf("template server = %+v, want %+v", cfg.Server, def.Server)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if err := WriteDefaultConfig(); err != nil {
		t.Fatalf("WriteDefaultConfig() error = %v", err)
	}

	info, err := os.Stat(GlobalConfigPath())
	if err != nil {
		t.Fatalf("os.Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file permissions = %o, want 600", perm)
	}
}

func TestWriteDefaultConfig_NoOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	writeFile(t, GlobalConfigPath(), "log:\n  level: error\n")
	if err := WriteDefaultConfig(); err != nil {
		t.Fatalf("WriteDefaultConfig() error = %v", err)
	}

	data, err := os.ReadFile(GlobalConfigPath())
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	if string(data) != "log:\n  level: error\n" {
		t.Errorf("WriteDefaultConfig() overwrote existing file: %q", data)
	}
}

func TestWriteDefaultConfigTo_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.yaml")
	if err := WriteDefaultConfigTo(path); err != nil {
		t.Fatalf("WriteDefaultConfigTo() error = %v", err)
	}
	if _, err := LoadGlobalConfigFrom(path); err != nil {
		t.Errorf("LoadGlobalConfigFrom() error = %v", err)
	}
}

func TestWriteDefaultConfigTo_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteDefaultConfigTo(path); err != nil {
		t.Fatalf("WriteDefaultConfigTo() error = %v", err)
	}
	cfg, err := LoadGlobalConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadGlobalConfigFrom() error = %v", err)
	}
	if cfg.Gate.MaxTimeout != "5m0s" {
		t.Errorf("Gate.MaxTimeout = %q, want default", cfg.Gate.MaxTimeout)
	}
}

func TestWriteGlobalConfig(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := DefaultGlobalConfig()
			cfg.Gate.Blocklist = append(cfg.Gate.Blocklist, "make")
			cfg.Log.Level = "warn"

			if err := WriteGlobalConfig(path, cfg); err != nil {
				t.Fatalf("WriteGlobalConfig() error = %v", err)
			}
			got, err := LoadGlobalConfigFrom(path)
			if err != nil {
				t.Fatalf("LoadGlobalConfigFrom() error = %v", err)
			}
			if !slices.Contains(got.Gate.Blocklist, "make") {
				t.Errorf("Gate.Blocklist = %v, want make", got.Gate.Blocklist)
			}
			if got.Log.Level != "warn" {
				t.Errorf("Log.Level = %q, want %q", got.Log.Level, "warn")
			}
		})
	}
}
