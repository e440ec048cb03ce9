package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/pathutil"
)

// LoadGlobalConfig loads the global configuration from the default config path.
// If the config file doesn't exist, it writes the commented default file and
// returns DefaultGlobalConfig().
// If the file exists but cannot be read, parsed or validated, it returns an error.
// All paths containing ~ are expanded to the actual home directory.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path := GlobalConfigPath()
	clog.Debug("config: loading global config from %s", path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		clog.Debug("config: file not found, creating defaults")
		if writeErr := WriteDefaultConfig(); writeErr != nil {
			clog.Warn("config: failed to create default config: %v", writeErr)
		}
		cfg := DefaultGlobalConfig()
		expandGlobalPaths(cfg)
		return cfg, nil
	}
	return LoadGlobalConfigFrom(path)
}

// LoadGlobalConfigFrom loads the configuration at path. Unlike
// LoadGlobalConfig, a missing file is an error. Files ending in .toml are
// read as TOML.
func LoadGlobalConfigFrom(path string) (*GlobalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read global config: %w", err)
	}

	cfg, err := parseFor(path, data)
	if err != nil {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	ApplyDefaults(cfg)
	if err := ValidateGlobalConfig(cfg); err != nil {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	expandGlobalPaths(cfg)
	return cfg, nil
}

// LoadOverlay reads and validates the overlay file at path.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay: %w", err)
	}
	o, err := ParseOverlay(data)
	if err != nil {
		return nil, fmt.Errorf("load overlay %s: %w", path, err)
	}
	if err := ValidateOverlay(o); err != nil {
		return nil, fmt.Errorf("load overlay %s: %w", path, err)
	}
	for i, dir := range o.RestrictedDirs {
		o.RestrictedDirs[i] = pathutil.ExpandHome(dir)
	}
	return o, nil
}

// expandGlobalPaths expands ~ to the home directory in all path fields
// of the global configuration.
func expandGlobalPaths(cfg *GlobalConfig) {
	cfg.Log.File = pathutil.ExpandHome(cfg.Log.File)
	cfg.Audit.File = pathutil.ExpandHome(cfg.Audit.File)
	cfg.Audit.SQLite = pathutil.ExpandHome(cfg.Audit.SQLite)
	cfg.Server.Socket = pathutil.ExpandHome(cfg.Server.Socket)

	for i, dir := range cfg.Gate.RestrictedDirs {
		cfg.Gate.RestrictedDirs[i] = pathutil.ExpandHome(dir)
	}
}
