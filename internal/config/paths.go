package config

import (
	"fmt"
	"os"

	"github.com/xdg/cmdgate/internal/pathutil"
)

const (
	// OverlayFileName is the per-directory policy overlay looked up from
	// the working directory upward.
	OverlayFileName = ".cmdgate.yaml"

	// PathEnvVar names a config file that replaces the XDG default.
	PathEnvVar = "CMDGATE_CONFIG"
)

// Dir returns the cmdgate configuration directory, with a trailing slash:
// $XDG_CONFIG_HOME/cmdgate/ or ~/.config/cmdgate/.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = "~/.config"
	}
	return pathutil.ExpandHome(base) + "/cmdgate/"
}

// EnsureDir creates Dir() with 0700 permissions.
func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return nil
}

// GlobalConfigPath returns $CMDGATE_CONFIG when set, otherwise
// Dir() + "config.yaml".
func GlobalConfigPath() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return pathutil.ExpandHome(p)
	}
	return Dir() + "config.yaml"
}
