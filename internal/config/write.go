package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigTemplate is written on first run. Live keys match
// DefaultGlobalConfig; commented keys show what else can be set.
const defaultConfigTemplate = `# cmdgate configuration
#
# Lists that are left out use the built-in defaults. An explicitly empty
# list (for example "blocklist: []") replaces the defaults with nothing.

gate:
  # Timeout used when a request names none, and the hard ceiling.
  # Requests above the ceiling are clamped to it.
  default_timeout: 30s
  max_timeout: 5m

  # max_command_length: 4096
  # max_output_bytes: 1048576

  # Commands see only env_passthrough variables unless inherit_env is true.
  # inherit_env: false
  # env_passthrough: [PATH, HOME, USER, LANG, TERM, TMPDIR]

  # Base command -> permitted subcommands. An empty entry permits any
  # arguments.
  # whitelist:
  #   ls:
  #   cat:
  #   git: [status, log, diff, branch, show]

  # Commands that are never run.
  # blocklist: [rm, mv, sudo, sh, bash, python, curl, wget, xargs]

  # Character sequences rejected anywhere in the command string.
  # dangerous: [";", "|", "&", ">", "<", "` + "`" + `", "$"]

  # Directories commands may never run in.
  # restricted_dirs: [/etc, /bin, /usr/bin, /root]

  # Regexes over the classified command line.
  # deny_patterns:
  #   - '^find\s(.*\s)?-exec(\s|$)'

audit:
  enabled: true
  file: ~/.local/state/cmdgate/audit.log
  # sqlite: ~/.local/state/cmdgate/audit.db

log:
  file: ~/.local/state/cmdgate/cmdgate.log
  level: info
  # journal: false

server:
  # socket: /run/user/1000/cmdgate/cmdgate.sock
  rate_limit: 10
  burst: 20
`

// WriteDefaultConfig creates the default global configuration file with helpful comments.
// If the config file already exists, it returns nil without overwriting.
// The file is written with 0600 permissions (user read/write only).
func WriteDefaultConfig() error {
	if err := EnsureDir(); err != nil {
		return err
	}
	return WriteDefaultConfigTo(GlobalConfigPath())
}

// WriteDefaultConfigTo is WriteDefaultConfig for an explicit path. TOML
// paths get the marshaled defaults since the commented template is YAML.
func WriteDefaultConfigTo(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data := []byte(defaultConfigTemplate)
	if isTOML(path) {
		if data, err = MarshalGlobalConfigTOML(DefaultGlobalConfig()); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// WriteGlobalConfig writes cfg to path, replacing any existing file.
// The format follows the extension, as in LoadGlobalConfigFrom.
func WriteGlobalConfig(path string, cfg *GlobalConfig) error {
	var data []byte
	var err error
	if isTOML(path) {
		data, err = MarshalGlobalConfigTOML(cfg)
	} else {
		data, err = MarshalGlobalConfig(cfg)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write global config: %w", err)
	}
	return nil
}
