// Package config handles cmdgate configuration: the global config file,
// per-directory overlays that tighten it, and translation into a gate
// policy.
package config

// GlobalConfig is the top-level configuration loaded from
// ~/.config/cmdgate/config.yaml (or a .toml file given with --config).
type GlobalConfig struct {
	Gate   GateConfig   `yaml:"gate" toml:"gate"`
	Audit  AuditConfig  `yaml:"audit" toml:"audit"`
	Log    LogConfig    `yaml:"log" toml:"log"`
	Server ServerConfig `yaml:"server" toml:"server"`
}

// GateConfig is the command policy. Absent lists take the built-in
// defaults; an explicitly empty list stays empty.
type GateConfig struct {
	// Whitelist maps a base command to its permitted subcommands.
	// An empty or null list permits any arguments.
	Whitelist map[string][]string `yaml:"whitelist,omitempty" toml:"whitelist,omitempty"`

	// Blocklist names base commands that are never run.
	Blocklist []string `yaml:"blocklist,omitempty" toml:"blocklist,omitempty"`

	// Dangerous lists character sequences rejected anywhere in a command.
	Dangerous []string `yaml:"dangerous,omitempty" toml:"dangerous,omitempty"`

	// RestrictedDirs are directories commands may never run in.
	RestrictedDirs []string `yaml:"restricted_dirs,omitempty" toml:"restricted_dirs,omitempty"`

	// DenyPatterns are regexes over the classified command line.
	DenyPatterns []string `yaml:"deny_patterns,omitempty" toml:"deny_patterns,omitempty"`

	// DefaultTimeout applies when a request names none (e.g., "30s").
	DefaultTimeout string `yaml:"default_timeout,omitempty" toml:"default_timeout,omitempty"`

	// MaxTimeout caps every request; larger requests are clamped (e.g., "5m").
	MaxTimeout string `yaml:"max_timeout,omitempty" toml:"max_timeout,omitempty"`

	MaxCommandLength int `yaml:"max_command_length,omitempty" toml:"max_command_length,omitempty"`
	MaxOutputBytes   int `yaml:"max_output_bytes,omitempty" toml:"max_output_bytes,omitempty"`

	// InheritEnv passes the full environment to commands instead of
	// EnvPassthrough only.
	InheritEnv *bool `yaml:"inherit_env,omitempty" toml:"inherit_env,omitempty"`

	EnvPassthrough []string `yaml:"env_passthrough,omitempty" toml:"env_passthrough,omitempty"`
}

// AuditConfig controls where audit records go.
type AuditConfig struct {
	Enabled *bool `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	// File is the append-only text audit log. Empty disables it.
	File string `yaml:"file,omitempty" toml:"file,omitempty"`
	// SQLite is the audit database path. Empty disables it.
	SQLite string `yaml:"sqlite,omitempty" toml:"sqlite,omitempty"`
}

// IsEnabled reports whether auditing is on. Auditing is on unless
// explicitly disabled.
func (a AuditConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// LogConfig controls operational logging.
type LogConfig struct {
	File    string `yaml:"file,omitempty" toml:"file,omitempty"`
	Level   string `yaml:"level,omitempty" toml:"level,omitempty"`
	Journal bool   `yaml:"journal,omitempty" toml:"journal,omitempty"`
}

// ServerConfig controls `cmdgate serve`.
type ServerConfig struct {
	// Socket is the Unix socket path. Empty selects the runtime directory.
	Socket string `yaml:"socket,omitempty" toml:"socket,omitempty"`
	// RateLimit is accepted requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit,omitempty" toml:"rate_limit,omitempty"`
	Burst     int     `yaml:"burst,omitempty" toml:"burst,omitempty"`
}

// Overlay is a per-directory .cmdgate.yaml. It can only make the policy
// stricter.
type Overlay struct {
	// Blocklist adds blocked commands; they are also removed from the whitelist.
	Blocklist []string `yaml:"blocklist,omitempty" toml:"blocklist,omitempty"`
	// Remove drops commands from the whitelist.
	Remove         []string `yaml:"remove,omitempty" toml:"remove,omitempty"`
	Dangerous      []string `yaml:"dangerous,omitempty" toml:"dangerous,omitempty"`
	RestrictedDirs []string `yaml:"restricted_dirs,omitempty" toml:"restricted_dirs,omitempty"`
	DenyPatterns   []string `yaml:"deny_patterns,omitempty" toml:"deny_patterns,omitempty"`
	// MaxTimeout lowers the timeout ceiling. It may not raise it.
	MaxTimeout string `yaml:"max_timeout,omitempty" toml:"max_timeout,omitempty"`
}
