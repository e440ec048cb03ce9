package config

import (
	"maps"
	"slices"
	"strings"

	"github.com/xdg/cmdgate/internal/gate"
)

func boolPtr(b bool) *bool {
	return &b
}

// DefaultGlobalConfig returns a GlobalConfig with all defaults populated.
// The gate section mirrors the built-in policy: read-only inspection
// commands are whitelisted, and git, npm and go are limited to
// subcommands that do not modify anything.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Gate: GateConfig{
			Whitelist:        defaultWhitelist(),
			Blocklist:        slices.Clone(gate.DefaultBlocklist),
			Dangerous:        slices.Clone(gate.DefaultDangerousSequences),
			RestrictedDirs:   gate.DefaultRestrictedDirs(),
			DenyPatterns:     slices.Clone(gate.DefaultDenyPatterns),
			DefaultTimeout:   gate.DefaultTimeout.String(),
			MaxTimeout:       gate.MaxTimeout.String(),
			MaxCommandLength: gate.DefaultMaxCommandLength,
			MaxOutputBytes:   gate.DefaultMaxOutputBytes,
			InheritEnv:       boolPtr(false),
			EnvPassthrough:   slices.Clone(gate.DefaultEnvPassthrough),
		},
		Audit: AuditConfig{
			Enabled: boolPtr(true),
			File:    "~/.local/state/cmdgate/audit.log",
		},
		Log: LogConfig{
			File:  "~/.local/state/cmdgate/cmdgate.log",
			Level: "info",
		},
		Server: ServerConfig{
			RateLimit: 10,
			Burst:     20,
		},
	}
}

func defaultWhitelist() map[string][]string {
	wl := make(map[string][]string, len(gate.DefaultWhitelist))
	for name, subs := range gate.DefaultWhitelist {
		wl[name] = slices.Clone(subs)
	}
	return wl
}

// ApplyDefaults fills every field the file left unset with its default.
// Lists are only filled when absent (nil), so `blocklist: []` stays empty.
func ApplyDefaults(cfg *GlobalConfig) {
	def := DefaultGlobalConfig()

	g := &cfg.Gate
	if g.Whitelist == nil {
		g.Whitelist = def.Gate.Whitelist
	}
	if g.Blocklist == nil {
		g.Blocklist = def.Gate.Blocklist
	}
	if g.Dangerous == nil {
		g.Dangerous = def.Gate.Dangerous
	}
	if g.RestrictedDirs == nil {
		g.RestrictedDirs = def.Gate.RestrictedDirs
	}
	if g.DenyPatterns == nil {
		g.DenyPatterns = def.Gate.DenyPatterns
	}
	if g.DefaultTimeout == "" {
		g.DefaultTimeout = def.Gate.DefaultTimeout
	}
	if g.MaxTimeout == "" {
		g.MaxTimeout = def.Gate.MaxTimeout
	}
	if g.MaxCommandLength == 0 {
		g.MaxCommandLength = def.Gate.MaxCommandLength
	}
	if g.MaxOutputBytes == 0 {
		g.MaxOutputBytes = def.Gate.MaxOutputBytes
	}
	if g.InheritEnv == nil {
		g.InheritEnv = def.Gate.InheritEnv
	}
	if g.EnvPassthrough == nil {
		g.EnvPassthrough = def.Gate.EnvPassthrough
	}

	if cfg.Audit.Enabled == nil {
		cfg.Audit.Enabled = def.Audit.Enabled
	}
	if cfg.Audit.File == "" && cfg.Audit.SQLite == "" {
		cfg.Audit.File = def.Audit.File
	}

	if cfg.Log.File == "" {
		cfg.Log.File = def.Log.File
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}

	if cfg.Server.Burst == 0 {
		cfg.Server.Burst = def.Server.Burst
	}
}

// normalizeNames lower-cases command names so that lookups and merges
// agree with the gate.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, strings.ToLower(strings.TrimSpace(n)))
	}
	return out
}

// sortedKeys returns the whitelist keys in order.
func sortedKeys(m map[string][]string) []string {
	return slices.Sorted(maps.Keys(m))
}
