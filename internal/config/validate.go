package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xdg/cmdgate/internal/clog"
)

// ValidateGlobalConfig validates a GlobalConfig, checking that all
// fields contain valid values. It validates:
//   - Timeouts parse as positive durations and default <= max
//   - Size limits are non-negative
//   - Whitelist keys are bare command names and none is also blocked
//   - Deny patterns compile
//   - Log.Level names a clog level (if non-empty)
//   - Server rate limit and burst are non-negative
//
// Returns nil if the config is valid, or an error naming the invalid field.
func ValidateGlobalConfig(cfg *GlobalConfig) error {
	g := cfg.Gate

	var def, maxT time.Duration
	var err error
	if g.DefaultTimeout != "" {
		if def, err = validateTimeout(g.DefaultTimeout, "gate.default_timeout"); err != nil {
			return err
		}
	}
	if g.MaxTimeout != "" {
		if maxT, err = validateTimeout(g.MaxTimeout, "gate.max_timeout"); err != nil {
			return err
		}
	}
	if def > 0 && maxT > 0 && def > maxT {
		return fmt.Errorf("gate.default_timeout: %s exceeds gate.max_timeout %s", def, maxT)
	}

	if g.MaxCommandLength < 0 {
		return fmt.Errorf("gate.max_command_length: must be non-negative, got %d", g.MaxCommandLength)
	}
	if g.MaxOutputBytes < 0 {
		return fmt.Errorf("gate.max_output_bytes: must be non-negative, got %d", g.MaxOutputBytes)
	}

	blocked := make(map[string]bool, len(g.Blocklist))
	for _, name := range normalizeNames(g.Blocklist) {
		blocked[name] = true
	}
	for _, name := range sortedKeys(g.Whitelist) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || strings.ContainsAny(key, " \t/\\") {
			return fmt.Errorf("gate.whitelist.%s: must be a bare command name", name)
		}
		if blocked[key] {
			return fmt.Errorf("gate.whitelist.%s: command is also in gate.blocklist", name)
		}
	}

	for i, pattern := range g.DenyPatterns {
		if err := validateRegex(pattern, fmt.Sprintf("gate.deny_patterns[%d]", i)); err != nil {
			return err
		}
	}

	if _, ok := clog.LookupLevel(cfg.Log.Level); cfg.Log.Level != "" && !ok {
		return fmt.Errorf("log.level: invalid value %q, must be one of: debug, info, warn, error", cfg.Log.Level)
	}

	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit: must be non-negative, got %g", cfg.Server.RateLimit)
	}
	if cfg.Server.Burst < 0 {
		return fmt.Errorf("server.burst: must be non-negative, got %d", cfg.Server.Burst)
	}

	return nil
}

// ValidateOverlay validates a parsed Overlay.
func ValidateOverlay(o *Overlay) error {
	if o.MaxTimeout != "" {
		if _, err := validateTimeout(o.MaxTimeout, "max_timeout"); err != nil {
			return err
		}
	}
	for i, pattern := range o.DenyPatterns {
		if err := validateRegex(pattern, fmt.Sprintf("deny_patterns[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// validateTimeout parses d and requires it to be positive.
func validateTimeout(d, field string) (time.Duration, error) {
	parsed, err := time.ParseDuration(d)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, d)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %q", field, d)
	}
	return parsed, nil
}

// validateRegex validates that a pattern compiles as a valid regular expression.
// Empty patterns are considered valid (no-op).
func validateRegex(pattern, field string) error {
	if pattern == "" {
		return nil
	}
	_, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%s: invalid regex %q: %v", field, pattern, err)
	}
	return nil
}
