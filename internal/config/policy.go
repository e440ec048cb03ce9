package config

import (
	"fmt"
	"time"

	"github.com/xdg/cmdgate/internal/gate"
)

// PolicyConfig converts the gate section into the gate package's input.
// Durations must already be valid; ValidateGlobalConfig checks them.
func (cfg *GlobalConfig) PolicyConfig() (gate.PolicyConfig, error) {
	g := cfg.Gate
	pc := gate.PolicyConfig{
		Whitelist:          g.Whitelist,
		Blocklist:          g.Blocklist,
		DangerousSequences: g.Dangerous,
		RestrictedDirs:     g.RestrictedDirs,
		DenyPatterns:       g.DenyPatterns,
		MaxCommandLength:   g.MaxCommandLength,
		MaxOutputBytes:     g.MaxOutputBytes,
		InheritEnv:         g.InheritEnv != nil && *g.InheritEnv,
		EnvPassthrough:     g.EnvPassthrough,
	}

	var err error
	if g.DefaultTimeout != "" {
		if pc.DefaultTimeout, err = time.ParseDuration(g.DefaultTimeout); err != nil {
			return gate.PolicyConfig{}, fmt.Errorf("gate.default_timeout: invalid duration %q", g.DefaultTimeout)
		}
	}
	if g.MaxTimeout != "" {
		if pc.MaxTimeout, err = time.ParseDuration(g.MaxTimeout); err != nil {
			return gate.PolicyConfig{}, fmt.Errorf("gate.max_timeout: invalid duration %q", g.MaxTimeout)
		}
	}
	return pc, nil
}

// Policy builds the validated gate policy for cfg.
func (cfg *GlobalConfig) Policy() (*gate.Policy, error) {
	pc, err := cfg.PolicyConfig()
	if err != nil {
		return nil, err
	}
	return gate.NewPolicy(pc)
}
