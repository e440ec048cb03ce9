package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// MergeOverlay applies a directory overlay to cfg and returns the result;
// cfg itself is not modified. An overlay can only tighten the policy:
// blocklist entries are added (and dropped from the whitelist), whitelist
// entries can be removed, rule lists are extended, and max_timeout can only
// be lowered. A lower max_timeout also lowers default_timeout if needed.
func MergeOverlay(cfg *GlobalConfig, o *Overlay) (*GlobalConfig, error) {
	out := cloneConfig(cfg)
	if o == nil {
		return out, nil
	}
	g := &out.Gate

	for _, name := range normalizeNames(o.Blocklist) {
		if name == "" {
			continue
		}
		if !slices.Contains(g.Blocklist, name) {
			g.Blocklist = append(g.Blocklist, name)
		}
		delete(g.Whitelist, name)
	}
	for _, name := range normalizeNames(o.Remove) {
		delete(g.Whitelist, name)
	}

	g.Dangerous = mergeUnique(g.Dangerous, o.Dangerous)
	g.RestrictedDirs = mergeUnique(g.RestrictedDirs, o.RestrictedDirs)
	g.DenyPatterns = mergeUnique(g.DenyPatterns, o.DenyPatterns)

	if o.MaxTimeout != "" {
		lowered, err := time.ParseDuration(o.MaxTimeout)
		if err != nil {
			return nil, fmt.Errorf("overlay max_timeout: invalid duration %q", o.MaxTimeout)
		}
		current, err := time.ParseDuration(g.MaxTimeout)
		if err != nil {
			return nil, fmt.Errorf("gate.max_timeout: invalid duration %q", g.MaxTimeout)
		}
		if lowered > current {
			return nil, fmt.Errorf("overlay max_timeout %s exceeds configured max_timeout %s", lowered, current)
		}
		g.MaxTimeout = lowered.String()
		if def, err := time.ParseDuration(g.DefaultTimeout); err == nil && def > lowered {
			g.DefaultTimeout = lowered.String()
		}
	}

	return out, nil
}

// mergeUnique appends the entries of add that base does not already hold.
func mergeUnique(base, add []string) []string {
	for _, s := range add {
		if s != "" && !slices.Contains(base, s) {
			base = append(base, s)
		}
	}
	return base
}

// cloneConfig deep-copies cfg. Whitelist keys are normalized the way
// normalizeNames does, so overlay names match them regardless of case. Keys
// that collide after normalization keep their original spelling and are
// reported as duplicates when the policy is built.
func cloneConfig(cfg *GlobalConfig) *GlobalConfig {
	out := *cfg
	g := &out.Gate
	if cfg.Gate.Whitelist != nil {
		g.Whitelist = make(map[string][]string, len(cfg.Gate.Whitelist))
		names := sortedKeys(cfg.Gate.Whitelist)
		for _, name := range names {
			key := normalizeNames([]string{name})[0]
			if _, taken := g.Whitelist[key]; taken {
				key = name
			}
			g.Whitelist[key] = slices.Clone(cfg.Gate.Whitelist[name])
		}
	}
	g.Blocklist = slices.Clone(cfg.Gate.Blocklist)
	g.Dangerous = slices.Clone(cfg.Gate.Dangerous)
	g.RestrictedDirs = slices.Clone(cfg.Gate.RestrictedDirs)
	g.DenyPatterns = slices.Clone(cfg.Gate.DenyPatterns)
	g.EnvPassthrough = slices.Clone(cfg.Gate.EnvPassthrough)
	return &out
}

// FindOverlay looks for OverlayFileName in dir and each of its parents.
// It returns the path of the nearest one, or "" if there is none.
func FindOverlay(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("find overlay: %w", err)
	}
	for {
		candidate := filepath.Join(dir, OverlayFileName)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("find overlay: %w", err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ApplyOverlayFrom finds the overlay nearest to dir and merges it into cfg.
// It returns cfg unchanged (as a copy) and an empty path if there is none.
func ApplyOverlayFrom(cfg *GlobalConfig, dir string) (*GlobalConfig, string, error) {
	path, err := FindOverlay(dir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return cloneConfig(cfg), "", nil
	}
	o, err := LoadOverlay(path)
	if err != nil {
		return nil, "", err
	}
	merged, err := MergeOverlay(cfg, o)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return merged, path, nil
}
