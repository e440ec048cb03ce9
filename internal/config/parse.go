package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ParseGlobalConfig parses YAML data into a GlobalConfig struct.
// It returns an error if the YAML is malformed, contains unknown fields,
// or has type mismatches. Missing optional fields become zero values.
// Empty input returns a zero-value GlobalConfig.
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	var cfg GlobalConfig
	if err := strictUnmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse global config: %w", err)
	}
	return &cfg, nil
}

// ParseGlobalConfigTOML is ParseGlobalConfig for TOML input.
func ParseGlobalConfigTOML(data []byte) (*GlobalConfig, error) {
	var cfg GlobalConfig
	if err := strictUnmarshalTOML(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse global config: %w", err)
	}
	return &cfg, nil
}

// ParseOverlay parses a per-directory overlay file.
func ParseOverlay(data []byte) (*Overlay, error) {
	var o Overlay
	if err := strictUnmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse overlay: %w", err)
	}
	return &o, nil
}

// parseFor picks the decoder from the file extension: .toml files are TOML,
// everything else is YAML.
func parseFor(path string, data []byte) (*GlobalConfig, error) {
	if isTOML(path) {
		return ParseGlobalConfigTOML(data)
	}
	return ParseGlobalConfig(data)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// strictUnmarshal unmarshals YAML data into v, rejecting unknown fields.
// Empty input is treated as valid, leaving v at its zero value.
func strictUnmarshal(data []byte, v any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode YAML: %w", err)
	}
	return nil
}

// strictUnmarshalTOML decodes TOML into v and fails on keys that do not
// map to a field.
func strictUnmarshalTOML(data []byte, v any) error {
	md, err := toml.Decode(string(data), v)
	if err != nil {
		return fmt.Errorf("decode TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		return fmt.Errorf("decode TOML: unknown field(s): %s", strings.Join(keys, ", "))
	}
	return nil
}

// MarshalGlobalConfig marshals a GlobalConfig struct to YAML.
func MarshalGlobalConfig(cfg *GlobalConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal global config: %w", err)
	}
	return data, nil
}

// MarshalGlobalConfigTOML marshals a GlobalConfig struct to TOML.
// TOML has no null, so whitelist entries without subcommands are written
// as empty arrays.
func MarshalGlobalConfigTOML(cfg *GlobalConfig) ([]byte, error) {
	out := cloneConfig(cfg)
	for name, subs := range out.Gate.Whitelist {
		if subs == nil {
			out.Gate.Whitelist[name] = []string{}
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, fmt.Errorf("marshal global config: %w", err)
	}
	return buf.Bytes(), nil
}
