// Package clog provides operational logging for cmdgate.
// This is distinct from user-facing output (see internal/term) and from the
// security audit trail (see internal/audit).
//
// Log levels:
//   - Debug: per-stage gate decisions, only with --debug
//   - Info: normal operational events (server start, config reload)
//   - Warn: unexpected conditions that don't prevent operation
//   - Error: failures that affect functionality
//
// Output destinations are fanned out with slog-multi:
//   - File: all levels at or above the configured level
//   - Stderr: Warn and Error only, disabled in daemon mode
//   - systemd journal: optional, enabled by log.journal in config
package clog

import (
	"log/slog"
	"strings"
)

// Level is a log severity. Values match slog's so records pass through
// the handlers unchanged.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// levelNames maps accepted config spellings to levels.
var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"err":     LevelError,
}

func (l Level) String() string {
	return slog.Level(l).String()
}

func (l Level) slogLevel() slog.Level {
	return slog.Level(l)
}

// LookupLevel reports the level named by s, ignoring case and surrounding
// space. An empty name is not a level.
func LookupLevel(s string) (Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	return l, ok
}

// ParseLevel is LookupLevel with LevelInfo for unknown names.
func ParseLevel(s string) Level {
	if l, ok := LookupLevel(s); ok {
		return l
	}
	return LevelInfo
}
