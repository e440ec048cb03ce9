package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/gate"
)

// configFilePath returns --config or the default config path.
func configFilePath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.GlobalConfigPath()
}

// loadConfig loads --config if given (a missing file is an error), and
// otherwise the default config, creating it on first use.
func loadConfig() (*config.GlobalConfig, error) {
	var cfg *config.GlobalConfig
	var err error
	if configFlag != "" {
		cfg, err = config.LoadGlobalConfigFrom(configFlag)
	} else {
		cfg, err = config.LoadGlobalConfig()
	}
	if err != nil {
		return nil, configLoadError(configFilePath(), err)
	}
	return cfg, nil
}

// setupLogging points clog at the configured log file. --debug overrides
// the configured level. In daemon mode nothing is written to stderr.
func setupLogging(cfg *config.GlobalConfig, daemon bool) error {
	level := clog.ParseLevel(cfg.Log.Level)
	if debugFlag {
		level = clog.LevelDebug
	}
	if err := clog.Configure(clog.Options{
		Path:    cfg.Log.File,
		Level:   level,
		Daemon:  daemon,
		Journal: cfg.Log.Journal,
	}); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	return nil
}

// openAudit opens every configured audit sink. The returned Multi is empty
// when auditing is disabled; closing it closes every sink.
func openAudit(cfg *config.GlobalConfig) (audit.Multi, error) {
	if !cfg.Audit.IsEnabled() {
		clog.Debug("audit logging disabled")
		return nil, nil
	}

	var sinks audit.Multi
	if cfg.Audit.File != "" {
		l, err := audit.OpenFile(cfg.Audit.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		sinks = append(sinks, l)
	}
	if cfg.Audit.SQLite != "" {
		s, err := audit.OpenSQLite(cfg.Audit.SQLite)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to open audit store: %w", err), sinks.Close())
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// newGate builds a gate for cfg with the given audit sinks. When dir is
// non-empty, the nearest .cmdgate.yaml overlay at or above dir tightens
// the policy first.
func newGate(cfg *config.GlobalConfig, sinks audit.Multi, dir string) (*gate.Gate, error) {
	if dir != "" {
		merged, path, err := config.ApplyOverlayFrom(cfg, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to apply overlay: %w", err)
		}
		if path != "" {
			clog.Debug("applied policy overlay %s", path)
		}
		cfg = merged
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	var opts []gate.Option
	if len(sinks) > 0 {
		opts = append(opts, gate.WithAuditSink(sinks))
	}
	return gate.New(policy, opts...), nil
}

// overlayDir is the directory overlays are looked up from: the requested
// working directory, or the current one.
func overlayDir(workdir string) string {
	if workdir != "" {
		return workdir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// session is the per-invocation state shared by run and validate.
type session struct {
	gate  *gate.Gate
	sinks audit.Multi
}

// openSession loads config, sets up logging and audit, and builds the gate.
func openSession(workdir string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg, false); err != nil {
		return nil, err
	}
	sinks, err := openAudit(cfg)
	if err != nil {
		return nil, err
	}
	g, err := newGate(cfg, sinks, overlayDir(workdir))
	if err != nil {
		return nil, errors.Join(err, sinks.Close())
	}
	return &session{gate: g, sinks: sinks}, nil
}

func (s *session) Close() {
	if err := s.sinks.Close(); err != nil {
		clog.Warn("failed to close audit log: %v", err)
	}
}

// commandContext returns cmd's context, or Background when the command
// was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
