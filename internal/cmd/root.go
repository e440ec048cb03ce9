// Package cmd implements the CLI commands for cmdgate.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/term"
	"github.com/xdg/cmdgate/internal/version"
)

// Global flags.
var (
	configFlag string
	debugFlag  bool
	silentFlag bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cmdgate",
	Short: "Security gate for running host commands",
	Long: `cmdgate runs shell-style command strings on the host only after they pass a
security gate: dangerous characters are rejected, the base command must be
whitelisted and not blocked, the working directory must not be a system
directory, and every command runs as an argument vector (never through a
shell) under a capped timeout. Every decision is written to an audit log.

Commands can be run directly (cmdgate run), checked without running
(cmdgate validate), or served to other processes over a unix socket
(cmdgate serve).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		term.SetSilent(silentFlag)
		if debugFlag {
			clog.SetLevel(clog.LevelDebug)
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate(version.String() + "\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default ~/.config/cmdgate/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&silentFlag, "silent", false, "suppress normal output")
}

// Execute runs the root command and returns any error. Errors other than
// a propagated exit code are printed to stderr.
func Execute() error {
	err := rootCmd.Execute()
	var exitErr *ExitCodeError
	if err != nil && !errors.As(err, &exitErr) {
		term.Error("%v", err)
	}
	return err
}
