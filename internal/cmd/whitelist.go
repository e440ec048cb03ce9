package cmd

import (
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/term"
)

var whitelistJSON bool

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Show whitelisted and blocked commands",
	Long: `Show the active policy: every whitelisted command with its permitted
subcommands, every blocked command, the argument deny rules, the restricted
directories and the timeout limits. A policy overlay (.cmdgate.yaml) in the
current directory or above is applied first. --json prints only the command
lists.`,
	Args: cobra.NoArgs,
	RunE: runWhitelist,
}

func init() {
	whitelistCmd.Flags().BoolVar(&whitelistJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(whitelistCmd)
}

func runWhitelist(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg, false); err != nil {
		return err
	}
	g, err := newGate(cfg, nil, overlayDir(""))
	if err != nil {
		return err
	}
	info := g.Whitelist()

	if whitelistJSON {
		return writeJSON(info)
	}

	term.Printf("Whitelisted commands (%d):\n", info.TotalWhitelisted)
	w := tabwriter.NewWriter(term.Stdout(), 0, 0, 2, ' ', 0)
	for _, name := range slices.Sorted(maps.Keys(info.WhitelistedCommands)) {
		subs := info.WhitelistedCommands[name]
		allowed := "(any arguments)"
		if len(subs) > 0 {
			allowed = strings.Join(subs, ", ")
		}
		_, _ = w.Write([]byte("  " + name + "\t" + allowed + "\n"))
	}
	_ = w.Flush()

	term.Println()
	term.Printf("Blocked commands (%d):\n", info.TotalBlocked)
	term.Printf("  %s\n", strings.Join(info.BlockedCommands, " "))

	p := g.Policy()
	deny := p.DenyPatterns()
	term.Println()
	term.Printf("Denied argument patterns (%d):\n", len(deny))
	for _, pattern := range deny {
		term.Muted("  %s", pattern)
	}

	term.Println()
	term.Printf("Restricted directories:\n")
	for _, dir := range p.RestrictedDirs() {
		term.Printf("  %s\n", dir)
	}

	term.Println()
	term.Printf("Timeout: %s default, %s max\n", p.DefaultTimeout(), p.MaxTimeout())
	term.Printf("Output limit: %d bytes per stream\n", p.MaxOutputBytes())
	return nil
}
