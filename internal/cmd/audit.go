package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/term"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit records",
	Long: `Show the most recent audit records from the sqlite audit store, oldest
first, in the same format as the text audit log.

Requires audit.sqlite to be set in the config file.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 50, "number of records to show")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Audit.SQLite == "" {
		return errNoAuditStore
	}

	store, err := audit.OpenSQLite(cfg.Audit.SQLite)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(commandContext(cmd), auditLimit)
	if err != nil {
		return err
	}

	// Recent is newest first; print in log order.
	for i := len(records) - 1; i >= 0; i-- {
		term.Println(records[i].Format())
	}
	return nil
}
