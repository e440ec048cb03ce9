package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/term"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate [flags] -- <command> [args...]",
	Short: "Check a command against the gate without running it",
	Long: `Check whether the gate would accept a command, without running it.

Prints the parsed base command and arguments for an accepted command, or the
violation for a rejected one, and exits 1 when the command would be rejected.
The working directory and timeout are not checked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the validation as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	command, err := joinCommand(args)
	if err != nil {
		return err
	}

	s, err := openSession("")
	if err != nil {
		return err
	}
	defer s.Close()

	v := s.gate.Validate(command)

	if validateJSON {
		if err := writeJSON(v); err != nil {
			return err
		}
	} else if v.Valid {
		term.Allowed("%s", command)
		term.Muted("base: %s", v.Parsed.BaseCommand)
		if len(v.Parsed.Args) > 0 {
			term.Muted("args: %s", strings.Join(v.Parsed.Args, " "))
		}
	} else {
		term.Rejected(string(v.Kind), "%s", v.Reason)
	}

	if !v.Valid {
		return NewExitCodeError(1)
	}
	return nil
}
