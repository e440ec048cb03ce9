package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/syntax"

	"github.com/xdg/cmdgate/internal/gate"
	"github.com/xdg/cmdgate/internal/term"
)

var (
	runTimeout int
	runWorkdir string
	runJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a command through the gate",
	Long: `Run a command on the host after it passes the security gate.

The command may be given as a single quoted string or as separate words after
"--". Its stdout and stderr are copied through and cmdgate exits with the
command's exit code. A rejected command prints the violation and exits 1.

Examples:
  cmdgate run -- git status
  cmdgate run --timeout 60 --workdir ~/src/app -- 'grep -rn "TODO" .'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "timeout in seconds (default from config, clamped to the maximum)")
	runCmd.Flags().StringVar(&runWorkdir, "workdir", "", "working directory (default current directory)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	command, err := joinCommand(args)
	if err != nil {
		return err
	}

	s, err := openSession(runWorkdir)
	if err != nil {
		return err
	}
	defer s.Close()

	req := gate.Request{Command: command, WorkingDir: runWorkdir}
	if cmd.Flags().Changed("timeout") {
		t := runTimeout
		req.TimeoutSeconds = &t
	}

	res := s.gate.Execute(commandContext(cmd), req)

	if runJSON {
		if err := writeJSON(res); err != nil {
			return err
		}
	} else {
		printResult(res)
	}
	return resultExitError(res)
}

// printResult copies the command's output through and reports anything
// the command did not say itself.
func printResult(res gate.Result) {
	_, _ = term.Stdout().Write([]byte(res.Stdout))
	_, _ = term.Stderr().Write([]byte(res.Stderr))

	switch {
	case res.State == gate.StateRejected:
		term.Rejected(string(res.Violation), "%s", res.Error)
	case res.State == gate.StateCompleted:
		// exit status is the report
	case res.Error != "":
		term.Error("%s", res.Error)
	}
	if res.Truncated {
		term.Warn("output exceeded the capture limit and was truncated")
	}
}

// resultExitError maps a result onto the process exit code: the child's
// own code when it ran, 1 otherwise.
func resultExitError(res gate.Result) error {
	if res.Success {
		return nil
	}
	if res.ExitCode > 0 {
		return NewExitCodeError(res.ExitCode)
	}
	return NewExitCodeError(1)
}

// joinCommand turns CLI words back into a command string. A single word is
// taken as the whole command; several are shell-quoted as needed so the
// gate sees the same argument boundaries.
func joinCommand(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	words := make([]string, 0, len(args))
	for _, a := range args {
		q, err := syntax.Quote(a, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("cannot pass argument %q: %w", a, err)
		}
		words = append(words, q)
	}
	return strings.Join(words, " "), nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(term.Stdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
