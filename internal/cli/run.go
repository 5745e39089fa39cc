package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tca/internal/harness"
	"github.com/roach88/tca/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario",
		Long: `Run a scenario file (YAML or CUE) against its feature on a virtual
clock and report step, defect and assertion failures.

With --db (or TCA_DB) every committed action is journaled as a session
that replay can verify later.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed or is invalid
  2 - Command error (file not found, journal unavailable, etc.)

Examples:
  tca run scenarios/counter_timer.yaml
  tca run --db ./tca.db scenarios/todos_complete.cue
  tca run scenarios/search_debounce.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run to this SQLite database (default $TCA_DB)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "scenario not found", err)
		}
		return formatter.Fail(ExitFailure, ErrCodeLoadFailed, "invalid scenario", err)
	}

	runOpts := []harness.RunOption{
		harness.WithLogger(logger),
		harness.WithSettleTimeout(opts.Config.SettleTimeout),
		harness.WithMaxSteps(opts.Config.MaxSteps),
	}

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	if db != "" {
		j, err := journal.Open(db)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithJournal(j))
		formatter.VerboseLog("Journaling to %s", db)
	}

	result, err := harness.Run(cmd.Context(), scenario, runOpts...)
	if err != nil {
		var unknown *harness.UnknownFeatureError
		if errors.As(err, &unknown) {
			return formatter.Fail(ExitFailure, ErrCodeUnknownFeature, "invalid scenario", err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to run scenario", err)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result, Session: result.Session}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeScenarioFailed, Message: "scenario failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), result, opts.Verbose)
	}

	if !result.Pass {
		return &ExitError{Code: ExitFailure, Message: "scenario failed", Reported: true}
	}
	return nil
}

// printResult writes a one-line summary, the session id if any, errors,
// and in verbose mode the full trace.
func printResult(w io.Writer, result *harness.Result, verbose bool) {
	status := "✓"
	if !result.Pass {
		status = "✗"
	}
	fmt.Fprintf(w, "%s %s (%s): %d action(s)\n", status, result.Scenario, result.Feature, len(result.Trace))
	if result.Session != "" {
		fmt.Fprintf(w, "  Session: %s\n", result.Session)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", indent(strings.TrimRight(e, "\n"), "  "))
	}
	if verbose {
		for _, ev := range result.Trace {
			fmt.Fprintf(w, "  [%d] %-8s %s\n", ev.Seq, ev.Origin, ev.Action)
		}
	}
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
