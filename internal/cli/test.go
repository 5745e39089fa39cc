package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tca/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// Golden comparison outcomes.
const (
	GoldenNone     = "none"
	GoldenMatch    = "match"
	GoldenMismatch = "mismatch"
	GoldenUpdated  = "updated"
)

// ScenarioResult holds the result of a single scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run all scenario files under a directory and compare each trace with
its golden snapshot in <dir>/golden/<name>.golden when one exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed or differ from their golden file
  2 - Command error (invalid paths, bad filter, etc.)

Examples:
  tca test ./scenarios
  tca test ./scenarios --filter "counter_*"
  tca test ./scenarios --update
  tca test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "scenarios directory not found", err)
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid filter pattern", err)
	}

	all, err := harness.FindScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to list scenarios", err)
	}
	var paths []string
	for _, p := range all {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, scenarioName(p)); !ok {
				continue
			}
		}
		paths = append(paths, p)
	}

	suite, err := harness.RunSuite(cmd.Context(), paths,
		harness.WithLogger(opts.Logger(cmd.ErrOrStderr())),
		harness.WithSettleTimeout(opts.Config.SettleTimeout),
		harness.WithMaxSteps(opts.Config.MaxSteps),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "test run interrupted", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(suite.Entries)), Total: len(suite.Entries)}
	for _, entry := range suite.Entries {
		sr := checkEntry(entry, opts.Update)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
		formatter.VerboseLog("%s: golden %s", sr.Path, sr.Golden)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeScenarioFailed,
				Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
			}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, sr := range result.Scenarios {
			status := "✓"
			if !sr.Pass {
				status = "✗"
			}
			fmt.Fprintf(w, "%s %s\n", status, sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", indent(strings.TrimRight(e, "\n"), "  "))
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintln(w, "✓ All scenarios passed")
		}
	}

	if result.Failed > 0 {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d scenario(s) failed", result.Failed),
			Reported: true,
		}
	}
	return nil
}

// checkEntry turns a suite entry into a scenario result, comparing or
// rewriting its golden file.
func checkEntry(entry harness.SuiteEntry, update bool) ScenarioResult {
	sr := ScenarioResult{Name: scenarioName(entry.Path), Path: entry.Path, Golden: GoldenNone}
	if entry.Error != "" {
		sr.Errors = []string{entry.Error}
		return sr
	}
	sr.Pass = entry.Result.Pass
	sr.Errors = append(sr.Errors, entry.Result.Errors...)

	data, err := harness.Snapshot(entry.Result)
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("snapshot: %v", err))
		return sr
	}

	goldenPath := goldenFilePath(entry.Path)
	if update {
		if err := writeGolden(goldenPath, data); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
			return sr
		}
		sr.Golden = GoldenUpdated
		return sr
	}

	want, err := os.ReadFile(goldenPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return sr
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("read golden file: %v", err))
		return sr
	}
	if bytes.Equal(want, data) {
		sr.Golden = GoldenMatch
		return sr
	}
	sr.Golden = GoldenMismatch
	sr.Pass = false
	sr.Errors = append(sr.Errors, fmt.Sprintf("trace differs from %s (rerun with --update to accept)", goldenPath))
	return sr
}

func scenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func goldenFilePath(scenarioFile string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", scenarioName(scenarioFile)+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}
