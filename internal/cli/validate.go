package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tca/internal/harness"
)

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FileValidation holds the validation outcome of one scenario file.
type FileValidation struct {
	Path    string            `json:"path"`
	Feature string            `json:"feature,omitempty"`
	Valid   bool              `json:"valid"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results for every file.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenarios without running them",
		Long: `Check scenario files for syntax, strict fields, a registered feature,
and action names the feature knows. Nothing is executed.

Exit codes:
  0 - All scenarios are valid
  1 - At least one scenario is invalid
  2 - Command error (file not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		fv, err := validateFile(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "scenario not found", err)
		}
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
		formatter.VerboseLog("Validated %s", path)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: firstErrorCode(result), Message: "validation failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Feature)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", fv.Path)
			for _, e := range fv.Errors {
				fmt.Fprintf(w, "  [%s] %s\n", e.Code, e.Message)
			}
		}
	}

	if !result.Valid {
		return &ExitError{Code: ExitFailure, Message: "validation failed", Reported: true}
	}
	return nil
}

// validateFile checks one file. The returned error is set only when the
// file cannot be read at all.
func validateFile(path string) (FileValidation, error) {
	fv := FileValidation{Path: path, Valid: true}
	addError := func(code, msg string) {
		fv.Valid = false
		fv.Errors = append(fv.Errors, ValidationError{Code: code, Message: msg})
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fv, err
		}
		addError(ErrCodeLoadFailed, err.Error())
		return fv, nil
	}
	fv.Feature = scenario.Feature

	feature, err := harness.Lookup(scenario.Feature)
	if err != nil {
		addError(ErrCodeUnknownFeature, err.Error())
		return fv, nil
	}

	known := feature.ActionNames()
	check := func(where string, spec *harness.ActionSpec) {
		if spec != nil && !slices.Contains(known, spec.Type) {
			addError(ErrCodeUnknownAction,
				fmt.Sprintf("%s: feature %s has no action %q", where, feature.Name(), spec.Type))
		}
	}
	for i, step := range scenario.Steps {
		where := fmt.Sprintf("steps[%d] %s", i, step.Kind())
		check(where, step.Send)
		check(where, step.Receive)
	}
	for i, a := range scenario.Assertions {
		where := fmt.Sprintf("assertions[%d]", i)
		if a.Action != "" {
			check(where, &harness.ActionSpec{Type: a.Action})
		}
		for _, name := range a.Actions {
			check(where, &harness.ActionSpec{Type: name})
		}
	}
	return fv, nil
}

func firstErrorCode(result ValidationResult) string {
	for _, fv := range result.Files {
		if len(fv.Errors) > 0 {
			return fv.Errors[0].Code
		}
	}
	return ErrCodeGeneric
}
