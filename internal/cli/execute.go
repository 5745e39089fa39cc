package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Execute runs the root command with args and returns the process exit
// code. Errors the command did not already report are printed to errOut.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Flag and argument errors from cobra.
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return ExitCommandError
	}
	if !exitErr.Reported {
		fmt.Fprintf(errOut, "Error: %v\n", err)
	}
	return exitErr.Code
}
