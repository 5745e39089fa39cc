package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecute(t *testing.T) {
	t.Setenv("TCA_SETTLE_TIMEOUT", "200ms")

	tests := []struct {
		name   string
		env    map[string]string
		args   []string
		code   int
		stdout string
		stderr string
	}{
		{
			name:   "pass",
			args:   []string{"run", filepath.Join(scenarioDir, "counter_basic.yaml")},
			code:   ExitSuccess,
			stdout: "✓ counter_basic",
		},
		{
			name:   "scenario failure is reported once on stdout",
			args:   []string{"run", "../harness/testdata/invalid/typo.yaml"},
			code:   ExitFailure,
			stdout: "Error [E003]",
		},
		{
			name:   "unknown command",
			args:   []string{"explode"},
			code:   ExitCommandError,
			stderr: "Error: unknown command",
		},
		{
			name:   "invalid format",
			args:   []string{"--format", "yaml", "features"},
			code:   ExitCommandError,
			stderr: `invalid format "yaml"`,
		},
		{
			name:   "invalid configuration",
			env:    map[string]string{"TCA_MAX_STEPS": "0"},
			args:   []string{"features"},
			code:   ExitCommandError,
			stderr: "TCA_MAX_STEPS must be positive",
		},
		{
			name:   "journal from environment",
			env:    map[string]string{"TCA_DB": filepath.Join(t.TempDir(), "env.db")},
			args:   []string{"run", filepath.Join(scenarioDir, "counter_basic.yaml")},
			code:   ExitSuccess,
			stdout: "Session: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}

			code := Execute(context.Background(), tt.args, out, errOut)
			assert.Equal(t, tt.code, code, "stdout: %s\nstderr: %s", out, errOut)
			if tt.stdout != "" {
				assert.Contains(t, out.String(), tt.stdout)
			}
			if tt.stderr != "" {
				assert.Contains(t, errOut.String(), tt.stderr)
			}
		})
	}
}
