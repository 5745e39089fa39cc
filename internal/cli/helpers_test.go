package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tca/internal/config"
)

const scenarioDir = "../harness/testdata/scenarios"

func testRootOptions(format string) *RootOptions {
	return &RootOptions{
		Format: format,
		Config: config.Config{
			SettleTimeout:     200 * time.Millisecond,
			MaxSteps:          1000,
			ReplayConcurrency: 2,
		},
	}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func decodeResponse(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// journaledRun runs a scenario into dbPath and returns the session id.
func journaledRun(t *testing.T, dbPath, scenario string) string {
	t.Helper()
	out, err := execute(NewRunCommand(testRootOptions("json")), "--db", dbPath, scenario)
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	session, ok := resp["session"].(string)
	require.True(t, ok, "no session in %s", out)
	return session
}
