package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(scenarioDir, name))
	require.NoError(t, err)
	return writeScenario(t, dir, name, string(data))
}

func TestTestCommand_AllScenarios(t *testing.T) {
	out, err := execute(NewTestCommand(testRootOptions("text")), scenarioDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter_basic")
	assert.Contains(t, out, "✓ todos_complete")
	assert.Contains(t, out, "0 failed, 8 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "counter_basic.yaml")
	writeScenario(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(NewTestCommand(testRootOptions("text")), "--filter", "counter_*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	out, err = execute(NewTestCommand(testRootOptions("text")), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommand_InvalidFilter(t *testing.T) {
	_, err := execute(NewTestCommand(testRootOptions("text")), "--filter", "[", scenarioDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(NewTestCommand(testRootOptions("text")), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Golden(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "counter_basic.yaml")
	goldenPath := filepath.Join(dir, "golden", "counter_basic.golden")

	_, err := execute(NewTestCommand(testRootOptions("text")), "--update", dir)
	require.NoError(t, err)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario": "counter_basic"`)

	out, err := execute(NewTestCommand(testRootOptions("json")), dir)
	require.NoError(t, err)
	scenarios := decodeResponse(t, out)["data"].(map[string]any)["scenarios"].([]any)
	require.Len(t, scenarios, 1)
	assert.Equal(t, GoldenMatch, scenarios[0].(map[string]any)["golden"])

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	out, err = execute(NewTestCommand(testRootOptions("text")), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace differs from")
}

func TestTestCommand_NoGolden(t *testing.T) {
	dir := t.TempDir()
	path := copyScenario(t, dir, "counter_basic.yaml")

	out, err := execute(NewTestCommand(testRootOptions("json")), dir)
	require.NoError(t, err)
	scenarios := decodeResponse(t, out)["data"].(map[string]any)["scenarios"].([]any)
	require.Len(t, scenarios, 1)
	assert.Equal(t, GoldenNone, scenarios[0].(map[string]any)["golden"])
	assert.Equal(t, path, scenarios[0].(map[string]any)["path"])
}
