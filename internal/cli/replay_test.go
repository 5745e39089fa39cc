package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tca/internal/features/counter"
	"github.com/roach88/tca/internal/journal"
)

func TestReplayCommand_MissingDatabase(t *testing.T) {
	_, err := execute(NewReplayCommand(testRootOptions("text")), "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommand_NoDatabaseConfigured(t *testing.T) {
	out, err := execute(NewReplayCommand(testRootOptions("text")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "TCA_DB")
}

func TestReplayCommand_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tca.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := execute(NewReplayCommand(testRootOptions("text")), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found")
}

func TestReplayCommand_Deterministic(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tca.db")
	journaledRun(t, dbPath, filepath.Join(scenarioDir, "counter_basic.yaml"))
	journaledRun(t, dbPath, filepath.Join(scenarioDir, "todos_complete.cue"))
	journaledRun(t, dbPath, filepath.Join(scenarioDir, "inventory_edit.yaml"))

	out, err := execute(NewReplayCommand(testRootOptions("text")), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 3 session(s)")
	assert.Contains(t, out, "(counter)")
	assert.Contains(t, out, "(todos)")
	assert.Contains(t, out, "(inventory)")
	assert.Contains(t, out, "✓ All sessions verified deterministic")
}

func TestReplayCommand_SingleSessionJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tca.db")
	journaledRun(t, dbPath, filepath.Join(scenarioDir, "counter_basic.yaml"))
	session := journaledRun(t, dbPath, filepath.Join(scenarioDir, "counter_timer.yaml"))

	out, err := execute(NewReplayCommand(testRootOptions("json")), "--db", dbPath, "--session", session)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Sessions, 1)
	got := resp.Data.Sessions[0]
	assert.Equal(t, session, got.Session)
	assert.True(t, got.Deterministic)
	assert.Equal(t, journal.ReplayRuns, got.Runs)
	assert.Positive(t, got.Entries)
}

func TestReplayCommand_UnknownSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tca.db")
	journaledRun(t, dbPath, filepath.Join(scenarioDir, "counter_basic.yaml"))

	_, err := execute(NewReplayCommand(testRootOptions("text")), "--db", dbPath,
		"--session", "00000000-0000-7000-8000-000000000000")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(NewReplayCommand(testRootOptions("text")), "--db", dbPath, "--session", "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommand_Divergence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tca.db")
	journaledRun(t, dbPath, filepath.Join(scenarioDir, "counter_basic.yaml"))

	// A journal whose recorded state no reducer run would produce.
	ctx := context.Background()
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	sess, err := j.CreateSession(ctx, "counter", "tampered", counter.State{})
	require.NoError(t, err)
	require.NoError(t, j.AppendEntry(ctx, journal.Entry{
		SessionID: sess.ID,
		Seq:       1,
		Origin:    "external",
		Label:     "counter.IncrementTapped",
		Action:    json.RawMessage(`{"type":"IncrementTapped"}`),
		State:     json.RawMessage(`{"count":5,"is_loading_fact":false,"is_timer_on":false}`),
	}))
	require.NoError(t, j.Close())

	out, err := execute(NewReplayCommand(testRootOptions("json")), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string       `json:"status"`
		Error  *CLIError    `json:"error"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)
	assert.False(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Sessions, 2)
	assert.True(t, resp.Data.Sessions[0].Deterministic)

	tampered := resp.Data.Sessions[1]
	assert.False(t, tampered.Deterministic)
	require.Len(t, tampered.Mismatches, journal.ReplayRuns)
	assert.Equal(t, int64(1), tampered.Mismatches[0].Seq)
	assert.Contains(t, tampered.Mismatches[0].Got, `"count":1`)
}

func TestReplayCommand_UnregisteredFeature(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tca.db")
	ctx := context.Background()
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	_, err = j.CreateSession(ctx, "retired", "", map[string]any{})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := execute(NewReplayCommand(testRootOptions("text")), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `unknown feature "retired"`)
}
