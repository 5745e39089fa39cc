package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tca/internal/journal"
)

const testSettle = 200 * time.Millisecond

func runFile(t *testing.T, path string, opts ...RunOption) *Result {
	t.Helper()
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(context.Background(), scenario, append([]RunOption{WithSettleTimeout(testSettle)}, opts...)...)
	require.NoError(t, err)
	return result
}

func runScenario(t *testing.T, sc *Scenario) *Result {
	t.Helper()
	require.NoError(t, validateScenario(sc))
	result, err := Run(context.Background(), sc, WithSettleTimeout(testSettle))
	require.NoError(t, err)
	return result
}

func send(typ string, payload map[string]any) Step {
	return Step{Send: &ActionSpec{Type: typ, Payload: payload}}
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			result := runFile(t, path)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_UnknownFeature(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Feature: "weather", Steps: []Step{{RunClock: true}}})
	var ue *UnknownFeatureError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "weather", ue.Name)
}

func TestRun_InitialStateOverride(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:         "override",
		Description:  "d",
		Feature:      "counter",
		InitialState: map[string]any{"count": 41},
		Steps:        []Step{send("IncrementTapped", nil)},
		Assertions:   []Assertion{{Type: AssertFinalState, Expect: map[string]any{"count": 42}}},
	})
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_InitialStateUnknownField(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{
		Name:         "bad_override",
		Feature:      "counter",
		InitialState: map[string]any{"cuont": 1},
		Steps:        []Step{send("IncrementTapped", nil)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial_state")
	assert.Contains(t, err.Error(), "cuont")
}

func TestRun_ExpectMismatch(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "mismatch",
		Description: "d",
		Feature:     "counter",
		Steps: []Step{{
			Send:   &ActionSpec{Type: "IncrementTapped"},
			Expect: map[string]any{"count": 5},
		}},
	})
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"steps[0] send: state: count: expected 5, got 1"}, result.Errors)
}

func TestRun_UnknownAction(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "unknown_action",
		Description: "d",
		Feature:     "counter",
		Steps:       []Step{send("ResetTapped", nil)},
	})
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `unknown action type "ResetTapped"`)
	assert.Empty(t, result.Trace)
}

func TestRun_Defect(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "defect",
		Description: "d",
		Feature:     "inventory",
		Steps: []Step{
			send("CommitEditTapped", nil),
			send("AddTapped", nil),
		},
		Assertions: []Assertion{
			{Type: AssertTraceOrder, Actions: []string{"AddTapped"}},
			{Type: AssertTraceCount, Action: "CommitEditTapped", Count: 0},
		},
	})
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "defect:")
	assert.Contains(t, result.Errors[0], "commit edit without an item being edited")
}

func TestRun_NonExhaustiveSkipsReceived(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "skip",
		Description: "d",
		Feature:     "counter",
		Steps: []Step{
			send("ToggleTimerTapped", nil),
			{Advance: "3s"},
			send("ToggleTimerTapped", nil),
			{Advance: "5s"},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: "TimerTicked", Count: 3},
			{Type: AssertFinalState, Expect: map[string]any{"count": 3, "is_timer_on": false}},
		},
	})
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ExhaustiveRequiresReceive(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "unreceived",
		Description: "d",
		Feature:     "counter",
		Exhaustive:  true,
		Steps: []Step{
			send("ToggleTimerTapped", nil),
			{Advance: "1s"},
			send("ToggleTimerTapped", nil),
		},
	})
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "steps[2] send: must receive 1 action(s) before sending ToggleTimerTapped: TimerTicked", result.Errors[0])
}

func TestRun_ExhaustiveReportsRunningEffects(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "leak",
		Description: "d",
		Feature:     "counter",
		Exhaustive:  true,
		Steps:       []Step{send("ToggleTimerTapped", nil)},
	})
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "1 effect(s) still running")
}

func TestRun_ReceiveNothing(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "nothing",
		Description: "d",
		Feature:     "counter",
		Steps: []Step{
			send("Appeared", nil),
			{Receive: &ActionSpec{Type: "WelcomeDelivered"}},
		},
	})
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "steps[1] receive: expected to receive WelcomeDelivered, but received nothing")
}

func TestRun_ReceiveWrongAction(t *testing.T) {
	result := runScenario(t, &Scenario{
		Name:        "wrong",
		Description: "d",
		Feature:     "todos",
		Exhaustive:  true,
		Steps: []Step{
			send("AddTodoTapped", nil),
			send("Move", map[string]any{"offsets": []any{0}, "destination": 1}),
			{Advance: "100ms"},
			{Receive: &ActionSpec{Type: "ClearCompletedTapped"}},
		},
	})
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "steps[3] receive: received SortCompletedTodos null, expected ClearCompletedTapped", result.Errors[0])
}

func TestRun_RunClockStepLimit(t *testing.T) {
	sc := &Scenario{
		Name:        "runaway",
		Description: "d",
		Feature:     "counter",
		Steps: []Step{
			send("ToggleTimerTapped", nil),
			{RunClock: true},
			send("ToggleTimerTapped", nil),
		},
	}
	result, err := Run(context.Background(), sc, WithSettleTimeout(testSettle), WithMaxSteps(5))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "steps[1] run_clock:")
}

func TestRun_JournalReplay(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	result := runFile(t, "testdata/scenarios/todos_complete.cue", WithJournal(j))
	require.True(t, result.Pass, result.Errors)
	require.NotEmpty(t, result.Session)

	id, err := uuid.Parse(result.Session)
	require.NoError(t, err)

	sess, err := j.Session(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "todos", sess.Feature)
	assert.Equal(t, "todos_complete", sess.Scenario)

	entries, err := j.Entries(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, entries, len(result.Trace))

	f, err := Lookup(sess.Feature)
	require.NoError(t, err)
	report, err := f.Verify(context.Background(), j, id)
	require.NoError(t, err)
	assert.True(t, report.OK(), "mismatches: %+v", report.Mismatches)
	assert.Equal(t, len(result.Trace), report.Entries)
}

func TestFeatureNames(t *testing.T) {
	assert.Equal(t, []string{"articles", "counter", "inventory", "onboarding", "search", "standups", "todos"}, FeatureNames())

	f, err := Lookup("counter")
	require.NoError(t, err)
	assert.Contains(t, f.ActionNames(), "IncrementTapped")
}
