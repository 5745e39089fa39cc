package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
feature: search
initial_state:
  query: "caf"
steps:
  - send:
      type: QueryChanged
      payload: { query: "cafe" }
    expect: { is_searching: true }
  - advance: 300ms
  - run_clock: true
assertions:
  - type: trace_contains
    action: QueryChanged
    payload: { query: "cafe" }
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "search", scenario.Feature)
	assert.Equal(t, "caf", scenario.InitialState["query"])
	require.Len(t, scenario.Steps, 3)
	assert.Equal(t, "send", scenario.Steps[0].Kind())
	assert.Equal(t, "QueryChanged", scenario.Steps[0].Send.Type)
	assert.Equal(t, "cafe", scenario.Steps[0].Send.Payload["query"])
	assert.Equal(t, true, scenario.Steps[0].Expect["is_searching"])
	assert.Equal(t, "advance", scenario.Steps[1].Kind())
	assert.Equal(t, "300ms", scenario.Steps[1].Advance)
	assert.Equal(t, "run_clock", scenario.Steps[2].Kind())
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertTraceContains, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_CUE(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/todos_complete.cue")
	require.NoError(t, err)

	assert.Equal(t, "todos_complete", scenario.Name)
	assert.True(t, scenario.Exhaustive)
	require.Len(t, scenario.Steps, 6)
	assert.Equal(t, "Row", scenario.Steps[2].Send.Type)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", scenario.Steps[2].Send.Payload["id"])
	assert.Equal(t, "1s", scenario.Steps[4].Advance)
	assert.Equal(t, "receive", scenario.Steps[5].Kind())
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"missing_feature.yaml", "feature is required"},
		{"typo.yaml", "field assertion not found"},
		{"two_kinds.yaml", "exactly one of send, receive, advance, run_clock"},
		{"not_concrete.cue", "not concrete"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "invalid", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Feature:     "counter",
			Steps:       []Step{{Send: &ActionSpec{Type: "IncrementTapped"}}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"empty step", func(s *Scenario) { s.Steps = []Step{{}} }, "steps[0]: exactly one"},
		{"send without type", func(s *Scenario) { s.Steps[0].Send.Type = "" }, "send.type is required"},
		{"receive without type", func(s *Scenario) {
			s.Steps = []Step{{Receive: &ActionSpec{}}}
		}, "receive.type is required"},
		{"bad duration", func(s *Scenario) {
			s.Steps = []Step{{Advance: "soon"}}
		}, "steps[0]: advance"},
		{"negative duration", func(s *Scenario) {
			s.Steps = []Step{{Advance: "-1s"}}
		}, "non-negative"},
		{"expect on advance", func(s *Scenario) {
			s.Steps = []Step{{Advance: "1s", Expect: map[string]any{"count": 1}}}
		}, "expect is only allowed"},
		{"unknown assertion", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: "trace_exists"}}
		}, `unknown assertion type "trace_exists"`},
		{"contains without action", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTraceContains}}
		}, "action is required for trace_contains"},
		{"order without actions", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTraceOrder}}
		}, "actions list is required"},
		{"negative count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTraceCount, Action: "X", Count: -1}}
		}, "count must be non-negative"},
		{"final state without expect", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertFinalState}}
		}, "expect is required for final_state"},
		{"bad origin", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTraceCount, Action: "X", Origin: "reducer"}}
		}, "origin must be external or effect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := validateScenario(s)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCUE_Defaults(t *testing.T) {
	src := `
#Send: {send: {type: string}}
name:        "cue_defaults"
description: "Defaults resolve before decoding"
feature:     *"counter" | "todos"
steps: [#Send & {send: type: "IncrementTapped"}]
`
	scenario, err := ParseCUE([]byte(src), "inline.cue")
	require.NoError(t, err)
	assert.Equal(t, "counter", scenario.Feature)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "IncrementTapped", scenario.Steps[0].Send.Type)
}

func TestParseCUE_CompileError(t *testing.T) {
	_, err := ParseCUE([]byte(`name: "x" &&& `), "broken.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile CUE")
}
