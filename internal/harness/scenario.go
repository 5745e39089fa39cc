package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario drives one feature through a sequence of steps on a virtual
// clock and asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden traces are stored
	// under this name.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Feature names the registered feature to run.
	Feature string `yaml:"feature" json:"feature"`

	// InitialState overrides fields of the feature's default initial
	// state. Keys are the state's JSON field names.
	InitialState map[string]any `yaml:"initial_state,omitempty" json:"initial_state,omitempty"`

	// Exhaustive requires every effect-fed action to be matched by a
	// receive step and every effect to have finished by the end.
	Exhaustive bool `yaml:"exhaustive,omitempty" json:"exhaustive,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions" json:"assertions"`
}

// ActionSpec names an action by its type and optional payload fields.
type ActionSpec struct {
	Type    string         `yaml:"type" json:"type"`
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

func (a ActionSpec) toMap() map[string]any {
	m := map[string]any{"type": a.Type}
	if len(a.Payload) > 0 {
		m["payload"] = a.Payload
	}
	return m
}

func (a ActionSpec) String() string {
	if len(a.Payload) == 0 {
		return a.Type
	}
	return fmt.Sprintf("%s%v", a.Type, a.Payload)
}

// Step is one scenario step. Exactly one of Send, Receive, Advance and
// RunClock is set.
type Step struct {
	// Send dispatches an action to the store.
	Send *ActionSpec `yaml:"send,omitempty" json:"send,omitempty"`

	// Receive waits for the next action fed back by an effect. Payload
	// fields are matched as a subset.
	Receive *ActionSpec `yaml:"receive,omitempty" json:"receive,omitempty"`

	// Advance moves the virtual clock forward, e.g. "1s" or "300ms".
	Advance string `yaml:"advance,omitempty" json:"advance,omitempty"`

	// RunClock advances the virtual clock until no wakeups remain.
	RunClock bool `yaml:"run_clock,omitempty" json:"run_clock,omitempty"`

	// Expect is a subset of the state after a send or receive.
	Expect map[string]any `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Kind returns the step's kind name.
func (s Step) Kind() string {
	switch {
	case s.Send != nil:
		return "send"
	case s.Receive != nil:
		return "receive"
	case s.Advance != "":
		return "advance"
	case s.RunClock:
		return "run_clock"
	default:
		return ""
	}
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check action appears in trace with payload
	// - "trace_order": Check actions appear in order
	// - "trace_count": Check action appears exactly N times
	// - "final_state": Check a subset of the final state
	Type string `yaml:"type" json:"type"`

	// Action is the action type (used by trace_contains, trace_count).
	Action string `yaml:"action,omitempty" json:"action,omitempty"`

	// Payload is the expected payload subset (used by trace_contains).
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`

	// Origin optionally restricts trace assertions to "external" or
	// "effect" actions.
	Origin string `yaml:"origin,omitempty" json:"origin,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Actions is the expected action order (used by trace_order).
	Actions []string `yaml:"actions,omitempty" json:"actions,omitempty"`

	// Expect contains expected state fields (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// evaluated with CUE; anything else is parsed as YAML.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		scenario, err = ParseCUE(data, path)
	} else {
		scenario, err = ParseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseYAML decodes a scenario with strict field validation (catches typos
// like "assertion:" vs "assertions:"). It does not validate.
func ParseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// ParseCUE evaluates a CUE scenario and decodes it. The whole file is the
// scenario value; CUE constraints and defaults are resolved first, and the
// result must be concrete. It does not validate.
func ParseCUE(data []byte, filename string) (*Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %w", err)
	}

	var scenario Scenario
	if err := v.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Feature == "" {
		return fmt.Errorf("feature is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Send != nil {
		set++
	}
	if s.Receive != nil {
		set++
	}
	if s.Advance != "" {
		set++
	}
	if s.RunClock {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of send, receive, advance, run_clock is required", index)
	}

	switch {
	case s.Send != nil && s.Send.Type == "":
		return fmt.Errorf("steps[%d]: send.type is required", index)
	case s.Receive != nil && s.Receive.Type == "":
		return fmt.Errorf("steps[%d]: receive.type is required", index)
	case s.Advance != "":
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d]: advance: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d]: advance must be non-negative", index)
		}
	}
	if s.Expect != nil && s.Send == nil && s.Receive == nil {
		return fmt.Errorf("steps[%d]: expect is only allowed on send and receive", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Origin != "" && a.Origin != "external" && a.Origin != "effect" {
		return fmt.Errorf("assertions[%d]: origin must be external or effect", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
