package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Payload != nil {
				fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Seq, event.Origin, event.Action, describe(event.Payload))
			} else {
				fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Origin, event.Action)
			}
		}
	}

	return buf.String()
}

// filterOrigin returns the events from origin, or all events when origin is
// empty.
func filterOrigin(trace []TraceEvent, origin string) []TraceEvent {
	if origin == "" {
		return trace
	}
	out := make([]TraceEvent, 0, len(trace))
	for _, e := range trace {
		if e.Origin == origin {
			out = append(out, e)
		}
	}
	return out
}

// assertTraceContains checks if the trace contains an action matching
// the specified type and payload (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range filterOrigin(trace, assertion.Origin) {
		if event.Action != assertion.Action {
			continue
		}
		if subsetOf(assertion.Payload, event.Payload) == nil {
			return nil
		}
	}

	expected := "action " + assertion.Action
	if len(assertion.Payload) > 0 {
		expected += " with payload " + describe(assertion.Payload)
	}
	if assertion.Origin != "" {
		expected += " from " + assertion.Origin
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed),
// and a repeated name must be matched by a later occurrence.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	events := filterOrigin(trace, assertion.Origin)
	pos := 0
	for i, want := range assertion.Actions {
		found := false
		for pos < len(events) {
			e := events[pos]
			pos++
			if e.Action == want {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("missing action: %s", want)
			if i > 0 {
				actual = fmt.Sprintf("no %s after %s", want, assertion.Actions[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range filterOrigin(trace, assertion.Origin) {
		if event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks a subset of the final state. state must be in
// normalized JSON form.
func assertFinalState(state any, assertion Assertion) error {
	if err := subsetOf(assertion.Expect, state); err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: describe(assertion.Expect),
			Actual:   err.Error(),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
