package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the trace and final state of a scenario run.
// Map keys serialize sorted, so equal runs produce identical bytes.
type TraceSnapshot struct {
	Scenario   string       `json:"scenario"`
	Feature    string       `json:"feature"`
	Trace      []TraceEvent `json:"trace"`
	FinalState any          `json:"final_state"`
}

// Snapshot renders a result as indented JSON with a trailing newline.
func Snapshot(result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		Scenario:   result.Scenario,
		Feature:    result.Feature,
		Trace:      result.Trace,
		FinalState: result.State,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AssertGolden compares a result's snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
