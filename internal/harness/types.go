package harness

// TraceEvent is one committed action in a scenario run.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Origin  string `json:"origin"` // "external" or "effect"
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Scenario and Feature identify what ran.
	Scenario string `json:"scenario"`
	Feature  string `json:"feature"`

	// Trace contains every committed action in order.
	// Used for trace assertions and golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step, defect and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state in its JSON form.
	State any `json:"state,omitempty"`

	// Session is the journal session id when the run was journaled.
	Session string `json:"session,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
