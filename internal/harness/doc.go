// Package harness runs features through scripted scenarios.
//
// A scenario names a registered feature, optionally overrides fields of its
// initial state, and lists steps that run on a virtual clock. Each step
// sends an action, receives an action fed back by an effect, or moves the
// clock:
//
//	name: counter_timer
//	description: "Timer ticks once per second until stopped"
//	feature: counter
//	exhaustive: true
//	steps:
//	  - send: { type: ToggleTimerTapped }
//	    expect: { is_timer_on: true }
//	  - advance: 2s
//	  - receive: { type: TimerTicked }
//	    expect: { count: 1 }
//	  - receive: { type: TimerTicked }
//	  - send: { type: ToggleTimerTapped }
//	assertions:
//	  - type: trace_count
//	    action: TimerTicked
//	    count: 2
//	  - type: final_state
//	    expect: { count: 2, is_timer_on: false }
//
// Actions are named by their type names and carry their JSON payload, the
// same encoding the journal stores. State expectations are subset matches
// against the state's JSON form.
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with a matching payload
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: the final state matches a subset
//
// Trace assertions may be restricted to one origin, "external" for sent
// actions or "effect" for actions fed back by effects.
//
// # Exhaustive Scenarios
//
// With exhaustive set, every effect-fed action must be matched by a receive
// step before the next send, and no effect may still be running at the end.
// Otherwise unreceived actions are skipped.
//
// Scenarios may also be written in CUE; the file is evaluated and must be
// concrete. Runs are deterministic, so traces can be compared against
// golden files and journaled runs can be replayed.
package harness
