package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/reducer"
)

// ReplayRuns is how many independent replays Verify performs.
const ReplayRuns = 2

// Mismatch is one entry whose replayed state differs from the journal.
type Mismatch struct {
	Run   int    `json:"run"`
	Seq   int64  `json:"seq"`
	Label string `json:"label"`
	Want  string `json:"want,omitempty"`
	Got   string `json:"got,omitempty"`
	Err   string `json:"error,omitempty"`
}

// Report is the outcome of verifying one session.
type Report struct {
	Session    Session    `json:"session"`
	Entries    int        `json:"entries"`
	Runs       int        `json:"runs"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// OK reports whether every replay reproduced every journaled state.
func (r Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Verify replays a session's actions through fresh reducers and compares
// each resulting state with the journaled one.
//
// Effects are not run: their results are already journaled as effect-origin
// actions. newReducer must build a reducer whose environment is
// deterministic in the same way as the recorded run (same id generator
// seed, for instance), and is called once per replay.
//
// A returned error means the session could not be read or decoded;
// divergence is reported through Report.Mismatches.
func Verify[S, A any](
	ctx context.Context,
	j *Journal,
	sessionID uuid.UUID,
	newReducer func() reducer.Reducer[S, A],
	actions *codec.Registry[A],
) (Report, error) {
	sess, err := j.Session(ctx, sessionID)
	if err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}
	entries, err := j.Entries(ctx, sessionID)
	if err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}

	decoded := make([]A, len(entries))
	for i, e := range entries {
		var env codec.Envelope
		if err := json.Unmarshal(e.Action, &env); err != nil {
			return Report{}, fmt.Errorf("verify: entry %d: %w", e.Seq, err)
		}
		if decoded[i], err = actions.Decode(env); err != nil {
			return Report{}, fmt.Errorf("verify: entry %d: %w", e.Seq, err)
		}
	}

	report := Report{Session: sess, Entries: len(entries), Runs: ReplayRuns}
	for run := 1; run <= ReplayRuns; run++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		mismatches, err := replay(sess, entries, decoded, newReducer(), run)
		if err != nil {
			return report, fmt.Errorf("verify: run %d: %w", run, err)
		}
		report.Mismatches = append(report.Mismatches, mismatches...)
	}
	return report, nil
}

func replay[S, A any](sess Session, entries []Entry, actions []A, r reducer.Reducer[S, A], run int) ([]Mismatch, error) {
	state, err := unmarshalState[S](string(sess.InitialState))
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for i, e := range entries {
		next, defect := reduceOnce(r, state, actions[i])
		if defect != nil {
			mismatches = append(mismatches, Mismatch{Run: run, Seq: e.Seq, Label: e.Label, Err: defect.Error()})
			if state, err = unmarshalState[S](string(e.State)); err != nil {
				return nil, err
			}
			continue
		}

		got, err := marshalState(next)
		if err != nil {
			return nil, err
		}
		if got != string(e.State) {
			mismatches = append(mismatches, Mismatch{Run: run, Seq: e.Seq, Label: e.Label, Want: string(e.State), Got: got})
			// Resume from the journaled state so one divergence is
			// reported once rather than at every later entry.
			if next, err = unmarshalState[S](string(e.State)); err != nil {
				return nil, err
			}
		}
		state = next
	}
	return mismatches, nil
}

func reduceOnce[S, A any](r reducer.Reducer[S, A], state S, action A) (next S, err error) {
	next = reducer.Snapshot(state)
	defer func() {
		if rec := recover(); rec != nil {
			err = reducer.Recover(rec, action)
		}
	}()
	r.Reduce(&next, action)
	return next, nil
}
