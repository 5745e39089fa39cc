package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/ident"
)

// Session is one journaled run of a feature.
type Session struct {
	ID           uuid.UUID       `json:"id"`
	Feature      string          `json:"feature"`
	Scenario     string          `json:"scenario,omitempty"`
	InitialState json.RawMessage `json:"initial_state"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Entry is one committed action of a session.
type Entry struct {
	SessionID uuid.UUID       `json:"session_id"`
	Seq       int64           `json:"seq"`
	Origin    string          `json:"origin"`
	Label     string          `json:"label"`
	Action    json.RawMessage `json:"action"`
	State     json.RawMessage `json:"state"`
}

// CreateSession inserts a new session with a UUIDv7 id and returns it.
// CreatedAt is informational; sessions are ordered by id.
func (j *Journal) CreateSession(ctx context.Context, feature, scenario string, initialState any) (Session, error) {
	stateJSON, err := marshalState(initialState)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	sess := Session{
		ID:           ident.V7(),
		Feature:      feature,
		Scenario:     scenario,
		InitialState: json.RawMessage(stateJSON),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, feature, scenario, initial_state, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		sess.ID.String(),
		sess.Feature,
		sess.Scenario,
		stateJSON,
		sess.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// AppendEntry inserts an entry.
// Uses ON CONFLICT(session_id, seq) DO NOTHING for idempotency - writing
// the same commit twice is silently ignored.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (j *Journal) AppendEntry(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO entries (session_id, seq, origin, label, action, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		e.SessionID.String(),
		e.Seq,
		e.Origin,
		e.Label,
		string(e.Action),
		string(e.State),
	)
	if err != nil {
		return fmt.Errorf("append entry %d: %w", e.Seq, err)
	}
	return nil
}

// DeleteSession removes a session and its entries.
// Returns ErrSessionNotFound if no session has that id.
func (j *Journal) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}
