package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session id is not in the journal.
var ErrSessionNotFound = errors.New("session not found")

// Session returns one session.
func (j *Journal) Session(ctx context.Context, id uuid.UUID) (Session, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, feature, scenario, initial_state, created_at
		FROM sessions
		WHERE id = ?
	`, id.String())

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// Sessions returns all sessions, oldest first. UUIDv7 ids sort by creation
// time, so ordering by id needs no wall clock comparison.
//
// Returns an empty slice (not nil) if the journal has no sessions.
func (j *Journal) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, feature, scenario, initial_state, created_at
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Entries returns a session's entries in seq order.
//
// Returns an empty slice (not nil) if the session has no entries.
func (j *Journal) Entries(ctx context.Context, sessionID uuid.UUID) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, seq, origin, label, action, state
		FROM entries
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e             Entry
			sid           string
			action, state string
		)
		if err := rows.Scan(&sid, &e.Seq, &e.Origin, &e.Label, &action, &state); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.SessionID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Action = json.RawMessage(action)
		e.State = json.RawMessage(state)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// LabelCount is how many times one action label was committed.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LabelCounts returns per-label commit counts for a session, ordered by
// label.
func (j *Journal) LabelCounts(ctx context.Context, sessionID uuid.UUID) ([]LabelCount, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT label, COUNT(*)
		FROM entries
		WHERE session_id = ?
		GROUP BY label
		ORDER BY label COLLATE BINARY ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("query label counts: %w", err)
	}
	defer rows.Close()

	counts := []LabelCount{}
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("scan label count: %w", err)
		}
		counts = append(counts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess             Session
		id, state, stamp string
	)
	if err := row.Scan(&id, &sess.Feature, &sess.Scenario, &state, &stamp); err != nil {
		return Session{}, err
	}
	var err error
	if sess.ID, err = uuid.Parse(id); err != nil {
		return Session{}, fmt.Errorf("parse session id: %w", err)
	}
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
		return Session{}, fmt.Errorf("parse created_at: %w", err)
	}
	sess.InitialState = json.RawMessage(state)
	return sess, nil
}
