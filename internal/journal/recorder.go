package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/reducer"
	"github.com/roach88/tca/internal/store"
)

// Recorder writes a store's commits to a journal session.
//
// Register it with store.WithCommitHook(rec.Record) or rec.Option(). The
// first write failure stops recording; Err reports it.
type Recorder[S, A any] struct {
	journal *Journal
	ctx     context.Context
	session Session
	actions *codec.Registry[A]
	logger  *slog.Logger

	mu    sync.Mutex
	count int
	err   error
}

// NewRecorder creates a session for feature starting at initial.
func NewRecorder[S, A any](
	ctx context.Context,
	j *Journal,
	feature, scenario string,
	initial S,
	actions *codec.Registry[A],
	logger *slog.Logger,
) (*Recorder[S, A], error) {
	if logger == nil {
		logger = slog.Default()
	}
	sess, err := j.CreateSession(ctx, feature, scenario, initial)
	if err != nil {
		return nil, err
	}
	logger.Info("journal session started", "session", sess.ID, "feature", feature)
	return &Recorder[S, A]{
		journal: j,
		ctx:     ctx,
		session: sess,
		actions: actions,
		logger:  logger,
	}, nil
}

// Session returns the session being written.
func (r *Recorder[S, A]) Session() Session {
	return r.session
}

// Option returns the store option registering r as a commit hook.
func (r *Recorder[S, A]) Option() store.Option {
	return store.WithCommitHook(r.Record)
}

// Record writes one commit.
func (r *Recorder[S, A]) Record(c store.Commit[S, A]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err := r.write(c); err != nil {
		r.err = err
		r.logger.Error("journal write failed", "session", r.session.ID, "seq", c.Seq, "error", err)
		return
	}
	r.count++
}

func (r *Recorder[S, A]) write(c store.Commit[S, A]) error {
	env, err := r.actions.Encode(c.Action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	action, err := marshalText(env)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	state, err := marshalState(c.After)
	if err != nil {
		return err
	}
	return r.journal.AppendEntry(r.ctx, Entry{
		SessionID: r.session.ID,
		Seq:       c.Seq,
		Origin:    c.Origin.String(),
		Label:     reducer.Label(c.Action),
		Action:    json.RawMessage(action),
		State:     json.RawMessage(state),
	})
}

// Count returns the number of entries written.
func (r *Recorder[S, A]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the write failure that stopped recording, if any.
func (r *Recorder[S, A]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
