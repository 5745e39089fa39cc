package store

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/tca/internal/effect"
)

// ErrClosed is reported by tasks for actions sent to a closed store.
var ErrClosed = errors.New("store closed")

// Task reports on one sent action: when it was reduced, and when the effect
// it started has finished.
type Task struct {
	processed chan struct{}

	mu        sync.Mutex
	exec      *effect.Execution
	err       error
	cancelled bool
}

func newTask() *Task {
	return &Task{processed: make(chan struct{})}
}

// Processed is closed once the action has been reduced (or rejected).
func (t *Task) Processed() <-chan struct{} {
	return t.processed
}

// Err returns ErrClosed if the store rejected the action, the defect raised
// while reducing it, or nil. Valid after Processed is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// EffectErr returns the first uncaught error of the effect the action
// started, or nil. It is final once Wait has returned nil.
func (t *Task) EffectErr() error {
	t.mu.Lock()
	exec := t.exec
	t.mu.Unlock()
	if exec == nil {
		return nil
	}
	return exec.Err()
}

// Wait blocks until the action is reduced and its effect has finished, or
// ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.processed:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	exec := t.exec
	t.mu.Unlock()
	if exec == nil {
		return nil
	}
	return exec.Wait(ctx)
}

// Cancel stops the effect started by this action. Cancelling before the
// action is reduced cancels the effect as soon as it starts.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	exec := t.exec
	t.mu.Unlock()
	if exec != nil {
		exec.Cancel()
	}
}

// finish records the outcome and releases waiters.
func (t *Task) finish(exec *effect.Execution, err error) {
	t.mu.Lock()
	t.exec = exec
	t.err = err
	cancelled := t.cancelled
	t.mu.Unlock()

	if cancelled && exec != nil {
		exec.Cancel()
	}
	close(t.processed)
}
