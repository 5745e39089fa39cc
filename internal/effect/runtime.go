package effect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tca/internal/clock"
)

// UnhandledError is reported when a Run body returns an error and no Catch
// handler was attached.
type UnhandledError struct {
	ID  any // cancel id, nil if untagged
	Err error
}

func (e *UnhandledError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("unhandled effect error (id %v): %v", e.ID, e.Err)
	}
	return fmt.Sprintf("unhandled effect error: %v", e.Err)
}

func (e *UnhandledError) Unwrap() error {
	return e.Err
}

// IsUnhandled reports whether err is an UnhandledError.
func IsUnhandled(err error) bool {
	var ue *UnhandledError
	return errors.As(err, &ue)
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

type runtimeConfig struct {
	clock    clock.Clock
	logger   *slog.Logger
	onDefect func(error)
}

// WithRuntimeClock sets the clock effect goroutines are tracked against.
// Default: clock.Live{}.
func WithRuntimeClock(c clock.Clock) RuntimeOption {
	return func(cfg *runtimeConfig) {
		cfg.clock = c
	}
}

// WithRuntimeLogger sets the logger. Default: slog.Default().
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(cfg *runtimeConfig) {
		cfg.logger = l
	}
}

// WithDefectHandler sets the handler for uncaught effect errors.
// Default: log at Error level.
func WithDefectHandler(fn func(error)) RuntimeOption {
	return func(cfg *runtimeConfig) {
		cfg.onDefect = fn
	}
}

// Runtime executes effects for one store.
//
// Every Send or Run operation with a delay, and every Run operation, gets
// its own goroutine and context. Jobs tagged with a cancel id are indexed so
// Cancel can reach them.
//
// Thread-safety: all methods are safe for concurrent use.
type Runtime[A any] struct {
	clock    clock.Clock
	logger   *slog.Logger
	onDefect func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[*job]struct{}
	byID    map[any]map[*job]struct{}
	byGroup map[any]map[*job]struct{}
	closed  bool
	idle    chan struct{} // closed when jobs drops to zero
}

type job struct {
	id       any
	hasID    bool
	group    any
	hasGroup bool
	cancel   context.CancelFunc
}

// NewRuntime creates a Runtime.
func NewRuntime[A any](opts ...RuntimeOption) *Runtime[A] {
	cfg := runtimeConfig{
		clock:  clock.Live{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &Runtime[A]{
		clock:   cfg.clock,
		logger:  cfg.logger,
		jobs:    make(map[*job]struct{}),
		byID:    make(map[any]map[*job]struct{}),
		byGroup: make(map[any]map[*job]struct{}),
		idle:    make(chan struct{}),
	}
	close(r.idle)
	r.onDefect = cfg.onDefect
	if r.onDefect == nil {
		r.onDefect = func(err error) {
			r.logger.Error("effect defect", "error", err)
		}
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Execute starts the work described by e, delivering actions to send.
//
// Operations are applied in order: Cancel operations cancel immediately,
// undelayed Send operations call send synchronously, and everything else
// starts a goroutine. A cancel-in-flight id is cancelled once, before the
// first operation tagged with it starts, so merged siblings sharing the id
// do not cancel each other.
func (r *Runtime[A]) Execute(e Effect[A], send SendFunc[A]) *Execution {
	x := &Execution{done: make(chan struct{})}
	defer x.seal()

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed || e.IsNone() {
		return x
	}

	var cancelled map[any]bool
	for _, op := range e.ops {
		switch op.kind {
		case kindCancel:
			r.Cancel(op.id)
			continue
		case kindCancelGroup:
			r.CancelGroup(op.group)
			continue
		}
		if op.cancelInFlight && !cancelled[op.id] {
			if cancelled == nil {
				cancelled = make(map[any]bool)
			}
			cancelled[op.id] = true
			r.Cancel(op.id)
		}
		if op.kind == kindSend && op.delay <= 0 {
			send(op.action)
			continue
		}
		r.start(op, send, x)
	}
	return x
}

func (r *Runtime[A]) start(op operation[A], send SendFunc[A], x *Execution) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(r.ctx)
	j := &job{id: op.id, hasID: op.hasID, group: op.group, hasGroup: op.hasGroup, cancel: cancel}
	if len(r.jobs) == 0 {
		r.idle = make(chan struct{})
	}
	r.jobs[j] = struct{}{}
	if j.hasID {
		index(r.byID, j.id, j)
	}
	if j.hasGroup {
		index(r.byGroup, j.group, j)
	}
	r.mu.Unlock()
	x.add(j)

	c := op.clock
	if c == nil {
		c = r.clock
	}
	// Track before the goroutine exists so a TestClock never sees a gap.
	tctx, release := clock.Track(ctx, c)

	go func() {
		defer release()
		defer r.remove(j)
		defer x.finish()
		defer cancel()

		guarded := func(a A) {
			if ctx.Err() != nil {
				return
			}
			send(a)
		}

		if op.delay > 0 {
			if err := c.Sleep(tctx, op.delay); err != nil {
				return
			}
		}

		switch op.kind {
		case kindSend:
			guarded(op.action)
		case kindRun:
			err := op.run(tctx, guarded)
			if err == nil || ctx.Err() != nil {
				return
			}
			if op.catch != nil {
				op.catch(err, guarded)
				return
			}
			ue := &UnhandledError{Err: err}
			if op.hasID {
				ue.ID = op.id
			}
			x.fail(ue)
			r.onDefect(ue)
		}
	}()
}

func (r *Runtime[A]) remove(j *job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, j)
	if len(r.jobs) == 0 {
		close(r.idle)
	}
	if j.hasID {
		unindex(r.byID, j.id, j)
	}
	if j.hasGroup {
		unindex(r.byGroup, j.group, j)
	}
}

func index(m map[any]map[*job]struct{}, key any, j *job) {
	set := m[key]
	if set == nil {
		set = make(map[*job]struct{})
		m[key] = set
	}
	set[j] = struct{}{}
}

func unindex(m map[any]map[*job]struct{}, key any, j *job) {
	if set := m[key]; set != nil {
		delete(set, j)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}

// Cancel stops all in-flight work tagged with id.
func (r *Runtime[A]) Cancel(id any) {
	r.mu.Lock()
	set := r.byID[id]
	delete(r.byID, id)
	r.mu.Unlock()

	for j := range set {
		j.cancel()
	}
}

// CancelGroup stops all in-flight work tagged with group.
func (r *Runtime[A]) CancelGroup(group any) {
	r.mu.Lock()
	set := r.byGroup[group]
	delete(r.byGroup, group)
	r.mu.Unlock()

	for j := range set {
		j.cancel()
	}
}

// CancelAll stops all in-flight work and rejects new work.
func (r *Runtime[A]) CancelAll() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

// InFlight returns the number of running jobs.
func (r *Runtime[A]) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// InFlightIDs returns the cancel ids that currently have running jobs.
func (r *Runtime[A]) InFlightIDs() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]any, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// Wait blocks until no jobs are running or ctx is done. Jobs started
// while waiting extend the wait.
func (r *Runtime[A]) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		if len(r.jobs) == 0 {
			r.mu.Unlock()
			return nil
		}
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Execution tracks the jobs started by one Execute call.
type Execution struct {
	mu      sync.Mutex
	jobs    []*job
	pending int
	sealed  bool
	err     error
	done    chan struct{}
}

func (x *Execution) add(j *job) {
	x.mu.Lock()
	x.jobs = append(x.jobs, j)
	x.pending++
	x.mu.Unlock()
}

func (x *Execution) finish() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pending--
	if x.sealed && x.pending == 0 {
		close(x.done)
	}
}

// fail records the first uncaught error of the execution's jobs.
func (x *Execution) fail(err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.err == nil {
		x.err = err
	}
}

func (x *Execution) seal() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.sealed = true
	if x.pending == 0 {
		close(x.done)
	}
}

// Err returns the first *UnhandledError raised by the execution's jobs, or
// nil. It is final once Done is closed.
func (x *Execution) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// Done is closed when every job of the execution has finished.
func (x *Execution) Done() <-chan struct{} {
	return x.done
}

// Cancel stops the execution's jobs. Other jobs sharing their cancel ids
// are not affected.
func (x *Execution) Cancel() {
	x.mu.Lock()
	jobs := append([]*job(nil), x.jobs...)
	x.mu.Unlock()
	for _, j := range jobs {
		j.cancel()
	}
}

// Wait blocks until the execution is done or ctx is.
func (x *Execution) Wait(ctx context.Context) error {
	select {
	case <-x.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
