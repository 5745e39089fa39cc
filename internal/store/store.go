package store

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/tca/internal/casepath"
	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/reducer"
)

// Commit describes one processed action. It is handed to commit hooks after
// the state is updated and before the action's effect starts. Before and
// After are shared with the store and must not be mutated.
type Commit[S, A any] struct {
	Seq    int64
	Action A
	Origin Origin
	Before S
	After  S
}

// Option configures a Store.
type Option func(*config)

type config struct {
	clock    clock.Clock
	logger   *slog.Logger
	onDefect func(error)
	hooks    []any
}

// WithClock sets the clock effect work is tracked against. Features that
// sleep on a TestClock must run in a store using the same TestClock.
// Default: clock.Live{}.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithLogger sets the store logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithDefectHandler sets the handler for reducer defects and uncaught
// effect errors. Default: log at Error level.
func WithDefectHandler(fn func(error)) Option {
	return func(cfg *config) {
		cfg.onDefect = fn
	}
}

// WithCommitHook registers fn to observe every commit. Hooks run on the
// draining goroutine, in registration order; they must not call Send.
// The hook's type parameters must match the store's.
func WithCommitHook[S, A any](fn func(Commit[S, A])) Option {
	return func(cfg *config) {
		cfg.hooks = append(cfg.hooks, fn)
	}
}

// Store owns state S and processes actions A through a reducer.
//
// Thread-safety: all methods are safe for concurrent use.
type Store[S, A any] struct {
	reducer  reducer.Reducer[S, A]
	runtime  *effect.Runtime[A]
	queue    *actionQueue[A]
	seq      *clock.Sequence
	logger   *slog.Logger
	onDefect func(error)
	hooks    []func(Commit[S, A])

	draining atomic.Bool

	mu     sync.Mutex
	state  S
	subs   map[*subscriber[S]]struct{}
	closed bool
}

// New creates a Store holding initial and reducing with r.
func New[S, A any](initial S, r reducer.Reducer[S, A], opts ...Option) *Store[S, A] {
	cfg := config{
		clock:  clock.Live{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store[S, A]{
		reducer: r,
		queue:   newActionQueue[A](),
		seq:     clock.NewSequence(),
		logger:  cfg.logger,
		state:   reducer.Snapshot(initial),
		subs:    make(map[*subscriber[S]]struct{}),
	}
	s.onDefect = cfg.onDefect
	if s.onDefect == nil {
		s.onDefect = func(err error) {
			s.logger.Error("store defect", "error", err)
		}
	}
	for _, h := range cfg.hooks {
		fn, ok := h.(func(Commit[S, A]))
		if !ok {
			panic(fmt.Sprintf("store: commit hook %T does not match store type", h))
		}
		s.hooks = append(s.hooks, fn)
	}
	s.runtime = effect.NewRuntime[A](
		effect.WithRuntimeClock(cfg.clock),
		effect.WithRuntimeLogger(cfg.logger),
		effect.WithDefectHandler(s.onDefect),
	)
	return s
}

// Send enqueues action and drains the queue if no other goroutine is.
//
// When the calling goroutine drains, the action is reduced before Send
// returns. Otherwise it is reduced by the goroutine already draining and
// the returned Task's Processed channel reports when.
func (s *Store[S, A]) Send(action A) *Task {
	return s.enqueue(action, OriginExternal)
}

func (s *Store[S, A]) sendFromEffect(action A) {
	s.enqueue(action, OriginEffect)
}

func (s *Store[S, A]) enqueue(action A, origin Origin) *Task {
	t := newTask()
	if !s.queue.Enqueue(entry[A]{action: action, origin: origin, task: t}) {
		s.logger.Warn("action sent to closed store",
			"action", reducer.Label(action),
			"origin", origin.String(),
		)
		t.finish(nil, ErrClosed)
		return t
	}
	s.drain()
	return t
}

// drain processes queued entries until the queue is empty. Only one
// goroutine drains at a time; the re-check after releasing the flag picks
// up entries enqueued while the previous drainer was finishing.
func (s *Store[S, A]) drain() {
	for {
		if !s.draining.CompareAndSwap(false, true) {
			return
		}
		s.drainQueue()
		if s.queue.Len() == 0 {
			return
		}
	}
}

// drainQueue processes entries while holding the draining flag. The flag is
// released even if a reducer panics with something other than a defect.
func (s *Store[S, A]) drainQueue() {
	defer s.draining.Store(false)
	for {
		e, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		s.process(e)
	}
}

func (s *Store[S, A]) process(e entry[A]) {
	label := reducer.Label(e.action)
	finished := false
	defer func() {
		if finished {
			return
		}
		if r := recover(); r != nil {
			e.task.finish(nil, fmt.Errorf("store: panic reducing %s: %v", label, r))
			panic(r)
		}
	}()

	s.mu.Lock()
	before := s.state
	s.mu.Unlock()

	after := reducer.Snapshot(before)
	eff, err := s.reduce(&after, e.action)
	if err != nil {
		s.logger.Debug("action rejected by defect",
			"action", label,
			"error", err,
		)
		s.onDefect(err)
		finished = true
		e.task.finish(nil, err)
		return
	}

	s.mu.Lock()
	s.state = after
	seq := s.seq.Next()
	for sub := range s.subs {
		sub.push(reducer.Snapshot(after))
	}
	s.mu.Unlock()

	s.logger.Debug("action committed",
		"action", label,
		"origin", e.origin.String(),
		"seq", seq,
	)

	if len(s.hooks) > 0 {
		c := Commit[S, A]{
			Seq:    seq,
			Action: e.action,
			Origin: e.origin,
			Before: before,
			After:  after,
		}
		for _, h := range s.hooks {
			h(c)
		}
	}

	exec := s.runtime.Execute(eff, s.sendFromEffect)
	finished = true
	e.task.finish(exec, nil)
}

// reduce runs the reducer, converting a defect panic into an error.
func (s *Store[S, A]) reduce(state *S, action A) (eff effect.Effect[A], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = reducer.Recover(r, action)
			eff = effect.None[A]()
		}
	}()
	return s.reducer.Reduce(state, action), nil
}

// State returns a snapshot of the committed state.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reducer.Snapshot(s.state)
}

// Seq returns the sequence number of the last commit, 0 before any.
func (s *Store[S, A]) Seq() int64 {
	return s.seq.Current()
}

// InFlight returns the number of running effect jobs.
func (s *Store[S, A]) InFlight() int {
	return s.runtime.InFlight()
}

// InFlightIDs returns the cancel ids with running effect jobs.
func (s *Store[S, A]) InFlightIDs() []any {
	return s.runtime.InFlightIDs()
}

// Runtime exposes the store's effect runtime.
func (s *Store[S, A]) Runtime() *effect.Runtime[A] {
	return s.runtime
}

// Close cancels all effects, rejects further sends, and closes observers
// after they have received every committed snapshot. Queued actions that
// were never reduced are reported as ErrClosed. Close is idempotent.
func (s *Store[S, A]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[*subscriber[S]]struct{})
	s.mu.Unlock()

	for _, e := range s.queue.Close() {
		e.task.finish(nil, ErrClosed)
	}
	s.runtime.CancelAll()
	for sub := range subs {
		sub.close()
	}
	s.logger.Debug("store closed", "seq", s.seq.Current())
}

// Binding returns a read/write view of a piece of state. Reads see the
// committed state; writes send toAction(v).
func Binding[S, A, V any](s *Store[S, A], get func(S) V, toAction func(V) A) casepath.Binding[V] {
	return casepath.Bind(
		func() V { return get(s.State()) },
		func(v V) { s.Send(toAction(v)) },
	)
}
