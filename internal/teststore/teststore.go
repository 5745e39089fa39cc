// Package teststore drives a store step by step and asserts exhaustively on
// every state change and every action fed back by effects.
//
//	ts := teststore.New(t, counter.State{}, counter.New(env), teststore.WithClock(tc))
//	ts.Send(counter.IncrementTapped{}, func(s *counter.State) { s.Count = 1 })
//	ts.Send(counter.FactTapped{}, func(s *counter.State) { s.Loading = true })
//	ts.Receive(counter.FactResponse{...}, func(s *counter.State) { ... })
//	ts.Finish()
//
// Each assertion starts from the state the previous assertion expected, so
// a test spells out every mutation. Finish (run automatically at cleanup)
// fails when effects are still running or fed-back actions were never
// received.
package teststore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/reducer"
	"github.com/roach88/tca/internal/store"
)

// DefaultTimeout bounds how long Receive waits for an effect to feed back an
// action, in real time.
const DefaultTimeout = time.Second

// DefaultFinishTimeout bounds how long Finish waits for effects not parked
// on the test clock to complete.
const DefaultFinishTimeout = 100 * time.Millisecond

// Exhaustivity selects how strictly a TestStore asserts.
type Exhaustivity int

const (
	// On requires every mutation and every received action be asserted.
	On Exhaustivity = iota
	// Off asserts only the mutations a step spells out, and lets unasserted
	// received actions go.
	Off
)

// Option configures a TestStore.
type Option func(*config)

type config struct {
	clock        *clock.TestClock
	timeout      time.Duration
	exhaustivity Exhaustivity
	cmpOpts      []cmp.Option
	storeOpts    []store.Option
}

// WithClock sets the test clock shared with the feature's environment.
// Default: a fresh TestClock.
func WithClock(c *clock.TestClock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithTimeout sets how long Receive waits. Default: DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// WithExhaustivity sets the assertion mode. Default: On.
func WithExhaustivity(e Exhaustivity) Option {
	return func(cfg *config) {
		cfg.exhaustivity = e
	}
}

// WithCmpOptions adds go-cmp options for comparing states and actions.
func WithCmpOptions(opts ...cmp.Option) Option {
	return func(cfg *config) {
		cfg.cmpOpts = append(cfg.cmpOpts, opts...)
	}
}

// WithStoreOptions passes options through to the underlying store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(cfg *config) {
		cfg.storeOpts = append(cfg.storeOpts, opts...)
	}
}

type commit[S, A any] struct {
	action A
	after  S
}

// TestStore wraps a store for step-by-step assertions.
type TestStore[S, A any] struct {
	t            testing.TB
	store        *store.Store[S, A]
	clock        *clock.TestClock
	timeout      time.Duration
	exhaustivity Exhaustivity
	cmpOpts      []cmp.Option

	expected S
	finished bool

	mu       sync.Mutex
	external []commit[S, A]
	received []commit[S, A]
	signal   chan struct{}
}

// New creates a TestStore. The store is closed, after Finish runs, when the
// test ends.
func New[S, A any](t testing.TB, initial S, r reducer.Reducer[S, A], opts ...Option) *TestStore[S, A] {
	t.Helper()

	cfg := config{
		timeout:      DefaultTimeout,
		exhaustivity: On,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.NewTestClock()
	}

	ts := &TestStore[S, A]{
		t:            t,
		clock:        cfg.clock,
		timeout:      cfg.timeout,
		exhaustivity: cfg.exhaustivity,
		cmpOpts:      append(append([]cmp.Option{cmpopts.EquateErrors()}, reducer.DiffOptions...), cfg.cmpOpts...),
		expected:     reducer.Snapshot(initial),
		signal:       make(chan struct{}, 1),
	}

	storeOpts := append([]store.Option{
		store.WithClock(cfg.clock),
		store.WithDefectHandler(func(err error) {
			t.Errorf("unexpected defect: %v", err)
		}),
		store.WithCommitHook(ts.record),
	}, cfg.storeOpts...)
	ts.store = store.New(initial, r, storeOpts...)

	t.Cleanup(func() {
		if !ts.finished {
			ts.Finish()
		}
		ts.store.Close()
	})
	return ts
}

func (ts *TestStore[S, A]) record(c store.Commit[S, A]) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	rec := commit[S, A]{action: c.Action, after: c.After}
	if c.Origin == store.OriginEffect {
		ts.received = append(ts.received, rec)
		select {
		case ts.signal <- struct{}{}:
		default:
		}
		return
	}
	ts.external = append(ts.external, rec)
}

// Clock returns the test clock driving the store's effects.
func (ts *TestStore[S, A]) Clock() *clock.TestClock {
	return ts.clock
}

// Store returns the underlying store.
func (ts *TestStore[S, A]) Store() *store.Store[S, A] {
	return ts.store
}

// State returns the store's committed state.
func (ts *TestStore[S, A]) State() S {
	return ts.store.State()
}

// Advance moves the test clock forward by d.
func (ts *TestStore[S, A]) Advance(d time.Duration) {
	ts.clock.Advance(d)
}

// Run advances the test clock until no wakeups remain.
func (ts *TestStore[S, A]) Run() {
	ts.t.Helper()
	if err := ts.clock.Run(); err != nil {
		ts.t.Errorf("clock run: %v", err)
	}
}

// Send sends action and asserts the resulting state equals the previously
// expected state with mutate applied. A nil mutate expects no change.
func (ts *TestStore[S, A]) Send(action A, mutate func(*S)) {
	ts.t.Helper()

	if ts.exhaustivity == On {
		if pending := ts.pendingLabels(); len(pending) > 0 {
			ts.t.Errorf("must handle %d received action(s) before sending %s: %s",
				len(pending), reducer.Label(action), strings.Join(pending, ", "))
		}
	} else {
		ts.SkipReceivedActions()
	}

	task := ts.store.Send(action)
	select {
	case <-task.Processed():
	case <-time.After(ts.timeout):
		ts.t.Fatalf("timed out after %s waiting for %s to be processed", ts.timeout, reducer.Label(action))
	}
	if err := task.Err(); err != nil {
		ts.t.Errorf("send %s: %v", reducer.Label(action), err)
		return
	}

	ts.mu.Lock()
	if len(ts.external) == 0 {
		ts.mu.Unlock()
		ts.t.Fatalf("send %s: no commit recorded", reducer.Label(action))
		return
	}
	c := ts.external[0]
	ts.external = ts.external[1:]
	ts.mu.Unlock()

	ts.assertState("send "+reducer.Label(action), c.after, mutate)
}

// Receive waits for the next action fed back by an effect, asserts it equals
// action, and asserts the state it produced.
func (ts *TestStore[S, A]) Receive(action A, mutate func(*S)) {
	ts.t.Helper()
	ts.receive(reducer.Label(action), func(got A) bool {
		return cmp.Equal(action, got, ts.cmpOpts...)
	}, func(got A) string {
		return cmp.Diff(action, got, ts.cmpOpts...)
	}, mutate)
}

// ReceiveMatching is Receive for actions that cannot be built exactly in a
// test, such as responses carrying generated data.
func (ts *TestStore[S, A]) ReceiveMatching(desc string, match func(A) bool, mutate func(*S)) {
	ts.t.Helper()
	ts.receive(desc, match, func(got A) string {
		return fmt.Sprintf("got %s", reducer.Label(got))
	}, mutate)
}

func (ts *TestStore[S, A]) receive(desc string, match func(A) bool, explain func(A) string, mutate func(*S)) {
	ts.t.Helper()

	deadline := time.NewTimer(ts.timeout)
	defer deadline.Stop()

	for {
		ts.mu.Lock()
		if ts.exhaustivity == Off {
			for len(ts.received) > 0 && !match(ts.received[0].action) {
				ts.received = ts.received[1:]
			}
		}
		if len(ts.received) > 0 {
			c := ts.received[0]
			ts.received = ts.received[1:]
			ts.mu.Unlock()

			if !match(c.action) {
				ts.t.Errorf("received unexpected action (-expected +received):\n%s", explain(c.action))
				return
			}
			ts.assertState("receive "+desc, c.after, mutate)
			return
		}
		ts.mu.Unlock()

		select {
		case <-ts.signal:
		case <-deadline.C:
			ts.t.Errorf("expected to receive %s, but received nothing after %s", desc, ts.timeout)
			return
		}
	}
}

// SkipReceivedActions drops actions received but not yet asserted, taking
// the state they produced as expected.
func (ts *TestStore[S, A]) SkipReceivedActions() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if n := len(ts.received); n > 0 {
		ts.expected = reducer.Snapshot(ts.received[n-1].after)
		ts.received = nil
	}
}

// Finish asserts that every received action was asserted and no effect is
// still running.
func (ts *TestStore[S, A]) Finish() {
	ts.t.Helper()
	ts.finished = true

	ts.clock.Settle()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultFinishTimeout)
	defer cancel()
	_ = ts.store.Runtime().Wait(ctx)

	if ts.exhaustivity == On {
		if pending := ts.pendingLabels(); len(pending) > 0 {
			ts.t.Errorf("%d received action(s) were not asserted: %s", len(pending), strings.Join(pending, ", "))
		}
	}
	if n := ts.store.InFlight(); n > 0 {
		ts.t.Errorf("%d effect(s) still running (ids %v); cancel them or advance the clock", n, ts.store.InFlightIDs())
	}
}

func (ts *TestStore[S, A]) pendingLabels() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	labels := make([]string, len(ts.received))
	for i, c := range ts.received {
		labels[i] = reducer.Label(c.action)
	}
	return labels
}

func (ts *TestStore[S, A]) assertState(step string, actual S, mutate func(*S)) {
	ts.t.Helper()

	var expected S
	if ts.exhaustivity == On {
		expected = reducer.Snapshot(ts.expected)
	} else {
		expected = reducer.Snapshot(actual)
	}
	if mutate != nil {
		mutate(&expected)
	}
	if diff := cmp.Diff(expected, actual, ts.cmpOpts...); diff != "" {
		ts.t.Errorf("%s: state mismatch (-expected +actual):\n%s", step, diff)
	}
	ts.expected = reducer.Snapshot(actual)
}
