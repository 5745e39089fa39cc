package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/journal"
	"github.com/roach88/tca/internal/reducer"
	"github.com/roach88/tca/internal/store"
)

// Feature is a runnable feature: its action codec, default initial state
// and reducer construction, with the state and action types erased so
// scenarios can name features by string.
type Feature interface {
	// Name is the feature's registry name.
	Name() string

	// ActionNames lists the action type names scenarios may use.
	ActionNames() []string

	// Verify replays a journaled session of this feature through fresh
	// reducers and reports divergence.
	Verify(ctx context.Context, j *journal.Journal, sessionID uuid.UUID) (journal.Report, error)

	run(ctx context.Context, sc *Scenario, cfg runConfig) (*Result, error)
}

// Define describes a feature. initial builds the default initial state and
// build constructs the reducer over a clock; build is called once per run
// or replay, so any generators it creates start fresh each time.
func Define[S, A any](
	name string,
	actions *codec.Registry[A],
	initial func() S,
	build func(clock.Clock) reducer.Reducer[S, A],
) Feature {
	return &definition[S, A]{name: name, actions: actions, initial: initial, build: build}
}

type definition[S, A any] struct {
	name    string
	actions *codec.Registry[A]
	initial func() S
	build   func(clock.Clock) reducer.Reducer[S, A]
}

func (d *definition[S, A]) Name() string { return d.name }

func (d *definition[S, A]) ActionNames() []string { return d.actions.Names() }

func (d *definition[S, A]) Verify(ctx context.Context, j *journal.Journal, sessionID uuid.UUID) (journal.Report, error) {
	return journal.Verify(ctx, j, sessionID, func() reducer.Reducer[S, A] {
		return d.build(clock.NewTestClock())
	}, d.actions)
}

// initialState applies top-level field overrides to the default initial
// state through its JSON form. Unknown fields are rejected.
func (d *definition[S, A]) initialState(overrides map[string]any) (S, error) {
	s := d.initial()
	if len(overrides) == 0 {
		return s, nil
	}

	base, err := json.Marshal(s)
	if err != nil {
		return s, fmt.Errorf("encode initial state: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return s, fmt.Errorf("initial state is not an object: %w", err)
	}
	for k, v := range overrides {
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return s, fmt.Errorf("encode initial state: %w", err)
	}

	var out S
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return s, fmt.Errorf("initial_state: %w", err)
	}
	return out, nil
}

func (d *definition[S, A]) run(ctx context.Context, sc *Scenario, cfg runConfig) (*Result, error) {
	initial, err := d.initialState(sc.InitialState)
	if err != nil {
		return nil, err
	}

	tc := clock.NewTestClock(
		clock.WithSettleTimeout(cfg.settleTimeout),
		clock.WithMaxSteps(cfg.maxSteps),
	)
	r := &runner[S, A]{
		def:        d,
		clock:      tc,
		cfg:        cfg,
		exhaustive: sc.Exhaustive,
		signal:     make(chan struct{}, 1),
	}

	opts := []store.Option{
		store.WithClock(tc),
		store.WithLogger(cfg.logger),
		store.WithDefectHandler(r.defect),
		store.WithCommitHook(r.record),
	}
	var rec *journal.Recorder[S, A]
	if cfg.journal != nil {
		rec, err = journal.NewRecorder(ctx, cfg.journal, d.name, sc.Name, initial, d.actions, cfg.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rec.Option())
	}

	r.store = store.New(initial, d.build(tc), opts...)
	defer r.store.Close()

	cfg.logger.Info("scenario started", "scenario", sc.Name, "feature", d.name, "steps", len(sc.Steps))

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(step); err != nil {
			r.fail(fmt.Sprintf("steps[%d] %s: %v", i, step.Kind(), err))
		}
	}
	r.finish()

	result := NewResult()
	result.Scenario = sc.Name
	result.Feature = d.name

	r.mu.Lock()
	result.Trace = append(result.Trace, r.trace...)
	failures := append([]string(nil), r.failures...)
	r.mu.Unlock()

	for _, f := range failures {
		result.AddError(f)
	}
	if rec != nil {
		result.Session = rec.Session().ID.String()
		if err := rec.Err(); err != nil {
			result.AddError(fmt.Sprintf("journal: %v", err))
		}
	}

	state, err := normalize(r.store.State())
	if err != nil {
		return nil, fmt.Errorf("encode final state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(result, sc.Assertions) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario finished",
		"scenario", sc.Name,
		"pass", result.Pass,
		"actions", len(result.Trace),
		"errors", len(result.Errors),
	)
	return result, nil
}

// observed is one commit as the runner sees it.
type observed[S any] struct {
	event TraceEvent
	after S
}

// runner drives one store through a scenario's steps. It mirrors the
// exhaustive test store but collects failures instead of failing a test.
type runner[S, A any] struct {
	def        *definition[S, A]
	store      *store.Store[S, A]
	clock      *clock.TestClock
	cfg        runConfig
	exhaustive bool

	mu       sync.Mutex
	trace    []TraceEvent
	external []observed[S]
	received []observed[S]
	failures []string
	signal   chan struct{}
}

func (r *runner[S, A]) fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, msg)
}

func (r *runner[S, A]) defect(err error) {
	r.fail(fmt.Sprintf("defect: %v", err))
}

func (r *runner[S, A]) record(c store.Commit[S, A]) {
	event := TraceEvent{Seq: c.Seq, Origin: c.Origin.String()}
	env, err := r.def.actions.Encode(c.Action)
	if err != nil {
		event.Action = reducer.Label(c.Action)
		r.fail(fmt.Sprintf("trace: %v", err))
	} else {
		event.Action = env.Type
		if len(env.Payload) > 0 {
			var payload any
			if err := json.Unmarshal(env.Payload, &payload); err == nil {
				event.Payload = payload
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, event)
	obs := observed[S]{event: event, after: c.After}
	if c.Origin == store.OriginEffect {
		r.received = append(r.received, obs)
		select {
		case r.signal <- struct{}{}:
		default:
		}
		return
	}
	r.external = append(r.external, obs)
}

func (r *runner[S, A]) step(s Step) error {
	switch {
	case s.Send != nil:
		return r.send(s.Send, s.Expect)
	case s.Receive != nil:
		return r.receive(s.Receive, s.Expect)
	case s.Advance != "":
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return err
		}
		r.clock.Advance(d)
		return nil
	case s.RunClock:
		return r.clock.Run()
	}
	return fmt.Errorf("empty step")
}

func (r *runner[S, A]) send(spec *ActionSpec, expect map[string]any) error {
	action, err := r.def.actions.FromMap(spec.toMap())
	if err != nil {
		return err
	}

	if r.exhaustive {
		if pending := r.pending(); len(pending) > 0 {
			return fmt.Errorf("must receive %d action(s) before sending %s: %s",
				len(pending), spec.Type, strings.Join(pending, ", "))
		}
	} else {
		r.skipReceived()
	}

	task := r.store.Send(action)
	select {
	case <-task.Processed():
	case <-time.After(r.cfg.settleTimeout):
		return fmt.Errorf("timed out after %s waiting for %s to be processed", r.cfg.settleTimeout, spec.Type)
	}
	if task.Err() != nil {
		// Reported through the defect handler.
		return nil
	}

	r.mu.Lock()
	if len(r.external) == 0 {
		r.mu.Unlock()
		return fmt.Errorf("no commit recorded for %s", spec.Type)
	}
	c := r.external[0]
	r.external = r.external[1:]
	r.mu.Unlock()

	return checkState(c.after, expect)
}

func (r *runner[S, A]) receive(spec *ActionSpec, expect map[string]any) error {
	matches := func(e TraceEvent) bool {
		return e.Action == spec.Type && subsetOf(spec.Payload, e.Payload) == nil
	}

	deadline := time.NewTimer(r.cfg.settleTimeout)
	defer deadline.Stop()

	for {
		r.mu.Lock()
		if !r.exhaustive {
			for len(r.received) > 0 && !matches(r.received[0].event) {
				r.received = r.received[1:]
			}
		}
		if len(r.received) > 0 {
			c := r.received[0]
			r.received = r.received[1:]
			r.mu.Unlock()

			if !matches(c.event) {
				return fmt.Errorf("received %s %s, expected %s", c.event.Action, describe(c.event.Payload), spec)
			}
			return checkState(c.after, expect)
		}
		r.mu.Unlock()

		select {
		case <-r.signal:
		case <-deadline.C:
			return fmt.Errorf("expected to receive %s, but received nothing after %s", spec, r.cfg.settleTimeout)
		}
	}
}

func (r *runner[S, A]) pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.received))
	for i, c := range r.received {
		names[i] = c.event.Action
	}
	return names
}

func (r *runner[S, A]) skipReceived() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = nil
}

// finish settles outstanding work and, for exhaustive scenarios, reports
// unreceived actions and effects still running.
func (r *runner[S, A]) finish() {
	r.clock.Settle()
	if !r.exhaustive {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.settleTimeout)
	defer cancel()
	_ = r.store.Runtime().Wait(ctx)

	if pending := r.pending(); len(pending) > 0 {
		r.fail(fmt.Sprintf("%d received action(s) were not asserted: %s", len(pending), strings.Join(pending, ", ")))
	}
	if n := r.store.InFlight(); n > 0 {
		r.fail(fmt.Sprintf("%d effect(s) still running (ids %v)", n, r.store.InFlightIDs()))
	}
}

func checkState[S any](after S, expect map[string]any) error {
	if len(expect) == 0 {
		return nil
	}
	actual, err := normalize(after)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := subsetOf(expect, actual); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return nil
}

// RunOption configures a scenario run.
type RunOption func(*runConfig)

type runConfig struct {
	journal       *journal.Journal
	logger        *slog.Logger
	settleTimeout time.Duration
	maxSteps      int
}

// WithJournal records the run as a journal session.
func WithJournal(j *journal.Journal) RunOption {
	return func(c *runConfig) {
		c.journal = j
	}
}

// WithLogger sets the logger for the run and its store.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithSettleTimeout bounds how long the run waits for effect work.
// Default: clock.DefaultSettleTimeout.
func WithSettleTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.settleTimeout = d
		}
	}
}

// WithMaxSteps sets the run_clock wakeup limit. Default: clock.DefaultMaxSteps.
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// Run executes a scenario against its registered feature.
//
// A returned error means the scenario could not be started: unknown
// feature, bad initial state, or journal failure. Step, defect and
// assertion failures are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		settleTimeout: clock.DefaultSettleTimeout,
		maxSteps:      clock.DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := Lookup(scenario.Feature)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, scenario, cfg)
}
