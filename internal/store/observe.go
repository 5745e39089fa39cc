package store

import (
	"context"
	"sync"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/tca/internal/reducer"
)

// ObserveOption configures a subscription.
type ObserveOption func(*observeConfig)

type observeConfig struct {
	removeDuplicates bool
	opts             []cmp.Option
}

// RemoveDuplicates suppresses snapshots equal to the previously delivered
// one. Equality is cmp.Equal with reducer.DiffOptions plus opts.
func RemoveDuplicates(opts ...cmp.Option) ObserveOption {
	return func(cfg *observeConfig) {
		cfg.removeDuplicates = true
		cfg.opts = append(cfg.opts, opts...)
	}
}

// Observe returns a channel delivering the current state, then one snapshot
// per committed action, in commit order.
//
// Each call is an independent subscription. The channel is closed when ctx
// is done or the store closes; on close, snapshots already committed are
// still delivered first. Snapshots are never dropped.
func (s *Store[S, A]) Observe(ctx context.Context, opts ...ObserveOption) <-chan S {
	var cfg observeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sub := newSubscriber[S](cfg)
	out := make(chan S)

	s.mu.Lock()
	sub.push(reducer.Snapshot(s.state))
	if s.closed {
		sub.close()
	} else {
		s.subs[sub] = struct{}{}
	}
	s.mu.Unlock()

	go func() {
		defer close(out)
		defer s.unsubscribe(sub)
		sub.pump(ctx, out)
	}()
	return out
}

func (s *Store[S, A]) unsubscribe(sub *subscriber[S]) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// subscriber buffers snapshots for one Observe channel.
type subscriber[S any] struct {
	cfg observeConfig

	mu      sync.Mutex
	pending []S
	last    S
	hasLast bool
	closed  bool
	signal  chan struct{}
}

func newSubscriber[S any](cfg observeConfig) *subscriber[S] {
	return &subscriber[S]{
		cfg:    cfg,
		signal: make(chan struct{}, 1),
	}
}

// push queues a snapshot. Never blocks.
func (sub *subscriber[S]) push(v S) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed {
		return
	}
	if sub.cfg.removeDuplicates && sub.hasLast {
		opts := append(append([]cmp.Option(nil), reducer.DiffOptions...), sub.cfg.opts...)
		if cmp.Equal(sub.last, v, opts...) {
			return
		}
	}
	sub.last = v
	sub.hasLast = true
	sub.pending = append(sub.pending, v)
	sub.notify()
}

func (sub *subscriber[S]) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.closed = true
	sub.notify()
}

func (sub *subscriber[S]) notify() {
	select {
	case sub.signal <- struct{}{}:
	default:
	}
}

// next pops the oldest pending snapshot. done reports that the subscriber
// is closed and fully drained.
func (sub *subscriber[S]) next() (v S, ok bool, done bool) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if len(sub.pending) > 0 {
		v = sub.pending[0]
		var zero S
		sub.pending[0] = zero
		sub.pending = sub.pending[1:]
		return v, true, false
	}
	return v, false, sub.closed
}

func (sub *subscriber[S]) pump(ctx context.Context, out chan<- S) {
	for {
		v, ok, done := sub.next()
		if done {
			return
		}
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-sub.signal:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case out <- v:
		}
	}
}
