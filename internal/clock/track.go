package clock

import (
	"context"
	"sync"
)

type trackKey struct{}

type trackHandle struct {
	clock *TestClock
	once  sync.Once
	done  bool
	mu    sync.Mutex
}

// Track marks ctx as carrying one unit of effect work running on c.
//
// The returned release func must be called when the work finishes. For a
// TestClock this keeps Advance from firing the next wakeup while the work
// is still running; for every other clock Track is a no-op.
func Track(ctx context.Context, c Clock) (context.Context, func()) {
	tc, ok := c.(*TestClock)
	if !ok {
		return ctx, func() {}
	}
	h := &trackHandle{clock: tc}
	tc.begin()
	release := func() {
		h.once.Do(func() {
			h.mu.Lock()
			h.done = true
			h.mu.Unlock()
			tc.end()
		})
	}
	return context.WithValue(ctx, trackKey{}, h), release
}

// trackedBy returns the live handle in ctx if it belongs to c.
func trackedBy(ctx context.Context, c *TestClock) *trackHandle {
	h, ok := ctx.Value(trackKey{}).(*trackHandle)
	if !ok || h.clock != c {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return nil
	}
	return h
}
