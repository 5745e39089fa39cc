package clock

import (
	"context"
	"sync"
	"time"
)

// Clock is the time capability handed to effects.
type Clock interface {
	// Now returns the clock's current time.
	Now() time.Time

	// Sleep suspends until d has elapsed on this clock or ctx is done.
	// Returns ctx.Err() when interrupted by cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}

// Live delegates to the wall clock.
type Live struct{}

var _ Clock = Live{}

// Now returns time.Now().
func (Live) Now() time.Time {
	return time.Now()
}

// Sleep blocks on a real timer.
func (Live) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Immediate never suspends. Each Sleep advances its own notion of now by
// the requested duration and returns at once, which collapses delays and
// debounces in tests that don't care about timing.
type Immediate struct {
	mu  sync.Mutex
	now time.Time
}

var _ Clock = (*Immediate)(nil)

// NewImmediate creates an Immediate clock starting at start.
func NewImmediate(start time.Time) *Immediate {
	return &Immediate{now: start}
}

// Now returns the accumulated time.
func (c *Immediate) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep returns immediately unless ctx is already done.
func (c *Immediate) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		c.mu.Lock()
		c.now = c.now.Add(d)
		c.mu.Unlock()
	}
	return nil
}
