package clock

import (
	"context"
	"iter"
	"time"
)

// Ticks returns a repeating timer driven by c.
//
// Iteration sleeps in the caller's goroutine, so a TestClock sees the
// consumer park between ticks and can fire them one at a time:
//
//	for range clock.Ticks(ctx, c, time.Second) {
//	    send(TimerTicked{})
//	}
//
// The sequence ends when ctx is done or the loop breaks. Tick times are
// start+interval, start+2*interval, ... so a slow consumer on a live clock
// does not accumulate drift.
func Ticks(ctx context.Context, c Clock, interval time.Duration) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if interval <= 0 {
			return
		}
		next := c.Now().Add(interval)
		for {
			if err := c.Sleep(ctx, next.Sub(c.Now())); err != nil {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if !yield(next) {
				return
			}
			next = next.Add(interval)
		}
	}
}
