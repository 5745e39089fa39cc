package clock

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// DefaultSettleTimeout bounds how long Advance waits for woken work to park
// or finish. Work blocked on something other than the clock (a stubbed
// client that never returns, say) would otherwise hang the test.
const DefaultSettleTimeout = time.Second

// TestClock is a virtual clock whose time moves only when told to.
//
// Sleepers are queued by (deadline, schedule order). Advance fires every
// sleeper whose deadline is at or before the new time, setting Now to each
// deadline as it fires, and waits for tracked work to settle between
// firings so a repeating timer re-registers before the next deadline is
// considered.
//
// Thread-safety: all methods are safe for concurrent use.
type TestClock struct {
	mu            sync.Mutex
	cond          *sync.Cond
	now           time.Time
	waiters       waiterHeap
	seq           *Sequence
	busy          int // tracked goroutines currently running
	settleTimeout time.Duration
	maxSteps      int
}

var _ Clock = (*TestClock)(nil)

// TestClockOption configures a TestClock.
type TestClockOption func(*TestClock)

// WithStart sets the clock's initial time. Default: the Unix epoch in UTC.
func WithStart(t time.Time) TestClockOption {
	return func(c *TestClock) {
		c.now = t
	}
}

// WithSettleTimeout sets how long Advance waits for tracked work.
func WithSettleTimeout(d time.Duration) TestClockOption {
	return func(c *TestClock) {
		c.settleTimeout = d
	}
}

// WithMaxSteps sets the wakeup limit for Run.
func WithMaxSteps(n int) TestClockOption {
	return func(c *TestClock) {
		c.maxSteps = n
	}
}

// NewTestClock creates a TestClock.
func NewTestClock(opts ...TestClockOption) *TestClock {
	c := &TestClock{
		now:           time.Unix(0, 0).UTC(),
		seq:           NewSequence(),
		settleTimeout: DefaultSettleTimeout,
		maxSteps:      DefaultMaxSteps,
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the logical time.
func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep parks the caller until the clock is advanced past now+d.
// A non-positive d returns immediately.
func (c *TestClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	h := trackedBy(ctx, c)

	c.mu.Lock()
	w := &waiter{
		deadline: c.now.Add(d),
		seq:      c.seq.Next(),
		ch:       make(chan struct{}),
		tracked:  h != nil,
	}
	heap.Push(&c.waiters, w)
	if w.tracked {
		c.busy--
		c.cond.Broadcast()
	}
	c.mu.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		defer c.mu.Unlock()
		if w.fired {
			// Already woken and counted as running by the waker.
			return ctx.Err()
		}
		heap.Remove(&c.waiters, w.index)
		if w.tracked {
			c.busy++
		}
		return ctx.Err()
	}
}

// Advance moves time forward by d, firing due wakeups in deadline order.
func (c *TestClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.now.Add(d)
	c.settle()
	for len(c.waiters) > 0 && !c.waiters[0].deadline.After(target) {
		c.fireNext()
	}
	if target.After(c.now) {
		c.now = target
	}
}

// Run advances until no wakeups remain.
//
// Returns StepsExceededError if more than the configured number of wakeups
// fire, which usually means a timer was never cancelled.
func (c *TestClock) Run() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settle()
	steps := 0
	for len(c.waiters) > 0 {
		steps++
		if steps > c.maxSteps {
			return &StepsExceededError{
				Steps: steps,
				Limit: c.maxSteps,
				Now:   c.now.Format(time.RFC3339Nano),
			}
		}
		c.fireNext()
	}
	return nil
}

// Pending returns the number of scheduled wakeups.
func (c *TestClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Settle waits for tracked work to park or finish without moving time.
func (c *TestClock) Settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settle()
}

// fireNext wakes the earliest waiter and waits for the woken work.
// Caller holds c.mu.
func (c *TestClock) fireNext() {
	w := heap.Pop(&c.waiters).(*waiter)
	if w.deadline.After(c.now) {
		c.now = w.deadline
	}
	w.fired = true
	if w.tracked {
		c.busy++
	}
	close(w.ch)
	c.settle()
}

// settle blocks until no tracked work is running or the settle timeout
// elapses. Caller holds c.mu.
func (c *TestClock) settle() {
	if c.busy <= 0 {
		return
	}
	deadline := time.Now().Add(c.settleTimeout)
	t := time.AfterFunc(c.settleTimeout, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer t.Stop()

	for c.busy > 0 && time.Now().Before(deadline) {
		c.cond.Wait()
	}
}

// begin and end bracket a tracked goroutine's lifetime.
func (c *TestClock) begin() {
	c.mu.Lock()
	c.busy++
	c.mu.Unlock()
}

func (c *TestClock) end() {
	c.mu.Lock()
	c.busy--
	c.cond.Broadcast()
	c.mu.Unlock()
}

type waiter struct {
	deadline time.Time
	seq      int64
	ch       chan struct{}
	fired    bool
	tracked  bool
	index    int
}

// waiterHeap orders by deadline, then by schedule sequence.
type waiterHeap []*waiter

func (h waiterHeap) Len() int { return len(h) }

func (h waiterHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h waiterHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waiterHeap) Push(x any) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waiterHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*h = old[:n-1]
	return w
}
