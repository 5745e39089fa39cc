package store

import "sync"

// Origin tells where an action entered the store.
type Origin int

const (
	// OriginExternal is an action passed to Store.Send.
	OriginExternal Origin = iota + 1
	// OriginEffect is an action fed back by a running effect.
	OriginEffect
)

func (o Origin) String() string {
	switch o {
	case OriginExternal:
		return "external"
	case OriginEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// entry is one queued action with the task that reports on it.
type entry[A any] struct {
	action A
	origin Origin
	task   *Task
}

// actionQueue is a thread-safe unbounded FIFO of pending actions.
//
// Unbounded so an effect that sends many actions in a burst never blocks
// on a store that is busy reducing.
type actionQueue[A any] struct {
	mu      sync.Mutex
	entries []entry[A]
	closed  bool
}

func newActionQueue[A any]() *actionQueue[A] {
	return &actionQueue[A]{
		entries: make([]entry[A], 0, 16),
	}
}

// Enqueue adds an entry to the back of the queue.
// Returns false if the queue is closed.
func (q *actionQueue[A]) Enqueue(e entry[A]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.entries = append(q.entries, e)
	return true
}

// TryDequeue removes and returns the front entry without blocking.
func (q *actionQueue[A]) TryDequeue() (entry[A], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return entry[A]{}, false
	}

	e := q.entries[0]

	// Clear the slot so the backing array does not pin the action.
	q.entries[0] = entry[A]{}
	if len(q.entries) == 1 {
		q.entries = q.entries[:0]
	} else {
		q.entries = q.entries[1:]
	}
	return e, true
}

// Len returns the number of queued entries.
func (q *actionQueue[A]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close rejects further entries and returns the ones still queued.
func (q *actionQueue[A]) Close() []entry[A] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	rest := q.entries
	q.entries = nil
	return rest
}
