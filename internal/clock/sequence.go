package clock

import "sync/atomic"

// Sequence is a monotonic logical counter.
//
// Committed actions are stamped with Next() so a journal or trace can be
// ordered without wall-clock timestamps. TestClock also uses one to break
// ties between wakeups scheduled for the same deadline.
//
// Sequence is safe for concurrent use.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
// The first call to Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence positioned at start.
// Used when resuming numbering from a journal.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next increments and returns the next value.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

// Reset rewinds the sequence to 0 so a scenario can be re-run with
// identical numbering.
func (s *Sequence) Reset() {
	s.seq.Store(0)
}
