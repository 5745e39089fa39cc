// Package clock provides the time sources used by effects.
//
// Effects never read wall-clock time directly. They receive a [Clock] and
// suspend through it, which lets tests substitute a [TestClock] whose time
// only moves when the test calls [TestClock.Advance] or [TestClock.Run].
//
// # Variants
//
//   - [Live]: real time, real timers.
//   - [TestClock]: logical time with a queue of pending wakeups. Advancing it
//     fires every wakeup whose deadline falls inside the advanced window, in
//     deadline order (ties in schedule order), and waits for the woken work
//     to settle before firing the next one.
//   - [Immediate]: never suspends; each Sleep moves its own time forward.
//
// # Settling
//
// A TestClock can only fire deterministically if it knows when woken work
// has finished or parked again. The effect runtime marks each effect
// goroutine with [Track]; a TestClock counts tracked goroutines that are
// running (not parked in Sleep) and Advance waits for that count to reach
// zero between wakeups. Untracked sleepers are fired but not waited for.
//
// [Sequence] is a separate monotonic logical counter used to stamp
// committed actions and to order wakeups that share a deadline.
package clock
