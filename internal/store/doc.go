// Package store owns feature state and serializes the actions that change it.
//
// A Store holds exactly one state value and one reducer. Every action, sent
// from outside or fed back by an effect, goes through a single FIFO queue:
//
//	Send(a) → enqueue → reduce(state copy, a) → commit → start effect
//
// Actions sent while another action is being processed (from an effect's
// synchronous Send, or from another goroutine) are queued behind it and never
// interleave with it. Whichever goroutine finds the store idle drains the
// queue, so a Send from a caller with no concurrent work is processed before
// Send returns.
//
// # Snapshots
//
// The reducer runs on a [reducer.Snapshot] of the committed state and the
// result is committed only when the reducer returns normally. A reducer that
// raises a defect leaves the committed state untouched. States holding
// slices or maps should implement [reducer.Cloner] so snapshots do not alias.
//
// # Observation
//
// [Store.Observe] delivers the current state followed by one snapshot per
// committed action, in commit order, to each subscriber independently. No
// snapshot is ever dropped: slow subscribers buffer.
package store
