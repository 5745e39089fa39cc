// Package effect describes asynchronous work returned by reducers and runs
// it.
//
// A reducer never performs side effects. It returns an [Effect], which is a
// value describing work:
//
//   - [None]: nothing to do.
//   - [Send]: feed one action straight back into the store.
//   - [Run]: a goroutine that may emit any number of actions over time.
//   - [Cancel]: stop all in-flight work tagged with an id.
//
// Effects combine with [Merge], lift into a parent action type with [Map],
// and are decorated with [Effect.Cancellable], [Effect.Delay],
// [Effect.Debounce] and [Effect.Catch].
//
// # Failure
//
// A Run body that returns an error must be caught with Catch and turned into
// an action, typically one carrying a [Result]. An uncaught error is a defect:
// the [Runtime] reports it to its defect handler instead of the store.
//
// # Cancellation
//
// Cancellation is cooperative. Cancelling an id cancels the context of every
// matching job and turns its send func into a no-op, so no further actions
// are emitted. Work already past its last suspension point is not
// interrupted.
package effect
