// Package reducer defines pure state transitions and the combinators that
// compose them.
//
// A [Reducer] mutates the state it is handed in place and returns an
// [effect.Effect] describing follow-up work. It must not perform I/O, read
// the clock, or generate randomness directly: those go through effects or an
// explicitly bound environment ([WithEnvironment]), which keeps reducer
// output a deterministic function of (state, action).
//
// Composition:
//
//   - [Combine] runs reducers in order and merges their effects.
//   - [Scope] embeds a child feature in a field of the parent.
//   - [ForEach] runs a child reducer on one element of an identified
//     collection.
//   - [IfLet] and [IfCaseLet] run a child only while optional or enum state
//     is present.
//
// Programmer errors, such as an action addressed to an element that does not
// exist, are defects: reducers call [Precondition], which panics with a
// [*DefectError] that the store recovers and reports.
package reducer
