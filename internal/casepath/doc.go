// Package casepath provides accessor pairs for projecting into values.
//
// A [KeyPath] focuses on a field of a struct (get and set). A [CasePath]
// focuses on one variant of a tagged union: Extract succeeds only when the
// whole is currently that variant, and Embed rebuilds the whole from it.
// Reducers use both to scope a child feature to part of a parent's state
// and actions; [Binding] uses them to edit a variant in place.
package casepath
