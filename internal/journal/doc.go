// Package journal provides SQLite-backed storage for store commit logs.
//
// A session is one run of a feature: its initial state plus every committed
// action in sequence order. Each entry records:
//   - seq: the store's logical commit number (never wall time)
//   - origin: "external" for sends, "effect" for fed-back actions
//   - label: the action's type name
//   - action: the type-tagged action envelope
//   - state: the state JSON after the commit
//
// Because effects feed their results back as actions, replaying the
// journaled actions through the reducer alone must reproduce every
// journaled state. Verify checks exactly that.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All queries order by seq, so reads are identical across runs.
package journal
