// Package ident provides UUID generators for feature environments.
//
// Reducers never call uuid.New directly: a generator is injected through
// the environment so tests and replays see predictable ids.
package ident

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator returns a new UUID on each call.
type Generator func() uuid.UUID

// V7 generates time-sortable UUIDv7 values.
//
// Panics if UUID generation fails (should never happen in practice).
func V7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Incrementing returns a generator producing
// 00000000-0000-0000-0000-000000000000, ...-000000000001, and so on.
//
// Thread-safety: the returned generator is safe for concurrent use.
func Incrementing() Generator {
	return From(0)
}

// From is Incrementing starting at Sequential(n).
func From(n uint64) Generator {
	var mu sync.Mutex
	return func() uuid.UUID {
		mu.Lock()
		defer mu.Unlock()
		id := Sequential(n)
		n++
		return id
	}
}

// Sequential returns the n-th UUID produced by Incrementing.
func Sequential(n uint64) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012x", n))
}

// Fixed returns a generator yielding ids in order.
//
// Panics once all ids have been consumed, which catches a test that
// creates more entities than it declared.
func Fixed(ids ...uuid.UUID) Generator {
	var mu sync.Mutex
	idx := 0
	return func() uuid.UUID {
		mu.Lock()
		defer mu.Unlock()
		if idx >= len(ids) {
			panic("ident: all fixed ids exhausted")
		}
		id := ids[idx]
		idx++
		return id
	}
}
