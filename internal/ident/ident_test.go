package ident

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementing(t *testing.T) {
	gen := Incrementing()
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", gen().String())
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", gen().String())
	assert.Equal(t, Sequential(2), gen())
}

func TestIncrementing_IndependentGenerators(t *testing.T) {
	a, b := Incrementing(), Incrementing()
	for range 10 {
		assert.Equal(t, a(), b())
	}
}

func TestIncrementing_ThreadSafe(t *testing.T) {
	gen := Incrementing()
	const n = 100

	var mu sync.Mutex
	seen := make(map[uuid.UUID]bool)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	assert.True(t, seen[Sequential(n-1)])
}

func TestFixed(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	gen := Fixed(a, b)
	assert.Equal(t, a, gen())
	assert.Equal(t, b, gen())
	assert.PanicsWithValue(t, "ident: all fixed ids exhausted", func() { gen() })
}

func TestV7_IsVersion7(t *testing.T) {
	id := V7()
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, id, V7())
}

func TestFrom(t *testing.T) {
	gen := From(100)
	assert.Equal(t, Sequential(100), gen())
	assert.Equal(t, Sequential(101), gen())
}
