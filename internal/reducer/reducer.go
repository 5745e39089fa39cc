package reducer

import (
	"github.com/roach88/tca/internal/effect"
)

// Reducer evolves state S in response to action A.
type Reducer[S, A any] interface {
	Reduce(state *S, action A) effect.Effect[A]
}

// Func adapts a plain function to Reducer.
type Func[S, A any] func(state *S, action A) effect.Effect[A]

// Reduce calls f.
func (f Func[S, A]) Reduce(state *S, action A) effect.Effect[A] {
	return f(state, action)
}

// EnvFunc is a reducer that also receives an environment of dependencies
// (clock, clients, id generators).
type EnvFunc[S, A, E any] func(state *S, action A, env E) effect.Effect[A]

// WithEnvironment binds env to fn, producing a Reducer.
func WithEnvironment[S, A, E any](fn EnvFunc[S, A, E], env E) Reducer[S, A] {
	return Func[S, A](func(state *S, action A) effect.Effect[A] {
		return fn(state, action, env)
	})
}

// Empty returns a reducer that ignores every action.
func Empty[S, A any]() Reducer[S, A] {
	return Func[S, A](func(*S, A) effect.Effect[A] {
		return effect.None[A]()
	})
}

// Combine runs reducers in order against the same state and merges their
// effects.
func Combine[S, A any](reducers ...Reducer[S, A]) Reducer[S, A] {
	return Func[S, A](func(state *S, action A) effect.Effect[A] {
		effects := make([]effect.Effect[A], 0, len(reducers))
		for _, r := range reducers {
			effects = append(effects, r.Reduce(state, action))
		}
		return effect.Merge(effects...)
	})
}

// Cloner is implemented by states holding slices, maps or pointers, so that
// a snapshot never aliases the live state.
type Cloner[S any] interface {
	Clone() S
}

// Snapshot returns a copy of s that later mutations of s cannot reach.
// States that are plain values are copied by assignment.
func Snapshot[S any](s S) S {
	if c, ok := any(s).(Cloner[S]); ok {
		return c.Clone()
	}
	return s
}
