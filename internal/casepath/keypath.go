package casepath

// KeyPath focuses on a field V inside a root R.
type KeyPath[R, V any] struct {
	get func(R) V
	set func(*R, V)
}

// Key builds a KeyPath from a getter and setter.
//
//	count := casepath.Key(
//	    func(s State) int { return s.Count },
//	    func(s *State, v int) { s.Count = v },
//	)
func Key[R, V any](get func(R) V, set func(*R, V)) KeyPath[R, V] {
	return KeyPath[R, V]{get: get, set: set}
}

// Get reads the field.
func (k KeyPath[R, V]) Get(r R) V {
	return k.get(r)
}

// Set writes the field.
func (k KeyPath[R, V]) Set(r *R, v V) {
	k.set(r, v)
}

// Modify applies fn to the field in place.
func (k KeyPath[R, V]) Modify(r *R, fn func(*V)) {
	v := k.get(*r)
	fn(&v)
	k.set(r, v)
}

// AppendKey composes two KeyPaths.
func AppendKey[R, V, W any](outer KeyPath[R, V], inner KeyPath[V, W]) KeyPath[R, W] {
	return KeyPath[R, W]{
		get: func(r R) W {
			return inner.Get(outer.Get(r))
		},
		set: func(r *R, w W) {
			outer.Modify(r, func(v *V) { inner.Set(v, w) })
		},
	}
}
