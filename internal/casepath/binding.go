package casepath

// Binding is a read/write view onto a value owned elsewhere.
type Binding[V any] struct {
	get func() V
	set func(V)
}

// Bind builds a Binding from a getter and setter.
func Bind[V any](get func() V, set func(V)) Binding[V] {
	return Binding[V]{get: get, set: set}
}

// Variable returns a Binding over the variable at p.
func Variable[V any](p *V) Binding[V] {
	return Binding[V]{
		get: func() V { return *p },
		set: func(v V) { *p = v },
	}
}

// Get reads the current value.
func (b Binding[V]) Get() V {
	return b.get()
}

// Set writes a new value.
func (b Binding[V]) Set(v V) {
	b.set(v)
}

// Field projects a Binding onto a field through a KeyPath.
func Field[R, V any](b Binding[R], k KeyPath[R, V]) Binding[V] {
	return Binding[V]{
		get: func() V { return k.Get(b.Get()) },
		set: func(v V) {
			r := b.Get()
			k.Set(&r, v)
			b.Set(r)
		},
	}
}

// Matching projects a Binding onto one variant of a sum type.
//
// Returns false when the whole currently holds a different variant. The
// returned Binding reads the variant captured at projection time and
// writes by embedding into the whole.
func Matching[W, C any](b Binding[W], p CasePath[W, C]) (Binding[C], bool) {
	c, ok := p.Extract(b.Get())
	if !ok {
		return Binding[C]{}, false
	}
	return Binding[C]{
		get: func() C { return c },
		set: func(next C) {
			c = next
			b.Set(p.Embed(next))
		},
	}, true
}

// Unwrap projects a Binding over an optional (pointer) value onto the
// pointee. Returns false when the pointer is nil. Writes replace the
// pointer with a fresh copy so the previous value is never aliased.
func Unwrap[V any](b Binding[*V]) (Binding[V], bool) {
	p := b.Get()
	if p == nil {
		return Binding[V]{}, false
	}
	v := *p
	return Binding[V]{
		get: func() V { return v },
		set: func(next V) {
			v = next
			cp := next
			b.Set(&cp)
		},
	}, true
}
