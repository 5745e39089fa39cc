package casepath

// CasePath focuses on one variant C of a sum type W.
type CasePath[W, C any] struct {
	extract func(W) (C, bool)
	embed   func(C) W
}

// New builds a CasePath from an extract/embed pair.
func New[W, C any](extract func(W) (C, bool), embed func(C) W) CasePath[W, C] {
	return CasePath[W, C]{extract: extract, embed: embed}
}

// Case builds a CasePath for sealed-interface unions where the variant is a
// concrete type implementing W. This covers the common Go encoding of a
// tagged union:
//
//	type Action interface{ isAction() }
//	type Tapped struct{}
//	func (Tapped) isAction() {}
//
//	tapped := casepath.Case[Action, Tapped]()
func Case[W any, C any]() CasePath[W, C] {
	return CasePath[W, C]{
		extract: func(w W) (C, bool) {
			c, ok := any(w).(C)
			return c, ok
		},
		embed: func(c C) W {
			return any(c).(W)
		},
	}
}

// Extract returns the variant if w currently holds it.
func (p CasePath[W, C]) Extract(w W) (C, bool) {
	return p.extract(w)
}

// Embed wraps a variant back into the whole.
func (p CasePath[W, C]) Embed(c C) W {
	return p.embed(c)
}

// Is reports whether w currently holds the variant.
func (p CasePath[W, C]) Is(w W) bool {
	_, ok := p.extract(w)
	return ok
}

// Modify edits the variant held by *w in place.
// Returns false, leaving *w untouched, when *w holds a different variant.
func Modify[W, C any](w *W, p CasePath[W, C], fn func(*C)) bool {
	c, ok := p.Extract(*w)
	if !ok {
		return false
	}
	fn(&c)
	*w = p.Embed(c)
	return true
}

// AppendCase composes a CasePath into a nested variant.
func AppendCase[W, C, D any](outer CasePath[W, C], inner CasePath[C, D]) CasePath[W, D] {
	return CasePath[W, D]{
		extract: func(w W) (D, bool) {
			c, ok := outer.Extract(w)
			if !ok {
				var zero D
				return zero, false
			}
			return inner.Extract(c)
		},
		embed: func(d D) W {
			return outer.Embed(inner.Embed(d))
		},
	}
}
