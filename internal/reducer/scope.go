package reducer

import (
	"github.com/roach88/tca/internal/casepath"
	"github.com/roach88/tca/internal/effect"
)

// Scope runs child on the sub-state at state for actions matching action,
// and lifts the child's effects back into the parent action type. Other
// actions pass through untouched.
func Scope[S, A, CS, CA any](
	state casepath.KeyPath[S, CS],
	action casepath.CasePath[A, CA],
	child Reducer[CS, CA],
) Reducer[S, A] {
	return Func[S, A](func(s *S, a A) effect.Effect[A] {
		ca, ok := action.Extract(a)
		if !ok {
			return effect.None[A]()
		}
		var eff effect.Effect[CA]
		state.Modify(s, func(cs *CS) {
			eff = child.Reduce(cs, ca)
		})
		return effect.Map(eff, action.Embed)
	})
}

// IDAction addresses an action to one element of an identified collection.
type IDAction[ID comparable, A any] struct {
	ID     ID
	Action A
}

// ForEach runs element on the collection member whose id matches the
// action's. An action for an id that is not in the collection is a defect;
// it usually means an effect outlived the element it was started for and
// should have been cancelled.
func ForEach[S, A, E, EA any, ID comparable](
	elements casepath.KeyPath[S, []E],
	id func(E) ID,
	action casepath.CasePath[A, IDAction[ID, EA]],
	element Reducer[E, EA],
) Reducer[S, A] {
	return Func[S, A](func(s *S, a A) effect.Effect[A] {
		ia, ok := action.Extract(a)
		if !ok {
			return effect.None[A]()
		}
		var eff effect.Effect[EA]
		found := false
		elements.Modify(s, func(es *[]E) {
			for i := range *es {
				if id((*es)[i]) == ia.ID {
					found = true
					eff = element.Reduce(&(*es)[i], ia.Action)
					return
				}
			}
		})
		if !found {
			panic(&DefectError{
				Code:    ErrCodeUnknownElement,
				Message: "action sent for an element that is not in the collection",
				Action:  Label(ia.Action),
				Details: map[string]string{"id": formatID(ia.ID)},
			})
		}
		elemID := ia.ID
		return effect.Map(eff, func(ea EA) A {
			return action.Embed(IDAction[ID, EA]{ID: elemID, Action: ea})
		})
	})
}

// IfLet runs child on the optional sub-state at state while it is non-nil.
// An action for absent state is a defect.
func IfLet[S, A, CS, CA any](
	state casepath.KeyPath[S, *CS],
	action casepath.CasePath[A, CA],
	child Reducer[CS, CA],
) Reducer[S, A] {
	return Func[S, A](func(s *S, a A) effect.Effect[A] {
		ca, ok := action.Extract(a)
		if !ok {
			return effect.None[A]()
		}
		cur := state.Get(*s)
		if cur == nil {
			panic(&DefectError{
				Code:    ErrCodeStateAbsent,
				Message: "action sent while optional state is nil",
				Action:  Label(ca),
			})
		}
		next := *cur
		eff := child.Reduce(&next, ca)
		state.Set(s, &next)
		return effect.Map(eff, action.Embed)
	})
}

// IfCaseLet runs child on the enum sub-state at enum while it holds the
// variant focused by stateCase. An action arriving while the enum holds a
// different variant is a defect.
func IfCaseLet[S, A, W, CS, CA any](
	enum casepath.KeyPath[S, W],
	stateCase casepath.CasePath[W, CS],
	action casepath.CasePath[A, CA],
	child Reducer[CS, CA],
) Reducer[S, A] {
	return Func[S, A](func(s *S, a A) effect.Effect[A] {
		ca, ok := action.Extract(a)
		if !ok {
			return effect.None[A]()
		}
		w := enum.Get(*s)
		var eff effect.Effect[CA]
		matched := casepath.Modify(&w, stateCase, func(cs *CS) {
			eff = child.Reduce(cs, ca)
		})
		if !matched {
			panic(&DefectError{
				Code:    ErrCodeCaseMismatch,
				Message: "action sent while enum state holds a different case",
				Action:  Label(ca),
			})
		}
		enum.Set(s, w)
		return effect.Map(eff, action.Embed)
	})
}
