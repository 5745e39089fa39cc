package reducer

import (
	"slices"

	"github.com/roach88/tca/internal/casepath"
	"github.com/roach88/tca/internal/effect"
)

// StackID identifies an element of a Stack. Ids grow with every push and
// are never reused, so an id names one pushed screen for its lifetime.
type StackID int

// StackElement is one entry of a Stack.
type StackElement[E any] struct {
	ID      StackID `json:"id"`
	Element E       `json:"element"`
}

// Stack is a navigation path: an ordered list of elements, last on top.
type Stack[E any] struct {
	Elements []StackElement[E] `json:"elements"`
	NextID   StackID           `json:"next_id"`
}

// Push appends e and returns its id.
func (s *Stack[E]) Push(e E) StackID {
	id := s.NextID
	s.NextID++
	s.Elements = append(s.Elements, StackElement[E]{ID: id, Element: e})
	return id
}

// Pop removes the top element. It reports false on an empty stack.
func (s *Stack[E]) Pop() bool {
	if len(s.Elements) == 0 {
		return false
	}
	s.Elements = s.Elements[:len(s.Elements)-1]
	return true
}

// PopFrom removes the element with id and everything above it.
func (s *Stack[E]) PopFrom(id StackID) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.Elements = s.Elements[:i]
	return true
}

// PopTo removes everything above the element with id.
func (s *Stack[E]) PopTo(id StackID) bool {
	i := s.Index(id)
	if i < 0 {
		return false
	}
	s.Elements = s.Elements[:i+1]
	return true
}

// Len returns the number of elements.
func (s Stack[E]) Len() int { return len(s.Elements) }

// Index returns the position of id, or -1.
func (s Stack[E]) Index(id StackID) int {
	return slices.IndexFunc(s.Elements, func(e StackElement[E]) bool { return e.ID == id })
}

// Top returns the top element.
func (s Stack[E]) Top() (StackElement[E], bool) {
	if len(s.Elements) == 0 {
		return StackElement[E]{}, false
	}
	return s.Elements[len(s.Elements)-1], true
}

// IDs returns the element ids, bottom first.
func (s Stack[E]) IDs() []StackID {
	ids := make([]StackID, len(s.Elements))
	for i, e := range s.Elements {
		ids[i] = e.ID
	}
	return ids
}

// Clone copies the stack and snapshots each element.
func (s Stack[E]) Clone() Stack[E] {
	if s.Elements == nil {
		return s
	}
	elems := make([]StackElement[E], len(s.Elements))
	for i, e := range s.Elements {
		elems[i] = StackElement[E]{ID: e.ID, Element: Snapshot(e.Element)}
	}
	s.Elements = elems
	return s
}

type stackGroup struct {
	stack *byte
	id    StackID
}

// ForEachStack runs element on the stack entry an action addresses, then
// parent. Effects started by an entry are grouped under its id and
// cancelled when the entry leaves the stack, so nothing is delivered to a
// popped screen. An action for an id that is not on the stack is a defect.
func ForEachStack[S, A, E, EA any](
	parent Reducer[S, A],
	stack casepath.KeyPath[S, Stack[E]],
	action casepath.CasePath[A, IDAction[StackID, EA]],
	element Reducer[E, EA],
) Reducer[S, A] {
	token := new(byte)
	return Func[S, A](func(s *S, a A) effect.Effect[A] {
		before := stack.Get(*s).IDs()

		elemEff := effect.None[A]()
		if ia, ok := action.Extract(a); ok {
			var eff effect.Effect[EA]
			found := false
			stack.Modify(s, func(st *Stack[E]) {
				if i := st.Index(ia.ID); i >= 0 {
					found = true
					eff = element.Reduce(&st.Elements[i].Element, ia.Action)
				}
			})
			if !found {
				panic(&DefectError{
					Code:    ErrCodeUnknownElement,
					Message: "action sent for a stack element that is not on the stack",
					Action:  Label(ia.Action),
					Details: map[string]string{"id": formatID(ia.ID)},
				})
			}
			elemID := ia.ID
			elemEff = effect.Map(eff, func(ea EA) A {
				return action.Embed(IDAction[StackID, EA]{ID: elemID, Action: ea})
			}).Grouped(stackGroup{token, elemID})
		}

		effects := []effect.Effect[A]{elemEff, parent.Reduce(s, a)}
		after := stack.Get(*s)
		for _, id := range before {
			if after.Index(id) < 0 {
				effects = append(effects, effect.CancelGroup[A](stackGroup{token, id}))
			}
		}
		return effect.Merge(effects...)
	})
}
