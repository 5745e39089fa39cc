// Package todos is a todo list with filtering, reordering, and completed
// items sinking to the bottom shortly after they are checked off.
package todos

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/casepath"
	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/ident"
	"github.com/roach88/tca/internal/reducer"
)

// Filter selects which todos are shown.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// State is the todo list screen.
type State struct {
	IsEditing bool   `json:"is_editing"`
	Filter    Filter `json:"filter"`
	Todos     []Todo `json:"todos"`
}

// Clone copies the todo slice.
func (s State) Clone() State {
	s.Todos = slices.Clone(s.Todos)
	return s
}

// FilteredTodos returns the todos the current filter shows.
func (s State) FilteredTodos() []Todo {
	switch s.Filter {
	case FilterActive:
		return filter(s.Todos, func(t Todo) bool { return !t.IsComplete })
	case FilterCompleted:
		return filter(s.Todos, func(t Todo) bool { return t.IsComplete })
	default:
		return slices.Clone(s.Todos)
	}
}

// CanClearCompleted reports whether any todo is complete.
func (s State) CanClearCompleted() bool {
	return slices.ContainsFunc(s.Todos, func(t Todo) bool { return t.IsComplete })
}

func filter(todos []Todo, keep func(Todo) bool) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Action is a list action.
type Action interface{ isAction() }

type (
	AddTodoTapped        struct{}
	ClearCompletedTapped struct{}
	SortCompletedTodos   struct{}

	Delete struct {
		Offsets []int `json:"offsets"`
	}
	EditModeChanged struct {
		IsEditing bool `json:"is_editing"`
	}
	FilterPicked struct {
		Filter Filter `json:"filter"`
	}
	Move struct {
		Offsets     []int `json:"offsets"`
		Destination int   `json:"destination"`
	}
)

func (AddTodoTapped) isAction()        {}
func (ClearCompletedTapped) isAction() {}
func (SortCompletedTodos) isAction()   {}
func (Delete) isAction()               {}
func (EditModeChanged) isAction()      {}
func (FilterPicked) isAction()         {}
func (Move) isAction()                 {}

// Actions encodes list actions.
var Actions = codec.NewRegistry[Action](
	AddTodoTapped{},
	ClearCompletedTapped{},
	SortCompletedTodos{},
	Delete{},
	EditModeChanged{},
	FilterPicked{},
	Move{},
	Row{},
)

// Environment holds the list's dependencies.
type Environment struct {
	Clock clock.Clock
	UUID  ident.Generator
}

const (
	// SortDelay is the pause after a move before completed todos re-sort.
	SortDelay = 100 * time.Millisecond

	// CompletionDebounce is how long checkbox toggles settle before sorting.
	CompletionDebounce = time.Second
)

type completionID struct{}

var (
	todosKey = casepath.Key(
		func(s State) []Todo { return s.Todos },
		func(s *State, v []Todo) { s.Todos = v },
	)
	rowCase = casepath.New(
		func(a Action) (reducer.IDAction[uuid.UUID, TodoAction], bool) {
			r, ok := a.(Row)
			return reducer.IDAction[uuid.UUID, TodoAction]{ID: r.ID, Action: r.Action}, ok
		},
		func(ia reducer.IDAction[uuid.UUID, TodoAction]) Action {
			return Row{ID: ia.ID, Action: ia.Action}
		},
	)
)

// New returns the list reducer, including per-row editing.
func New(env Environment) reducer.Reducer[State, Action] {
	return reducer.Combine(
		reducer.WithEnvironment(reducer.EnvFunc[State, Action, Environment](reduce), env),
		reducer.ForEach(todosKey, func(t Todo) uuid.UUID { return t.ID }, rowCase, reducer.Reducer[Todo, TodoAction](TodoReducer)),
	)
}

func reduce(s *State, a Action, env Environment) effect.Effect[Action] {
	switch a := a.(type) {
	case AddTodoTapped:
		s.Todos = slices.Insert(s.Todos, 0, Todo{ID: env.UUID()})

	case ClearCompletedTapped:
		s.Todos = slices.DeleteFunc(s.Todos, func(t Todo) bool { return t.IsComplete })

	case Delete:
		s.Todos = removeOffsets(s.Todos, a.Offsets)

	case EditModeChanged:
		s.IsEditing = a.IsEditing

	case FilterPicked:
		s.Filter = a.Filter

	case Move:
		s.Todos = moveOffsets(s.Todos, a.Offsets, a.Destination)
		return effect.Send[Action](SortCompletedTodos{}).Delay(SortDelay, env.Clock)

	case SortCompletedTodos:
		slices.SortStableFunc(s.Todos, func(l, r Todo) int {
			switch {
			case l.IsComplete == r.IsComplete:
				return 0
			case r.IsComplete:
				return -1
			default:
				return 1
			}
		})

	case Row:
		if _, ok := a.Action.(CheckBoxToggled); ok {
			return effect.Send[Action](SortCompletedTodos{}).Debounce(completionID{}, CompletionDebounce, env.Clock)
		}
	}
	return effect.None[Action]()
}

func checkOffsets(n int, offsets []int) {
	for _, o := range offsets {
		reducer.Precondition(o >= 0 && o < n, "offset %d out of range for %d todos", o, n)
	}
}

// removeOffsets deletes the elements at offsets.
func removeOffsets(todos []Todo, offsets []int) []Todo {
	checkOffsets(len(todos), offsets)
	drop := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		drop[o] = true
	}
	out := todos[:0]
	for i, t := range todos {
		if !drop[i] {
			out = append(out, t)
		}
	}
	return out
}

// moveOffsets moves the elements at offsets so they sit, in their original
// order, just before the element that was at destination.
func moveOffsets(todos []Todo, offsets []int, destination int) []Todo {
	checkOffsets(len(todos), offsets)
	reducer.Precondition(destination >= 0 && destination <= len(todos),
		"destination %d out of range for %d todos", destination, len(todos))

	moving := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		moving[o] = true
	}
	var moved, rest []Todo
	insertAt := 0
	for i, t := range todos {
		if moving[i] {
			moved = append(moved, t)
			continue
		}
		if i < destination {
			insertAt++
		}
		rest = append(rest, t)
	}
	return slices.Insert(rest, insertAt, moved...)
}
