package todos

import (
	"encoding/json"

	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/reducer"
)

// Step is a stage of the onboarding tour. The empty step means the tour is
// over.
type Step string

const (
	StepActions Step = "actions"
	StepFilters Step = "filters"
	StepTodos   Step = "todos"
	StepDone    Step = ""
)

// Next returns the following step, StepDone after the last.
func (s Step) Next() Step {
	switch s {
	case StepActions:
		return StepFilters
	case StepFilters:
		return StepTodos
	default:
		return StepDone
	}
}

// Previous returns the preceding step. The first step stays put.
func (s Step) Previous() Step {
	switch s {
	case StepFilters:
		return StepActions
	case StepTodos:
		return StepFilters
	default:
		return s
	}
}

// OnboardingState runs the tour over placeholder todos. Only the actions
// the current step teaches reach the placeholder list.
type OnboardingState struct {
	Placeholder State `json:"placeholder"`
	Step        Step  `json:"step"`
}

// Clone copies the placeholder list.
func (s OnboardingState) Clone() OnboardingState {
	s.Placeholder = s.Placeholder.Clone()
	return s
}

// OnboardingAction is a tour action.
type OnboardingAction interface{ isOnboardingAction() }

type (
	PreviousTapped struct{}
	NextTapped     struct{}
	SkipTapped     struct{}

	// Placeholder forwards a list action to the placeholder todos.
	Placeholder struct {
		Action Action
	}
)

func (PreviousTapped) isOnboardingAction() {}
func (NextTapped) isOnboardingAction()     {}
func (SkipTapped) isOnboardingAction()     {}
func (Placeholder) isOnboardingAction()    {}

// OnboardingActions encodes tour actions.
var OnboardingActions = codec.NewRegistry[OnboardingAction](
	PreviousTapped{},
	NextTapped{},
	SkipTapped{},
	Placeholder{},
)

type placeholderJSON struct {
	Action codec.Envelope `json:"action"`
}

// MarshalJSON keeps the list action's type tag.
func (p Placeholder) MarshalJSON() ([]byte, error) {
	env, err := Actions.Encode(p.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(placeholderJSON{Action: env})
}

// UnmarshalJSON decodes a tagged list action.
func (p *Placeholder) UnmarshalJSON(data []byte) error {
	var raw placeholderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := Actions.Decode(raw.Action)
	if err != nil {
		return err
	}
	p.Action = a
	return nil
}

// NewOnboarding returns the tour reducer. The list reducer runs on the
// placeholder only for filter changes during the filters step and for
// checkbox toggles and sorting during the todos step.
func NewOnboarding(env Environment) reducer.Reducer[OnboardingState, OnboardingAction] {
	list := New(env)
	return reducer.Func[OnboardingState, OnboardingAction](func(s *OnboardingState, a OnboardingAction) effect.Effect[OnboardingAction] {
		switch a := a.(type) {
		case PreviousTapped:
			s.Step = s.Step.Previous()
		case NextTapped:
			s.Step = s.Step.Next()
		case SkipTapped:
			s.Step = StepDone
		case Placeholder:
			if !teaches(s.Step, a.Action) {
				return effect.None[OnboardingAction]()
			}
			eff := list.Reduce(&s.Placeholder, a.Action)
			return effect.Map(eff, func(la Action) OnboardingAction { return Placeholder{Action: la} })
		}
		return effect.None[OnboardingAction]()
	})
}

func teaches(step Step, a Action) bool {
	switch a := a.(type) {
	case FilterPicked:
		return step == StepFilters
	case SortCompletedTodos:
		return step == StepTodos
	case Row:
		_, ok := a.Action.(CheckBoxToggled)
		return ok && step == StepTodos
	}
	return false
}
