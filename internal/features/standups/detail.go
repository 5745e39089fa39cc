package standups

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/casepath"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/ident"
	"github.com/roach88/tca/internal/reducer"
)

// DetailScreen shows one standup and, while Editing is set, its edit form.
type DetailScreen struct {
	Standup Standup    `json:"standup"`
	Editing *EditState `json:"editing,omitempty"`
}

// DetailAction is a detail screen action.
type DetailAction interface{ isDetailAction() }

type (
	EditTapped         struct{}
	CancelEditTapped   struct{}
	DoneEditingTapped  struct{}
	StartMeetingTapped struct{}
	DeleteTapped       struct{}

	MeetingTapped struct {
		ID uuid.UUID `json:"id"`
	}
	DeleteMeetings struct {
		Offsets []int `json:"offsets"`
	}

	// Edit forwards a form action to the open edit form.
	Edit struct {
		Action EditAction
	}
)

func (EditTapped) isDetailAction()         {}
func (CancelEditTapped) isDetailAction()   {}
func (DoneEditingTapped) isDetailAction()  {}
func (StartMeetingTapped) isDetailAction() {}
func (DeleteTapped) isDetailAction()       {}
func (MeetingTapped) isDetailAction()      {}
func (DeleteMeetings) isDetailAction()     {}
func (Edit) isDetailAction()               {}

// DetailActions encodes detail actions.
var DetailActions = codec.NewRegistry[DetailAction](
	EditTapped{},
	CancelEditTapped{},
	DoneEditingTapped{},
	StartMeetingTapped{},
	DeleteTapped{},
	MeetingTapped{},
	DeleteMeetings{},
	Edit{},
)

type nestedJSON struct {
	Action codec.Envelope `json:"action"`
}

func (e Edit) MarshalJSON() ([]byte, error) {
	env, err := EditActions.Encode(e.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nestedJSON{Action: env})
}

func (e *Edit) UnmarshalJSON(data []byte) error {
	var raw nestedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := EditActions.Decode(raw.Action)
	if err != nil {
		return err
	}
	e.Action = a
	return nil
}

var (
	editingKey = casepath.Key(
		func(s DetailScreen) *EditState { return s.Editing },
		func(s *DetailScreen, v *EditState) { s.Editing = v },
	)
	editCase = casepath.New(
		func(a DetailAction) (EditAction, bool) {
			e, ok := a.(Edit)
			return e.Action, ok
		},
		func(ea EditAction) DetailAction { return Edit{Action: ea} },
	)
)

// NewDetailReducer returns the detail screen reducer. StartMeetingTapped,
// MeetingTapped and DeleteTapped navigate, so the app reducer handles them.
func NewDetailReducer(ids ident.Generator) reducer.Reducer[DetailScreen, DetailAction] {
	return reducer.Combine(
		reducer.IfLet(editingKey, editCase, NewEditReducer(ids)),
		reducer.WithEnvironment(reducer.EnvFunc[DetailScreen, DetailAction, ident.Generator](reduceDetail), ids),
	)
}

func reduceDetail(s *DetailScreen, a DetailAction, ids ident.Generator) effect.Effect[DetailAction] {
	switch a := a.(type) {
	case EditTapped:
		edit := NewEdit(s.Standup, ids)
		s.Editing = &edit

	case CancelEditTapped:
		s.Editing = nil

	case DoneEditingTapped:
		reducer.Precondition(s.Editing != nil, "done editing without an open form")
		s.Standup = s.Editing.Standup.Clone()
		s.Editing = nil

	case DeleteMeetings:
		reducer.Precondition(len(a.Offsets) > 0, "delete with no meeting offsets")
		offsets := slices.Compact(slices.Sorted(slices.Values(a.Offsets)))
		reducer.Precondition(offsets[0] >= 0 && offsets[len(offsets)-1] < len(s.Standup.Meetings),
			"meeting offsets %v out of range for %d meetings", offsets, len(s.Standup.Meetings))
		for _, i := range slices.Backward(offsets) {
			s.Standup.Meetings = slices.Delete(s.Standup.Meetings, i, i+1)
		}

	case MeetingTapped:
		reducer.Precondition(slices.ContainsFunc(s.Standup.Meetings, func(m Meeting) bool { return m.ID == a.ID }),
			"meeting %s is not in the standup", a.ID)
	}
	return effect.None[DetailAction]()
}

// MeetingScreen shows the notes of a past meeting.
type MeetingScreen struct {
	Meeting Meeting `json:"meeting"`
	Standup Standup `json:"standup"`
}
