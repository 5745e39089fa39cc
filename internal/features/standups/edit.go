package standups

import (
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/ident"
	"github.com/roach88/tca/internal/reducer"
)

// Field is a focusable form field.
type Field string

const (
	FieldTitle    Field = "title"
	FieldAttendee Field = "attendee"
)

// Focus is the focused field. The zero value focuses nothing.
type Focus struct {
	Field    Field     `json:"field,omitempty"`
	Attendee uuid.UUID `json:"attendee"`
}

// TitleFocus focuses the title field.
func TitleFocus() Focus { return Focus{Field: FieldTitle} }

// AttendeeFocus focuses the name field of attendee id.
func AttendeeFocus(id uuid.UUID) Focus { return Focus{Field: FieldAttendee, Attendee: id} }

// EditState is the standup form. Its attendee list is never empty: a
// blank attendee stands in when the last one is removed.
type EditState struct {
	Focus   Focus   `json:"focus"`
	Standup Standup `json:"standup"`
}

// Clone copies the standup being edited.
func (s EditState) Clone() EditState {
	s.Standup = s.Standup.Clone()
	return s
}

// NewEdit opens standup in the form with the title focused.
func NewEdit(standup Standup, ids ident.Generator) EditState {
	s := EditState{Focus: TitleFocus(), Standup: standup.Clone()}
	if len(s.Standup.Attendees) == 0 {
		s.Standup.Attendees = []Attendee{{ID: ids()}}
	}
	return s
}

// EditAction is a form action.
type EditAction interface{ isEditAction() }

type (
	AddAttendeeTapped struct{}

	TitleChanged struct {
		Title string `json:"title"`
	}
	MinutesChanged struct {
		Minutes int `json:"minutes"`
	}
	ThemeChanged struct {
		Theme Theme `json:"theme"`
	}
	AttendeeNameChanged struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	FocusChanged struct {
		Focus Focus `json:"focus"`
	}

	// DeleteAttendees removes the attendees at the given offsets.
	DeleteAttendees struct {
		Offsets []int `json:"offsets"`
	}
)

func (AddAttendeeTapped) isEditAction()   {}
func (TitleChanged) isEditAction()        {}
func (MinutesChanged) isEditAction()      {}
func (ThemeChanged) isEditAction()        {}
func (AttendeeNameChanged) isEditAction() {}
func (FocusChanged) isEditAction()        {}
func (DeleteAttendees) isEditAction()     {}

// EditActions encodes form actions.
var EditActions = codec.NewRegistry[EditAction](
	AddAttendeeTapped{},
	TitleChanged{},
	MinutesChanged{},
	ThemeChanged{},
	AttendeeNameChanged{},
	FocusChanged{},
	DeleteAttendees{},
)

// NewEditReducer returns the form reducer. New attendees take their ids
// from ids.
func NewEditReducer(ids ident.Generator) reducer.Reducer[EditState, EditAction] {
	return reducer.WithEnvironment(reducer.EnvFunc[EditState, EditAction, ident.Generator](reduceEdit), ids)
}

func reduceEdit(s *EditState, a EditAction, ids ident.Generator) effect.Effect[EditAction] {
	switch a := a.(type) {
	case TitleChanged:
		s.Standup.Title = a.Title

	case MinutesChanged:
		s.Standup.Minutes = min(max(a.Minutes, MinMinutes), MaxMinutes)

	case ThemeChanged:
		reducer.Precondition(slices.Contains(Themes, a.Theme), "unknown theme %q", a.Theme)
		s.Standup.Theme = a.Theme

	case AttendeeNameChanged:
		i := s.Standup.attendeeIndex(a.ID)
		reducer.Precondition(i >= 0, "attendee %s is not in the form", a.ID)
		s.Standup.Attendees[i].Name = a.Name

	case FocusChanged:
		if a.Focus.Field == FieldAttendee {
			reducer.Precondition(s.Standup.attendeeIndex(a.Focus.Attendee) >= 0,
				"focus on attendee %s that is not in the form", a.Focus.Attendee)
		}
		s.Focus = a.Focus

	case AddAttendeeTapped:
		attendee := Attendee{ID: ids()}
		s.Standup.Attendees = append(s.Standup.Attendees, attendee)
		s.Focus = AttendeeFocus(attendee.ID)

	case DeleteAttendees:
		s.deleteAttendees(a.Offsets, ids)
	}
	return effect.None[EditAction]()
}

// deleteAttendees removes the attendees at offsets and focuses the one now
// nearest the first removed offset.
func (s *EditState) deleteAttendees(offsets []int, ids ident.Generator) {
	reducer.Precondition(len(offsets) > 0, "delete with no attendee offsets")
	offsets = slices.Compact(slices.Sorted(slices.Values(offsets)))
	n := len(s.Standup.Attendees)
	reducer.Precondition(offsets[0] >= 0 && offsets[len(offsets)-1] < n,
		"attendee offsets %v out of range for %d attendees", offsets, n)

	for _, i := range slices.Backward(offsets) {
		s.Standup.Attendees = slices.Delete(s.Standup.Attendees, i, i+1)
	}
	if len(s.Standup.Attendees) == 0 {
		s.Standup.Attendees = append(s.Standup.Attendees, Attendee{ID: ids()})
	}
	next := min(offsets[0], len(s.Standup.Attendees)-1)
	s.Focus = AttendeeFocus(s.Standup.Attendees[next].ID)
}
