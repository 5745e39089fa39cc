// Package standups manages recurring meetings: a list of standups, a
// detail screen with an edit form, past meeting notes, and a recording
// screen that times each attendee's turn. Screens are pushed on a
// navigation path.
package standups

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/ident"
)

// Theme is a standup's color scheme.
type Theme string

const (
	ThemeBubblegum  Theme = "bubblegum"
	ThemeButtercup  Theme = "buttercup"
	ThemeIndigo     Theme = "indigo"
	ThemeLavender   Theme = "lavender"
	ThemeOrange     Theme = "orange"
	ThemePeriwinkle Theme = "periwinkle"
	ThemeSeafoam    Theme = "seafoam"
)

// Themes lists every theme in picker order.
var Themes = []Theme{
	ThemeBubblegum, ThemeButtercup, ThemeIndigo, ThemeLavender,
	ThemeOrange, ThemePeriwinkle, ThemeSeafoam,
}

// Meeting length bounds, in minutes.
const (
	MinMinutes = 1
	MaxMinutes = 30
)

// Attendee is one participant.
type Attendee struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Meeting is a finished recording.
type Meeting struct {
	ID         uuid.UUID `json:"id"`
	Date       time.Time `json:"date"`
	Transcript string    `json:"transcript"`
}

// Standup is one recurring meeting.
type Standup struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Minutes   int        `json:"minutes"`
	Theme     Theme      `json:"theme"`
	Attendees []Attendee `json:"attendees"`
	Meetings  []Meeting  `json:"meetings"`
}

// Clone copies the attendee and meeting lists.
func (s Standup) Clone() Standup {
	s.Attendees = slices.Clone(s.Attendees)
	s.Meetings = slices.Clone(s.Meetings)
	return s
}

// Duration is the total meeting length.
func (s Standup) Duration() time.Duration {
	return time.Duration(s.Minutes) * time.Minute
}

// TurnSeconds is each attendee's share of the meeting.
func (s Standup) TurnSeconds() int {
	if len(s.Attendees) == 0 {
		return int(s.Duration() / time.Second)
	}
	return int(s.Duration()/time.Second) / len(s.Attendees)
}

func (s Standup) attendeeIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.Attendees, func(a Attendee) bool { return a.ID == id })
}

// Sample is a starting standup list for offline runs.
func Sample(ids ident.Generator) []Standup {
	return []Standup{
		{
			ID:      ids(),
			Title:   "Design",
			Minutes: 1,
			Theme:   ThemeOrange,
			Attendees: []Attendee{
				{ID: ids(), Name: "Blob"},
				{ID: ids(), Name: "Blob Jr"},
			},
			Meetings: []Meeting{},
		},
		{
			ID:      ids(),
			Title:   "Engineering",
			Minutes: 5,
			Theme:   ThemeIndigo,
			Attendees: []Attendee{
				{ID: ids(), Name: "Blob Sr"},
			},
			Meetings: []Meeting{},
		},
	}
}
