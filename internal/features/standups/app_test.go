package standups

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/ident"
	"github.com/roach88/tca/internal/reducer"
	"github.com/roach88/tca/internal/store"
	"github.com/roach88/tca/internal/teststore"
)

// Sample draws ids 0-4; the app under test draws from 5 on.
func newTestStore(t *testing.T) *teststore.TestStore[State, Action] {
	t.Helper()
	tc := clock.NewTestClock()
	ids := ident.Incrementing()
	initial := State{Standups: Sample(ids)}
	return teststore.New(t, initial, New(Environment{Clock: tc, UUID: ids}), teststore.WithClock(tc))
}

func updateScreen[P Path](t *testing.T, s *State, id reducer.StackID, fn func(*P)) {
	t.Helper()
	i := s.Path.Index(id)
	require.GreaterOrEqual(t, i, 0, "screen %d not on the path", id)
	p, ok := s.Path.Elements[i].Element.(P)
	require.True(t, ok, "screen %d is a %T", id, s.Path.Elements[i].Element)
	fn(&p)
	s.Path.Elements[i].Element = p
}

func detail(id reducer.StackID, a DetailAction) PathElement {
	return PathElement{ID: id, Action: Detail{Action: a}}
}

func record(id reducer.StackID, a RecordAction) PathElement {
	return PathElement{ID: id, Action: Record{Action: a}}
}

func TestApp_EditStandupFromDetail(t *testing.T) {
	ts := newTestStore(t)
	design := ts.State().Standups[0]

	ts.Send(StandupTapped{ID: design.ID}, func(s *State) {
		s.Path.Push(DetailScreen{Standup: design})
	})
	ts.Send(detail(0, EditTapped{}), func(s *State) {
		updateScreen(t, s, 0, func(d *DetailScreen) {
			edit := EditState{Focus: TitleFocus(), Standup: design.Clone()}
			d.Editing = &edit
		})
	})
	ts.Send(detail(0, Edit{Action: TitleChanged{Title: "Design Review"}}), func(s *State) {
		updateScreen(t, s, 0, func(d *DetailScreen) { d.Editing.Standup.Title = "Design Review" })
	})
	ts.Send(detail(0, Edit{Action: DeleteAttendees{Offsets: []int{0, 1}}}), func(s *State) {
		updateScreen(t, s, 0, func(d *DetailScreen) {
			d.Editing.Standup.Attendees = []Attendee{{ID: ident.Sequential(5)}}
			d.Editing.Focus = AttendeeFocus(ident.Sequential(5))
		})
	})
	ts.Send(detail(0, DoneEditingTapped{}), func(s *State) {
		saved := design.Clone()
		saved.Title = "Design Review"
		saved.Attendees = []Attendee{{ID: ident.Sequential(5)}}
		s.Standups[0] = saved
		updateScreen(t, s, 0, func(d *DetailScreen) {
			d.Standup = saved
			d.Editing = nil
		})
	})
	ts.Send(PathPopped{ID: 0}, func(s *State) { s.Path.PopFrom(0) })
}

func TestApp_CancelEditKeepsStandup(t *testing.T) {
	ts := newTestStore(t)
	design := ts.State().Standups[0]

	ts.Send(StandupTapped{ID: design.ID}, func(s *State) { s.Path.Push(DetailScreen{Standup: design}) })
	ts.Send(detail(0, EditTapped{}), func(s *State) {
		updateScreen(t, s, 0, func(d *DetailScreen) { d.Editing = &EditState{Focus: TitleFocus(), Standup: design.Clone()} })
	})
	ts.Send(detail(0, Edit{Action: MinutesChanged{Minutes: 20}}), func(s *State) {
		updateScreen(t, s, 0, func(d *DetailScreen) { d.Editing.Standup.Minutes = 20 })
	})
	ts.Send(detail(0, CancelEditTapped{}), func(s *State) {
		updateScreen(t, s, 0, func(d *DetailScreen) { d.Editing = nil })
	})
	assert.Equal(t, 1, ts.State().Standups[0].Minutes)
}

func TestApp_RecordMeeting(t *testing.T) {
	ts := newTestStore(t)
	design := ts.State().Standups[0]
	require.Equal(t, 30, design.TurnSeconds())

	ts.Send(StandupTapped{ID: design.ID}, func(s *State) { s.Path.Push(DetailScreen{Standup: design}) })
	ts.Send(detail(0, StartMeetingTapped{}), func(s *State) { s.Path.Push(RecordScreen{Standup: design}) })
	ts.Send(record(1, RecordAppeared{}), nil)

	for i := 1; i <= 30; i++ {
		ts.Advance(time.Second)
		ts.Receive(record(1, TimerTicked{}), func(s *State) {
			updateScreen(t, s, 1, func(r *RecordScreen) {
				r.SecondsElapsed = i
				if i == 30 {
					r.SpeakerIndex = 1
				}
			})
		})
	}

	ts.Send(record(1, TranscriptChanged{Transcript: "Shipped it"}), func(s *State) {
		updateScreen(t, s, 1, func(r *RecordScreen) { r.Transcript = "Shipped it" })
	})
	ts.Send(record(1, EndMeetingTapped{}), nil)

	meeting := Meeting{ID: ident.Sequential(5), Date: time.Unix(30, 0).UTC(), Transcript: "Shipped it"}
	ts.Receive(record(1, MeetingFinished{Transcript: "Shipped it"}), func(s *State) {
		s.Standups[0].Meetings = []Meeting{meeting}
		updateScreen(t, s, 0, func(d *DetailScreen) { d.Standup.Meetings = []Meeting{meeting} })
		s.Path.PopFrom(1)
	})

	ts.Send(detail(0, MeetingTapped{ID: meeting.ID}), func(s *State) {
		withMeeting := design.Clone()
		withMeeting.Meetings = []Meeting{meeting}
		s.Path.Push(MeetingScreen{Meeting: meeting, Standup: withMeeting})
	})
	assert.Equal(t, []reducer.StackID{0, 2}, ts.State().Path.IDs())

	ts.Send(detail(0, DeleteMeetings{Offsets: []int{0}}), func(s *State) {
		s.Standups[0].Meetings = []Meeting{}
		updateScreen(t, s, 0, func(d *DetailScreen) { d.Standup.Meetings = []Meeting{} })
	})
}

func TestApp_LastSpeakerEndsMeeting(t *testing.T) {
	ts := newTestStore(t)
	engineering := ts.State().Standups[1]

	ts.Send(StandupTapped{ID: engineering.ID}, func(s *State) { s.Path.Push(DetailScreen{Standup: engineering}) })
	ts.Send(detail(0, StartMeetingTapped{}), func(s *State) { s.Path.Push(RecordScreen{Standup: engineering}) })
	ts.Send(record(1, NextSpeakerTapped{}), nil)
	ts.Receive(record(1, MeetingFinished{}), func(s *State) {
		meeting := Meeting{ID: ident.Sequential(5), Date: time.Unix(0, 0).UTC()}
		s.Standups[1].Meetings = []Meeting{meeting}
		updateScreen(t, s, 0, func(d *DetailScreen) { d.Standup.Meetings = []Meeting{meeting} })
		s.Path.PopFrom(1)
	})
}

func TestApp_PoppingRecordStopsTimer(t *testing.T) {
	ts := newTestStore(t)
	design := ts.State().Standups[0]

	ts.Send(StandupTapped{ID: design.ID}, func(s *State) { s.Path.Push(DetailScreen{Standup: design}) })
	ts.Send(detail(0, StartMeetingTapped{}), func(s *State) { s.Path.Push(RecordScreen{Standup: design}) })
	ts.Send(record(1, RecordAppeared{}), nil)
	ts.Advance(time.Second)
	ts.Receive(record(1, TimerTicked{}), func(s *State) {
		updateScreen(t, s, 1, func(r *RecordScreen) { r.SecondsElapsed = 1 })
	})

	ts.Send(PathPopped{ID: 1}, func(s *State) { s.Path.PopFrom(1) })
	ts.Advance(5 * time.Second)
	assert.Equal(t, 0, ts.Store().InFlight())
}

func TestApp_DeleteStandupPopsDetail(t *testing.T) {
	ts := newTestStore(t)
	design := ts.State().Standups[0]

	ts.Send(StandupTapped{ID: design.ID}, func(s *State) { s.Path.Push(DetailScreen{Standup: design}) })
	ts.Send(detail(0, DeleteTapped{}), func(s *State) {
		s.Standups = slices.DeleteFunc(s.Standups, func(st Standup) bool { return st.ID == design.ID })
		s.Path.PopFrom(0)
	})
	require.Len(t, ts.State().Standups, 1)
	assert.Equal(t, "Engineering", ts.State().Standups[0].Title)
}

func TestApp_AddStandup(t *testing.T) {
	ts := newTestStore(t)
	added := Standup{
		ID:        ident.Sequential(5),
		Minutes:   DefaultMinutes,
		Theme:     ThemeBubblegum,
		Attendees: []Attendee{{ID: ident.Sequential(6)}},
		Meetings:  []Meeting{},
	}

	ts.Send(AddStandupTapped{}, func(s *State) {
		s.Adding = &EditState{Focus: TitleFocus(), Standup: added.Clone()}
	})
	ts.Send(AddForm{Action: TitleChanged{Title: "Retro"}}, func(s *State) { s.Adding.Standup.Title = "Retro" })
	ts.Send(AddForm{Action: AttendeeNameChanged{ID: ident.Sequential(6), Name: "Blob"}}, func(s *State) {
		s.Adding.Standup.Attendees[0].Name = "Blob"
	})
	ts.Send(ConfirmAddTapped{}, func(s *State) {
		added.Title = "Retro"
		added.Attendees = []Attendee{{ID: ident.Sequential(6), Name: "Blob"}}
		s.Standups = append(s.Standups, added)
		s.Adding = nil
	})

	ts.Send(AddStandupTapped{}, func(s *State) {
		s.Adding = &EditState{Focus: TitleFocus(), Standup: Standup{
			ID:        ident.Sequential(7),
			Minutes:   DefaultMinutes,
			Theme:     ThemeBubblegum,
			Attendees: []Attendee{{ID: ident.Sequential(8)}},
			Meetings:  []Meeting{},
		}}
	})
	ts.Send(DismissAddTapped{}, func(s *State) { s.Adding = nil })
}

func TestApp_Defects(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		code   reducer.DefectCode
	}{
		{"screen not on path", detail(7, EditTapped{}), reducer.ErrCodeUnknownElement},
		{"record action on detail", record(0, TimerTicked{}), reducer.ErrCodeCaseMismatch},
		{"edit without form", detail(0, Edit{Action: TitleChanged{Title: "x"}}), reducer.ErrCodeStateAbsent},
		{"done without form", detail(0, DoneEditingTapped{}), reducer.ErrCodePrecondition},
		{"pop unknown screen", PathPopped{ID: 7}, reducer.ErrCodePrecondition},
		{"unknown standup", StandupTapped{ID: ident.Sequential(99)}, reducer.ErrCodePrecondition},
		{"unknown meeting", detail(0, MeetingTapped{ID: ident.Sequential(99)}), reducer.ErrCodePrecondition},
		{"confirm without form", ConfirmAddTapped{}, reducer.ErrCodePrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := ident.Incrementing()
			initial := State{Standups: Sample(ids)}
			initial.Path.Push(DetailScreen{Standup: initial.Standups[0].Clone()})
			var defects []error
			s := store.New(initial, New(Environment{Clock: clock.NewTestClock(), UUID: ids}),
				store.WithDefectHandler(func(err error) { defects = append(defects, err) }))
			defer s.Close()

			s.Send(tt.action)
			require.Len(t, defects, 1)
			assert.Equal(t, tt.code, reducer.DefectCodeOf(defects[0]))
			assert.Equal(t, initial, s.State())
		})
	}
}

func TestState_JSONWithPath(t *testing.T) {
	ids := ident.Incrementing()
	s := State{Standups: Sample(ids)}
	s.Path.Push(DetailScreen{Standup: s.Standups[0].Clone()})
	s.Path.Push(RecordScreen{Standup: s.Standups[0].Clone(), SecondsElapsed: 12})
	s.Path.Pop()
	s.Path.Push(MeetingScreen{Meeting: Meeting{ID: ids(), Date: time.Unix(60, 0).UTC()}, Standup: s.Standups[0].Clone()})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"next_id":3`)
	assert.Contains(t, string(data), `"type":"MeetingScreen"`)

	var got State
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s, got)
}

func TestActions_NestedJSON(t *testing.T) {
	a := detail(2, Edit{Action: DeleteAttendees{Offsets: []int{1}}})

	data, err := Actions.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"PathElement","payload":{"id":2,"action":{"type":"Detail","payload":{"action":{"type":"Edit","payload":{"action":{"type":"DeleteAttendees","payload":{"offsets":[1]}}}}}}}}`,
		string(data))

	got, err := Actions.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, Action(a), got)
}
