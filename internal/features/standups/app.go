package standups

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/casepath"
	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/ident"
	"github.com/roach88/tca/internal/reducer"
)

// Path is a screen pushed on the navigation path.
type Path interface{ isPath() }

func (DetailScreen) isPath()  {}
func (MeetingScreen) isPath() {}
func (RecordScreen) isPath()  {}

// Clone copies the standup and the open form.
func (d DetailScreen) Clone() Path {
	d.Standup = d.Standup.Clone()
	if d.Editing != nil {
		e := d.Editing.Clone()
		d.Editing = &e
	}
	return d
}

// Clone copies the standup.
func (m MeetingScreen) Clone() Path {
	m.Standup = m.Standup.Clone()
	return m
}

// Clone copies the standup.
func (r RecordScreen) Clone() Path {
	r.Standup = r.Standup.Clone()
	return r
}

// Paths encodes path screens.
var Paths = codec.NewRegistry[Path](DetailScreen{}, MeetingScreen{}, RecordScreen{})

// State is the standups app: the list, the screens pushed over it, and the
// add form when it is open.
type State struct {
	Standups []Standup
	Path     reducer.Stack[Path]
	Adding   *EditState
}

// Clone copies the list, the path and the add form.
func (s State) Clone() State {
	standups := make([]Standup, len(s.Standups))
	for i, st := range s.Standups {
		standups[i] = st.Clone()
	}
	if s.Standups == nil {
		standups = nil
	}
	s.Standups = standups
	s.Path = s.Path.Clone()
	if s.Adding != nil {
		a := s.Adding.Clone()
		s.Adding = &a
	}
	return s
}

type pathElementJSON struct {
	ID     reducer.StackID `json:"id"`
	Screen codec.Envelope  `json:"screen"`
}

type pathJSON struct {
	Elements []pathElementJSON `json:"elements"`
	NextID   reducer.StackID   `json:"next_id"`
}

type stateJSON struct {
	Standups []Standup  `json:"standups"`
	Path     pathJSON   `json:"path"`
	Adding   *EditState `json:"adding,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	raw := stateJSON{
		Standups: s.Standups,
		Path:     pathJSON{Elements: make([]pathElementJSON, 0, s.Path.Len()), NextID: s.Path.NextID},
		Adding:   s.Adding,
	}
	for _, e := range s.Path.Elements {
		env, err := Paths.Encode(e.Element)
		if err != nil {
			return nil, err
		}
		raw.Path.Elements = append(raw.Path.Elements, pathElementJSON{ID: e.ID, Screen: env})
	}
	return json.Marshal(raw)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = State{Standups: raw.Standups, Adding: raw.Adding}
	s.Path.NextID = raw.Path.NextID
	for _, e := range raw.Path.Elements {
		p, err := Paths.Decode(e.Screen)
		if err != nil {
			return err
		}
		s.Path.Elements = append(s.Path.Elements, reducer.StackElement[Path]{ID: e.ID, Element: p})
	}
	return nil
}

// PathAction is an action for a pushed screen.
type PathAction interface{ isPathAction() }

type (
	// Detail forwards an action to a detail screen.
	Detail struct {
		Action DetailAction
	}

	// Record forwards an action to a recording screen.
	Record struct {
		Action RecordAction
	}
)

func (Detail) isPathAction() {}
func (Record) isPathAction() {}

// PathActions encodes screen actions.
var PathActions = codec.NewRegistry[PathAction](Detail{}, Record{})

func (d Detail) MarshalJSON() ([]byte, error) {
	env, err := DetailActions.Encode(d.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nestedJSON{Action: env})
}

func (d *Detail) UnmarshalJSON(data []byte) error {
	var raw nestedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := DetailActions.Decode(raw.Action)
	if err != nil {
		return err
	}
	d.Action = a
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	env, err := RecordActions.Encode(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nestedJSON{Action: env})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw nestedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := RecordActions.Decode(raw.Action)
	if err != nil {
		return err
	}
	r.Action = a
	return nil
}

// Action is an app action.
type Action interface{ isAction() }

type (
	AddStandupTapped struct{}
	ConfirmAddTapped struct{}
	DismissAddTapped struct{}

	StandupTapped struct {
		ID uuid.UUID `json:"id"`
	}

	// PathPopped removes the screen with ID and every screen above it.
	PathPopped struct {
		ID reducer.StackID `json:"id"`
	}

	// AddForm forwards a form action to the add form.
	AddForm struct {
		Action EditAction
	}

	// PathElement forwards an action to the pushed screen with ID.
	PathElement struct {
		ID     reducer.StackID
		Action PathAction
	}
)

func (AddStandupTapped) isAction() {}
func (ConfirmAddTapped) isAction() {}
func (DismissAddTapped) isAction() {}
func (StandupTapped) isAction()    {}
func (PathPopped) isAction()       {}
func (AddForm) isAction()          {}
func (PathElement) isAction()      {}

// Actions encodes app actions.
var Actions = codec.NewRegistry[Action](
	AddStandupTapped{},
	ConfirmAddTapped{},
	DismissAddTapped{},
	StandupTapped{},
	PathPopped{},
	AddForm{},
	PathElement{},
)

func (f AddForm) MarshalJSON() ([]byte, error) {
	env, err := EditActions.Encode(f.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nestedJSON{Action: env})
}

func (f *AddForm) UnmarshalJSON(data []byte) error {
	var raw nestedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := EditActions.Decode(raw.Action)
	if err != nil {
		return err
	}
	f.Action = a
	return nil
}

type pathElementActionJSON struct {
	ID     reducer.StackID `json:"id"`
	Action codec.Envelope  `json:"action"`
}

func (p PathElement) MarshalJSON() ([]byte, error) {
	env, err := PathActions.Encode(p.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(pathElementActionJSON{ID: p.ID, Action: env})
}

func (p *PathElement) UnmarshalJSON(data []byte) error {
	var raw pathElementActionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := PathActions.Decode(raw.Action)
	if err != nil {
		return err
	}
	p.ID, p.Action = raw.ID, a
	return nil
}

// Environment holds the app's dependencies.
type Environment struct {
	Clock clock.Clock
	UUID  ident.Generator
}

// DefaultMinutes is the length of a newly added standup.
const DefaultMinutes = 5

var (
	addingKey = casepath.Key(
		func(s State) *EditState { return s.Adding },
		func(s *State, v *EditState) { s.Adding = v },
	)
	pathKey = casepath.Key(
		func(s State) reducer.Stack[Path] { return s.Path },
		func(s *State, v reducer.Stack[Path]) { s.Path = v },
	)
	screenKey = casepath.Key(
		func(p Path) Path { return p },
		func(p *Path, v Path) { *p = v },
	)
	addFormCase = casepath.New(
		func(a Action) (EditAction, bool) {
			f, ok := a.(AddForm)
			return f.Action, ok
		},
		func(ea EditAction) Action { return AddForm{Action: ea} },
	)
	pathElementCase = casepath.New(
		func(a Action) (reducer.IDAction[reducer.StackID, PathAction], bool) {
			p, ok := a.(PathElement)
			return reducer.IDAction[reducer.StackID, PathAction]{ID: p.ID, Action: p.Action}, ok
		},
		func(ia reducer.IDAction[reducer.StackID, PathAction]) Action {
			return PathElement{ID: ia.ID, Action: ia.Action}
		},
	)
	detailActionCase = casepath.New(
		func(a PathAction) (DetailAction, bool) {
			d, ok := a.(Detail)
			return d.Action, ok
		},
		func(da DetailAction) PathAction { return Detail{Action: da} },
	)
	recordActionCase = casepath.New(
		func(a PathAction) (RecordAction, bool) {
			r, ok := a.(Record)
			return r.Action, ok
		},
		func(ra RecordAction) PathAction { return Record{Action: ra} },
	)
)

// NewScreenReducer returns the reducer for a single pushed screen. An
// action for a screen of another kind is a defect.
func NewScreenReducer(env Environment) reducer.Reducer[Path, PathAction] {
	return reducer.Combine(
		reducer.IfCaseLet(screenKey, casepath.Case[Path, DetailScreen](), detailActionCase, NewDetailReducer(env.UUID)),
		reducer.IfCaseLet(screenKey, casepath.Case[Path, RecordScreen](), recordActionCase, NewRecordReducer(env.Clock)),
	)
}

// New returns the app reducer. Screen actions reach their screen first;
// the app then reacts to the ones that navigate or save.
func New(env Environment) reducer.Reducer[State, Action] {
	app := reducer.Combine(
		reducer.IfLet(addingKey, addFormCase, NewEditReducer(env.UUID)),
		reducer.WithEnvironment(reducer.EnvFunc[State, Action, Environment](reduce), env),
	)
	return reducer.ForEachStack(app, pathKey, pathElementCase, NewScreenReducer(env))
}

func reduce(s *State, a Action, env Environment) effect.Effect[Action] {
	switch a := a.(type) {
	case AddStandupTapped:
		standup := Standup{ID: env.UUID(), Minutes: DefaultMinutes, Theme: ThemeBubblegum, Meetings: []Meeting{}}
		edit := NewEdit(standup, env.UUID)
		s.Adding = &edit

	case DismissAddTapped:
		s.Adding = nil

	case ConfirmAddTapped:
		reducer.Precondition(s.Adding != nil, "confirm add without an open form")
		s.Standups = append(s.Standups, s.Adding.Standup.Clone())
		s.Adding = nil

	case StandupTapped:
		i := s.standupIndex(a.ID)
		reducer.Precondition(i >= 0, "standup %s is not in the list", a.ID)
		s.Path.Push(DetailScreen{Standup: s.Standups[i].Clone()})

	case PathPopped:
		reducer.Precondition(s.Path.PopFrom(a.ID), "pop of screen %d that is not on the path", a.ID)

	case PathElement:
		s.reactToScreen(a, env)
	}
	return effect.None[Action]()
}

// reactToScreen runs after the screen with a.ID has reduced a.Action.
func (s *State) reactToScreen(a PathElement, env Environment) {
	i := s.Path.Index(a.ID)
	if i < 0 {
		return
	}
	switch pa := a.Action.(type) {
	case Detail:
		detail, ok := s.Path.Elements[i].Element.(DetailScreen)
		if !ok {
			return
		}
		switch da := pa.Action.(type) {
		case DoneEditingTapped, DeleteMeetings:
			saved := detail.Standup
			s.updateStandup(saved.ID, func(st *Standup) { *st = saved.Clone() })

		case StartMeetingTapped:
			s.Path.Push(RecordScreen{Standup: detail.Standup.Clone()})

		case MeetingTapped:
			j := slices.IndexFunc(detail.Standup.Meetings, func(m Meeting) bool { return m.ID == da.ID })
			s.Path.Push(MeetingScreen{Meeting: detail.Standup.Meetings[j], Standup: detail.Standup.Clone()})

		case DeleteTapped:
			s.Standups = slices.DeleteFunc(s.Standups, func(st Standup) bool { return st.ID == detail.Standup.ID })
			s.Path.PopFrom(a.ID)
		}

	case Record:
		finished, ok := pa.Action.(MeetingFinished)
		if !ok {
			return
		}
		rec := s.Path.Elements[i].Element.(RecordScreen)
		meeting := Meeting{ID: env.UUID(), Date: env.Clock.Now(), Transcript: finished.Transcript}
		s.updateStandup(rec.Standup.ID, func(st *Standup) {
			st.Meetings = slices.Insert(st.Meetings, 0, meeting)
		})
		s.Path.PopFrom(a.ID)
	}
}

// updateStandup applies fn to the listed standup with id and to every
// detail screen showing it.
func (s *State) updateStandup(id uuid.UUID, fn func(*Standup)) {
	if i := s.standupIndex(id); i >= 0 {
		fn(&s.Standups[i])
	}
	for i, e := range s.Path.Elements {
		if d, ok := e.Element.(DetailScreen); ok && d.Standup.ID == id {
			fn(&d.Standup)
			s.Path.Elements[i].Element = d
		}
	}
}

func (s State) standupIndex(id uuid.UUID) int {
	return slices.IndexFunc(s.Standups, func(st Standup) bool { return st.ID == id })
}
