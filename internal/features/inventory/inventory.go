// Package inventory is an item list with add, edit and help destinations.
// Items are edited through a form that only exists while a destination
// holds it.
package inventory

import (
	"encoding/json"
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

// Destination is the screen presented over the list. A nil Destination
// means none.
type Destination interface{ isDestination() }

type (
	AddItem struct {
		Item Item `json:"item"`
	}
	EditItem struct {
		Item Item `json:"item"`
	}
	Help struct{}
)

func (AddItem) isDestination()  {}
func (EditItem) isDestination() {}
func (Help) isDestination()     {}

// Destinations encodes destinations.
var Destinations = codec.NewRegistry[Destination](AddItem{}, EditItem{}, Help{})

var (
	addCase = casepath.New(
		func(d Destination) (Item, bool) {
			a, ok := d.(AddItem)
			return a.Item, ok
		},
		func(i Item) Destination { return AddItem{Item: i} },
	)
	editCase = casepath.New(
		func(d Destination) (Item, bool) {
			e, ok := d.(EditItem)
			return e.Item, ok
		},
		func(i Item) Destination { return EditItem{Item: i} },
	)
)

// State is the inventory screen.
type State struct {
	Inventory   []Item
	Destination Destination
	IsSaving    bool
}

// Clone copies the item list.
func (s State) Clone() State {
	s.Inventory = slices.Clone(s.Inventory)
	return s
}

type stateJSON struct {
	Inventory   []Item          `json:"inventory"`
	Destination *codec.Envelope `json:"destination,omitempty"`
	IsSaving    bool            `json:"is_saving"`
}

func (s State) MarshalJSON() ([]byte, error) {
	raw := stateJSON{Inventory: s.Inventory, IsSaving: s.IsSaving}
	if s.Destination != nil {
		env, err := Destinations.Encode(s.Destination)
		if err != nil {
			return nil, err
		}
		raw.Destination = &env
	}
	return json.Marshal(raw)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = State{Inventory: raw.Inventory, IsSaving: raw.IsSaving}
	if raw.Destination != nil {
		d, err := Destinations.Decode(*raw.Destination)
		if err != nil {
			return err
		}
		s.Destination = d
	}
	return nil
}

// Action is an inventory action.
type Action interface{ isAction() }

type (
	AddTapped        struct{}
	ConfirmAddTapped struct{}
	CancelTapped     struct{}
	HelpTapped       struct{}
	CommitEditTapped struct{}

	ItemTapped struct {
		ID uuid.UUID `json:"id"`
	}
	DuplicateTapped struct {
		ID uuid.UUID `json:"id"`
	}
	DeleteTapped struct {
		ID uuid.UUID `json:"id"`
	}
	EditSaved struct {
		Item Item `json:"item"`
	}

	// AddForm forwards a form action to the item being added.
	AddForm struct {
		Action ItemAction
	}

	// EditForm forwards a form action to the item being edited.
	EditForm struct {
		Action ItemAction
	}
)

func (AddTapped) isAction()        {}
func (ConfirmAddTapped) isAction() {}
func (CancelTapped) isAction()     {}
func (HelpTapped) isAction()       {}
func (CommitEditTapped) isAction() {}
func (ItemTapped) isAction()       {}
func (DuplicateTapped) isAction()  {}
func (DeleteTapped) isAction()     {}
func (EditSaved) isAction()        {}
func (AddForm) isAction()          {}
func (EditForm) isAction()         {}

// Actions encodes inventory actions.
var Actions = codec.NewRegistry[Action](
	AddTapped{},
	ConfirmAddTapped{},
	CancelTapped{},
	HelpTapped{},
	CommitEditTapped{},
	ItemTapped{},
	DuplicateTapped{},
	DeleteTapped{},
	EditSaved{},
	AddForm{},
	EditForm{},
)

type formJSON struct {
	Action codec.Envelope `json:"action"`
}

func marshalForm(a ItemAction) ([]byte, error) {
	env, err := ItemActions.Encode(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(formJSON{Action: env})
}

func unmarshalForm(data []byte) (ItemAction, error) {
	var raw formJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return ItemActions.Decode(raw.Action)
}

func (f AddForm) MarshalJSON() ([]byte, error) { return marshalForm(f.Action) }

func (f *AddForm) UnmarshalJSON(data []byte) (err error) {
	f.Action, err = unmarshalForm(data)
	return err
}

func (f EditForm) MarshalJSON() ([]byte, error) { return marshalForm(f.Action) }

func (f *EditForm) UnmarshalJSON(data []byte) (err error) {
	f.Action, err = unmarshalForm(data)
	return err
}

// Environment holds the inventory's dependencies.
type Environment struct {
	Clock clock.Clock
	UUID  ident.Generator
}

// SaveLatency is the simulated save request duration.
const SaveLatency = time.Second

type saveID struct{}

var (
	destinationKey = casepath.Key(
		func(s State) Destination { return s.Destination },
		func(s *State, d Destination) { s.Destination = d },
	)
	addFormCase = casepath.New(
		func(a Action) (ItemAction, bool) {
			f, ok := a.(AddForm)
			return f.Action, ok
		},
		func(ia ItemAction) Action { return AddForm{Action: ia} },
	)
	editFormCase = casepath.New(
		func(a Action) (ItemAction, bool) {
			f, ok := a.(EditForm)
			return f.Action, ok
		},
		func(ia ItemAction) Action { return EditForm{Action: ia} },
	)
)

// New returns the inventory reducer.
func New(env Environment) reducer.Reducer[State, Action] {
	item := reducer.Reducer[Item, ItemAction](ItemReducer)
	return reducer.Combine(
		reducer.IfCaseLet(destinationKey, addCase, addFormCase, item),
		reducer.IfCaseLet(destinationKey, editCase, editFormCase, item),
		reducer.WithEnvironment(reducer.EnvFunc[State, Action, Environment](reduce), env),
	)
}

func reduce(s *State, a Action, env Environment) effect.Effect[Action] {
	switch a := a.(type) {
	case AddTapped:
		s.Destination = AddItem{Item: Item{ID: env.UUID(), Status: InStock{Quantity: 1}}}

	case ConfirmAddTapped:
		item, ok := addCase.Extract(s.Destination)
		reducer.Precondition(ok, "confirm add without an item being added")
		s.Inventory = append(s.Inventory, item)
		s.Destination = nil

	case CancelTapped:
		s.Destination = nil
		s.IsSaving = false
		return effect.Cancel[Action](saveID{})

	case HelpTapped:
		s.Destination = Help{}

	case ItemTapped:
		s.Destination = EditItem{Item: s.Inventory[s.index(a.ID)]}

	case CommitEditTapped:
		item, ok := editCase.Extract(s.Destination)
		reducer.Precondition(ok, "commit edit without an item being edited")
		if s.IsSaving {
			return effect.None[Action]()
		}
		s.IsSaving = true
		return effect.Send[Action](EditSaved{Item: item}).
			Delay(SaveLatency, env.Clock).
			Cancellable(saveID{}, true)

	case EditSaved:
		s.IsSaving = false
		if i := slices.IndexFunc(s.Inventory, func(x Item) bool { return x.ID == a.Item.ID }); i >= 0 {
			s.Inventory[i] = a.Item
		}
		if e, ok := editCase.Extract(s.Destination); ok && e.ID == a.Item.ID {
			s.Destination = nil
		}

	case DuplicateTapped:
		dup := s.Inventory[s.index(a.ID)]
		dup.ID = env.UUID()
		s.Inventory = append(s.Inventory, dup)

	case DeleteTapped:
		i := s.index(a.ID)
		s.Inventory = slices.Delete(s.Inventory, i, i+1)
		if e, ok := editCase.Extract(s.Destination); ok && e.ID == a.ID {
			s.Destination = nil
			s.IsSaving = false
			return effect.Cancel[Action](saveID{})
		}
	}
	return effect.None[Action]()
}

func (s State) index(id uuid.UUID) int {
	i := slices.IndexFunc(s.Inventory, func(x Item) bool { return x.ID == id })
	reducer.Precondition(i >= 0, "item %s is not in the inventory", id)
	return i
}

// Sample is a starting inventory for offline runs.
func Sample(ids ident.Generator) []Item {
	return []Item{
		{ID: ids(), Name: "Keyboard", Color: ColorBlue, Status: InStock{Quantity: 100}},
		{ID: ids(), Name: "Charger", Color: ColorYellow, Status: InStock{Quantity: 20}},
		{ID: ids(), Name: "Phone", Color: ColorGreen, Status: OutOfStock{IsOnBackOrder: true}},
		{ID: ids(), Name: "Headphones", Color: ColorGreen, Status: OutOfStock{}},
	}
}
