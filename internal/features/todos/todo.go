package todos

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/reducer"
)

// Todo is one row of the list.
type Todo struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	IsComplete  bool      `json:"is_complete"`
}

// TodoAction is an action on a single row.
type TodoAction interface{ isTodoAction() }

type (
	CheckBoxToggled  struct{}
	TextFieldChanged struct {
		Text string `json:"text"`
	}
)

func (CheckBoxToggled) isTodoAction()  {}
func (TextFieldChanged) isTodoAction() {}

// TodoActions encodes row actions.
var TodoActions = codec.NewRegistry[TodoAction](
	CheckBoxToggled{},
	TextFieldChanged{},
)

// TodoReducer edits one row.
var TodoReducer = reducer.Func[Todo, TodoAction](func(t *Todo, a TodoAction) effect.Effect[TodoAction] {
	switch a := a.(type) {
	case CheckBoxToggled:
		t.IsComplete = !t.IsComplete
	case TextFieldChanged:
		t.Description = a.Text
	}
	return effect.None[TodoAction]()
})

// Row addresses a row action to the todo with ID.
type Row struct {
	ID     uuid.UUID
	Action TodoAction
}

func (Row) isAction() {}

type rowJSON struct {
	ID     uuid.UUID      `json:"id"`
	Action codec.Envelope `json:"action"`
}

// MarshalJSON keeps the row action's type tag.
func (r Row) MarshalJSON() ([]byte, error) {
	env, err := TodoActions.Encode(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rowJSON{ID: r.ID, Action: env})
}

// UnmarshalJSON decodes a tagged row action.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw rowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := TodoActions.Decode(raw.Action)
	if err != nil {
		return fmt.Errorf("row %s: %w", raw.ID, err)
	}
	*r = Row{ID: raw.ID, Action: a}
	return nil
}
