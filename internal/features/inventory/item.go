package inventory

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/roach88/tca/internal/casepath"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/reducer"
)

// Color is an item color. The empty color means none was picked.
type Color string

const (
	ColorNone   Color = ""
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorBlack  Color = "black"
	ColorYellow Color = "yellow"
	ColorWhite  Color = "white"
)

// Colors lists the pickable colors.
var Colors = []Color{ColorRed, ColorGreen, ColorBlue, ColorBlack, ColorYellow, ColorWhite}

// Status is whether an item can be sold now.
type Status interface{ isStatus() }

type (
	InStock struct {
		Quantity int `json:"quantity"`
	}
	OutOfStock struct {
		IsOnBackOrder bool `json:"is_on_back_order"`
	}
)

func (InStock) isStatus()    {}
func (OutOfStock) isStatus() {}

// Statuses encodes stock statuses.
var Statuses = codec.NewRegistry[Status](InStock{}, OutOfStock{})

var (
	InStockCase    = casepath.Case[Status, InStock]()
	OutOfStockCase = casepath.Case[Status, OutOfStock]()

	StatusKey = casepath.Key(
		func(i Item) Status { return i.Status },
		func(i *Item, s Status) { i.Status = s },
	)
	quantityKey = casepath.Key(
		func(s InStock) int { return s.Quantity },
		func(s *InStock, q int) { s.Quantity = q },
	)
	backOrderKey = casepath.Key(
		func(s OutOfStock) bool { return s.IsOnBackOrder },
		func(s *OutOfStock, v bool) { s.IsOnBackOrder = v },
	)
)

// Item is one inventory entry.
type Item struct {
	ID     uuid.UUID
	Name   string
	Color  Color
	Status Status
}

type itemJSON struct {
	ID     uuid.UUID      `json:"id"`
	Name   string         `json:"name"`
	Color  Color          `json:"color,omitempty"`
	Status codec.Envelope `json:"status"`
}

func (i Item) MarshalJSON() ([]byte, error) {
	status, err := Statuses.Encode(i.Status)
	if err != nil {
		return nil, err
	}
	return json.Marshal(itemJSON{ID: i.ID, Name: i.Name, Color: i.Color, Status: status})
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := Statuses.Decode(raw.Status)
	if err != nil {
		return err
	}
	*i = Item{ID: raw.ID, Name: raw.Name, Color: raw.Color, Status: status}
	return nil
}

// Quantity projects an item binding onto its stock quantity. It is absent
// while the item is out of stock.
func Quantity(item casepath.Binding[Item]) (casepath.Binding[int], bool) {
	inStock, ok := casepath.Matching(casepath.Field(item, StatusKey), InStockCase)
	if !ok {
		return casepath.Binding[int]{}, false
	}
	return casepath.Field(inStock, quantityKey), true
}

// BackOrder projects an item binding onto its back-order flag. It is
// absent while the item is in stock.
func BackOrder(item casepath.Binding[Item]) (casepath.Binding[bool], bool) {
	outOfStock, ok := casepath.Matching(casepath.Field(item, StatusKey), OutOfStockCase)
	if !ok {
		return casepath.Binding[bool]{}, false
	}
	return casepath.Field(outOfStock, backOrderKey), true
}

// ItemAction is an item form action.
type ItemAction interface{ isItemAction() }

type (
	MarkedInStock    struct{}
	MarkedOutOfStock struct{}

	NameChanged struct {
		Name string `json:"name"`
	}
	ColorChanged struct {
		Color Color `json:"color"`
	}
	QuantityChanged struct {
		Quantity int `json:"quantity"`
	}
	BackOrderToggled struct {
		IsOnBackOrder bool `json:"is_on_back_order"`
	}
)

func (MarkedInStock) isItemAction()    {}
func (MarkedOutOfStock) isItemAction() {}
func (NameChanged) isItemAction()      {}
func (ColorChanged) isItemAction()     {}
func (QuantityChanged) isItemAction()  {}
func (BackOrderToggled) isItemAction() {}

// ItemActions encodes item form actions.
var ItemActions = codec.NewRegistry[ItemAction](
	MarkedInStock{},
	MarkedOutOfStock{},
	NameChanged{},
	ColorChanged{},
	QuantityChanged{},
	BackOrderToggled{},
)

// ItemReducer edits an item. Quantity edits require the item to be in
// stock and back-order edits require it to be out of stock.
var ItemReducer = reducer.Func[Item, ItemAction](func(item *Item, a ItemAction) effect.Effect[ItemAction] {
	switch a := a.(type) {
	case NameChanged:
		item.Name = a.Name

	case ColorChanged:
		item.Color = a.Color

	case QuantityChanged:
		reducer.Precondition(a.Quantity >= 0, "quantity %d is negative", a.Quantity)
		ok := casepath.Modify(&item.Status, InStockCase, func(s *InStock) {
			s.Quantity = a.Quantity
		})
		reducer.Precondition(ok, "quantity changed while %s is out of stock", item.Name)

	case BackOrderToggled:
		ok := casepath.Modify(&item.Status, OutOfStockCase, func(s *OutOfStock) {
			s.IsOnBackOrder = a.IsOnBackOrder
		})
		reducer.Precondition(ok, "back order toggled while %s is in stock", item.Name)

	case MarkedInStock:
		if !InStockCase.Is(item.Status) {
			item.Status = InStock{Quantity: 1}
		}

	case MarkedOutOfStock:
		if !OutOfStockCase.Is(item.Status) {
			item.Status = OutOfStock{}
		}
	}
	return effect.None[ItemAction]()
})
