// Package search is a place search with debounced completions.
package search

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/reducer"
)

// Completion is one suggested place.
type Completion struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Region is the visible map area.
type Region struct {
	Center Coordinate `json:"center"`
	Span   Coordinate `json:"span"`
}

// DefaultRegion is lower Manhattan.
var DefaultRegion = Region{
	Center: Coordinate{Latitude: 40.7, Longitude: -74},
	Span:   Coordinate{Latitude: 0.075, Longitude: 0.075},
}

// State is the search screen.
type State struct {
	Query       string       `json:"query"`
	Completions []Completion `json:"completions"`
	IsSearching bool         `json:"is_searching"`
	Error       string       `json:"error,omitempty"`
	Region      Region       `json:"region"`
}

// Clone copies the completions.
func (s State) Clone() State {
	s.Completions = slices.Clone(s.Completions)
	return s
}

// Highlighted is a completion with the ranges of its title that match the
// query.
type Highlighted struct {
	Completion
	Ranges []Range `json:"ranges"`
}

// Highlights pairs each completion with its matching title ranges.
func (s State) Highlights() []Highlighted {
	out := make([]Highlighted, len(s.Completions))
	for i, c := range s.Completions {
		out[i] = Highlighted{Completion: c, Ranges: Highlight(c.Title, s.Query)}
	}
	return out
}

// Action is a search action.
type Action interface{ isAction() }

type (
	QueryChanged struct {
		Query string `json:"query"`
	}
	CompletionsUpdated struct {
		Result effect.Result[[]Completion] `json:"result"`
	}
	RegionChanged struct {
		Region Region `json:"region"`
	}
	CompletionTapped struct {
		Completion Completion `json:"completion"`
	}
)

func (QueryChanged) isAction()       {}
func (CompletionsUpdated) isAction() {}
func (RegionChanged) isAction()      {}
func (CompletionTapped) isAction()   {}

// Actions encodes search actions.
var Actions = codec.NewRegistry[Action](
	QueryChanged{},
	CompletionsUpdated{},
	RegionChanged{},
	CompletionTapped{},
)

// Completer returns completions for a query.
type Completer func(ctx context.Context, query string) ([]Completion, error)

// ErrNoResults is returned by LocalCompleter when nothing matches.
var ErrNoResults = errors.New("no results")

// LocalCompleter searches places in memory, matching titles and subtitles
// without regard to case or diacritics.
func LocalCompleter(places []Completion) Completer {
	return func(ctx context.Context, query string) ([]Completion, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := Fold(query)
		var out []Completion
		for _, p := range places {
			if strings.Contains(Fold(p.Title), q) || strings.Contains(Fold(p.Subtitle), q) {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, ErrNoResults
		}
		return out, nil
	}
}

// Places is a small offline gazetteer.
var Places = []Completion{
	{Title: "Apple Fifth Avenue", Subtitle: "767 5th Ave, New York"},
	{Title: "Apple SoHo", Subtitle: "103 Prince St, New York"},
	{Title: "Café Mogador", Subtitle: "101 St Marks Pl, New York"},
	{Title: "Café Habana", Subtitle: "17 Prince St, New York"},
	{Title: "Brooklyn Bridge Park", Subtitle: "334 Furman St, Brooklyn"},
	{Title: "Zabar's", Subtitle: "2245 Broadway, New York"},
}

// Environment holds the search dependencies.
type Environment struct {
	Clock     clock.Clock
	Completer Completer
}

// QueryDebounce is how long typing must pause before a search runs.
const QueryDebounce = 300 * time.Millisecond

type searchID struct{}

// New returns the search reducer bound to env.
func New(env Environment) reducer.Reducer[State, Action] {
	return reducer.WithEnvironment(reducer.EnvFunc[State, Action, Environment](reduce), env)
}

func reduce(s *State, a Action, env Environment) effect.Effect[Action] {
	switch a := a.(type) {
	case QueryChanged:
		s.Query = a.Query
		if strings.TrimSpace(a.Query) == "" {
			s.Completions = nil
			s.Error = ""
			s.IsSearching = false
			return effect.Cancel[Action](searchID{})
		}
		s.IsSearching = true
		query := a.Query
		return effect.Run(func(ctx context.Context, send effect.SendFunc[Action]) error {
			completions, err := env.Completer(ctx, query)
			if ctx.Err() != nil {
				return nil
			}
			send(CompletionsUpdated{Result: effect.Result[[]Completion]{Value: completions, Err: err}})
			return nil
		}).Debounce(searchID{}, QueryDebounce, env.Clock)

	case CompletionsUpdated:
		s.IsSearching = false
		completions, err := a.Result.Get()
		if err != nil {
			s.Completions = nil
			s.Error = err.Error()
			return effect.None[Action]()
		}
		s.Completions = completions
		s.Error = ""

	case RegionChanged:
		s.Region = a.Region

	case CompletionTapped:
		s.Query = a.Completion.Title
		s.Completions = nil
		s.IsSearching = false
		return effect.Cancel[Action](searchID{})
	}
	return effect.None[Action]()
}
