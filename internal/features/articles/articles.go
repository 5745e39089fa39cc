// Package articles is an article list that loads after a delay, showing
// placeholder rows until the response arrives.
package articles

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

// Article is one list entry.
type Article struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Blurb         string    `json:"blurb"`
	Date          time.Time `json:"date"`
	IsFavorite    bool      `json:"is_favorite"`
	IsHidden      bool      `json:"is_hidden"`
	WillReadLater bool      `json:"will_read_later"`
}

// ArticleAction is a row action.
type ArticleAction interface{ isArticleAction() }

type (
	FavoriteTapped  struct{}
	HideTapped      struct{}
	ReadLaterTapped struct{}
)

func (FavoriteTapped) isArticleAction()  {}
func (HideTapped) isArticleAction()      {}
func (ReadLaterTapped) isArticleAction() {}

// ArticleActions encodes row actions.
var ArticleActions = codec.NewRegistry[ArticleAction](
	FavoriteTapped{},
	HideTapped{},
	ReadLaterTapped{},
)

// ArticleReducer toggles a row's flags.
var ArticleReducer = reducer.Func[Article, ArticleAction](func(a *Article, action ArticleAction) effect.Effect[ArticleAction] {
	switch action.(type) {
	case FavoriteTapped:
		a.IsFavorite = !a.IsFavorite
	case HideTapped:
		a.IsHidden = !a.IsHidden
	case ReadLaterTapped:
		a.WillReadLater = !a.WillReadLater
	}
	return effect.None[ArticleAction]()
})

// State is the articles screen. Reading is the article open in the detail
// sheet, if any.
type State struct {
	Articles  []Article `json:"articles"`
	IsLoading bool      `json:"is_loading"`
	Reading   *Article  `json:"reading,omitempty"`
}

// Clone copies the list and the open article.
func (s State) Clone() State {
	s.Articles = slices.Clone(s.Articles)
	if s.Reading != nil {
		r := *s.Reading
		s.Reading = &r
	}
	return s
}

// Visible returns the rows to show: placeholders while loading, otherwise
// the articles that are not hidden.
func (s State) Visible() []Article {
	if s.IsLoading {
		return slices.Clone(Placeholders)
	}
	var out []Article
	for _, a := range s.Articles {
		if !a.IsHidden {
			out = append(out, a)
		}
	}
	return out
}

// Action is a list action.
type Action interface{ isAction() }

type (
	Appeared       struct{}
	DismissArticle struct{}

	ArticlesResponse struct {
		Articles []Article `json:"articles"`
	}
	ArticleTapped struct {
		ID uuid.UUID `json:"id"`
	}

	// Row addresses a row action to the article with ID.
	Row struct {
		ID     uuid.UUID
		Action ArticleAction
	}

	// Reading addresses a row action to the open article.
	Reading struct {
		Action ArticleAction
	}
)

func (Appeared) isAction()         {}
func (DismissArticle) isAction()   {}
func (ArticlesResponse) isAction() {}
func (ArticleTapped) isAction()    {}
func (Row) isAction()              {}
func (Reading) isAction()          {}

// Actions encodes list actions.
var Actions = codec.NewRegistry[Action](
	Appeared{},
	DismissArticle{},
	ArticlesResponse{},
	ArticleTapped{},
	Row{},
	Reading{},
)

type rowJSON struct {
	ID     uuid.UUID      `json:"id"`
	Action codec.Envelope `json:"action"`
}

type readingJSON struct {
	Action codec.Envelope `json:"action"`
}

func (r Row) MarshalJSON() ([]byte, error) {
	env, err := ArticleActions.Encode(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rowJSON{ID: r.ID, Action: env})
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var raw rowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := ArticleActions.Decode(raw.Action)
	if err != nil {
		return err
	}
	r.ID, r.Action = raw.ID, a
	return nil
}

func (r Reading) MarshalJSON() ([]byte, error) {
	env, err := ArticleActions.Encode(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(readingJSON{Action: env})
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw readingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a, err := ArticleActions.Decode(raw.Action)
	if err != nil {
		return err
	}
	r.Action = a
	return nil
}

// Environment holds the list's dependencies.
type Environment struct {
	Clock clock.Clock

	// Articles is what the simulated request returns.
	Articles []Article
}

// LoadDelay is the simulated request latency.
const LoadDelay = 4 * time.Second

type loadID struct{}

var (
	articlesKey = casepath.Key(
		func(s State) []Article { return s.Articles },
		func(s *State, v []Article) { s.Articles = v },
	)
	readingKey = casepath.Key(
		func(s State) *Article { return s.Reading },
		func(s *State, v *Article) { s.Reading = v },
	)
	rowCase = casepath.New(
		func(a Action) (reducer.IDAction[uuid.UUID, ArticleAction], bool) {
			r, ok := a.(Row)
			return reducer.IDAction[uuid.UUID, ArticleAction]{ID: r.ID, Action: r.Action}, ok
		},
		func(ia reducer.IDAction[uuid.UUID, ArticleAction]) Action {
			return Row{ID: ia.ID, Action: ia.Action}
		},
	)
	readingCase = casepath.New(
		func(a Action) (ArticleAction, bool) {
			r, ok := a.(Reading)
			return r.Action, ok
		},
		func(aa ArticleAction) Action { return Reading{Action: aa} },
	)
)

// New returns the articles reducer. Row actions edit the list, and actions
// on the open article are copied back into the list.
func New(env Environment) reducer.Reducer[State, Action] {
	return reducer.Combine(
		reducer.ForEach(articlesKey, func(a Article) uuid.UUID { return a.ID }, rowCase, reducer.Reducer[Article, ArticleAction](ArticleReducer)),
		reducer.IfLet(readingKey, readingCase, reducer.Reducer[Article, ArticleAction](ArticleReducer)),
		reducer.WithEnvironment(reducer.EnvFunc[State, Action, Environment](reduce), env),
	)
}

func reduce(s *State, a Action, env Environment) effect.Effect[Action] {
	switch a := a.(type) {
	case Appeared:
		s.IsLoading = true
		return effect.Send[Action](ArticlesResponse{Articles: slices.Clone(env.Articles)}).
			Delay(LoadDelay, env.Clock).
			Cancellable(loadID{}, true)

	case ArticlesResponse:
		s.IsLoading = false
		s.Articles = a.Articles

	case ArticleTapped:
		i := slices.IndexFunc(s.Articles, func(x Article) bool { return x.ID == a.ID })
		reducer.Precondition(i >= 0, "tapped article %s is not in the list", a.ID)
		open := s.Articles[i]
		s.Reading = &open

	case DismissArticle:
		s.Reading = nil

	case Reading:
		if i := slices.IndexFunc(s.Articles, func(x Article) bool { return x.ID == s.Reading.ID }); i >= 0 {
			s.Articles[i] = *s.Reading
		}

	case Row:
		if s.Reading != nil && s.Reading.ID == a.ID {
			i := slices.IndexFunc(s.Articles, func(x Article) bool { return x.ID == a.ID })
			open := s.Articles[i]
			s.Reading = &open
		}
	}
	return effect.None[Action]()
}

// Placeholders stand in for rows while the list loads.
var Placeholders = placeholders()

func placeholders() []Article {
	ids := ident.Incrementing()
	out := make([]Article, 5)
	for i := range out {
		out[i] = Article{
			ID:    ids(),
			Title: "Placeholder title",
			Blurb: "Placeholder blurb that is about as long as a real one.",
			Date:  time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}
	return out
}

// Sample is a fixed set of articles for offline runs.
var Sample = []Article{
	{
		ID:    ident.Sequential(100),
		Title: "Redacted SwiftUI",
		Blurb: "Placeholder content while data loads.",
		Date:  time.Date(2020, 9, 14, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:    ident.Sequential(101),
		Title: "Composable Bindings",
		Blurb: "Deriving bindings from enum state.",
		Date:  time.Date(2020, 7, 27, 0, 0, 0, 0, time.UTC),
	},
	{
		ID:    ident.Sequential(102),
		Title: "Unidirectional Effects",
		Blurb: "Returning effects from reducers.",
		Date:  time.Date(2019, 10, 21, 0, 0, 0, 0, time.UTC),
	},
}
