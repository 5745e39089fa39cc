package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/features/articles"
	"github.com/roach88/tca/internal/features/counter"
	"github.com/roach88/tca/internal/features/inventory"
	"github.com/roach88/tca/internal/features/search"
	"github.com/roach88/tca/internal/features/standups"
	"github.com/roach88/tca/internal/features/todos"
	"github.com/roach88/tca/internal/ident"
	"github.com/roach88/tca/internal/reducer"
)

// UnknownFeatureError is returned for a feature name with no registration.
type UnknownFeatureError struct {
	Name string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("unknown feature %q (known: %v)", e.Name, FeatureNames())
}

// Sample data ids start here, clear of the ids a feature's own generator
// hands out from zero.
const (
	sampleInventorySeed = 1000
	sampleStandupsSeed  = 1000
)

var registry = map[string]Feature{}

func register(fs ...Feature) {
	for _, f := range fs {
		if _, dup := registry[f.Name()]; dup {
			panic(fmt.Sprintf("harness: feature %q registered twice", f.Name()))
		}
		registry[f.Name()] = f
	}
}

func init() {
	register(
		Define("counter", counter.Actions,
			func() counter.State { return counter.State{} },
			func(c clock.Clock) reducer.Reducer[counter.State, counter.Action] {
				return counter.New(counter.Environment{Clock: c, Fact: counter.OfflineFacts})
			},
		),
		Define("todos", todos.Actions,
			func() todos.State { return todos.State{Todos: []todos.Todo{}} },
			func(c clock.Clock) reducer.Reducer[todos.State, todos.Action] {
				return todos.New(todos.Environment{Clock: c, UUID: ident.Incrementing()})
			},
		),
		Define("onboarding", todos.OnboardingActions,
			func() todos.OnboardingState {
				return todos.OnboardingState{Placeholder: todos.State{Todos: []todos.Todo{}}, Step: todos.StepActions}
			},
			func(c clock.Clock) reducer.Reducer[todos.OnboardingState, todos.OnboardingAction] {
				return todos.NewOnboarding(todos.Environment{Clock: c, UUID: ident.Incrementing()})
			},
		),
		Define("search", search.Actions,
			func() search.State {
				return search.State{Completions: []search.Completion{}, Region: search.DefaultRegion}
			},
			func(c clock.Clock) reducer.Reducer[search.State, search.Action] {
				return search.New(search.Environment{Clock: c, Completer: search.LocalCompleter(search.Places)})
			},
		),
		Define("articles", articles.Actions,
			func() articles.State { return articles.State{Articles: []articles.Article{}} },
			func(c clock.Clock) reducer.Reducer[articles.State, articles.Action] {
				return articles.New(articles.Environment{Clock: c, Articles: articles.Sample})
			},
		),
		Define("inventory", inventory.Actions,
			func() inventory.State {
				return inventory.State{Inventory: inventory.Sample(ident.From(sampleInventorySeed))}
			},
			func(c clock.Clock) reducer.Reducer[inventory.State, inventory.Action] {
				return inventory.New(inventory.Environment{Clock: c, UUID: ident.Incrementing()})
			},
		),
		Define("standups", standups.Actions,
			func() standups.State {
				return standups.State{Standups: standups.Sample(ident.From(sampleStandupsSeed))}
			},
			func(c clock.Clock) reducer.Reducer[standups.State, standups.Action] {
				return standups.New(standups.Environment{Clock: c, UUID: ident.Incrementing()})
			},
		),
	)
}

// Lookup returns the registered feature with the given name.
func Lookup(name string) (Feature, error) {
	f, ok := registry[name]
	if !ok {
		return nil, &UnknownFeatureError{Name: name}
	}
	return f, nil
}

// FeatureNames returns the registered feature names, sorted.
func FeatureNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
