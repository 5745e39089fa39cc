// Package counter is a counter with a number-fact lookup, a repeating timer,
// a delayed welcome message and an nth-prime computation.
package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/tca/internal/clock"
	"github.com/roach88/tca/internal/codec"
	"github.com/roach88/tca/internal/effect"
	"github.com/roach88/tca/internal/reducer"
)

// State is the counter screen.
type State struct {
	Count         int    `json:"count"`
	Fact          string `json:"fact,omitempty"`
	FactError     string `json:"fact_error,omitempty"`
	IsLoadingFact bool   `json:"is_loading_fact"`
	IsTimerOn     bool   `json:"is_timer_on"`
	Message       string `json:"message,omitempty"`
}

// Action is a counter action.
type Action interface{ isAction() }

type (
	DecrementTapped   struct{}
	IncrementTapped   struct{}
	FactTapped        struct{}
	ToggleTimerTapped struct{}
	TimerTicked       struct{}
	Appeared          struct{}
	WelcomeDelivered  struct{}
	NthPrimeTapped    struct{}

	FactResponse struct {
		Result effect.Result[string] `json:"result"`
	}

	NthPrimeResponse struct {
		N     int `json:"n"`
		Prime int `json:"prime"`
	}
)

func (DecrementTapped) isAction()   {}
func (IncrementTapped) isAction()   {}
func (FactTapped) isAction()        {}
func (ToggleTimerTapped) isAction() {}
func (TimerTicked) isAction()       {}
func (Appeared) isAction()          {}
func (WelcomeDelivered) isAction()  {}
func (NthPrimeTapped) isAction()    {}
func (FactResponse) isAction()      {}
func (NthPrimeResponse) isAction()  {}

// Actions encodes counter actions.
var Actions = codec.NewRegistry[Action](
	DecrementTapped{},
	IncrementTapped{},
	FactTapped{},
	FactResponse{},
	ToggleTimerTapped{},
	TimerTicked{},
	Appeared{},
	WelcomeDelivered{},
	NthPrimeTapped{},
	NthPrimeResponse{},
)

// FactClient fetches a fact about a number.
type FactClient func(ctx context.Context, n int) (string, error)

// Environment holds the counter's dependencies.
type Environment struct {
	Clock clock.Clock
	Fact  FactClient

	// HasSeenWelcome reports whether the user has been welcomed before.
	// Returning visitors wait RepeatWelcomeDelay instead of WelcomeDelay.
	HasSeenWelcome func() bool
}

const (
	// TimerInterval is the timer's tick period.
	TimerInterval = time.Second

	// WelcomeDelay is how long a first-time visitor waits for the welcome.
	WelcomeDelay = 5 * time.Second

	// RepeatWelcomeDelay is the wait for a returning visitor.
	RepeatWelcomeDelay = time.Second
)

type cancelID string

const (
	timerID cancelID = "timer"
	factID  cancelID = "fact"
	primeID cancelID = "nth-prime"
)

// TimerID is the cancel id of the repeating timer.
const TimerID = timerID

// OfflineFacts answers with a canned fact, for environments without a
// network.
func OfflineFacts(_ context.Context, n int) (string, error) {
	return fmt.Sprintf("%d is a good number.", n), nil
}

// New returns the counter reducer bound to env.
func New(env Environment) reducer.Reducer[State, Action] {
	return reducer.WithEnvironment(reducer.EnvFunc[State, Action, Environment](reduce), env)
}

func reduce(s *State, a Action, env Environment) effect.Effect[Action] {
	switch a := a.(type) {
	case DecrementTapped:
		s.Count--
		s.Fact = ""
		return effect.None[Action]()

	case IncrementTapped:
		s.Count++
		s.Fact = ""
		return effect.None[Action]()

	case FactTapped:
		s.Fact = ""
		s.FactError = ""
		s.IsLoadingFact = true
		n := s.Count
		return effect.Run(func(ctx context.Context, send effect.SendFunc[Action]) error {
			fact, err := env.Fact(ctx, n)
			send(FactResponse{Result: effect.Result[string]{Value: fact, Err: err}})
			return nil
		}).Cancellable(factID, true)

	case FactResponse:
		s.IsLoadingFact = false
		fact, err := a.Result.Get()
		if err != nil {
			s.FactError = err.Error()
			return effect.None[Action]()
		}
		s.Fact = fact
		return effect.None[Action]()

	case ToggleTimerTapped:
		s.IsTimerOn = !s.IsTimerOn
		if !s.IsTimerOn {
			return effect.Cancel[Action](timerID)
		}
		return effect.Run(func(ctx context.Context, send effect.SendFunc[Action]) error {
			for range clock.Ticks(ctx, env.Clock, TimerInterval) {
				send(TimerTicked{})
			}
			return nil
		}).Cancellable(timerID, true)

	case TimerTicked:
		s.Count++
		return effect.None[Action]()

	case Appeared:
		delay := WelcomeDelay
		if env.HasSeenWelcome != nil && env.HasSeenWelcome() {
			delay = RepeatWelcomeDelay
		}
		return effect.Send[Action](WelcomeDelivered{}).Delay(delay, env.Clock)

	case WelcomeDelivered:
		s.Message = "Welcome!"
		return effect.None[Action]()

	case NthPrimeTapped:
		n := s.Count
		return effect.Run(func(ctx context.Context, send effect.SendFunc[Action]) error {
			p, err := NthPrime(ctx, n)
			if err != nil {
				return err
			}
			send(NthPrimeResponse{N: n, Prime: p})
			return nil
		}).Catch(func(err error, send effect.SendFunc[Action]) {
			send(NthPrimeResponse{N: n})
		}).Cancellable(primeID, true)

	case NthPrimeResponse:
		if a.Prime == 0 {
			s.Message = fmt.Sprintf("There is no %s prime", Ordinal(a.N))
			return effect.None[Action]()
		}
		s.Message = fmt.Sprintf("%s prime is %d", Ordinal(a.N), a.Prime)
		return effect.None[Action]()
	}
	return effect.None[Action]()
}
