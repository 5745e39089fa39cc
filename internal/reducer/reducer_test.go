package reducer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tca/internal/effect"
)

type counterState struct {
	Count int
}

type counterAction interface{ isCounterAction() }

type incremented struct{}
type added struct{ N int }

func (incremented) isCounterAction() {}
func (added) isCounterAction()       {}

var counter = Func[counterState, counterAction](func(s *counterState, a counterAction) effect.Effect[counterAction] {
	switch a := a.(type) {
	case incremented:
		s.Count++
	case added:
		s.Count += a.N
		return effect.Send[counterAction](incremented{})
	}
	return effect.None[counterAction]()
})

func TestFunc_Reduce(t *testing.T) {
	s := counterState{}
	eff := counter.Reduce(&s, incremented{})
	assert.Equal(t, 1, s.Count)
	assert.True(t, eff.IsNone())

	eff = counter.Reduce(&s, added{N: 2})
	assert.Equal(t, 3, s.Count)
	assert.False(t, eff.IsNone())
}

func TestWithEnvironment_BindsEnv(t *testing.T) {
	type env struct{ step int }
	fn := EnvFunc[counterState, counterAction, env](func(s *counterState, a counterAction, e env) effect.Effect[counterAction] {
		s.Count += e.step
		return effect.None[counterAction]()
	})

	r := WithEnvironment(fn, env{step: 5})
	s := counterState{}
	r.Reduce(&s, incremented{})
	assert.Equal(t, 5, s.Count)
}

func TestCombine_RunsInOrder(t *testing.T) {
	var order []string
	first := Func[counterState, counterAction](func(s *counterState, a counterAction) effect.Effect[counterAction] {
		order = append(order, "first")
		s.Count = 10
		return effect.Send[counterAction](added{N: 1})
	})
	second := Func[counterState, counterAction](func(s *counterState, a counterAction) effect.Effect[counterAction] {
		order = append(order, "second")
		s.Count *= 2
		return effect.Send[counterAction](added{N: 2})
	})

	s := counterState{}
	eff := Combine[counterState, counterAction](first, second, Empty[counterState, counterAction]()).Reduce(&s, incremented{})

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 20, s.Count)
	assert.False(t, eff.IsNone())
}

func TestSnapshot_UsesCloner(t *testing.T) {
	s := listState{Items: []int{1, 2}}
	snap := Snapshot(s)
	s.Items[0] = 99
	assert.Equal(t, []int{1, 2}, snap.Items)

	plain := counterState{Count: 1}
	assert.Equal(t, plain, Snapshot(plain))
}

type listState struct {
	Items []int
}

func (s listState) Clone() listState {
	return listState{Items: append([]int(nil), s.Items...)}
}

func TestPrecondition(t *testing.T) {
	assert.NotPanics(t, func() { Precondition(true, "fine") })

	defer func() {
		err := Recover(recover(), incremented{})
		require.Error(t, err)
		assert.True(t, IsDefect(err))
		assert.Equal(t, ErrCodePrecondition, DefectCodeOf(err))
		assert.Equal(t, "PRECONDITION: count must be 3 (action=reducer.incremented)", err.Error())
	}()
	Precondition(false, "count must be %d", 3)
}

func TestRecover_RepanicsForeignValues(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		defer func() { _ = Recover(recover(), nil) }()
		panic("boom")
	})
	assert.NoError(t, Recover(nil, nil))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "reducer.added", Label(added{N: 1}))
	assert.Equal(t, "reducer.added", Label(&added{N: 1}))
	assert.Equal(t, "reducer.IDAction", Label(IDAction[int, counterAction]{}))
	assert.Equal(t, "<nil>", Label(nil))
	assert.Equal(t, "custom", Label(labeled{}))
}

type labeled struct{}

func (labeled) Label() string { return "custom" }

func TestPrintChanges_LogsDiff(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := PrintChanges[counterState, counterAction](counter, logger)
	s := counterState{}
	r.Reduce(&s, incremented{})

	out := buf.String()
	assert.Contains(t, out, "action=reducer.incremented")
	assert.Contains(t, out, "Count")
	assert.Equal(t, 1, s.Count)
}

func TestPrintChanges_NoChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := PrintChanges[counterState, counterAction](Empty[counterState, counterAction](), logger)
	s := counterState{}
	r.Reduce(&s, incremented{})

	assert.Contains(t, buf.String(), "changes=none")
}

func TestDiff(t *testing.T) {
	assert.Empty(t, Diff(counterState{1}, counterState{1}))
	assert.NotEmpty(t, Diff(counterState{1}, counterState{2}))
}
