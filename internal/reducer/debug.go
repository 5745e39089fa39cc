package reducer

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/tca/internal/effect"
)

// Labeler lets an action choose its own log label.
type Labeler interface {
	Label() string
}

// Label returns a short name for an action, e.g. "counter.IncrementTapped".
// Actions implementing Labeler name themselves. Type parameters are dropped.
func Label(action any) string {
	if action == nil {
		return "<nil>"
	}
	if l, ok := action.(Labeler); ok {
		return l.Label()
	}
	t := reflect.TypeOf(action)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.String()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// DiffOptions makes cmp.Diff usable on arbitrary feature state, including
// unexported fields.
var DiffOptions = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Diff returns a human-readable diff from before to after, or "" if equal.
func Diff[S any](before, after S) string {
	return cmp.Diff(before, after, DiffOptions...)
}

// PrintChanges wraps r so every action is logged with its label and the
// resulting state diff.
func PrintChanges[S, A any](r Reducer[S, A], logger *slog.Logger) Reducer[S, A] {
	if logger == nil {
		logger = slog.Default()
	}
	return Func[S, A](func(state *S, action A) effect.Effect[A] {
		before := Snapshot(*state)
		eff := r.Reduce(state, action)
		diff := Diff(before, *state)
		if diff == "" {
			logger.Info("received action", "action", Label(action), "changes", "none")
		} else {
			logger.Info("received action", "action", Label(action), "diff", diff)
		}
		return eff
	})
}
