package effect

import (
	"context"
	"time"

	"github.com/roach88/tca/internal/clock"
)

// SendFunc feeds an action back into the store that started the effect.
type SendFunc[A any] func(action A)

type kind int

const (
	kindSend kind = iota + 1
	kindRun
	kindCancel
	kindCancelGroup
)

type operation[A any] struct {
	kind           kind
	action         A
	run            func(ctx context.Context, send SendFunc[A]) error
	catch          func(err error, send SendFunc[A])
	id             any
	hasID          bool
	group          any
	hasGroup       bool
	cancelInFlight bool
	delay          time.Duration
	clock          clock.Clock
}

// Effect describes zero or more units of work producing actions of type A.
// The zero value is equivalent to None.
type Effect[A any] struct {
	ops []operation[A]
}

// None returns an effect that does nothing.
func None[A any]() Effect[A] {
	return Effect[A]{}
}

// Send returns an effect that synchronously feeds action back into the store.
// The action is queued behind any actions already waiting.
func Send[A any](action A) Effect[A] {
	return Effect[A]{ops: []operation[A]{{kind: kindSend, action: action}}}
}

// Run returns an effect that executes fn in its own goroutine.
//
// fn receives a context that is cancelled when the effect is cancelled or
// the store closes, and a send func for emitting actions. Capture whatever
// state fn needs by value before returning the effect.
func Run[A any](fn func(ctx context.Context, send SendFunc[A]) error) Effect[A] {
	return Effect[A]{ops: []operation[A]{{kind: kindRun, run: fn}}}
}

// Cancel returns an effect that cancels all in-flight work tagged with id.
func Cancel[A any](id any) Effect[A] {
	return Effect[A]{ops: []operation[A]{{kind: kindCancel, id: id, hasID: true}}}
}

// CancelGroup returns an effect that cancels all in-flight work tagged with
// group, whatever its cancel id.
func CancelGroup[A any](group any) Effect[A] {
	return Effect[A]{ops: []operation[A]{{kind: kindCancelGroup, group: group, hasGroup: true}}}
}

// Merge combines effects so they run concurrently.
func Merge[A any](effects ...Effect[A]) Effect[A] {
	var n int
	for _, e := range effects {
		n += len(e.ops)
	}
	if n == 0 {
		return Effect[A]{}
	}
	ops := make([]operation[A], 0, n)
	for _, e := range effects {
		ops = append(ops, e.ops...)
	}
	return Effect[A]{ops: ops}
}

// IsNone reports whether the effect does nothing.
func (e Effect[A]) IsNone() bool {
	return len(e.ops) == 0
}

// Cancellable tags the effect's work with id so Cancel(id) can stop it.
// With cancelInFlight, starting this effect first cancels any work already
// running under the same id.
func (e Effect[A]) Cancellable(id any, cancelInFlight bool) Effect[A] {
	return e.mapOps(func(op operation[A]) operation[A] {
		if op.kind == kindCancel || op.kind == kindCancelGroup {
			return op
		}
		op.id = id
		op.hasID = true
		op.cancelInFlight = op.cancelInFlight || cancelInFlight
		return op
	})
}

// Grouped tags the effect's work with group so CancelGroup(group) can stop
// it. Grouping is independent of the cancel id; an operation keeps its id.
func (e Effect[A]) Grouped(group any) Effect[A] {
	return e.mapOps(func(op operation[A]) operation[A] {
		if op.kind == kindCancel || op.kind == kindCancelGroup {
			return op
		}
		op.group = group
		op.hasGroup = true
		return op
	})
}

// Delay defers the effect's work by d on clock c. The store keeps
// processing other actions in the meantime.
func (e Effect[A]) Delay(d time.Duration, c clock.Clock) Effect[A] {
	return e.mapOps(func(op operation[A]) operation[A] {
		if op.kind == kindCancel || op.kind == kindCancelGroup {
			return op
		}
		op.delay += d
		op.clock = c
		return op
	})
}

// Debounce delays the effect by d and cancels any pending effect with the
// same id, so of several effects started within d of each other only the
// last one runs.
func (e Effect[A]) Debounce(id any, d time.Duration, c clock.Clock) Effect[A] {
	return e.Delay(d, c).Cancellable(id, true)
}

// Catch maps an error returned by a Run body into actions.
func (e Effect[A]) Catch(handler func(err error, send SendFunc[A])) Effect[A] {
	return e.mapOps(func(op operation[A]) operation[A] {
		if op.kind == kindRun {
			op.catch = handler
		}
		return op
	})
}

func (e Effect[A]) mapOps(fn func(operation[A]) operation[A]) Effect[A] {
	if len(e.ops) == 0 {
		return e
	}
	ops := make([]operation[A], len(e.ops))
	for i, op := range e.ops {
		ops[i] = fn(op)
	}
	return Effect[A]{ops: ops}
}

// Map lifts an effect producing A into one producing B.
// Reducer scoping uses it to embed child actions into the parent's type.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	if len(e.ops) == 0 {
		return Effect[B]{}
	}
	ops := make([]operation[B], len(e.ops))
	for i, op := range e.ops {
		mapped := operation[B]{
			kind:           op.kind,
			id:             op.id,
			hasID:          op.hasID,
			group:          op.group,
			hasGroup:       op.hasGroup,
			cancelInFlight: op.cancelInFlight,
			delay:          op.delay,
			clock:          op.clock,
		}
		switch op.kind {
		case kindSend:
			mapped.action = f(op.action)
		case kindRun:
			run := op.run
			mapped.run = func(ctx context.Context, send SendFunc[B]) error {
				return run(ctx, func(a A) { send(f(a)) })
			}
			if op.catch != nil {
				catch := op.catch
				mapped.catch = func(err error, send SendFunc[B]) {
					catch(err, func(a A) { send(f(a)) })
				}
			}
		}
		ops[i] = mapped
	}
	return Effect[B]{ops: ops}
}
