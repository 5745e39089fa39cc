package effect

import (
	"encoding/json"
	"errors"
)

// Result carries the outcome of fallible work back into a reducer as part of
// an action, e.g. FactResponse{Result: effect.Success("42 is ...")}.
type Result[T any] struct {
	Value T
	Err   error
}

// Success wraps a value.
func Success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Failure wraps an error.
func Failure[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Catching runs fn and captures its outcome.
func Catching[T any](fn func() (T, error)) Result[T] {
	v, err := fn()
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

// Get returns the value and error.
func (r Result[T]) Get() (T, error) {
	return r.Value, r.Err
}

// OK reports whether the result is a success.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

type resultJSON[T any] struct {
	Value *T     `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// MarshalJSON encodes a success as {"value":...} and a failure as
// {"error":"message"}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(resultJSON[T]{Error: r.Err.Error()})
	}
	v := r.Value
	return json.Marshal(resultJSON[T]{Value: &v})
}

// UnmarshalJSON restores a Result. A decoded failure carries a plain error
// with the original message.
func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var raw resultJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result[T]{}
	if raw.Error != "" {
		r.Err = errors.New(raw.Error)
		return nil
	}
	if raw.Value != nil {
		r.Value = *raw.Value
	}
	return nil
}
