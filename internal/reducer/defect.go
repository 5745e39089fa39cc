package reducer

import (
	"errors"
	"fmt"
)

// DefectError reports a programmer error detected while reducing.
//
// Reducers never return errors. A defect is raised by panicking with a
// *DefectError; the store recovers it, discards the partial state change,
// and hands the error to its defect handler.
type DefectError struct {
	// Code identifies the defect category.
	Code DefectCode

	// Message is a human-readable description.
	Message string

	// Action is the label of the action being reduced.
	Action string

	// Details contains additional context.
	Details map[string]string
}

// DefectCode categorizes defects.
type DefectCode string

const (
	// ErrCodePrecondition indicates a failed Precondition check.
	ErrCodePrecondition DefectCode = "PRECONDITION"

	// ErrCodeUnknownElement indicates a ForEach or ForEachStack action for a
	// missing id.
	ErrCodeUnknownElement DefectCode = "UNKNOWN_ELEMENT"

	// ErrCodeStateAbsent indicates an IfLet action while state is nil.
	ErrCodeStateAbsent DefectCode = "STATE_ABSENT"

	// ErrCodeCaseMismatch indicates an IfCaseLet action for the wrong case.
	ErrCodeCaseMismatch DefectCode = "CASE_MISMATCH"
)

// Error implements the error interface.
func (e *DefectError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDefect returns true if err is or wraps a *DefectError.
func IsDefect(err error) bool {
	var de *DefectError
	return errors.As(err, &de)
}

// DefectCodeOf returns the defect code of err, or "" if err is not a defect.
func DefectCodeOf(err error) DefectCode {
	var de *DefectError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Precondition raises a defect when cond is false.
func Precondition(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(&DefectError{
		Code:    ErrCodePrecondition,
		Message: fmt.Sprintf(format, args...),
	})
}

// Recover converts a recovered *DefectError into an error, tagging it with
// the action label. Any other panic value is re-raised.
//
//	defer func() { err = reducer.Recover(recover(), action) }()
func Recover(r any, action any) error {
	if r == nil {
		return nil
	}
	de, ok := r.(*DefectError)
	if !ok {
		panic(r)
	}
	if de.Action == "" {
		de.Action = Label(action)
	}
	return de
}

func formatID(id any) string {
	return fmt.Sprintf("%v", id)
}
