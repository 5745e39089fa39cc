package clock

import (
	"errors"
	"fmt"
)

// DefaultMaxSteps bounds how many wakeups TestClock.Run fires before giving
// up. A repeating timer that nobody cancels would otherwise run forever.
const DefaultMaxSteps = 1000

// StepsExceededError is returned by TestClock.Run when the wakeup queue
// is still non-empty after the step limit.
type StepsExceededError struct {
	Steps int // Wakeups fired before giving up
	Limit int // Configured limit
	Now   string
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("test clock exceeded max steps (%d > %d) at %s", e.Steps, e.Limit, e.Now)
}

// IsStepsExceeded reports whether err is or wraps a StepsExceededError.
func IsStepsExceeded(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
