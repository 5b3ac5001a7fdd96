package browser

import (
	"context"
	"errors"
	"fmt"
)

// TimeoutError marks failures where an element never appeared or an action
// exceeded its bound, as opposed to driver/assertion errors. The runner tags
// failure screenshots by this distinction.
type TimeoutError struct {
	Msg string
}

func (e *TimeoutError) Error() string { return e.Msg }

func timeoutErrf(format string, args ...any) error {
	return &TimeoutError{Msg: fmt.Sprintf(format, args...)}
}

// IsTimeout reports whether an error is a timeout-class failure.
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// AmbiguityError marks a strict lookup that matched more than one element.
type AmbiguityError struct {
	Target  string
	Matches int
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("target %s matched %d elements, expected exactly one", e.Target, e.Matches)
}

// NotVisibleError marks a lookup whose single match cannot be interacted with.
type NotVisibleError struct {
	Target string
}

func (e *NotVisibleError) Error() string {
	return fmt.Sprintf("target %s resolved to an element that is not visible", e.Target)
}
