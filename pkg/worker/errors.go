package worker

import (
	"errors"
	"fmt"
)

// Common worker errors.
var (
	ErrInvalidState    = errors.New("invalid thread state")
	ErrThreadCreate    = errors.New("thread creation failed")
	ErrAlreadyStarted  = errors.New("already started")
	ErrThreadLimit     = errors.New("thread limit reached")
	ErrInvalidPriority = errors.New("invalid priority")
)

// contractViolation panics; it is reserved for caller logic bugs.
func contractViolation(thread, reason string) {
	panic(fmt.Errorf("%w: thread %q: %s", ErrInvalidState, thread, reason))
}
