package scenario

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a terminal session is asked to
// transition again. Callers treat it as a no-op with a warning, never fatal.
var ErrInvalidTransition = errors.New("session already in a terminal state")

// ErrInconsistentProgress is returned when persisted quiz answers cannot be
// reconciled into a contiguous index sequence. Callers recover by offering
// a full restart.
var ErrInconsistentProgress = errors.New("persisted quiz progress is inconsistent")

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = errors.New("session not found")

// TransientError marks a storage failure that may succeed on a prompt retry.
// Session lifecycle writes retry once on it; event-log appends never do.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient storage failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for operation op.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
