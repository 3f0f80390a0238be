package dag

import "errors"

// ErrUnknownID is returned by Retry when asked to retry an id the
// store has never seen.
var ErrUnknownID = errors.New("dag: unknown id")

// ErrAlreadyApplied is returned by Retry when asked to retry an id
// that is already applied.
var ErrAlreadyApplied = errors.New("dag: already applied")

// ErrNotReady is returned by Retry when the id's parents are not yet
// all satisfied.
var ErrNotReady = errors.New("dag: parents not satisfied")

// ApplyError wraps a failure returned by an Applier. Per spec.md §6-§7
// this is fatal to the delta being applied but not to the engine
// itself: the caller may retry, trigger a full resync, or abandon.
type ApplyError struct {
	// Message is a human-readable context string; the Store sets it to
	// the hex id of the delta that failed.
	Message string
	// Err is the error the applier returned, if any.
	Err error
}

func (e *ApplyError) Error() string {
	if e.Err != nil {
		return "dag: apply failed: " + e.Message + ": " + e.Err.Error()
	}
	return "dag: apply failed: " + e.Message
}

// Unwrap exposes the underlying applier error for errors.As/errors.Is.
func (e *ApplyError) Unwrap() error { return e.Err }

// NewApplyError builds an ApplyError from a message and an optional
// underlying cause.
func NewApplyError(message string, cause error) *ApplyError {
	return &ApplyError{Message: message, Err: cause}
}
