package engine

import (
	"errors"
	"fmt"

	"github.com/rewindable/rewind/internal/action"
)

// ErrSessionClosed is returned when observing or committing a session that
// has already been committed or aborted.
var ErrSessionClosed = errors.New("capture session is closed")

// ErrSessionAborted is returned when committing a session that was aborted,
// either explicitly or by an unsupported event.
var ErrSessionAborted = errors.New("capture session was aborted")

// ReplayExecutionError reports a statement failure while executing a group
// during undo or redo. The action log is left exactly as before the call:
// the popped group is back on its original stack.
type ReplayExecutionError struct {
	// Direction is "undo" or "redo".
	Direction string

	// Key identifies the affected history line.
	Key action.EntityKey

	// Index is the failing operation's position within the executed
	// (mirrored) sequence, 0-based.
	Index int

	// Kind and Target identify the failing operation.
	Kind   action.Kind
	Target string

	// Err is the executor's failure.
	Err error
}

// Error implements the error interface.
func (e *ReplayExecutionError) Error() string {
	return fmt.Sprintf("%s %s: op %d (%s on %s) failed: %v",
		e.Direction, e.Key, e.Index, e.Kind, e.Target, e.Err)
}

// Unwrap exposes the executor's failure for errors.Is/As.
func (e *ReplayExecutionError) Unwrap() error {
	return e.Err
}

// IsReplayError reports whether err is (or wraps) a ReplayExecutionError.
func IsReplayError(err error) bool {
	var re *ReplayExecutionError
	return errors.As(err, &re)
}
