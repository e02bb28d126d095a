package engine

import (
	"context"
	"fmt"

	"github.com/rewindable/rewind/internal/action"
	"github.com/rewindable/rewind/internal/actionlog"
)

// Engine orchestrates capture, undo and redo over a durable action log.
// Safe for concurrent use; histories for different keys proceed fully
// independently.
type Engine struct {
	log    *actionlog.Log
	tokens TokenGenerator
	locks  *keyLocks
}

// New creates an engine over the given action log. A nil token generator
// defaults to UUIDv7 capture tokens.
func New(log *actionlog.Log, tokens TokenGenerator) *Engine {
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Engine{
		log:    log,
		tokens: tokens,
		locks:  newKeyLocks(),
	}
}

// Capture opens a capture session for (objectType, objectID). It blocks
// until any other open session for the same key closes, or ctx is done.
// The caller must end the session with Commit or Abort on every path.
func (e *Engine) Capture(ctx context.Context, objectType string, objectID int64) (*Session, error) {
	key := action.EntityKey{ObjectType: objectType, ObjectID: objectID}
	release, err := e.locks.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Session{
		engine:  e,
		key:     key,
		release: release,
	}, nil
}

// Undo reverses the most recently captured (or redone) group for the key.
// Returns the stack depths measured after the call. An empty undo stack is
// a normal no-op returning the unchanged counts.
//
// On a statement failure the action log is rolled back intact and a
// ReplayExecutionError identifies the failing operation.
func (e *Engine) Undo(ctx context.Context, exec Executor, objectType string, objectID int64) (undoCount, redoCount int, err error) {
	return e.replay(ctx, exec, action.EntityKey{ObjectType: objectType, ObjectID: objectID}, directionUndo)
}

// Redo re-applies the most recently undone group for the key. Counterpart
// of Undo in every respect: forward operations in original order, counts
// measured post-call, empty stack is a no-op, failure leaves the log
// untouched.
func (e *Engine) Redo(ctx context.Context, exec Executor, objectType string, objectID int64) (undoCount, redoCount int, err error) {
	return e.replay(ctx, exec, action.EntityKey{ObjectType: objectType, ObjectID: objectID}, directionRedo)
}

// Counts returns the current stack depths for the key without mutating
// anything.
func (e *Engine) Counts(ctx context.Context, objectType string, objectID int64) (undoCount, redoCount int, err error) {
	return e.log.Count(ctx, action.EntityKey{ObjectType: objectType, ObjectID: objectID})
}

// ClearHistory drops both stacks for the key. Live data is untouched.
func (e *Engine) ClearHistory(ctx context.Context, objectType string, objectID int64) error {
	return e.log.ClearHistory(ctx, action.EntityKey{ObjectType: objectType, ObjectID: objectID})
}

type direction int

const (
	directionUndo direction = iota
	directionRedo
)

func (d direction) String() string {
	if d == directionUndo {
		return "undo"
	}
	return "redo"
}

// replay is the shared undo/redo sequence: pop the head group from one
// stack, execute its mirror front to back, push the mirror onto the
// opposite stack. Pop, execution and push share one log transaction, so a
// mid-group failure rolls everything back and the caller observes a no-op
// plus the error.
func (e *Engine) replay(ctx context.Context, exec Executor, key action.EntityKey, dir direction) (int, int, error) {
	tx, err := e.log.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%s %s: %w", dir, key, err)
	}
	defer tx.Rollback()

	var group *action.Group
	if dir == directionUndo {
		group, err = tx.PopUndo(ctx, key)
	} else {
		group, err = tx.PopRedo(ctx, key)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%s %s: %w", dir, key, err)
	}

	if group == nil {
		// Nothing to replay: report current counts, no storage writes.
		undo, redo, err := tx.Count(ctx, key)
		if err != nil {
			return 0, 0, fmt.Errorf("%s %s: %w", dir, key, err)
		}
		return undo, redo, nil
	}

	mirror := group.Mirror()
	for i, op := range mirror.Ops {
		if err := exec.ExecOperation(ctx, op); err != nil {
			// defer'd rollback restores the popped group to its stack.
			return 0, 0, &ReplayExecutionError{
				Direction: dir.String(),
				Key:       key,
				Index:     i,
				Kind:      op.Kind,
				Target:    op.Target,
				Err:       err,
			}
		}
	}

	if dir == directionUndo {
		err = tx.PushRedo(ctx, mirror)
	} else {
		err = tx.PushUndo(ctx, mirror)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%s %s: %w", dir, key, err)
	}

	undo, redo, err := tx.Count(ctx, key)
	if err != nil {
		return 0, 0, fmt.Errorf("%s %s: %w", dir, key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("%s %s: %w", dir, key, err)
	}
	return undo, redo, nil
}
