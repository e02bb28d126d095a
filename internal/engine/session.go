package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rewindable/rewind/internal/action"
	"github.com/rewindable/rewind/internal/capture"
)

type sessionState int

const (
	stateOpen sessionState = iota
	stateCommitted
	stateAborted
)

// Session is one capture scope: the bounded unit of work during which the
// host's mutations are observed and grouped. Operations accumulate in
// memory in issuance order; nothing touches the action log until Commit.
//
// Every exit path must close the session: Commit on success, Abort on
// failure. An unsupported event aborts it immediately. Closing releases the
// per-key capture lock.
//
// A session is used from one goroutine at a time in the typical
// request-scoped pattern, but is internally locked so a misbehaving host
// cannot corrupt the pending list.
type Session struct {
	engine  *Engine
	key     action.EntityKey
	release func()

	mu      sync.Mutex
	state   sessionState
	pending []action.Operation
}

// Key returns the entity key this session captures for.
func (s *Session) Key() action.EntityKey {
	return s.key
}

// Observe records one host mutation event into the session, in issuance
// order. An event that cannot be captured (no row identity, wrong shape)
// aborts the session and returns the unsupported-operation error; the
// caller should abandon the unit of work.
func (s *Session) Observe(ev capture.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateOpen {
		return ErrSessionClosed
	}

	op, err := capture.Record(ev)
	if err != nil {
		s.abortLocked()
		return fmt.Errorf("observe %s: %w", s.key, err)
	}

	s.pending = append(s.pending, op)
	return nil
}

// Commit closes the session. If any operations were observed they are
// wrapped into one group and appended to the key's undo stack - clearing
// its redo stack - in a single log transaction. An empty session commits
// as a no-op: nothing is logged.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateAborted:
		return ErrSessionAborted
	case stateCommitted:
		return ErrSessionClosed
	}

	if len(s.pending) == 0 {
		s.state = stateCommitted
		s.release()
		return nil
	}

	tx, err := s.engine.log.Begin(ctx)
	if err != nil {
		return fmt.Errorf("commit capture %s: %w", s.key, err)
	}
	defer tx.Rollback()

	seq, err := tx.NextSeq(ctx, s.key)
	if err != nil {
		return fmt.Errorf("commit capture %s: %w", s.key, err)
	}

	group := action.Group{
		Key:   s.key,
		Seq:   seq,
		Token: s.engine.tokens.Generate(),
		Ops:   s.pending,
	}
	if err := tx.AppendUndo(ctx, group); err != nil {
		return fmt.Errorf("commit capture %s: %w", s.key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit capture %s: %w", s.key, err)
	}

	s.state = stateCommitted
	s.pending = nil
	s.release()
	return nil
}

// Abort closes the session discarding all pending operations. Both stacks
// and the underlying data are left untouched. Safe to call on an already
// closed session (so it can be deferred alongside a conditional Commit).
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateOpen {
		s.abortLocked()
	}
}

func (s *Session) abortLocked() {
	s.state = stateAborted
	s.pending = nil
	s.release()
}

// Pending returns the number of operations observed so far.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
