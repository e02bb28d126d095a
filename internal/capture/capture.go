// Package capture turns raw mutation events observed from a host's data
// layer into typed, invertible operations.
//
// The event source is deliberately abstract: callbacks, polling or explicit
// instrumentation all work, as long as every row-level mutation arrives with
// full identity and the applicable before/after values before the capture
// scope closes. The recorder has no side effects - it only validates and
// converts.
package capture

import (
	"errors"
	"fmt"

	"github.com/rewindable/rewind/internal/action"
)

// Event is one host-observed row mutation: what happened, to which row, and
// the applicable value snapshots.
//
// Shape rules by kind:
//   - insert: After set, Before absent
//   - delete: Before set, After absent
//   - update: both set
//
// Identity must always be resolvable. Events without it (set-based updates
// with no affected-row enumeration, raw statement passthrough) cannot be
// captured and are rejected - a deliberate scope limit, not a recoverable
// condition.
type Event struct {
	Kind   action.Kind
	Target string

	// Identity holds the primary key columns of the affected row.
	Identity action.RowValues

	// Before holds prior column values (deletes, updates).
	Before action.RowValues

	// After holds resulting column values (inserts, updates).
	After action.RowValues
}

// UnsupportedCode categorizes why an event cannot be captured.
type UnsupportedCode string

const (
	// CodeUnknownKind indicates a mutation class outside insert/update/delete
	// (schema DDL, for instance).
	CodeUnknownKind UnsupportedCode = "UNKNOWN_KIND"

	// CodeMissingIdentity indicates a statement without row-level identity,
	// such as a set-based update with no affected-row enumeration.
	CodeMissingIdentity UnsupportedCode = "MISSING_IDENTITY"

	// CodeMissingValues indicates an event missing the value snapshots its
	// kind requires.
	CodeMissingValues UnsupportedCode = "MISSING_VALUES"

	// CodeRawStatement indicates a raw SQL passthrough that cannot be
	// decomposed into row-level operations.
	CodeRawStatement UnsupportedCode = "RAW_STATEMENT"
)

// UnsupportedOperationError reports a mutation shape that cannot be captured
// with row-level identity. Surfaced at capture time; the enclosing session
// is aborted and nothing is logged.
type UnsupportedOperationError struct {
	Code    UnsupportedCode
	Target  string
	Message string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (target=%s)", e.Code, e.Message, e.Target)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnsupported reports whether err is (or wraps) an
// UnsupportedOperationError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedOperationError
	return errors.As(err, &ue)
}

// NewRawStatementError reports an attempted raw statement passthrough
// inside a capture scope.
func NewRawStatementError(stmt string) *UnsupportedOperationError {
	return &UnsupportedOperationError{
		Code:    CodeRawStatement,
		Message: fmt.Sprintf("raw statement cannot be captured with row identity: %q", stmt),
	}
}

// Record converts an observed event into an operation. Pure validation and
// conversion; it executes nothing and never partially succeeds.
func Record(ev Event) (action.Operation, error) {
	if !ev.Kind.Valid() {
		return action.Operation{}, &UnsupportedOperationError{
			Code:    CodeUnknownKind,
			Target:  ev.Target,
			Message: fmt.Sprintf("mutation kind %q is not invertible", ev.Kind),
		}
	}
	if ev.Target == "" {
		return action.Operation{}, &UnsupportedOperationError{
			Code:    CodeMissingValues,
			Message: "event has no target",
		}
	}
	if len(ev.Identity) == 0 {
		return action.Operation{}, &UnsupportedOperationError{
			Code:    CodeMissingIdentity,
			Target:  ev.Target,
			Message: fmt.Sprintf("%s without row identity", ev.Kind),
		}
	}

	switch ev.Kind {
	case action.KindInsert:
		if len(ev.After) == 0 || len(ev.Before) != 0 {
			return action.Operation{}, &UnsupportedOperationError{
				Code:    CodeMissingValues,
				Target:  ev.Target,
				Message: "insert event must supply new values and omit old values",
			}
		}
	case action.KindDelete:
		if len(ev.Before) == 0 || len(ev.After) != 0 {
			return action.Operation{}, &UnsupportedOperationError{
				Code:    CodeMissingValues,
				Target:  ev.Target,
				Message: "delete event must supply old values and omit new values",
			}
		}
	case action.KindUpdate:
		if len(ev.Before) == 0 || len(ev.After) == 0 {
			return action.Operation{}, &UnsupportedOperationError{
				Code:    CodeMissingValues,
				Target:  ev.Target,
				Message: "update event must supply both old and new values",
			}
		}
	}

	op := action.Operation{
		Kind:     ev.Kind,
		Target:   ev.Target,
		Identity: ev.Identity.Clone(),
		Old:      ev.Before.Clone(),
		New:      ev.After.Clone(),
	}
	if err := op.Validate(); err != nil {
		return action.Operation{}, fmt.Errorf("record event: %w", err)
	}
	return op, nil
}
