// Package sqlexec runs operations against a live database/sql store.
//
// It has two halves. Compile/Executor apply already-recorded operations -
// this is the replay path undo and redo use. Mutator is the capture-side
// write path: it performs the host's inserts, updates and deletes while
// snapshotting before-images and feeding each mutation to an open capture
// session, so the host gets change capture without wiring its own
// instrumentation.
package sqlexec

import (
	"fmt"
	"strings"

	"github.com/rewindable/rewind/internal/action"
)

// Compile converts an operation to one parameterized SQL statement.
// Values are never interpolated - always ? placeholders. Column order
// follows the operation's RowValues order, so compilation is deterministic.
func Compile(op action.Operation) (string, []any, error) {
	if err := op.Validate(); err != nil {
		return "", nil, fmt.Errorf("compile: %w", err)
	}

	switch op.Kind {
	case action.KindInsert:
		return compileInsert(op)
	case action.KindDelete:
		return compileDelete(op)
	default:
		return compileUpdate(op)
	}
}

// compileInsert restores the full row: the captured new values plus any
// identity column they do not already carry.
func compileInsert(op action.Operation) (string, []any, error) {
	row := op.New
	for _, cv := range op.Identity {
		if _, ok := row.Get(cv.Column); !ok {
			row = row.Set(cv.Column, cv.Value)
		}
	}

	cols := make([]string, len(row))
	marks := make([]string, len(row))
	args := make([]any, len(row))
	for i, cv := range row {
		cols[i] = quoteIdent(cv.Column)
		marks[i] = "?"
		args[i] = cv.Value
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(op.Target),
		strings.Join(cols, ", "),
		strings.Join(marks, ", "))
	return query, args, nil
}

func compileDelete(op action.Operation) (string, []any, error) {
	where, args := whereClause(op.Identity)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(op.Target), where)
	return query, args, nil
}

func compileUpdate(op action.Operation) (string, []any, error) {
	sets := make([]string, len(op.New))
	args := make([]any, 0, len(op.New)+len(op.Identity))
	for i, cv := range op.New {
		sets[i] = fmt.Sprintf("%s = ?", quoteIdent(cv.Column))
		args = append(args, cv.Value)
	}

	where, whereArgs := whereClause(op.Identity)
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		quoteIdent(op.Target),
		strings.Join(sets, ", "),
		where)
	return query, args, nil
}

// whereClause builds an AND-joined equality predicate over the identity
// columns, in listed order.
func whereClause(identity action.RowValues) (string, []any) {
	parts := make([]string, len(identity))
	args := make([]any, len(identity))
	for i, cv := range identity {
		parts[i] = fmt.Sprintf("%s = ?", quoteIdent(cv.Column))
		args[i] = cv.Value
	}
	return strings.Join(parts, " AND "), args
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
