package harness

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/rewindable/rewind/internal/action"
)

// EvaluateAssertions checks every assertion against the result and the
// final live state, returning one message per failure. Evaluation never
// stops early: a scenario report lists everything that went wrong.
func EvaluateAssertions(ctx context.Context, db *sql.DB, result *Result, assertions []Assertion) []string {
	var failures []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStackCounts:
			err = assertStackCounts(result, a)
		case AssertRowExists:
			err = assertRowCount(ctx, db, a, true)
		case AssertRowAbsent:
			err = assertRowCount(ctx, db, a, false)
		case AssertRowValues:
			err = assertRowValues(ctx, db, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}

	return failures
}

func assertStackCounts(result *Result, a Assertion) error {
	if result.UndoCount != a.Undo || result.RedoCount != a.Redo {
		return fmt.Errorf("expected undo=%d redo=%d, got undo=%d redo=%d",
			a.Undo, a.Redo, result.UndoCount, result.RedoCount)
	}
	return nil
}

func assertRowCount(ctx context.Context, db *sql.DB, a Assertion, wantExists bool) error {
	where, args := whereFromMap(a.Where)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %q WHERE %s", a.Table, where)

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return fmt.Errorf("query %s: %w", a.Table, err)
	}

	if wantExists && n == 0 {
		return fmt.Errorf("no row in %s matches %v", a.Table, a.Where)
	}
	if !wantExists && n > 0 {
		return fmt.Errorf("%d row(s) in %s match %v, expected none", n, a.Table, a.Where)
	}
	return nil
}

func assertRowValues(ctx context.Context, db *sql.DB, a Assertion) error {
	cols := make([]string, 0, len(a.Expect))
	for col := range a.Expect {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = fmt.Sprintf("%q", col)
	}

	where, args := whereFromMap(a.Where)
	query := fmt.Sprintf("SELECT %s FROM %q WHERE %s",
		strings.Join(quoted, ", "), a.Table, where)

	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := db.QueryRowContext(ctx, query, args...).Scan(ptrs...); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("no row in %s matches %v", a.Table, a.Where)
		}
		return fmt.Errorf("query %s: %w", a.Table, err)
	}

	var actual action.RowValues
	for i, col := range cols {
		actual = actual.Set(col, dest[i])
	}
	expected := rowFromMap(a.Expect)

	if !actual.Equal(expected) {
		return fmt.Errorf("row in %s matching %v: expected %v, got %v",
			a.Table, a.Where, expected, actual)
	}
	return nil
}

// whereFromMap builds a deterministic WHERE clause from a filter map.
func whereFromMap(m map[string]any) (string, []any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		clauses[i] = fmt.Sprintf("%q = ?", k)
		args[i] = m[k]
	}
	return strings.Join(clauses, " AND "), args
}
