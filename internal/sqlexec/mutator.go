package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rewindable/rewind/internal/action"
	"github.com/rewindable/rewind/internal/capture"
)

// Querier is the subset of *sql.DB / *sql.Tx the mutator needs.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Observer receives one event per mutation the mutator performs.
// engine.Session satisfies it.
type Observer interface {
	Observe(capture.Event) error
}

// Mutator is the capture-side write path: it applies a mutation to the live
// store and hands the corresponding event - with before-images snapshotted
// where needed - to the observer. With a nil observer it is a plain
// structured write helper.
//
// Updates and deletes read the affected row BEFORE mutating it, so the
// event always carries the exact prior values. This is the instrumented
// stand-in for an ORM's statement-interception hooks.
type Mutator struct {
	db  Querier
	obs Observer
}

// NewMutator creates a mutator over db reporting to obs (which may be nil).
func NewMutator(db Querier, obs Observer) *Mutator {
	return &Mutator{db: db, obs: obs}
}

// Insert adds a row and reports an insert event carrying the full inserted
// row. identityCols names the primary key columns; it defaults to "id".
// Identity values are taken from values when present, otherwise - for a
// single auto-assigned key column - from the store's last insert id.
func (m *Mutator) Insert(ctx context.Context, table string, values action.RowValues, identityCols ...string) (action.RowValues, error) {
	if len(identityCols) == 0 {
		identityCols = []string{"id"}
	}

	cols := make([]string, len(values))
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, cv := range values {
		cols[i] = quoteIdent(cv.Column)
		marks[i] = "?"
		args[i] = cv.Value
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}

	identity, err := resolveIdentity(res, values, identityCols)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}

	// The event's after-image is the full row including assigned identity.
	row := values
	for _, cv := range identity {
		if _, ok := row.Get(cv.Column); !ok {
			row = row.Set(cv.Column, cv.Value)
		}
	}

	if m.obs != nil {
		err := m.obs.Observe(capture.Event{
			Kind:     action.KindInsert,
			Target:   table,
			Identity: identity,
			After:    row,
		})
		if err != nil {
			return nil, err
		}
	}
	return identity, nil
}

// Update changes the given columns of one row and reports an update event
// carrying the prior values of exactly those columns. Fails loudly with an
// unsupported-operation error when identity is empty: a set-based update
// with no row identity cannot be captured.
func (m *Mutator) Update(ctx context.Context, table string, identity, set action.RowValues) error {
	if len(identity) == 0 {
		return &capture.UnsupportedOperationError{
			Code:    capture.CodeMissingIdentity,
			Target:  table,
			Message: "update without row identity",
		}
	}

	before, err := m.selectRow(ctx, table, set.Columns(), identity)
	if err != nil {
		return fmt.Errorf("update %s: before image: %w", table, err)
	}

	op := action.Operation{
		Kind:     action.KindUpdate,
		Target:   table,
		Identity: identity,
		Old:      before,
		New:      set,
	}
	query, args, err := Compile(op)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}

	if m.obs != nil {
		return m.obs.Observe(capture.Event{
			Kind:     action.KindUpdate,
			Target:   table,
			Identity: identity,
			Before:   before,
			After:    set,
		})
	}
	return nil
}

// Delete removes one row and reports a delete event carrying the full prior
// row, so an undo can restore every column value.
func (m *Mutator) Delete(ctx context.Context, table string, identity action.RowValues) error {
	if len(identity) == 0 {
		return &capture.UnsupportedOperationError{
			Code:    capture.CodeMissingIdentity,
			Target:  table,
			Message: "delete without row identity",
		}
	}

	before, err := m.selectRow(ctx, table, nil, identity)
	if err != nil {
		return fmt.Errorf("delete from %s: before image: %w", table, err)
	}

	where, args := whereClause(identity)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(table), where)
	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}

	if m.obs != nil {
		return m.obs.Observe(capture.Event{
			Kind:     action.KindDelete,
			Target:   table,
			Identity: identity,
			Before:   before,
		})
	}
	return nil
}

// Exec is the raw statement escape hatch. While an observer is attached it
// refuses outright: raw SQL cannot be decomposed into row-level operations,
// and silently skipping capture would corrupt history. Without an observer
// it passes through.
func (m *Mutator) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if m.obs != nil {
		return nil, capture.NewRawStatementError(query)
	}
	return m.db.ExecContext(ctx, query, args...)
}

// selectRow reads one row by identity. cols limits the selected columns;
// nil selects the whole row. Returns sql.ErrNoRows (wrapped) when the row
// does not exist.
func (m *Mutator) selectRow(ctx context.Context, table string, cols []string, identity action.RowValues) (action.RowValues, error) {
	selectList := "*"
	if len(cols) > 0 {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = quoteIdent(c)
		}
		selectList = strings.Join(quoted, ", ")
	}

	where, args := whereClause(identity)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selectList, quoteIdent(table), where)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	ptrs := make([]any, len(names))
	vals := make([]any, len(names))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(action.RowValues, 0, len(names))
	for i, name := range names {
		row = row.Set(name, vals[i])
	}
	return row, rows.Err()
}

// resolveIdentity determines the primary key values of a just-inserted row:
// caller-supplied values win; a single absent key column falls back to the
// driver's last insert id.
func resolveIdentity(res sql.Result, values action.RowValues, identityCols []string) (action.RowValues, error) {
	var identity action.RowValues
	var missing []string
	for _, col := range identityCols {
		if v, ok := values.Get(col); ok {
			identity = identity.Set(col, v)
		} else {
			missing = append(missing, col)
		}
	}

	switch len(missing) {
	case 0:
		return identity, nil
	case 1:
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("resolve identity column %q: %w", missing[0], err)
		}
		return identity.Set(missing[0], id), nil
	default:
		return nil, fmt.Errorf("identity columns %v not present in inserted values", missing)
	}
}
