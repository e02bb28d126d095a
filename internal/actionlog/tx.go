package actionlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rewindable/rewind/internal/action"
)

const (
	tableUndo = "undo_action"
	tableRedo = "redo_action"
)

// querier is the subset of *sql.DB / *sql.Tx used by shared read helpers.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is one stack-mutating sequence against the log. All operations observe
// each other's effects but nothing is durable until Commit; Rollback leaves
// both stacks exactly as they were when the Tx began.
type Tx struct {
	tx   *sql.Tx
	done bool
}

// Commit makes the sequence durable.
func (t *Tx) Commit() error {
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit action log tx: %w", err)
	}
	return nil
}

// Rollback discards the sequence. No-op after Commit, so it is safe to
// defer unconditionally.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback action log tx: %w", err)
	}
	return nil
}

// NextSeq returns the capture sequence number a group committed now should
// take: one past the highest on the key's undo stack. Monotonic per key as
// long as it is read and used within the same Tx as the append.
func (t *Tx) NextSeq(ctx context.Context, key action.EntityKey) (int64, error) {
	var next int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(capture_seq), 0) + 1 FROM undo_action
		 WHERE object_type = ? AND object_id = ?`,
		key.ObjectType, key.ObjectID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next capture seq: %w", err)
	}
	return next, nil
}

// AppendUndo pushes a freshly captured group onto the undo stack and clears
// the redo stack for the key in the same transaction. Capturing forks
// history, and a fork invalidates all forward history.
func (t *Tx) AppendUndo(ctx context.Context, g action.Group) error {
	if err := t.insertGroup(ctx, tableUndo, g); err != nil {
		return fmt.Errorf("append undo: %w", err)
	}
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM redo_action WHERE object_type = ? AND object_id = ?`,
		g.Key.ObjectType, g.Key.ObjectID,
	)
	if err != nil {
		return fmt.Errorf("append undo: clear redo: %w", err)
	}
	return nil
}

// PushUndo places a group onto the undo stack without touching the redo
// stack. Used when a redone group returns to the undo side.
func (t *Tx) PushUndo(ctx context.Context, g action.Group) error {
	if err := t.insertGroup(ctx, tableUndo, g); err != nil {
		return fmt.Errorf("push undo: %w", err)
	}
	return nil
}

// PushRedo places a group onto the redo stack. Used for the mirrored group
// produced by executing an undo.
func (t *Tx) PushRedo(ctx context.Context, g action.Group) error {
	if err := t.insertGroup(ctx, tableRedo, g); err != nil {
		return fmt.Errorf("push redo: %w", err)
	}
	return nil
}

// PopUndo removes and returns the most recent undo group for key (highest
// capture_seq), or nil if the stack is empty.
func (t *Tx) PopUndo(ctx context.Context, key action.EntityKey) (*action.Group, error) {
	g, err := t.popGroup(ctx, tableUndo, "MAX", key)
	if err != nil {
		return nil, fmt.Errorf("pop undo: %w", err)
	}
	return g, nil
}

// PopRedo removes and returns the most recently pushed redo group for key,
// or nil if the stack is empty. Groups keep their capture_seq while crossing
// stacks, so the top of the redo stack is the LOWEST sequence number.
func (t *Tx) PopRedo(ctx context.Context, key action.EntityKey) (*action.Group, error) {
	g, err := t.popGroup(ctx, tableRedo, "MIN", key)
	if err != nil {
		return nil, fmt.Errorf("pop redo: %w", err)
	}
	return g, nil
}

// Count returns the stack depths for key as observed inside this Tx.
// Undo/redo report their results from this, measured after the pops and
// pushes of the sequence.
func (t *Tx) Count(ctx context.Context, key action.EntityKey) (undo, redo int, err error) {
	undo, err = countStack(ctx, t.tx, tableUndo, key)
	if err != nil {
		return 0, 0, err
	}
	redo, err = countStack(ctx, t.tx, tableRedo, key)
	if err != nil {
		return 0, 0, err
	}
	return undo, redo, nil
}

// insertGroup writes one row per operation. The UNIQUE constraint on
// (object_type, object_id, capture_seq, op_index) rejects a duplicate push
// of the same group rather than silently corrupting the stack.
func (t *Tx) insertGroup(ctx context.Context, table string, g action.Group) error {
	if err := g.Validate(); err != nil {
		return err
	}

	for i, op := range g.Ops {
		identity, err := marshalValues(op.Identity)
		if err != nil {
			return fmt.Errorf("op %d: identity: %w", i, err)
		}
		oldVals, err := marshalNullable(op.Old)
		if err != nil {
			return fmt.Errorf("op %d: old values: %w", i, err)
		}
		newVals, err := marshalNullable(op.New)
		if err != nil {
			return fmt.Errorf("op %d: new values: %w", i, err)
		}

		_, err = t.tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s
			(object_type, object_id, capture_seq, capture_token, op_index, kind, target, row_identity, old_values, new_values)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, table),
			g.Key.ObjectType,
			g.Key.ObjectID,
			g.Seq,
			g.Token,
			i,
			string(op.Kind),
			op.Target,
			identity,
			oldVals,
			newVals,
		)
		if err != nil {
			return fmt.Errorf("op %d: insert: %w", i, err)
		}
	}
	return nil
}

// popGroup removes and returns the group at the stack head, selected by the
// given aggregate over capture_seq ("MAX" for undo, "MIN" for redo).
func (t *Tx) popGroup(ctx context.Context, table, agg string, key action.EntityKey) (*action.Group, error) {
	var seq sql.NullInt64
	err := t.tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s(capture_seq) FROM %s WHERE object_type = ? AND object_id = ?`, agg, table),
		key.ObjectType, key.ObjectID,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("head seq: %w", err)
	}
	if !seq.Valid {
		return nil, nil // empty stack
	}

	g, err := readGroup(ctx, t.tx, table, key, seq.Int64)
	if err != nil {
		return nil, err
	}

	_, err = t.tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE object_type = ? AND object_id = ? AND capture_seq = ?`, table),
		key.ObjectType, key.ObjectID, seq.Int64,
	)
	if err != nil {
		return nil, fmt.Errorf("delete group: %w", err)
	}

	return g, nil
}

// readGroup reassembles the group with the given capture_seq, operations in
// op_index order.
func readGroup(ctx context.Context, q querier, table string, key action.EntityKey, seq int64) (*action.Group, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT capture_token, kind, target, row_identity, old_values, new_values
		FROM %s
		WHERE object_type = ? AND object_id = ? AND capture_seq = ?
		ORDER BY op_index ASC
	`, table),
		key.ObjectType, key.ObjectID, seq,
	)
	if err != nil {
		return nil, fmt.Errorf("read group: %w", err)
	}
	defer rows.Close()

	g := &action.Group{Key: key, Seq: seq}
	for rows.Next() {
		var (
			token, kind, target, identity string
			oldVals, newVals              sql.NullString
		)
		if err := rows.Scan(&token, &kind, &target, &identity, &oldVals, &newVals); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}

		op := action.Operation{Kind: action.Kind(kind), Target: target}
		if op.Identity, err = action.UnmarshalCanonical([]byte(identity)); err != nil {
			return nil, fmt.Errorf("identity payload: %w", err)
		}
		if op.Old, err = unmarshalNullable(oldVals); err != nil {
			return nil, fmt.Errorf("old values payload: %w", err)
		}
		if op.New, err = unmarshalNullable(newVals); err != nil {
			return nil, fmt.Errorf("new values payload: %w", err)
		}

		g.Token = token
		g.Ops = append(g.Ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	if len(g.Ops) == 0 {
		return nil, fmt.Errorf("group %s seq %d: no rows", key, seq)
	}
	return g, nil
}

// countStack counts distinct groups on one stack for key.
func countStack(ctx context.Context, q querier, table string, key action.EntityKey) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(DISTINCT capture_seq) FROM %s WHERE object_type = ? AND object_id = ?`, table),
		key.ObjectType, key.ObjectID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
