package actionlog

import (
	"context"
	"fmt"

	"github.com/rewindable/rewind/internal/action"
)

// ListUndo returns all undo groups for key in stack order: oldest first,
// the group an undo would pop last. Read-only; used for history listings.
func (l *Log) ListUndo(ctx context.Context, key action.EntityKey) ([]action.Group, error) {
	return l.listGroups(ctx, tableUndo, key, "ASC")
}

// ListRedo returns all redo groups for key in stack order: the group a redo
// would pop last. The redo stack top is the lowest capture_seq, so stack
// order is descending.
func (l *Log) ListRedo(ctx context.Context, key action.EntityKey) ([]action.Group, error) {
	return l.listGroups(ctx, tableRedo, key, "DESC")
}

func (l *Log) listGroups(ctx context.Context, table string, key action.EntityKey, order string) ([]action.Group, error) {
	rows, err := l.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT DISTINCT capture_seq FROM %s
		 WHERE object_type = ? AND object_id = ?
		 ORDER BY capture_seq %s`, table, order),
		key.ObjectType, key.ObjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var seqs []int64
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("list %s: scan seq: %w", table, err)
		}
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: iterate: %w", table, err)
	}

	groups := make([]action.Group, 0, len(seqs))
	for _, seq := range seqs {
		g, err := readGroup(ctx, l.db, table, key, seq)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", table, err)
		}
		groups = append(groups, *g)
	}
	return groups, nil
}
