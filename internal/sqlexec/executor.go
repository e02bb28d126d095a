package sqlexec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rewindable/rewind/internal/action"
)

// Execer is the subset of *sql.DB / *sql.Tx the executor needs. Passing an
// open *sql.Tx scopes replay to the host's transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Executor applies operations to a live store. It implements
// engine.Executor.
type Executor struct {
	db Execer
}

// NewExecutor creates an executor over db.
func NewExecutor(db Execer) *Executor {
	return &Executor{db: db}
}

// ExecOperation compiles and runs one operation. Updates and deletes that
// match no rows fail: during replay the target row must exist, and a silent
// zero-row statement would let history drift from the data.
func (e *Executor) ExecOperation(ctx context.Context, op action.Operation) error {
	query, args, err := Compile(op)
	if err != nil {
		return err
	}

	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", op.Kind, op.Target, err)
	}

	if op.Kind == action.KindUpdate || op.Kind == action.KindDelete {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s on %s: rows affected: %w", op.Kind, op.Target, err)
		}
		if n == 0 {
			return fmt.Errorf("%s on %s: no row matched identity %v", op.Kind, op.Target, op.Identity.Columns())
		}
	}

	return nil
}
