package actionlog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rewindable/rewind/internal/action"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added per-key capture_seq indexes
const currentSchemaVersion = 1

// Log is the durable action log: per-key undo and redo stacks backed by
// SQLite. Safe for concurrent use; SQLite's locking plus the single-writer
// pool serialize stack mutation.
type Log struct {
	db *sql.DB
}

// Open creates or opens the action log database at the given path, applying
// pragmas and schema migrations. Tables are created lazily on first use, so
// pointing the engine at a fresh path is enough to bootstrap it.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open action log: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect action log: %w", err)
	}

	// SQLite supports one writer at a time; a single-connection pool avoids
	// SQLITE_BUSY on concurrent stack mutation.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure action log: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate action log: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Begin starts a transaction for a stack-mutating sequence. All pushes and
// pops happen on the returned Tx; nothing is visible to other callers until
// Commit, and Rollback restores both stacks exactly.
func (l *Log) Begin(ctx context.Context) (*Tx, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin action log tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Count returns the current stack depths for key without a transaction.
// Read-only convenience for history listings; callers inside a mutation
// sequence use Tx.Count instead.
func (l *Log) Count(ctx context.Context, key action.EntityKey) (undo, redo int, err error) {
	undo, err = countStack(ctx, l.db, tableUndo, key)
	if err != nil {
		return 0, 0, err
	}
	redo, err = countStack(ctx, l.db, tableRedo, key)
	if err != nil {
		return 0, 0, err
	}
	return undo, redo, nil
}

// ClearHistory removes all recorded history for key, both stacks, in one
// transaction. Live data is untouched; only the ability to undo/redo is
// forfeited.
func (l *Log) ClearHistory(ctx context.Context, key action.EntityKey) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear history: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{tableUndo, tableRedo} {
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE object_type = ? AND object_id = ?`, table),
			key.ObjectType, key.ObjectID,
		)
		if err != nil {
			return fmt.Errorf("clear history: %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear history: commit: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 backfills the per-key indexes for databases created before
// versioning. New databases get them from schema.sql; CREATE INDEX IF NOT
// EXISTS makes this a no-op there.
func migrateToV1(db *sql.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_undo_action_key
		 ON undo_action (object_type, object_id, capture_seq)`,
		`CREATE INDEX IF NOT EXISTS idx_redo_action_key
		 ON redo_action (object_type, object_id, capture_seq)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}
