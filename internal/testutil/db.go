// Package testutil provides shared test fixtures: a throwaway live SQLite
// store with a small documents schema that capture, replay and CLI tests
// run against.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// liveSchema is a deliberately small host schema: one table with an
// auto-assigned key, a composite-free identity and a couple of typed
// columns.
const liveSchema = `
CREATE TABLE documents (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     TEXT    NOT NULL,
    revision INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE attachments (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    path        TEXT    NOT NULL
);
`

// OpenLiveDB creates a fresh live store in the test's temp dir and applies
// the documents schema. The handle is closed automatically on cleanup.
func OpenLiveDB(t *testing.T) *sql.DB {
	t.Helper()
	return CreateLiveDB(t, filepath.Join(t.TempDir(), "live.db"))
}

// CreateLiveDB creates a live store at the given path and applies the
// documents schema. CLI tests use this to pass the path to commands that
// open the store themselves.
func CreateLiveDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open live db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(liveSchema); err != nil {
		t.Fatalf("apply live schema: %v", err)
	}
	return db
}

// OpenExistingDB opens an already-initialized live store at path without
// touching its schema. Used to inspect state after a CLI command ran
// against the file.
func OpenExistingDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open live db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MustExec runs a statement against the live store, failing the test on
// error.
func MustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// DocumentName returns the name column of the document with the given id,
// and whether the row exists.
func DocumentName(t *testing.T, db *sql.DB, id int64) (string, bool) {
	t.Helper()
	var name string
	err := db.QueryRow("SELECT name FROM documents WHERE id = ?", id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		t.Fatalf("query document %d: %v", id, err)
	}
	return name, true
}
