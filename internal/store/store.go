// Package store owns the single physical SQLite handle shared by the
// relational engine, the vector engine and the schema applier. It is the
// only package that opens the engine's store file; telemetry opens its own
// separate SQLite log through the same driver.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reactivedb/reactive/internal/engineerr"
	_ "modernc.org/sqlite"
)

// FileName is the default on-disk name of the engine's store file.
const FileName = "reactive.db"

// Store wraps the *sql.DB handle opened against the engine's store file. A
// Store is opened once per process; operations issued after Close fail with
// DatabaseError.
type Store struct {
	DB     *sql.DB
	Path   string
	closed bool
}

// Open creates the store directory if needed, opens the SQLite handle,
// applies pragmas, and bootstraps the engine-internal meta tables.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, engineerr.Database(err, "create store directory for %q", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, engineerr.Database(err, "open store %q", path)
	}
	// A single physical connection keeps every PRAGMA (foreign_keys in
	// particular, which the migrator toggles around a transaction) applying
	// to the same session instead of a pool member the next statement
	// might not land on.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, engineerr.Database(err, "apply %q", pragma)
		}
	}

	s := &Store{DB: db, Path: path}
	if err := s.bootstrap(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// bootstrap creates the meta tables the schema applier and vector engine
// rely on as their only source of truth for managed-table state.
func (s *Store) bootstrap() error {
	schema := `
		CREATE TABLE IF NOT EXISTS _schema_meta (
			table_name TEXT PRIMARY KEY,
			table_signature TEXT NOT NULL,
			table_definition TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS _schema_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_signature TEXT NOT NULL,
			managed_tables TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS _vector_collections (
			name TEXT PRIMARY KEY,
			metadata TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`
	if _, err := s.DB.Exec(schema); err != nil {
		return engineerr.Database(err, "bootstrap meta tables")
	}
	return nil
}

// SetForeignKeys toggles PRAGMA foreign_keys on the store's single
// connection.
func (s *Store) SetForeignKeys(on bool) error {
	val := "ON"
	if !on {
		val = "OFF"
	}
	if _, err := s.DB.Exec(fmt.Sprintf("PRAGMA foreign_keys = %s", val)); err != nil {
		return engineerr.Database(err, "set foreign_keys = %s", val)
	}
	return nil
}

// ForeignKeyCheck runs PRAGMA foreign_key_check and reports whether any
// violation rows were returned.
func (s *Store) ForeignKeyCheck() (bool, error) {
	rows, err := s.DB.Query("PRAGMA foreign_key_check")
	if err != nil {
		return false, engineerr.Database(err, "foreign_key_check")
	}
	defer func() { _ = rows.Close() }()
	return rows.Next(), rows.Err()
}

// Close commits pending WAL state and releases the handle. Any operation
// issued through the Store after Close fails deterministically.
func (s *Store) Close() error {
	s.closed = true
	if err := s.DB.Close(); err != nil {
		return engineerr.Database(err, "close store")
	}
	return nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool { return s.closed }

// EnsureOpen returns DatabaseError if the store has been closed, used as a
// guard at the top of every public engine operation.
func (s *Store) EnsureOpen() error {
	if s.closed {
		return engineerr.Database(nil, "store %q is closed", s.Path)
	}
	return nil
}

// Backup copies the current store file to dest, used by the migrator before
// any schema change with migrations (spec.md §4.3 step 1).
func Backup(srcPath, destPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return engineerr.Database(err, "read store %q for backup", srcPath)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return engineerr.Database(err, "write backup %q", destPath)
	}
	return nil
}
