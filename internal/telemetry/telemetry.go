// Package telemetry implements Operation Telemetry (spec.md §4.8): an
// append-only JSON-lines event log plus a small aggregate snapshot,
// neither of which may ever block or mask the operation being recorded.
package telemetry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/reactivedb/reactive/internal/engineerr"
	_ "modernc.org/sqlite"
)

// Status is the outcome of one recorded operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Event is one operation record (spec.md §4.8).
type Event struct {
	Timestamp  time.Time      `json:"timestamp"`
	Operation  string         `json:"operation"`
	Status     Status         `json:"status"`
	Collection string         `json:"collection,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
}

const logFileName = "log.txt"
const snapshotFileName = "dbstat.sqlite3"

// Log owns the JSON-lines event file and the aggregate snapshot database
// under a single logger directory.
type Log struct {
	mu   sync.Mutex
	file *os.File
	db   *sql.DB
}

// Open creates the logger directory if needed and opens both sinks.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, engineerr.Database(err, "create telemetry directory %q", dir)
	}

	file, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, engineerr.Database(err, "open telemetry log %q", dir)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, snapshotFileName))
	if err != nil {
		_ = file.Close()
		return nil, engineerr.Database(err, "open telemetry snapshot db %q", dir)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_operations INTEGER NOT NULL DEFAULT 0,
			total_errors INTEGER NOT NULL DEFAULT 0,
			last_operation TEXT,
			last_status TEXT,
			updated_at TEXT
		);
		CREATE TABLE IF NOT EXISTS collection_counts (
			collection TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		);
	`); err != nil {
		_ = file.Close()
		_ = db.Close()
		return nil, engineerr.Database(err, "bootstrap telemetry snapshot db %q", dir)
	}

	return &Log{file: file, db: db}, nil
}

// Close releases both sinks.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	logErr := l.file.Close()
	dbErr := l.db.Close()
	if logErr != nil {
		return engineerr.Database(logErr, "close telemetry log")
	}
	if dbErr != nil {
		return engineerr.Database(dbErr, "close telemetry snapshot db")
	}
	return nil
}

// Record appends ev to the event log and updates the aggregate snapshot. A
// failure in either sink is logged and swallowed: telemetry must never
// mask or abort the primary operation it describes (spec.md §4.8).
func (l *Log) Record(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.appendLine(ev); err != nil {
		log.Printf("telemetry: failed to append event for %q: %v", ev.Operation, err)
	}
	if err := l.updateSnapshot(ev); err != nil {
		log.Printf("telemetry: failed to update snapshot for %q: %v", ev.Operation, err)
	}
}

func (l *Log) appendLine(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = l.file.Write(append(data, '\n'))
	return err
}

func (l *Log) updateSnapshot(ev Event) error {
	isError := 0
	if ev.Status == StatusError {
		isError = 1
	}
	if _, err := l.db.Exec(`
		INSERT INTO snapshot (id, total_operations, total_errors, last_operation, last_status, updated_at)
		VALUES (1, 1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total_operations = total_operations + 1,
			total_errors = total_errors + excluded.total_errors,
			last_operation = excluded.last_operation,
			last_status = excluded.last_status,
			updated_at = excluded.updated_at
	`, isError, ev.Operation, string(ev.Status), ev.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if ev.Collection == "" {
		return nil
	}
	_, err := l.db.Exec(`
		INSERT INTO collection_counts (collection, count) VALUES (?, 1)
		ON CONFLICT(collection) DO UPDATE SET count = count + 1
	`, ev.Collection)
	return err
}

// Snapshot is the aggregate view persisted in dbstat.sqlite3.
type Snapshot struct {
	TotalOperations int
	TotalErrors     int
	LastOperation   string
	LastStatus      string
	CollectionCount map[string]int
}

// ReadSnapshot loads the current aggregate snapshot, used by operational
// tooling rather than the hot path.
func (l *Log) ReadSnapshot() (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var snap Snapshot
	row := l.db.QueryRow(`SELECT total_operations, total_errors, last_operation, last_status FROM snapshot WHERE id = 1`)
	var lastOp, lastStatus sql.NullString
	if err := row.Scan(&snap.TotalOperations, &snap.TotalErrors, &lastOp, &lastStatus); err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{CollectionCount: map[string]int{}}, nil
		}
		return Snapshot{}, engineerr.Database(err, "read telemetry snapshot")
	}
	snap.LastOperation = lastOp.String
	snap.LastStatus = lastStatus.String

	rows, err := l.db.Query(`SELECT collection, count FROM collection_counts`)
	if err != nil {
		return Snapshot{}, engineerr.Database(err, "read collection counts")
	}
	defer func() { _ = rows.Close() }()

	snap.CollectionCount = map[string]int{}
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return Snapshot{}, engineerr.Database(err, "scan collection count row")
		}
		snap.CollectionCount[name] = count
	}
	return snap, rows.Err()
}
