package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecordAppendsLogLineAndUpdatesSnapshot(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = l.Close() }()

	l.Record(Event{Operation: "users.create", Status: StatusSuccess, Collection: "users", DurationMs: 5})
	l.Record(Event{Operation: "users.create", Status: StatusError, Collection: "users", DurationMs: 1})

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	snap, err := l.ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if snap.TotalOperations != 2 {
		t.Fatalf("expected 2 total operations, got %d", snap.TotalOperations)
	}
	if snap.TotalErrors != 1 {
		t.Fatalf("expected 1 total error, got %d", snap.TotalErrors)
	}
	if snap.LastStatus != string(StatusError) {
		t.Fatalf("expected last status %q, got %q", StatusError, snap.LastStatus)
	}
	if snap.CollectionCount["users"] != 2 {
		t.Fatalf("expected collection count 2, got %d", snap.CollectionCount["users"])
	}
}

func TestReadSnapshotOnFreshLogIsEmpty(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = l.Close() }()

	snap, err := l.ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if snap.TotalOperations != 0 || len(snap.CollectionCount) != 0 {
		t.Fatalf("expected an empty snapshot, got %+v", snap)
	}
}
