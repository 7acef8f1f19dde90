package runstate

import (
	"os"
	"testing"
)

func TestStateFileLifecycle(t *testing.T) {
	dir := t.TempDir()

	running, state, err := IsRunning(dir)
	if err != nil {
		t.Fatalf("IsRunning on empty dir: %v", err)
	}
	if running || state != nil {
		t.Fatalf("expected no run state, got running=%v state=%+v", running, state)
	}

	if err := Create(dir); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Fatalf("expected state file to exist: %v", err)
	}

	running, state, err = IsRunning(dir)
	if err != nil {
		t.Fatalf("IsRunning after Create: %v", err)
	}
	if !running {
		t.Fatalf("expected IsRunning true for the current process")
	}
	if state == nil || state.PID != os.Getpid() {
		t.Fatalf("unexpected state: %+v", state)
	}

	if err := Remove(dir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	running, _, err = IsRunning(dir)
	if err != nil {
		t.Fatalf("IsRunning after Remove: %v", err)
	}
	if running {
		t.Fatalf("expected IsRunning false after Remove")
	}
}

func TestRemoveToleratesMissingFile(t *testing.T) {
	if err := Remove(t.TempDir()); err != nil {
		t.Fatalf("Remove on missing file should be a no-op, got %v", err)
	}
}
