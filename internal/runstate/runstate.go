// Package runstate tracks whether a reactive serve process is currently
// running, mirroring a daemon PID file (spec.md §4.14).
package runstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const fileName = "reactive.state"

// State is the on-disk shape written when serve starts.
type State struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"startedAt"`
}

// Path returns the path to the run-state file under a project root.
func Path(root string) string {
	return filepath.Join(root, fileName)
}

// Create writes the run-state file for the current process.
func Create(root string) error {
	state := State{PID: os.Getpid(), StartedAt: time.Now()}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}
	if err := os.WriteFile(Path(root), data, 0644); err != nil {
		return fmt.Errorf("write run state file: %w", err)
	}
	return nil
}

// Remove deletes the run-state file, tolerating it already being absent.
func Remove(root string) error {
	if err := os.Remove(Path(root)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove run state file: %w", err)
	}
	return nil
}

// IsRunning reports whether a run-state file names a process that is still
// alive, removing a stale file along the way.
func IsRunning(root string) (bool, *State, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("read run state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		_ = os.Remove(path)
		return false, nil, nil
	}

	process, err := os.FindProcess(state.PID)
	if err != nil {
		_ = os.Remove(path)
		return false, nil, nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		_ = os.Remove(path)
		return false, nil, nil
	}

	return true, &state, nil
}
