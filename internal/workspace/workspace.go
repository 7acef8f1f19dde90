// Package workspace locates the project root a reactive instance operates
// from, mirroring a VCS-root finder (spec.md §4.11).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the marker file FindRoot walks upward looking for.
const ConfigFileName = "reactive.yaml"

// FindRoot walks upward from the current working directory looking for
// reactive.yaml. If none is found by the filesystem root, the current
// working directory itself is used.
func FindRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return FindRootFrom(cwd)
}

// FindRootFrom runs the same upward search starting from an explicit
// directory, used by tests and by --cwd-style overrides.
func FindRootFrom(start string) (string, error) {
	dir := start
	for {
		marker := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(marker); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

// Resolve joins a path to a project root unless it is already absolute,
// the same rule every workspace-relative config value (store path, source
// directory, migration rules path) follows.
func Resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// StorePath resolves the store path relative to a project root, honoring
// an absolute override.
func StorePath(root, storePath string) string { return Resolve(root, storePath) }

// SourceDir resolves the function source directory relative to a project
// root, honoring an absolute override.
func SourceDir(root, sourceDir string) string { return Resolve(root, sourceDir) }
