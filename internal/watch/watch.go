// Package watch is the reference fsnotify-based implementation of the
// narrow file-watcher interface spec.md §9 calls out as an external
// collaborator. The engine core never imports fsnotify directly; only this
// optional adapter does (spec.md §4.15).
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events (e.g. an editor's
// save-then-rename sequence) into a single onChange call.
const debounceWindow = 250 * time.Millisecond

// Dir watches dir recursively and calls onChange, debounced, whenever a
// file under it changes, is created, or is removed. It blocks until ctx is
// canceled.
func Dir(ctx context.Context, dir string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := addRecursive(watcher, dir); err != nil {
		return err
	}

	var mu sync.Mutex
	var timer *time.Timer

	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceWindow, onChange)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() && event.Op&fsnotify.Create != 0 {
				if err := addRecursive(watcher, event.Name); err != nil {
					log.Printf("watch: failed to add %q: %v", event.Name, err)
				}
			}
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
