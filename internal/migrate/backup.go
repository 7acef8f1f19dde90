package migrate

import (
	"strings"
	"time"

	"github.com/reactivedb/reactive/internal/store"
)

func nowISOMigrate() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// backup copies the store file to a sibling reactive.backup-<ts>.db file
// before any migration executes (spec.md §4.3 step 1). The exact filename
// shape is not a contract (spec.md §9) — only that a readable backup exists
// afterward.
func (m *Migrator) backup() (string, error) {
	ts := strings.ReplaceAll(nowISOMigrate(), ":", "-")
	dest := strings.TrimSuffix(m.Store.Path, ".db") + ".backup-" + ts + ".db"
	if err := store.Backup(m.Store.Path, dest); err != nil {
		return "", err
	}
	return dest, nil
}
