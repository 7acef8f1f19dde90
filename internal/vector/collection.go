// Package vector implements the Vector Engine: collection lifecycle, item
// add/update/delete/query, cosine nearest-neighbor search and metadata/
// document filters over collections of embedded documents (spec.md §4.5).
package vector

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/reactivedb/reactive/internal/embedadapter"
	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/names"
	"github.com/reactivedb/reactive/internal/store"
)

// Collection is the logical lifecycle record for a named set of embedded
// items (spec.md §3 Vector Collection).
type Collection struct {
	Name      string
	Metadata  map[string]any
	CreatedAt string
}

// Engine binds a physical Store to the vector engine's collection and item
// tables. It is a sibling of the relational engine, not a parent/child
// (spec.md §9 "deep inheritance chains via mixins" re-architecture note).
type Engine struct {
	Store *store.Store
	// Accelerator is an optional document full-text index consulted by
	// where_document $contains filters before the exact evaluation runs.
	// A nil Accelerator simply means every query falls back to a full scan.
	Accelerator *DocumentIndex
	// Embedder resolves Documents/QueryTexts to vectors when a caller
	// supplies texts without embeddings. A nil Embedder means Add/Query
	// must be called with embeddings already resolved (spec.md Non-goals:
	// the engine carries no embedding provider of its own).
	Embedder embedadapter.Embedder
}

// New binds a Store, an optional DocumentIndex accelerator and an optional
// embedding adapter to a vector Engine.
func New(s *store.Store, accelerator *DocumentIndex, embedder embedadapter.Embedder) *Engine {
	return &Engine{Store: s, Accelerator: accelerator, Embedder: embedder}
}

func physicalTableName(collection string) string {
	return "vec_" + collection
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// CreateCollection creates a new named collection, failing with
// CollectionAlreadyExistsError if one already exists under that name.
func (e *Engine) CreateCollection(name string, metadata map[string]any) (Collection, error) {
	if err := e.Store.EnsureOpen(); err != nil {
		return Collection{}, err
	}
	if err := names.Table(name); err != nil {
		return Collection{}, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	if _, err := e.GetCollection(name); err == nil {
		return Collection{}, engineerr.CollectionExists("collection %q already exists", name)
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return Collection{}, engineerr.Validation("failed to encode collection metadata: %v", err)
	}
	createdAt := nowISO()

	tx, err := e.Store.DB.Begin()
	if err != nil {
		return Collection{}, engineerr.Database(err, "begin create collection")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(fmt.Sprintf(
		`CREATE TABLE %s (
			id TEXT PRIMARY KEY,
			document TEXT,
			embedding TEXT NOT NULL,
			metadata TEXT,
			created_at TEXT NOT NULL
		)`, quote(physicalTableName(name)))); err != nil {
		return Collection{}, engineerr.Database(err, "create collection table %q", name)
	}

	if _, err := tx.Exec(
		"INSERT INTO _vector_collections (name, metadata, created_at) VALUES (?, ?, ?)",
		name, string(metaJSON), createdAt,
	); err != nil {
		return Collection{}, engineerr.Database(err, "record collection %q", name)
	}

	if err := tx.Commit(); err != nil {
		return Collection{}, engineerr.Database(err, "commit create collection")
	}

	return Collection{Name: name, Metadata: metadata, CreatedAt: createdAt}, nil
}

// GetCollection looks up a collection by name.
func (e *Engine) GetCollection(name string) (Collection, error) {
	if err := e.Store.EnsureOpen(); err != nil {
		return Collection{}, err
	}
	var metaJSON, createdAt string
	err := e.Store.DB.QueryRow(
		"SELECT metadata, created_at FROM _vector_collections WHERE name = ?", name,
	).Scan(&metaJSON, &createdAt)
	if err != nil {
		return Collection{}, engineerr.CollectionNotFound("collection %q not found", name)
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
		return Collection{}, engineerr.Database(err, "decode metadata for collection %q", name)
	}
	return Collection{Name: name, Metadata: metadata, CreatedAt: createdAt}, nil
}

// GetOrCreateCollection returns the existing collection or creates it with
// the given metadata if absent.
func (e *Engine) GetOrCreateCollection(name string, metadata map[string]any) (Collection, error) {
	c, err := e.GetCollection(name)
	if err == nil {
		return c, nil
	}
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindCollectionNotFound {
		return Collection{}, err
	}
	return e.CreateCollection(name, metadata)
}

// ListCollections returns every collection in creation order.
func (e *Engine) ListCollections() ([]Collection, error) {
	if err := e.Store.EnsureOpen(); err != nil {
		return nil, err
	}
	rows, err := e.Store.DB.Query("SELECT name, metadata, created_at FROM _vector_collections ORDER BY created_at ASC")
	if err != nil {
		return nil, engineerr.Database(err, "list collections")
	}
	defer func() { _ = rows.Close() }()

	var out []Collection
	for rows.Next() {
		var name, metaJSON, createdAt string
		if err := rows.Scan(&name, &metaJSON, &createdAt); err != nil {
			return nil, engineerr.Database(err, "scan collection row")
		}
		var metadata map[string]any
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			return nil, engineerr.Database(err, "decode metadata for collection %q", name)
		}
		out = append(out, Collection{Name: name, Metadata: metadata, CreatedAt: createdAt})
	}
	return out, rows.Err()
}

// DeleteCollection drops a collection's physical table and its lifecycle
// record, failing with CollectionNotFoundError if it does not exist.
func (e *Engine) DeleteCollection(name string) error {
	if _, err := e.GetCollection(name); err != nil {
		return err
	}

	tx, err := e.Store.DB.Begin()
	if err != nil {
		return engineerr.Database(err, "begin delete collection")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE %s", quote(physicalTableName(name)))); err != nil {
		return engineerr.Database(err, "drop collection table %q", name)
	}
	if _, err := tx.Exec("DELETE FROM _vector_collections WHERE name = ?", name); err != nil {
		return engineerr.Database(err, "remove collection record %q", name)
	}
	if e.Accelerator != nil {
		if err := e.Accelerator.DropCollection(name); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func quote(ident string) string {
	return `"` + ident + `"`
}
