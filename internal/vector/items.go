package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reactivedb/reactive/internal/engineerr"
)

// AddRequest is the payload for Add (spec.md §4.5 add). Exactly one of
// Embeddings/Documents must be resolvable to a full embedding per id:
// either Embeddings is supplied directly, or Documents is supplied and
// resolved through the Embedding Adapter.
type AddRequest struct {
	IDs        []string
	Embeddings [][]float64
	Documents  []string
	Metadatas  []map[string]any
}

// Item is one row of a vector collection as returned by Get/Query.
type Item struct {
	ID        string
	Document  string
	Embedding []float64
	Metadata  map[string]any
}

func (e *Engine) table(collection string) (string, error) {
	if _, err := e.GetCollection(collection); err != nil {
		return "", err
	}
	return physicalTableName(collection), nil
}

// resolveEmbeddings turns texts into vectors via the configured Embedder,
// for callers that supplied documents/query texts without embeddings
// (spec.md §4.5 add/query step 1). It fails with ValidationError when no
// adapter is wired or the adapter returns a vector count that does not
// match the text count.
func (e *Engine) resolveEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if e.Embedder == nil {
		return nil, engineerr.Validation("no embedding adapter configured to resolve texts into embeddings")
	}
	embeddings, err := e.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, engineerr.Validation("embed texts: %v", err)
	}
	if len(embeddings) != len(texts) {
		return nil, engineerr.Validation("embedding adapter returned %d vectors for %d texts", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// Add inserts new items into a collection. All supplied parallel arrays
// (ids, embeddings, documents, metadatas) must be either absent or the same
// length as ids. When Embeddings is empty, Documents is resolved through
// the Embedding Adapter (spec.md §4.5 add).
func (e *Engine) Add(ctx context.Context, collection string, req AddRequest) error {
	table, err := e.table(collection)
	if err != nil {
		return err
	}
	n := len(req.IDs)
	if n == 0 {
		return engineerr.Validation("add requires at least one id")
	}
	if len(req.Embeddings) == 0 && len(req.Documents) == 0 {
		return engineerr.Validation("add requires embeddings or documents")
	}
	if len(req.Embeddings) != 0 && len(req.Embeddings) != n {
		return engineerr.Validation("embeddings length %d does not match ids length %d", len(req.Embeddings), n)
	}
	if len(req.Documents) != 0 && len(req.Documents) != n {
		return engineerr.Validation("documents length %d does not match ids length %d", len(req.Documents), n)
	}
	if len(req.Metadatas) != 0 && len(req.Metadatas) != n {
		return engineerr.Validation("metadatas length %d does not match ids length %d", len(req.Metadatas), n)
	}

	embeddings := req.Embeddings
	if len(embeddings) == 0 {
		embeddings, err = e.resolveEmbeddings(ctx, req.Documents)
		if err != nil {
			return err
		}
	}

	tx, err := e.Store.DB.Begin()
	if err != nil {
		return engineerr.Database(err, "begin add to collection %q", collection)
	}
	defer func() { _ = tx.Rollback() }()

	for i, id := range req.IDs {
		embJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return engineerr.Validation("failed to encode embedding for %q: %v", id, err)
		}

		var document string
		if len(req.Documents) != 0 {
			document = req.Documents[i]
		}

		metadata := map[string]any{}
		if len(req.Metadatas) != 0 && req.Metadatas[i] != nil {
			metadata = req.Metadatas[i]
		}
		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return engineerr.Validation("failed to encode metadata for %q: %v", id, err)
		}

		if _, err := tx.Exec(
			fmt.Sprintf("INSERT INTO %s (id, document, embedding, metadata, created_at) VALUES (?, ?, ?, ?, ?)", quote(table)),
			id, document, string(embJSON), string(metaJSON), nowISO(),
		); err != nil {
			return mapItemWriteError(err, id)
		}

		if e.Accelerator != nil && document != "" {
			if err := e.Accelerator.IndexItem(collection, id, document); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// UpdateRequest patches existing items by id. Entry i of Embeddings,
// Documents or Metadatas applies to IDs[i]; nil entries and absent arrays
// leave that field unchanged.
type UpdateRequest struct {
	IDs        []string
	Embeddings [][]float64
	Documents  []*string
	Metadatas  []map[string]any
}

// Update patches embedding/document/metadata fields of existing items.
func (e *Engine) Update(collection string, req UpdateRequest) (int, error) {
	table, err := e.table(collection)
	if err != nil {
		return 0, err
	}
	n := len(req.IDs)
	if n == 0 {
		return 0, engineerr.Validation("update requires at least one id")
	}

	tx, err := e.Store.DB.Begin()
	if err != nil {
		return 0, engineerr.Database(err, "begin update on collection %q", collection)
	}
	defer func() { _ = tx.Rollback() }()

	updated := 0
	for i, id := range req.IDs {
		var sets []string
		var args []any

		if len(req.Embeddings) != 0 && req.Embeddings[i] != nil {
			embJSON, err := json.Marshal(req.Embeddings[i])
			if err != nil {
				return 0, engineerr.Validation("failed to encode embedding for %q: %v", id, err)
			}
			sets = append(sets, "embedding = ?")
			args = append(args, string(embJSON))
		}
		if len(req.Documents) != 0 && req.Documents[i] != nil {
			sets = append(sets, "document = ?")
			args = append(args, *req.Documents[i])
		}
		if len(req.Metadatas) != 0 && req.Metadatas[i] != nil {
			metaJSON, err := json.Marshal(req.Metadatas[i])
			if err != nil {
				return 0, engineerr.Validation("failed to encode metadata for %q: %v", id, err)
			}
			sets = append(sets, "metadata = ?")
			args = append(args, string(metaJSON))
		}
		if len(sets) == 0 {
			continue
		}
		args = append(args, id)

		res, err := tx.Exec(fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", quote(table), strings.Join(sets, ", ")), args...)
		if err != nil {
			return 0, engineerr.Database(err, "update item %q in collection %q", id, collection)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, engineerr.Database(err, "read rows affected for %q", id)
		}
		updated += int(n)

		if e.Accelerator != nil && len(req.Documents) != 0 && req.Documents[i] != nil {
			if err := e.Accelerator.IndexItem(collection, id, *req.Documents[i]); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, engineerr.Database(err, "commit update on collection %q", collection)
	}
	return updated, nil
}

// Selector narrows Delete/Get/Query to a set of items: at least one of IDs,
// Where or WhereDocument must be given (spec.md §4.5 delete).
type Selector struct {
	IDs           []string
	Where         map[string]any
	WhereDocument DocumentFilter
}

func (s Selector) empty() bool {
	return len(s.IDs) == 0 && len(s.Where) == 0 && len(s.WhereDocument) == 0
}

// selectorSQL compiles a Selector into a SQL WHERE clause. When the
// accelerator is wired and can express the document filter (a single
// $contains clause), its candidate ids replace the LIKE clause entirely and
// verify carries the filter every returned row must still be re-checked
// against in Go; an absent, unusable or stale accelerator can only ever
// make the query fall back to the exact scan, never return a wrong answer.
func (e *Engine) selectorSQL(collection string, s Selector) (where string, args []any, verify DocumentFilter, err error) {
	var clauses []string

	if len(s.IDs) != 0 {
		placeholders := make([]string, len(s.IDs))
		for i, id := range s.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(s.Where) != 0 {
		sqlExpr, whereArgs, err := compileMetadataFilter(s.Where)
		if err != nil {
			return "", nil, nil, err
		}
		clauses = append(clauses, sqlExpr)
		args = append(args, whereArgs...)
	}
	if len(s.WhereDocument) != 0 {
		ids, accelerated, err := e.accelerate(collection, s.WhereDocument)
		if err != nil {
			return "", nil, nil, err
		}
		switch {
		case accelerated && len(ids) == 0:
			clauses = append(clauses, "1=0")
		case accelerated:
			placeholders := make([]string, len(ids))
			for i, id := range ids {
				placeholders[i] = "?"
				args = append(args, id)
			}
			clauses = append(clauses, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ",")))
			verify = s.WhereDocument
		default:
			sqlExpr, docArgs, err := compileDocumentFilter(s.WhereDocument)
			if err != nil {
				return "", nil, nil, err
			}
			clauses = append(clauses, sqlExpr)
			args = append(args, docArgs...)
		}
	}
	if len(clauses) == 0 {
		return "1=1", nil, nil, nil
	}
	return strings.Join(clauses, " AND "), args, verify, nil
}

// accelerate consults the Bleve accelerator for a document filter it can
// express: exactly one $contains clause. Anything else ($not_contains, a
// multi-clause filter, or no accelerator wired) is left for the exact SQL
// scan, which is the only thing that can evaluate it correctly.
func (e *Engine) accelerate(collection string, f DocumentFilter) (ids []string, accelerated bool, err error) {
	if e.Accelerator == nil || len(f) != 1 {
		return nil, false, nil
	}
	substr, ok := f["$contains"].(string)
	if !ok {
		return nil, false, nil
	}
	return e.Accelerator.Candidates(collection, substr)
}

// Delete removes items matching the selector, requiring at least one of
// ids/where/where_document (spec.md §4.5 delete).
func (e *Engine) Delete(collection string, sel Selector) (int, error) {
	table, err := e.table(collection)
	if err != nil {
		return 0, err
	}
	if sel.empty() {
		return 0, engineerr.Validation("delete requires at least one of ids, where, where_document")
	}

	where, args, verify, err := e.selectorSQL(collection, sel)
	if err != nil {
		return 0, err
	}

	rows, err := e.Store.DB.Query(fmt.Sprintf("SELECT id, document FROM %s WHERE %s", quote(table), where), args...)
	if err != nil {
		return 0, engineerr.Database(err, "select ids for delete from %q", collection)
	}
	var deletedIDs []string
	for rows.Next() {
		var id string
		var document sql.NullString
		if err := rows.Scan(&id, &document); err != nil {
			_ = rows.Close()
			return 0, engineerr.Database(err, "scan id for delete from %q", collection)
		}
		if len(verify) != 0 && !matchesDocument(document.String, verify) {
			continue
		}
		deletedIDs = append(deletedIDs, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, engineerr.Database(err, "read ids for delete from %q", collection)
	}
	if len(deletedIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(deletedIDs))
	delArgs := make([]any, len(deletedIDs))
	for i, id := range deletedIDs {
		placeholders[i] = "?"
		delArgs[i] = id
	}
	res, err := e.Store.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", quote(table), strings.Join(placeholders, ",")), delArgs...)
	if err != nil {
		return 0, engineerr.Database(err, "delete from collection %q", collection)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, engineerr.Database(err, "read rows affected deleting from %q", collection)
	}

	if e.Accelerator != nil {
		for _, id := range deletedIDs {
			if err := e.Accelerator.DeleteItem(collection, id); err != nil {
				return 0, err
			}
		}
	}

	return int(n), nil
}

// Include projects which fields Get/Query populate beyond id.
type Include struct {
	Embeddings bool
	Documents  bool
	Metadatas  bool
}

// Get returns items matching the selector (an empty selector matches every
// item in the collection).
func (e *Engine) Get(collection string, sel Selector, include Include) ([]Item, error) {
	table, err := e.table(collection)
	if err != nil {
		return nil, err
	}

	where, args, verify, err := e.selectorSQL(collection, sel)
	if err != nil {
		return nil, err
	}

	rows, err := e.Store.DB.Query(
		fmt.Sprintf("SELECT id, document, embedding, metadata FROM %s WHERE %s ORDER BY created_at ASC", quote(table), where),
		args...,
	)
	if err != nil {
		return nil, engineerr.Database(err, "get items from collection %q", collection)
	}
	defer func() { _ = rows.Close() }()

	var out []Item
	for rows.Next() {
		var id string
		var document sql.NullString
		var embJSON, metaJSON string
		if err := rows.Scan(&id, &document, &embJSON, &metaJSON); err != nil {
			return nil, engineerr.Database(err, "scan item row in collection %q", collection)
		}
		if len(verify) != 0 && !matchesDocument(document.String, verify) {
			continue
		}
		item := Item{ID: id}
		if include.Documents {
			item.Document = document.String
		}
		if include.Embeddings {
			var embedding []float64
			if err := json.Unmarshal([]byte(embJSON), &embedding); err != nil {
				return nil, engineerr.Database(err, "decode embedding for %q", id)
			}
			item.Embedding = embedding
		}
		if include.Metadatas {
			var metadata map[string]any
			if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
				return nil, engineerr.Database(err, "decode metadata for %q", id)
			}
			item.Metadata = metadata
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func mapItemWriteError(err error, id string) error {
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return engineerr.Constraint("item %q already exists in collection", id)
	}
	return engineerr.Database(err, "write item %q", id)
}
