package vector

import (
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/reactivedb/reactive/internal/engineerr"
)

// DocumentIndex is the optional Bleve-backed full-text accelerator for
// where_document $contains filters (spec.md §4.5 [DOMAIN] addition). It is
// purely a performance optimization: every candidate set it returns is
// re-verified with an exact substring match before being trusted, so an
// absent or stale index can only ever make a query slower, never wrong.
type DocumentIndex struct {
	mu      sync.Mutex
	indexes map[string]bleve.Index
}

// NewDocumentIndex creates an empty, in-memory accelerator. Collections are
// indexed lazily as items are added.
func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{indexes: map[string]bleve.Index{}}
}

func (d *DocumentIndex) ensure(collection string) (bleve.Index, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx, ok := d.indexes[collection]; ok {
		return idx, nil
	}
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, engineerr.Database(err, "create document index for %q", collection)
	}
	d.indexes[collection] = idx
	return idx, nil
}

type indexedDocument struct {
	Document string `json:"document"`
}

// IndexItem (re-)indexes one item's document text.
func (d *DocumentIndex) IndexItem(collection, id, document string) error {
	idx, err := d.ensure(collection)
	if err != nil {
		return err
	}
	if err := idx.Index(id, indexedDocument{Document: document}); err != nil {
		return engineerr.Database(err, "index document %q/%q", collection, id)
	}
	return nil
}

// DeleteItem removes one item from the accelerator, if indexed.
func (d *DocumentIndex) DeleteItem(collection, id string) error {
	d.mu.Lock()
	idx, ok := d.indexes[collection]
	d.mu.Unlock()
	if !ok {
		return nil
	}
	if err := idx.Delete(id); err != nil {
		return engineerr.Database(err, "delete indexed document %q/%q", collection, id)
	}
	return nil
}

// DropCollection discards the accelerator's index for a deleted collection.
func (d *DocumentIndex) DropCollection(collection string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, ok := d.indexes[collection]
	if !ok {
		return nil
	}
	delete(d.indexes, collection)
	if err := idx.Close(); err != nil {
		return engineerr.Database(err, "close document index for %q", collection)
	}
	return nil
}

// Candidates returns the set of item ids whose document the accelerator
// believes contains substr, and whether the accelerator was consulted at
// all (false when the collection was never indexed, signaling callers to
// fall back to a full scan).
func (d *DocumentIndex) Candidates(collection, substr string) (ids []string, accelerated bool, err error) {
	d.mu.Lock()
	idx, ok := d.indexes[collection]
	d.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	q := bleve.NewWildcardQuery("*" + strings.ToLower(substr) + "*")
	req := bleve.NewSearchRequest(q)
	req.Size = 1 << 20
	res, err := idx.Search(req)
	if err != nil {
		return nil, false, engineerr.Database(err, "search document index for %q", collection)
	}

	out := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, hit.ID)
	}
	return out, true, nil
}
