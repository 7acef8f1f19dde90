package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/reactivedb/reactive/internal/engineerr"
)

const defaultNResults = 10

// QueryRequest is the payload for Query (spec.md §4.5 query). Exactly one
// of QueryEmbeddings/QueryTexts supplies the probe vectors; QueryTexts is
// resolved to embeddings through the Embedding Adapter before ranking runs.
type QueryRequest struct {
	QueryEmbeddings [][]float64
	QueryTexts      []string
	NResults        int
	Where           map[string]any
	WhereDocument   DocumentFilter
}

// QueryMatch is one ranked result for a single probe embedding.
type QueryMatch struct {
	ID        string
	Distance  float64
	Document  string
	Embedding []float64
	Metadata  map[string]any
}

// Query ranks every item surviving Where/WhereDocument by cosine distance
// to each probe embedding, ascending, truncated to NResults (default 10).
// Returns one result slice per probe, in probe order. When QueryEmbeddings
// is empty, QueryTexts is resolved through the Embedding Adapter first
// (spec.md §4.5 query step 1).
func (e *Engine) Query(ctx context.Context, collection string, req QueryRequest, include Include) ([][]QueryMatch, error) {
	table, err := e.table(collection)
	if err != nil {
		return nil, err
	}
	if len(req.QueryEmbeddings) == 0 && len(req.QueryTexts) == 0 {
		return nil, engineerr.Validation("query requires query_embeddings or query_texts")
	}
	probes := req.QueryEmbeddings
	if len(probes) == 0 {
		probes, err = e.resolveEmbeddings(ctx, req.QueryTexts)
		if err != nil {
			return nil, err
		}
	}
	nResults := req.NResults
	if nResults <= 0 {
		nResults = defaultNResults
	}

	where, args, verify, err := e.selectorSQL(collection, Selector{Where: req.Where, WhereDocument: req.WhereDocument})
	if err != nil {
		return nil, err
	}

	candidates, err := e.candidateRows(table, where, args, verify)
	if err != nil {
		return nil, err
	}

	results := make([][]QueryMatch, len(probes))
	for qi, probe := range probes {
		matches := make([]QueryMatch, 0, len(candidates))
		for _, c := range candidates {
			d, err := CosineDistance(probe, c.embedding)
			if err != nil {
				return nil, err
			}
			m := QueryMatch{ID: c.id, Distance: d}
			if include.Documents {
				m.Document = c.document
			}
			if include.Embeddings {
				m.Embedding = c.embedding
			}
			if include.Metadatas {
				m.Metadata = c.metadata
			}
			matches = append(matches, m)
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
		if len(matches) > nResults {
			matches = matches[:nResults]
		}
		results[qi] = matches
	}
	return results, nil
}

type candidateRow struct {
	id        string
	document  string
	embedding []float64
	metadata  map[string]any
}

// candidateRows resolves the rows a query must rank over. selectorSQL has
// already substituted an accelerator-narrowed id set for the where_document
// clause where it could; verify re-checks every row against the original
// filter regardless, so accelerator staleness can never produce a wrong
// answer, only a slower one.
func (e *Engine) candidateRows(table, where string, args []any, verify DocumentFilter) ([]candidateRow, error) {
	rows, err := e.Store.DB.Query(
		fmt.Sprintf("SELECT id, document, embedding, metadata FROM %s WHERE %s", quote(table), where),
		args...,
	)
	if err != nil {
		return nil, engineerr.Database(err, "query candidates from %q", table)
	}
	defer func() { _ = rows.Close() }()

	var out []candidateRow
	for rows.Next() {
		var id string
		var document sql.NullString
		var embJSON, metaJSON string
		if err := rows.Scan(&id, &document, &embJSON, &metaJSON); err != nil {
			return nil, engineerr.Database(err, "scan candidate row")
		}
		var embedding []float64
		if err := json.Unmarshal([]byte(embJSON), &embedding); err != nil {
			return nil, engineerr.Database(err, "decode embedding for %q", id)
		}
		var metadata map[string]any
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			return nil, engineerr.Database(err, "decode metadata for %q", id)
		}
		if len(verify) != 0 && !matchesDocument(document.String, verify) {
			continue
		}
		out = append(out, candidateRow{id: id, document: document.String, embedding: embedding, metadata: metadata})
	}
	return out, rows.Err()
}
