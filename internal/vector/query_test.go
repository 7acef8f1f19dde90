package vector

import (
	"context"
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
)

func TestQueryRanksByCosineDistanceAscending(t *testing.T) {
	e := newTestEngine(t)
	seedDocsCollection(t, e)

	results, err := e.Query(context.Background(), "docs", QueryRequest{
		QueryEmbeddings: [][]float64{{1, 0, 0}},
		NResults:        2,
	}, Include{Documents: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result set, got %d", len(results))
	}
	matches := results[0]
	if len(matches) != 2 {
		t.Fatalf("expected top 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" {
		t.Fatalf("expected exact match %q to rank first, got %q", "a", matches[0].ID)
	}
	if matches[0].Distance > matches[1].Distance {
		t.Fatalf("results not sorted ascending by distance: %+v", matches)
	}
}

func TestQueryDefaultsNResultsTo10(t *testing.T) {
	e := newTestEngine(t)
	seedDocsCollection(t, e)

	results, err := e.Query(context.Background(), "docs", QueryRequest{QueryEmbeddings: [][]float64{{1, 0, 0}}}, Include{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results[0]) != 3 {
		t.Fatalf("expected every item back (3 < default 10), got %d", len(results[0]))
	}
}

func TestQueryAppliesMetadataAndDocumentFilters(t *testing.T) {
	e := newTestEngine(t)
	seedDocsCollection(t, e)

	results, err := e.Query(context.Background(), "docs", QueryRequest{
		QueryEmbeddings: [][]float64{{0, 1, 0}},
		Where:           map[string]any{"species": "cat"},
	}, Include{Documents: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, m := range results[0] {
		if m.ID == "b" {
			t.Fatalf("expected dog item to be filtered out, got %+v", m)
		}
	}
	if len(results[0]) != 2 {
		t.Fatalf("expected 2 cat matches, got %d", len(results[0]))
	}
}

func TestQueryResolvesQueryTextsViaEmbedder(t *testing.T) {
	e := newTestEngine(t)
	e.Embedder = &stubEmbedder{dim: 3}
	seedDocsCollection(t, e)

	results, err := e.Query(context.Background(), "docs", QueryRequest{
		QueryTexts: []string{"feline companions"},
		NResults:   3,
	}, Include{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || len(results[0]) != 3 {
		t.Fatalf("expected every item ranked from a resolved query text, got %+v", results)
	}
}

func TestQueryWithoutEmbeddingsOrTextsFails(t *testing.T) {
	e := newTestEngine(t)
	seedDocsCollection(t, e)

	_, err := e.Query(context.Background(), "docs", QueryRequest{}, Include{})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestQueryMultipleProbesReturnParallelResultSets(t *testing.T) {
	e := newTestEngine(t)
	seedDocsCollection(t, e)

	results, err := e.Query(context.Background(), "docs", QueryRequest{
		QueryEmbeddings: [][]float64{{1, 0, 0}, {0, 1, 0}},
		NResults:        1,
	}, Include{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected one result set per probe, got %d", len(results))
	}
	if results[0][0].ID != "a" {
		t.Fatalf("expected probe 1 nearest to be %q, got %q", "a", results[0][0].ID)
	}
	if results[1][0].ID != "b" {
		t.Fatalf("expected probe 2 nearest to be %q, got %q", "b", results[1][0].ID)
	}
}
