package vector

import (
	"fmt"
	"strings"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/predicate"
)

// DocumentFilter is the where_document grammar (spec.md §4.5): a map
// carrying exactly the operators "$contains" and "$not_contains" against an
// item's document string.
type DocumentFilter map[string]any

func metadataResolver(field string) string {
	return fmt.Sprintf("json_extract(metadata, '$.%s')", field)
}

// compileMetadataFilter compiles a where clause over an item's metadata
// column, reusing the same operator grammar ($eq, $gt, $in, $and, ...) the
// relational engine compiles against declared/extras fields.
func compileMetadataFilter(where map[string]any) (string, []any, error) {
	return predicate.Compile(where, metadataResolver)
}

// compileDocumentFilter compiles a DocumentFilter into a SQL boolean
// expression over the "document" column.
func compileDocumentFilter(f DocumentFilter) (string, []any, error) {
	if len(f) == 0 {
		return "1=1", nil, nil
	}
	var clauses []string
	var args []any
	for op, v := range f {
		s, ok := v.(string)
		if !ok {
			return "", nil, engineerr.Validation("where_document %q requires a string value", op)
		}
		switch op {
		case "$contains":
			clauses = append(clauses, "document LIKE ? ESCAPE '\\'")
			args = append(args, predicate.ContainsPattern(s))
		case "$not_contains":
			clauses = append(clauses, "document NOT LIKE ? ESCAPE '\\'")
			args = append(args, predicate.ContainsPattern(s))
		default:
			return "", nil, engineerr.Validation("unknown where_document operator %q", op)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

// matchesDocument re-evaluates a DocumentFilter in Go, used to verify
// candidates an accelerator (Bleve) prefilters before they are trusted.
func matchesDocument(doc string, f DocumentFilter) bool {
	for op, v := range f {
		s, _ := v.(string)
		switch op {
		case "$contains":
			if !strings.Contains(doc, s) {
				return false
			}
		case "$not_contains":
			if strings.Contains(doc, s) {
				return false
			}
		}
	}
	return true
}
