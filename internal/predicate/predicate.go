// Package predicate compiles the where-clause DSL shared by the relational
// engine's query operators and the vector engine's metadata filter engine
// (spec.md §4.4, §4.5) into a parameterized SQL fragment. Callers supply a
// Resolver that turns a field name into a SQL expression — a physical
// column for a declared relational field, or a json_extract expression
// against an extras/metadata blob for everything else.
package predicate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reactivedb/reactive/internal/engineerr"
)

// Resolver maps a where-clause field name to the SQL expression that reads
// it (a bare column, or a json_extract(...) call).
type Resolver func(field string) string

// Compile turns a where-clause value into a SQL boolean expression and its
// bound arguments. An empty/nil where clause compiles to "1=1".
func Compile(where map[string]any, resolve Resolver) (string, []any, error) {
	if len(where) == 0 {
		return "1=1", nil, nil
	}

	var clauses []string
	var args []any

	// Sort keys for deterministic SQL text (helps tests and caching).
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		val := where[key]
		switch key {
		case "$and":
			sub, ok := val.([]map[string]any)
			if !ok {
				sub = toClauseSlice(val)
			}
			if len(sub) == 0 {
				clauses = append(clauses, "1=1")
				continue
			}
			var parts []string
			for _, c := range sub {
				s, a, err := Compile(c, resolve)
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, "("+s+")")
				args = append(args, a...)
			}
			clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")

		case "$or":
			sub := toClauseSlice(val)
			if len(sub) == 0 {
				clauses = append(clauses, "1=0")
				continue
			}
			var parts []string
			for _, c := range sub {
				s, a, err := Compile(c, resolve)
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, "("+s+")")
				args = append(args, a...)
			}
			clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")

		default:
			expr := resolve(key)
			s, a, err := compileFieldClause(expr, val)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, s)
			args = append(args, a...)
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toClauseSlice normalizes a $and/$or operand, which callers typically
// build as []map[string]any but which may arrive as []any holding maps
// (e.g. decoded from JSON arguments).
func toClauseSlice(val any) []map[string]any {
	switch v := val.(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func compileFieldClause(expr string, val any) (string, []any, error) {
	ops, ok := val.(map[string]any)
	if !ok {
		// Scalar sugar for $eq.
		return compileOperator(expr, "$eq", val)
	}

	var clauses []string
	var args []any
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, op := range keys {
		s, a, err := compileOperator(expr, op, ops[op])
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, s)
		args = append(args, a...)
	}
	return strings.Join(clauses, " AND "), args, nil
}

func compileOperator(expr, op string, val any) (string, []any, error) {
	switch op {
	case "$eq":
		if val == nil {
			return fmt.Sprintf("%s IS NULL", expr), nil, nil
		}
		return fmt.Sprintf("%s = ?", expr), []any{normalize(val)}, nil
	case "$ne":
		if val == nil {
			return fmt.Sprintf("%s IS NOT NULL", expr), nil, nil
		}
		return fmt.Sprintf("%s != ?", expr), []any{normalize(val)}, nil
	case "$gt":
		return fmt.Sprintf("%s > ?", expr), []any{normalize(val)}, nil
	case "$gte":
		return fmt.Sprintf("%s >= ?", expr), []any{normalize(val)}, nil
	case "$lt":
		return fmt.Sprintf("%s < ?", expr), []any{normalize(val)}, nil
	case "$lte":
		return fmt.Sprintf("%s <= ?", expr), []any{normalize(val)}, nil
	case "$in":
		items := toSlice(val)
		if len(items) == 0 {
			return "1=0", nil, nil
		}
		placeholders := make([]string, len(items))
		args := make([]any, len(items))
		for i, it := range items {
			placeholders[i] = "?"
			args[i] = normalize(it)
		}
		return fmt.Sprintf("%s IN (%s)", expr, strings.Join(placeholders, ",")), args, nil
	case "$nin":
		items := toSlice(val)
		if len(items) == 0 {
			return "1=1", nil, nil
		}
		placeholders := make([]string, len(items))
		args := make([]any, len(items))
		for i, it := range items {
			placeholders[i] = "?"
			args[i] = normalize(it)
		}
		return fmt.Sprintf("%s NOT IN (%s)", expr, strings.Join(placeholders, ",")), args, nil
	case "$contains":
		s := fmt.Sprintf("%v", val)
		return fmt.Sprintf("CAST(%s AS TEXT) LIKE ? ESCAPE '\\'", expr), []any{ContainsPattern(s)}, nil
	case "$not_contains":
		s := fmt.Sprintf("%v", val)
		return fmt.Sprintf("CAST(%s AS TEXT) NOT LIKE ? ESCAPE '\\'", expr), []any{ContainsPattern(s)}, nil
	default:
		return "", nil, engineerr.Validation("unknown where operator %q", op)
	}
}

func toSlice(val any) []any {
	switch v := val.(type) {
	case []any:
		return v
	default:
		return nil
	}
}

// normalize applies the boolean->0/1 comparison normalization spec.md §4.4
// requires.
func normalize(val any) any {
	if b, ok := val.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return val
}

func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}

// ContainsPattern builds the escaped LIKE pattern for a substring match,
// shared with callers that compile a bare LIKE clause outside the where-map
// grammar (the vector engine's where_document filter).
func ContainsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}
