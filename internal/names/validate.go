// Package names validates table and column identifiers before they ever
// reach a SQL statement. It is the engine's one defense-in-depth layer
// against malformed or hostile schema/field names.
package names

import (
	"regexp"
	"strings"

	"github.com/reactivedb/reactive/internal/engineerr"
)

const maxLen = 64

var (
	tablePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,63}$`)
	columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)
)

// denylist catches dangerous substrings regardless of pattern match. This is
// defense-in-depth: identifiers are double-quoted before they are written
// into generated SQL text, but a rejected name here never gets that far.
var denylist = []string{
	";",
	"--",
	"/*",
	"*/",
	"union select",
	"union  select",
	"exec(",
	"execute(",
	"xp_",
	"drop table",
	"drop index",
	"pragma",
}

// Reserved is the set of row metadata column names a declared field may
// never collide with.
var Reserved = map[string]bool{
	"_id":        true,
	"_createdAt": true,
	"_updatedAt": true,
	"_extras":    true,
}

func containsDenylisted(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, bad := range denylist {
		if strings.Contains(lower, bad) {
			return bad, true
		}
	}
	return "", false
}

// Table validates a table name.
func Table(name string) error {
	if name == "" {
		return engineerr.Validation("table name must not be empty")
	}
	if len(name) > maxLen {
		return engineerr.Validation("table name %q exceeds %d characters", name, maxLen)
	}
	if bad, ok := containsDenylisted(name); ok {
		return engineerr.Validation("table name %q contains disallowed substring %q", name, bad)
	}
	if !tablePattern.MatchString(name) {
		return engineerr.Validation("table name %q does not match %s", name, tablePattern.String())
	}
	return nil
}

// Column validates a column (field) name.
func Column(name string) error {
	if name == "" {
		return engineerr.Validation("column name must not be empty")
	}
	if len(name) > maxLen {
		return engineerr.Validation("column name %q exceeds %d characters", name, maxLen)
	}
	if bad, ok := containsDenylisted(name); ok {
		return engineerr.Validation("column name %q contains disallowed substring %q", name, bad)
	}
	if !columnPattern.MatchString(name) {
		return engineerr.Validation("column name %q does not match %s", name, columnPattern.String())
	}
	return nil
}

// Field validates a declared field name and rejects reserved row metadata
// names in the same pass.
func Field(name string) error {
	if Reserved[name] {
		return engineerr.Validation("field name %q collides with a reserved metadata column", name)
	}
	return Column(name)
}

// Index validates an index name using the column grammar (index names share
// the same character set as columns in this engine).
func Index(name string) error {
	return Column(name)
}
