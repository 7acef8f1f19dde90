// Package physical maps declared Value Definitions to physical SQLite
// column types and statements, shared by the schema applier (which creates
// and rewrites tables) and the relational engine (which needs the same
// mapping to encode and decode rows).
package physical

import (
	"fmt"
	"strings"

	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/values"
)

// ColumnType returns the SQLite storage class backing a declared field.
// String, Id and Object all serialize as TEXT; Number as REAL; Boolean as
// INTEGER (0/1).
func ColumnType(d *values.Def) string {
	base := values.Unwrap(d).Base
	switch base.Kind {
	case values.KindNumber:
		return "REAL"
	case values.KindBoolean:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// IsTopLevelID reports whether a field (after unwrapping Optional) is a
// direct Id reference — eligible for a physical foreign key, as opposed to
// an Id reference nested inside an Object, which the relational engine must
// validate explicitly since it lives inside a JSON blob column.
func IsTopLevelID(d *values.Def) (table string, ok bool) {
	base := values.Unwrap(d).Base
	if base.Kind == values.KindId {
		return base.Table, true
	}
	return "", false
}

// CreateTableSQL builds the CREATE TABLE statement for a compiled table,
// including the four reserved metadata columns and a physical foreign key
// (RESTRICT on delete, CASCADE on update, per spec.md §3 "Id Reference
// Invariant") for every top-level Id field.
func CreateTableSQL(name string, t schema.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", Quote(name))
	fmt.Fprintf(&b, "  %s TEXT PRIMARY KEY,\n", Quote("_id"))
	fmt.Fprintf(&b, "  %s TEXT NOT NULL,\n", Quote("_createdAt"))
	fmt.Fprintf(&b, "  %s TEXT NOT NULL,\n", Quote("_updatedAt"))
	fmt.Fprintf(&b, "  %s TEXT NOT NULL DEFAULT '{}'", Quote("_extras"))

	var fks []string
	for _, f := range t.Fields {
		nullable := values.Unwrap(f.Def).Optional
		constraint := " NOT NULL"
		if nullable {
			constraint = ""
		}
		fmt.Fprintf(&b, ",\n  %s %s%s", Quote(f.Name), ColumnType(f.Def), constraint)
		if refTable, ok := IsTopLevelID(f.Def); ok {
			fks = append(fks, fmt.Sprintf(
				"FOREIGN KEY (%s) REFERENCES %s(_id) ON DELETE RESTRICT ON UPDATE CASCADE",
				Quote(f.Name), Quote(refTable),
			))
		}
	}
	for _, fk := range fks {
		fmt.Fprintf(&b, ",\n  %s", fk)
	}
	b.WriteString("\n)")
	return b.String()
}

// CreateIndexSQL builds the CREATE INDEX statement for a declared index.
func CreateIndexSQL(tableName string, idx schema.Index) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = Quote(c)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		Quote(indexPhysicalName(tableName, idx.Name)), Quote(tableName), strings.Join(cols, ", "))
}

// indexPhysicalName namespaces an index name by table to avoid collisions
// across tables (SQLite index names are database-global).
func indexPhysicalName(tableName, idxName string) string {
	return tableName + "__" + idxName
}

// Quote wraps an identifier that has already passed names.Table/names.Column
// validation in double quotes for use in generated SQL.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
