// Package schema compiles declarative table definitions into a Compiled
// Schema: a structure carrying stable, content-addressed signatures that
// are the engine's only equivalence check for schema identity.
package schema

import "github.com/reactivedb/reactive/internal/values"

// Index is an ordered sequence of columns backing a physical index.
type Index struct {
	Name    string
	Columns []string
}

// Table is a declarative table definition: an ordered field list (insertion
// order preserved, per spec.md §3) and a set of indexes.
type Table struct {
	Name    string
	Fields  []values.FieldDef
	Indexes []Index
}

// FieldMap returns the table's fields as a name->Def lookup.
func (t Table) FieldMap() map[string]*values.Def {
	m := make(map[string]*values.Def, len(t.Fields))
	for _, f := range t.Fields {
		m[f.Name] = f.Def
	}
	return m
}

// Schema is an ordered collection of Table definitions.
type Schema struct {
	tables []Table
}

// New builds a Schema from the given tables, preserving declaration order.
func New(tables ...Table) Schema {
	return Schema{tables: tables}
}

// Tables returns the declared tables in declaration order.
func (s Schema) Tables() []Table {
	return s.tables
}

// Table looks up a declared table by name.
func (s Schema) Table(name string) (Table, bool) {
	for _, t := range s.tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
