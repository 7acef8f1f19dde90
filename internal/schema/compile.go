package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/names"
	"github.com/reactivedb/reactive/internal/values"
)

// CompiledTable is the compiled form of one declared Table: its original
// definition plus its content-addressed signature.
type CompiledTable struct {
	Table     Table
	Signature string
}

// Compiled is the output of Compile: every table's signature plus the
// whole-schema signature computed over them. Signatures are the only
// equivalence check for schema identity (spec.md §4.2).
type Compiled struct {
	Schema     Schema
	Tables     map[string]CompiledTable
	Signature  string
}

// Compile validates names, validates indexes, computes signatures, and
// verifies every Id reference target exists in the same schema. Fields keep
// their Optional wrappers in the compiled Table; no separate optional/base
// record is produced, and callers unwrap with values.Unwrap. It never
// mutates the input Schema.
func Compile(s Schema) (*Compiled, error) {
	tables := make(map[string]CompiledTable, len(s.Tables()))

	for _, t := range s.Tables() {
		if err := names.Table(t.Name); err != nil {
			return nil, err
		}
		if err := validateFields(t); err != nil {
			return nil, err
		}
		if err := validateIndexes(t); err != nil {
			return nil, err
		}
		tables[t.Name] = CompiledTable{
			Table:     t,
			Signature: tableSignature(t),
		}
	}

	compiled := &Compiled{Schema: s, Tables: tables, Signature: schemaSignature(tables)}

	if err := verifyIdReferences(compiled); err != nil {
		return nil, err
	}
	return compiled, nil
}

func validateFields(t Table) error {
	seen := map[string]bool{}
	for _, f := range t.Fields {
		if seen[f.Name] {
			return engineerr.Validation("table %q declares field %q more than once", t.Name, f.Name)
		}
		seen[f.Name] = true
		if err := names.Field(f.Name); err != nil {
			return err
		}
	}
	return nil
}

func validateIndexes(t Table) error {
	fields := t.FieldMap()
	seenIdx := map[string]bool{}
	for _, idx := range t.Indexes {
		if seenIdx[idx.Name] {
			return engineerr.Validation("table %q declares index %q more than once", t.Name, idx.Name)
		}
		seenIdx[idx.Name] = true
		if err := names.Index(idx.Name); err != nil {
			return err
		}
		if len(idx.Columns) == 0 {
			return engineerr.Validation("index %q on table %q must reference at least one column", idx.Name, t.Name)
		}
		for _, col := range idx.Columns {
			if _, ok := fields[col]; !ok {
				return engineerr.Validation("index %q on table %q references unknown column %q", idx.Name, t.Name, col)
			}
		}
	}
	return nil
}

// tableSignature hashes the table's sorted fields and sorted indexes using
// the canonical Value Definition encoding, so two semantically equal tables
// (same fields/indexes, different declaration order) hash identically.
func tableSignature(t Table) string {
	var b strings.Builder
	fields := append([]values.FieldDef{}, t.Fields...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	for _, f := range fields {
		fmt.Fprintf(&b, "field:%s=%s;", f.Name, values.Canonical(f.Def))
	}

	indexes := append([]Index{}, t.Indexes...)
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	for _, idx := range indexes {
		cols := append([]string{}, idx.Columns...)
		sort.Strings(cols)
		fmt.Fprintf(&b, "index:%s=%s;", idx.Name, strings.Join(cols, ","))
	}

	return hash(b.String())
}

// schemaSignature hashes the sorted map of per-table signatures.
func schemaSignature(tables map[string]CompiledTable) string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "table:%s=%s;", name, tables[name].Signature)
	}
	return hash(b.String())
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// verifyIdReferences walks every Id{table=T} field (including inside nested
// Objects and through an Optional wrapper) and fails with ValidationError
// if T is not a table declared in the same schema.
func verifyIdReferences(c *Compiled) error {
	for _, t := range c.Schema.Tables() {
		for _, f := range t.Fields {
			if err := walkIdRefs(c, t.Name, f.Name, f.Def); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkIdRefs(c *Compiled, tableName, path string, d *values.Def) error {
	switch d.Kind {
	case values.KindOptional:
		return walkIdRefs(c, tableName, path, d.Inner)
	case values.KindId:
		if _, ok := c.Tables[d.Table]; !ok {
			return engineerr.Validation("table %q field %q references unknown table %q", tableName, path, d.Table)
		}
		return nil
	case values.KindObject:
		for _, f := range d.Shape {
			if err := walkIdRefs(c, tableName, path+"."+f.Name, f.Def); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
