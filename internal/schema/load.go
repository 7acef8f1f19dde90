package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/values"
	"gopkg.in/yaml.v3"
)

// yamlDoc mirrors the on-disk declarative schema shape:
//
//	tables:
//	  users:
//	    fields:
//	      name: string
//	      age: number
//	      bio: string?
//	      authorId: id(posts)
//	    indexes:
//	      by_name: [name]
type yamlDoc struct {
	Tables map[string]yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Fields  map[string]string   `yaml:"fields"`
	Indexes map[string][]string `yaml:"indexes"`
}

// LoadYAML reads a declarative schema file from disk. Any I/O or parse
// failure is reported as SchemaLoadError (spec.md §7); the resulting Schema
// still passes through Compile for full structural validation.
func LoadYAML(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, engineerr.SchemaLoad(err, "read schema file %q", path)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Schema{}, engineerr.SchemaLoad(err, "parse schema file %q", path)
	}

	names := make([]string, 0, len(doc.Tables))
	for name := range doc.Tables {
		names = append(names, name)
	}
	// Deterministic iteration: YAML map order isn't guaranteed, but a
	// loaded schema's declaration order only affects test-visible field
	// iteration, not identity (signatures sort independently).
	sort.Strings(names)

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		yt := doc.Tables[name]
		fieldNames := make([]string, 0, len(yt.Fields))
		for fn := range yt.Fields {
			fieldNames = append(fieldNames, fn)
		}
		sort.Strings(fieldNames)

		fields := make([]values.FieldDef, 0, len(fieldNames))
		for _, fn := range fieldNames {
			def, err := parseValueDef(yt.Fields[fn])
			if err != nil {
				return Schema{}, engineerr.SchemaLoad(err, "table %q field %q", name, fn)
			}
			fields = append(fields, values.F(fn, def))
		}

		indexNames := make([]string, 0, len(yt.Indexes))
		for in := range yt.Indexes {
			indexNames = append(indexNames, in)
		}
		sort.Strings(indexNames)
		indexes := make([]Index, 0, len(indexNames))
		for _, in := range indexNames {
			indexes = append(indexes, Index{Name: in, Columns: yt.Indexes[in]})
		}

		tables = append(tables, Table{Name: name, Fields: fields, Indexes: indexes})
	}

	return New(tables...), nil
}

// parseValueDef parses the compact scalar grammar used in schema.yaml:
// "string", "number", "boolean" and an optional trailing "?"; "id(table)"
// for an id reference. Nested objects must be declared in Go code — YAML is
// meant for simple flat schemas, not the full Value Definition grammar.
func parseValueDef(raw string) (*values.Def, error) {
	optional := false
	s := raw
	if len(s) > 0 && s[len(s)-1] == '?' {
		optional = true
		s = s[:len(s)-1]
	}

	var base *values.Def
	switch {
	case s == "string":
		base = values.String()
	case s == "number":
		base = values.Number()
	case s == "boolean":
		base = values.Boolean()
	case len(s) > 3 && s[:3] == "id(" && s[len(s)-1] == ')':
		base = values.Id(s[3 : len(s)-1])
	default:
		return nil, fmt.Errorf("unrecognized value definition %q", raw)
	}

	if optional {
		return values.Optional(base), nil
	}
	return base, nil
}
