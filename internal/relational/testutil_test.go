package relational

import (
	"path/filepath"
	"testing"

	"github.com/reactivedb/reactive/internal/physical"
	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/store"
	"github.com/reactivedb/reactive/internal/values"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "reactive.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	sch := schema.New(
		schema.Table{
			Name: "users",
			Fields: []values.FieldDef{
				values.F("name", values.String()),
				values.F("age", values.Optional(values.Number())),
			},
		},
		schema.Table{
			Name: "posts",
			Fields: []values.FieldDef{
				values.F("title", values.String()),
				values.F("author", values.Id("users")),
			},
			Indexes: []schema.Index{{Name: "by_author", Columns: []string{"author"}}},
		},
		schema.Table{
			Name: "archivedUsers",
			Fields: []values.FieldDef{
				values.F("name", values.String()),
				values.F("age", values.Optional(values.Number())),
			},
		},
	)
	compiled, err := schema.Compile(sch)
	if err != nil {
		t.Fatalf("schema.Compile: %v", err)
	}

	// Table creation order matters: posts references users via a physical
	// foreign key, so users must exist first.
	for _, name := range []string{"users", "posts", "archivedUsers"} {
		ct := compiled.Tables[name]
		if _, err := s.DB.Exec(physical.CreateTableSQL(ct.Table.Name, ct.Table)); err != nil {
			t.Fatalf("create table %s: %v", ct.Table.Name, err)
		}
		for _, idx := range ct.Table.Indexes {
			if _, err := s.DB.Exec(physical.CreateIndexSQL(ct.Table.Name, idx)); err != nil {
				t.Fatalf("create index: %v", err)
			}
		}
	}

	return New(s, compiled)
}
