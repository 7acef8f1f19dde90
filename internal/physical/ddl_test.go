package physical

import (
	"strings"
	"testing"

	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/values"
)

func TestColumnTypeMapping(t *testing.T) {
	cases := map[*values.Def]string{
		values.String():              "TEXT",
		values.Number():              "REAL",
		values.Boolean():             "INTEGER",
		values.Id("users"):           "TEXT",
		values.Object():              "TEXT",
		values.Optional(values.Number()): "REAL",
	}
	for def, want := range cases {
		if got := ColumnType(def); got != want {
			t.Errorf("ColumnType(%v) = %q, want %q", def.Kind, got, want)
		}
	}
}

func TestIsTopLevelID(t *testing.T) {
	if table, ok := IsTopLevelID(values.Id("users")); !ok || table != "users" {
		t.Fatalf("expected top-level id ref to users, got %q %v", table, ok)
	}
	if _, ok := IsTopLevelID(values.String()); ok {
		t.Fatal("expected non-id def to not be a top-level id ref")
	}
	if table, ok := IsTopLevelID(values.Optional(values.Id("users"))); !ok || table != "users" {
		t.Fatalf("expected optional id ref to unwrap, got %q %v", table, ok)
	}
}

func TestCreateTableSQLIncludesReservedColumnsAndForeignKey(t *testing.T) {
	tbl := schema.Table{
		Name: "posts",
		Fields: []values.FieldDef{
			values.F("title", values.String()),
			values.F("author", values.Id("users")),
			values.F("views", values.Optional(values.Number())),
		},
	}
	sql := CreateTableSQL("posts", tbl)

	for _, want := range []string{
		`"_id" TEXT PRIMARY KEY`,
		`"_createdAt" TEXT NOT NULL`,
		`"_updatedAt" TEXT NOT NULL`,
		`"_extras" TEXT NOT NULL DEFAULT '{}'`,
		`"title" TEXT NOT NULL`,
		`"author" TEXT NOT NULL`,
		`"views" REAL`,
		`FOREIGN KEY ("author") REFERENCES "users"(_id) ON DELETE RESTRICT ON UPDATE CASCADE`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("expected generated DDL to contain %q, got:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, `"views" REAL NOT NULL`) {
		t.Error("expected optional field to be nullable")
	}
}

func TestCreateTableSQLNoForeignKeyForNestedObjectIdRef(t *testing.T) {
	tbl := schema.Table{
		Name: "comments",
		Fields: []values.FieldDef{
			values.F("meta", values.Object(values.F("author", values.Id("users")))),
		},
	}
	sql := CreateTableSQL("comments", tbl)
	if strings.Contains(sql, "FOREIGN KEY") {
		t.Errorf("did not expect a physical foreign key for an id nested inside an object column, got:\n%s", sql)
	}
}

func TestCreateIndexSQLNamespacesByTable(t *testing.T) {
	sql := CreateIndexSQL("posts", schema.Index{Name: "by_author", Columns: []string{"author"}})
	if !strings.Contains(sql, `"posts__by_author"`) {
		t.Errorf("expected namespaced index name, got %q", sql)
	}
	if !strings.Contains(sql, `ON "posts" ("author")`) {
		t.Errorf("expected index on posts(author), got %q", sql)
	}
}

func TestQuoteEscapesDoubleQuotes(t *testing.T) {
	if got := Quote(`weird"name`); got != `"weird""name"` {
		t.Fatalf("Quote = %q", got)
	}
}
