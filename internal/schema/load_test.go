package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
)

func TestLoadYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	writeFile(t, path, `
tables:
  users:
    fields:
      name: string
      age: number
    indexes:
      by_name: [name]
  posts:
    fields:
      title: string
      authorId: id(users)
`)

	s, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if _, err := Compile(s); err != nil {
		t.Fatalf("Compile loaded schema: %v", err)
	}
	if _, ok := s.Table("users"); !ok {
		t.Fatalf("expected users table to be present")
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindSchemaLoad {
		t.Fatalf("expected SchemaLoadError, got %v", err)
	}
}

func TestLoadYAMLMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "tables: [this is not a map]")

	_, err := LoadYAML(path)
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindSchemaLoad {
		t.Fatalf("expected SchemaLoadError, got %v", err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
