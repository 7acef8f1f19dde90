package names

import (
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
)

func wantValidation(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error, got nil")
	}
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError, got %v (%v)", kind, err)
	}
}

func TestTableValid(t *testing.T) {
	for _, n := range []string{"users", "_private", "posts-v2", "a"} {
		if err := Table(n); err != nil {
			t.Errorf("Table(%q) = %v, want nil", n, err)
		}
	}
}

func TestTableRejectsEmpty(t *testing.T) {
	wantValidation(t, Table(""))
}

func TestTableRejectsOverlong(t *testing.T) {
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'a'
	}
	wantValidation(t, Table(string(long)))
}

func TestTableRejectsPattern(t *testing.T) {
	for _, n := range []string{"1users", "user name", "users;drop", "usérs"} {
		wantValidation(t, Table(n))
	}
}

func TestTableRejectsDenylist(t *testing.T) {
	for _, n := range []string{"a;DROP", "x--y", "UNION SELECT", "EXEC(foo)"} {
		wantValidation(t, Table(n))
	}
}

func TestColumnRejectsHyphen(t *testing.T) {
	// Columns are stricter than tables: no hyphen allowed.
	wantValidation(t, Column("my-field"))
	if err := Column("my_field"); err != nil {
		t.Errorf("Column(my_field) = %v, want nil", err)
	}
}

func TestFieldRejectsReserved(t *testing.T) {
	for name := range Reserved {
		wantValidation(t, Field(name))
	}
}

func TestFieldAcceptsDeclared(t *testing.T) {
	if err := Field("nickname"); err != nil {
		t.Errorf("Field(nickname) = %v, want nil", err)
	}
}
