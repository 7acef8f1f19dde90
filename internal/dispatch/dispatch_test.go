package dispatch

import (
	"path/filepath"
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/physical"
	"github.com/reactivedb/reactive/internal/registry"
	"github.com/reactivedb/reactive/internal/relational"
	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/store"
	"github.com/reactivedb/reactive/internal/values"
	"github.com/reactivedb/reactive/internal/vector"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "reactive.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	sch := schema.New(schema.Table{
		Name: "users",
		Fields: []values.FieldDef{
			values.F("name", values.String()),
		},
	})
	compiled, err := schema.Compile(sch)
	if err != nil {
		t.Fatalf("schema.Compile: %v", err)
	}
	ct := compiled.Tables["users"]
	if _, err := s.DB.Exec(physical.CreateTableSQL(ct.Table.Name, ct.Table)); err != nil {
		t.Fatalf("create table: %v", err)
	}

	rel := relational.New(s, compiled)
	vec := vector.New(s, vector.NewDocumentIndex(), nil)
	reg := registry.New()

	reg.RegisterWrite("users.create", values.Object(values.F("name", values.String())),
		func(ctx registry.MutationContext, args map[string]any) (any, error) {
			return ctx.Relational.Insert("users", map[string]any{"name": args["name"]})
		})
	reg.RegisterRead("users.count", values.Object(),
		func(ctx registry.ReadContext, args map[string]any) (any, error) {
			return ctx.Relational.Count("users", relational.Query{})
		})
	reg.RegisterRead("users.tryInsert", values.Object(),
		func(ctx registry.ReadContext, args map[string]any) (any, error) {
			mc, ok := ctx.Relational.(relational.MutationContext)
			if !ok {
				return nil, nil
			}
			return mc.Insert("users", map[string]any{"name": "bypass"})
		})

	return New(reg, rel, vec, nil)
}

func TestCallWriteEndpointInsertsAndValidatesArgs(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.Call(registry.KindWrite, "users.create", map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	count, err := d.Call(registry.KindRead, "users.count", nil)
	if err != nil {
		t.Fatalf("Call users.count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %v", count)
	}
}

func TestCallRejectsUnknownEndpoint(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Call(registry.KindRead, "users.missing", nil)
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindFunctionResolution {
		t.Fatalf("expected FunctionResolutionError, got %v", err)
	}
}

func TestCallRejectsKindMismatch(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Call(registry.KindRead, "users.create", map[string]any{"name": "Alice"})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindFunctionResolution {
		t.Fatalf("expected FunctionResolutionError, got %v", err)
	}
}

func TestCallRejectsMissingRequiredArg(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Call(registry.KindWrite, "users.create", map[string]any{})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError for missing required arg, got %v", err)
	}
}

func TestReadEndpointCannotBypassReadOnlyGuard(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Call(registry.KindRead, "users.tryInsert", nil)
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError (read-only context), got %v", err)
	}
}
