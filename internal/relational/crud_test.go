package relational

import (
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
)

func TestInsertAndGet(t *testing.T) {
	eng := newTestEngine(t)
	w := eng.Write()

	id, err := w.Insert("users", map[string]any{"name": "Alice", "age": float64(30)})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	rows, err := eng.Read().Get("users", Query{Where: map[string]any{"_id": id}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(rows) != 1 || rows[0].Fields["name"] != "Alice" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestInsertMissingRequiredFieldFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Write().Insert("users", map[string]any{})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError, got %v", err)
	}
}

func TestInsertUnknownTableFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Write().Insert("ghosts", map[string]any{})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestInsertDanglingIdRefFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Write().Insert("posts", map[string]any{"title": "hi", "author": "nope"})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError for dangling id ref, got %v", err)
	}
}

func TestReadContextRejectsWriteEvenThroughBypass(t *testing.T) {
	eng := newTestEngine(t)
	var rc ReadContext = eng.Read()

	// Simulate a caller that recovers a MutationContext view of the same
	// underlying value via type assertion.
	mc, ok := rc.(MutationContext)
	if !ok {
		t.Fatal("expected *Context to satisfy MutationContext via assertion")
	}
	_, err := mc.Insert("users", map[string]any{"name": "Bob"})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError from read-only guard, got %v", err)
	}
}

func TestUpdateFullReplace(t *testing.T) {
	eng := newTestEngine(t)
	w := eng.Write()
	id, err := w.Insert("users", map[string]any{"name": "Alice", "age": float64(30), "nickname": "Al"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := w.Update("users", Selector{ID: id}, map[string]any{"name": "Alice B"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row updated, got %d", n)
	}

	row, err := eng.Read().First("users", Query{Where: map[string]any{"_id": id}})
	if err != nil || row == nil {
		t.Fatalf("First: %v %v", row, err)
	}
	if row.Fields["age"] != nil {
		t.Fatalf("expected age cleared by full-replace update, got %v", row.Fields["age"])
	}
	if _, ok := row.Extras["nickname"]; ok {
		t.Fatalf("expected extras cleared by full-replace update, got %+v", row.Extras)
	}
}

func TestDeleteRestrictedByForeignKey(t *testing.T) {
	eng := newTestEngine(t)
	w := eng.Write()
	userID, err := w.Insert("users", map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("Insert user: %v", err)
	}
	if _, err := w.Insert("posts", map[string]any{"title": "hi", "author": userID}); err != nil {
		t.Fatalf("Insert post: %v", err)
	}

	_, err = w.Delete("users", Selector{ID: userID})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError from FK restriction, got %v", err)
	}
}

func TestDeleteOrderingChildThenParentSucceeds(t *testing.T) {
	eng := newTestEngine(t)
	w := eng.Write()
	userID, err := w.Insert("users", map[string]any{"name": "Alice"})
	if err != nil {
		t.Fatalf("Insert user: %v", err)
	}
	postID, err := w.Insert("posts", map[string]any{"title": "hi", "author": userID})
	if err != nil {
		t.Fatalf("Insert post: %v", err)
	}

	if _, err := w.Delete("posts", Selector{ID: postID}); err != nil {
		t.Fatalf("Delete post: %v", err)
	}
	if _, err := w.Delete("users", Selector{ID: userID}); err != nil {
		t.Fatalf("Delete user after child removed: %v", err)
	}
}

func TestCountAndPaging(t *testing.T) {
	eng := newTestEngine(t)
	w := eng.Write()
	for i := 0; i < 5; i++ {
		if _, err := w.Insert("users", map[string]any{"name": "user"}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	n, err := eng.Read().Count("users", Query{})
	if err != nil || n != 5 {
		t.Fatalf("Count: %d %v", n, err)
	}

	two := 2
	rows, err := eng.Read().Get("users", Query{OrderBy: []OrderTerm{{Field: "_createdAt", Direction: "asc"}}, Limit: &two})
	if err != nil {
		t.Fatalf("Get paged: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestSelectorRequiresExactlyOneOfIDOrWhere(t *testing.T) {
	eng := newTestEngine(t)
	w := eng.Write()
	_, err := w.Delete("users", Selector{})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError for empty selector, got %v", err)
	}
	_, err = w.Delete("users", Selector{ID: "x", Where: map[string]any{"name": "x"}})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError for over-specified selector, got %v", err)
	}
}

func TestMoveTransfersRowAndAppliesFieldMap(t *testing.T) {
	eng := newTestEngine(t)
	w := eng.Write()
	userID, err := w.Insert("users", map[string]any{"name": "Alice", "age": float64(41), "extra": "kept"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	moved, err := w.Move("users", MoveRequest{
		ToTable:  "archivedUsers",
		Selector: Selector{ID: userID},
		Defaults: map[string]any{"name": "unnamed"},
	})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected 1 row moved, got %d", moved)
	}

	if rows, err := eng.Read().Get("users", Query{Where: map[string]any{"_id": userID}}); err != nil || len(rows) != 0 {
		t.Fatalf("expected row removed from source table: %+v %v", rows, err)
	}

	row, err := eng.Read().First("archivedUsers", Query{Where: map[string]any{"_id": userID}})
	if err != nil || row == nil {
		t.Fatalf("First after move: %v %v", row, err)
	}
	if row.Fields["name"] != "Alice" {
		t.Fatalf("expected name preserved through move, got %v", row.Fields["name"])
	}
	if row.Extras["extra"] != "kept" {
		t.Fatalf("expected unmapped source field carried into extras, got %+v", row.Extras)
	}
}
