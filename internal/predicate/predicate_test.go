package predicate

import (
	"strings"
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
)

func identity(field string) string { return field }

func TestEmptyWhereIsTautology(t *testing.T) {
	sql, args, err := Compile(nil, identity)
	if err != nil || sql != "1=1" || len(args) != 0 {
		t.Fatalf("Compile(nil) = %q, %v, %v", sql, args, err)
	}
}

func TestScalarSugarIsEq(t *testing.T) {
	sql, args, err := Compile(map[string]any{"name": "Alice"}, identity)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if sql != "name = ?" || len(args) != 1 || args[0] != "Alice" {
		t.Fatalf("unexpected compile result: %q %v", sql, args)
	}
}

func TestEmptyAndIsTautologyEmptyOrIsContradiction(t *testing.T) {
	sql, _, err := Compile(map[string]any{"$and": []any{}}, identity)
	if err != nil || !strings.Contains(sql, "1=1") {
		t.Fatalf("empty $and: %q %v", sql, err)
	}
	sql, _, err = Compile(map[string]any{"$or": []any{}}, identity)
	if err != nil || !strings.Contains(sql, "1=0") {
		t.Fatalf("empty $or: %q %v", sql, err)
	}
}

func TestEmptyInIsContradictionEmptyNinIsTautology(t *testing.T) {
	sql, _, err := Compile(map[string]any{"title": map[string]any{"$in": []any{}}}, identity)
	if err != nil || sql != "1=0" {
		t.Fatalf("empty $in: %q %v", sql, err)
	}
	sql, _, err = Compile(map[string]any{"title": map[string]any{"$nin": []any{}}}, identity)
	if err != nil || sql != "1=1" {
		t.Fatalf("empty $nin: %q %v", sql, err)
	}
}

func TestEqNilBecomesIsNull(t *testing.T) {
	sql, args, err := Compile(map[string]any{"score": map[string]any{"$eq": nil}}, identity)
	if err != nil || sql != "score IS NULL" || len(args) != 0 {
		t.Fatalf("unexpected: %q %v %v", sql, args, err)
	}
}

func TestBooleanNormalizedToInt(t *testing.T) {
	_, args, err := Compile(map[string]any{"isActive": true}, identity)
	if err != nil || args[0] != 1 {
		t.Fatalf("expected normalized boolean 1, got %v (%v)", args, err)
	}
}

func TestUnknownOperatorFails(t *testing.T) {
	_, _, err := Compile(map[string]any{"name": map[string]any{"$bogus": 1}}, identity)
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCompoundAndOr(t *testing.T) {
	where := map[string]any{
		"$or": []any{
			map[string]any{"title": map[string]any{"$contains": "ta"}},
			map[string]any{"note": map[string]any{"$contains": "group-a"}},
		},
	}
	sql, args, err := Compile(where, identity)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %v", args)
	}
	if !strings.Contains(sql, "LIKE") {
		t.Fatalf("expected LIKE in %q", sql)
	}
}
