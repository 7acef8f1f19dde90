package values

import (
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
)

func TestValidateMissingRequired(t *testing.T) {
	_, err := Validate("age", Number(), nil, false)
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError, got %v", err)
	}
}

func TestValidateOptionalMissingOK(t *testing.T) {
	v, err := Validate("score", Optional(Number()), nil, false)
	if err != nil || v != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", v, err)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	_, err := Validate("age", Number(), "thirty", true)
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidateObjectUnknownKey(t *testing.T) {
	shape := Object(F("bio", String()))
	_, err := Validate("profile", shape, map[string]any{"bio": "x", "extra": 1}, true)
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindValidation {
		t.Fatalf("expected ValidationError for unknown key, got %v", err)
	}
}

func TestValidateObjectRoundTrip(t *testing.T) {
	shape := Object(F("bio", String()), F("score", Optional(Number())))
	out, err := Validate("profile", shape, map[string]any{"bio": "Engineer", "score": float64(7)}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := out.(map[string]any)
	if m["bio"] != "Engineer" || m["score"] != float64(7) {
		t.Fatalf("unexpected decoded object: %+v", m)
	}
}

func TestCanonicalOrderInsensitive(t *testing.T) {
	a := Object(F("b", String()), F("a", Number()))
	b := Object(F("a", Number()), F("b", String()))
	if Canonical(a) != Canonical(b) {
		t.Fatalf("canonical forms differ for semantically equal objects: %q vs %q", Canonical(a), Canonical(b))
	}
}

func TestCanonicalIdAndOptional(t *testing.T) {
	d := Optional(Id("users"))
	if got, want := Canonical(d), "optional(id(users))"; got != want {
		t.Fatalf("Canonical() = %q, want %q", got, want)
	}
}
