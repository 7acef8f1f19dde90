// Package values implements the tagged Value Definition grammar shared by
// declared table fields and endpoint argument shapes, and the single
// validator both use to normalize untyped input (as decoded from JSON) into
// typed Go values.
package values

import (
	"fmt"
	"sort"

	"github.com/reactivedb/reactive/internal/engineerr"
)

// Kind tags one variant of a Value Definition.
type Kind string

const (
	KindString   Kind = "string"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindId       Kind = "id"
	KindObject   Kind = "object"
	KindOptional Kind = "optional"
)

// Def is a tagged Value Definition. Exactly the fields relevant to Kind are
// populated; the zero Def is invalid.
type Def struct {
	Kind  Kind
	Table string      // set when Kind == KindId: the referenced table name
	Shape []FieldDef   // set when Kind == KindObject: insertion-order fields
	Inner *Def         // set when Kind == KindOptional: the wrapped definition
}

// FieldDef names one field of an Object's shape, preserving declaration
// order (spec.md requires insertion order be preserved for tests).
type FieldDef struct {
	Name string
	Def  *Def
}

// String, Number, Boolean, Id and Object are constructors for the
// non-optional variants; Optional wraps any of them.
func String() *Def  { return &Def{Kind: KindString} }
func Number() *Def  { return &Def{Kind: KindNumber} }
func Boolean() *Def { return &Def{Kind: KindBoolean} }
func Id(table string) *Def { return &Def{Kind: KindId, Table: table} }
func Object(shape ...FieldDef) *Def { return &Def{Kind: KindObject, Shape: shape} }
func Optional(inner *Def) *Def      { return &Def{Kind: KindOptional, Inner: inner} }
func F(name string, def *Def) FieldDef { return FieldDef{Name: name, Def: def} }

// Unwrapped is the result of stripping an Optional wrapper: whether the
// field may be absent/null, and the base (non-optional) definition.
type Unwrapped struct {
	Optional bool
	Base     *Def
}

// Unwrap strips at most one layer of Optional, matching spec.md §4.2 step 1
// ("unwrap Optional wrappers to record {optional, base}"). A Def is never
// doubly-optional in a well-formed schema; Unwrap only looks one level deep.
func Unwrap(d *Def) Unwrapped {
	if d.Kind == KindOptional {
		return Unwrapped{Optional: true, Base: d.Inner}
	}
	return Unwrapped{Optional: false, Base: d}
}

// ShapeMap returns an Object's fields as a name->Def lookup.
func (d *Def) ShapeMap() map[string]*Def {
	m := make(map[string]*Def, len(d.Shape))
	for _, f := range d.Shape {
		m[f.Name] = f.Def
	}
	return m
}

// SortedShape returns a copy of Shape sorted by field name, used by the
// canonical encoder.
func (d *Def) SortedShape() []FieldDef {
	out := make([]FieldDef, len(d.Shape))
	copy(out, d.Shape)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate normalizes raw (e.g. JSON-decoded) input against a Def, applying
// the same rules to a table row field and to an endpoint argument: missing
// required values fail, unknown nested keys fail, optional/null/missing is
// permitted for Optional, type mismatches fail. The returned value is typed
// Go data ready for physical encoding: string, float64, bool, or
// map[string]any for Object.
func Validate(path string, d *Def, raw any, present bool) (any, error) {
	unwrapped := Unwrap(d)
	if !present || raw == nil {
		if unwrapped.Optional {
			return nil, nil
		}
		return nil, engineerr.Constraint("missing required field %q", path)
	}

	switch unwrapped.Base.Kind {
	case KindString, KindId:
		s, ok := raw.(string)
		if !ok {
			return nil, engineerr.Validation("field %q must be a string, got %T", path, raw)
		}
		return s, nil

	case KindNumber:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, engineerr.Validation("field %q must be a number, got %T", path, raw)
		}

	case KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, engineerr.Validation("field %q must be a boolean, got %T", path, raw)
		}
		return b, nil

	case KindObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, engineerr.Validation("field %q must be an object, got %T", path, raw)
		}
		known := unwrapped.Base.ShapeMap()
		out := make(map[string]any, len(known))
		for name, fieldDef := range known {
			v, present := m[name]
			nv, err := Validate(fmt.Sprintf("%s.%s", path, name), fieldDef, v, present)
			if err != nil {
				return nil, err
			}
			if present {
				out[name] = nv
			}
		}
		for k := range m {
			if _, ok := known[k]; !ok {
				return nil, engineerr.Validation("field %q has unknown nested key %q", path, k)
			}
		}
		return out, nil

	default:
		return nil, engineerr.Validation("field %q has unsupported definition kind %q", path, unwrapped.Base.Kind)
	}
}
