package relational

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/names"
	"github.com/reactivedb/reactive/internal/physical"
	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/values"
)

// Row is the logical decoded shape: reserved metadata fields plus every
// declared field, with unknown user-supplied keys under Extras.
type Row struct {
	ID        string
	CreatedAt string
	UpdatedAt string
	Extras    map[string]any
	Fields    map[string]any
}

// Map flattens a Row into the {_id, _createdAt, _updatedAt, _extras, ...}
// shape spec.md §3 describes, with declared fields overriding Extras.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.Fields)+4)
	out["_id"] = r.ID
	out["_createdAt"] = r.CreatedAt
	out["_updatedAt"] = r.UpdatedAt
	out["_extras"] = r.Extras
	for k, v := range r.Fields {
		out[k] = v
	}
	return out
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// idRef is one observed Id value that must exist in its referenced table,
// keyed by the dotted path it was found at (e.g. "author" or "meta.owner").
type idRef struct {
	Table string
	ID    string
}

// validateAndEncode validates raw user input against a table's declared
// fields (spec.md §4.4 insert/update: "missing non-optional fields fail
// with ConstraintError; unknown keys are put into _extras after column-name
// validation") and returns the physical column values plus the extras blob.
func validateAndEncode(t schema.Table, raw map[string]any) (fields map[string]any, extras map[string]any, idRefs map[string]idRef, err error) {
	fields = make(map[string]any, len(t.Fields))
	extras = map[string]any{}
	idRefs = map[string]idRef{}

	known := t.FieldMap()
	for name, def := range known {
		v, present := raw[name]
		nv, verr := values.Validate(name, def, v, present)
		if verr != nil {
			return nil, nil, nil, verr
		}
		if present {
			fields[name] = nv
		}
		collectIDRefs(name, def, nv, present, idRefs)
	}

	for k, v := range raw {
		if _, ok := known[k]; ok {
			continue
		}
		if err := validColumnKey(k); err != nil {
			return nil, nil, nil, err
		}
		extras[k] = v
	}

	return fields, extras, idRefs, nil
}

func validColumnKey(k string) error {
	return names.Column(k)
}

// collectIDRefs records every Id value reachable from a validated field,
// including one level into an Object, so the caller can verify the Id
// Reference Invariant even for references hidden inside a JSON blob column.
func collectIDRefs(path string, def *values.Def, value any, present bool, out map[string]idRef) {
	if !present || value == nil {
		return
	}
	base := values.Unwrap(def).Base
	switch base.Kind {
	case values.KindId:
		if s, ok := value.(string); ok && s != "" {
			out[path] = idRef{Table: base.Table, ID: s}
		}
	case values.KindObject:
		m, ok := value.(map[string]any)
		if !ok {
			return
		}
		for _, f := range base.Shape {
			collectIDRefs(path+"."+f.Name, f.Def, m[f.Name], true, out)
		}
	}
}

// encodePhysical converts validated logical field values into the SQL
// parameter list for a column set, marshalling Objects to JSON and booleans
// to 0/1.
func encodePhysical(t schema.Table, fields map[string]any) (columns []string, args []any, err error) {
	for _, f := range t.Fields {
		v, present := fields[f.Name]
		columns = append(columns, f.Name)
		if !present {
			args = append(args, nil)
			continue
		}
		enc, err := physical.EncodeScalar(f.Def, v)
		if err != nil {
			return nil, nil, err
		}
		args = append(args, enc)
	}
	return columns, args, nil
}

// scanRow reads one row from *sql.Rows positioned at a SELECT of the
// reserved columns followed by every declared field in table.Fields order,
// and decodes it into the logical Row shape.
func scanRow(t schema.Table, rows *sql.Rows) (Row, error) {
	dest := make([]any, 0, 4+len(t.Fields))
	var id, createdAt, updatedAt, extrasRaw string
	dest = append(dest, &id, &createdAt, &updatedAt, &extrasRaw)

	raws := make([]any, len(t.Fields))
	for i := range t.Fields {
		dest = append(dest, &raws[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return Row{}, engineerr.Database(err, "scan row")
	}

	extras := map[string]any{}
	if extrasRaw != "" {
		if err := json.Unmarshal([]byte(extrasRaw), &extras); err != nil {
			return Row{}, engineerr.Database(err, "decode extras")
		}
	}

	fields := make(map[string]any, len(t.Fields))
	for i, f := range t.Fields {
		v, err := physical.DecodeScalar(f.Def, raws[i])
		if err != nil {
			return Row{}, err
		}
		fields[f.Name] = v
	}

	return Row{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt, Extras: extras, Fields: fields}, nil
}

// selectColumns returns the ordered column list used by scanRow: the four
// reserved columns followed by every declared field.
func selectColumns(t schema.Table) []string {
	cols := []string{"_id", "_createdAt", "_updatedAt", "_extras"}
	for _, f := range t.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}
