package physical

import (
	"encoding/json"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/values"
)

// EncodeScalar converts a validated logical field value into its physical
// SQLite representation: booleans become 0/1, objects become a JSON string,
// everything else passes through unchanged. Shared by the relational engine
// (per-row insert/update) and the schema migrator (bulk row copy), since
// both need the identical column encoding.
func EncodeScalar(def *values.Def, v any) (any, error) {
	base := values.Unwrap(def).Base
	switch base.Kind {
	case values.KindBoolean:
		b, _ := v.(bool)
		if b {
			return 1, nil
		}
		return 0, nil
	case values.KindObject:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, engineerr.Validation("failed to encode object value: %v", err)
		}
		return string(data), nil
	default:
		return v, nil
	}
}

// DecodeScalar is EncodeScalar's inverse, used when reading a physical
// column back into its logical Go representation.
func DecodeScalar(def *values.Def, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	base := values.Unwrap(def).Base
	switch base.Kind {
	case values.KindBoolean:
		switch n := raw.(type) {
		case int64:
			return n != 0, nil
		case float64:
			return n != 0, nil
		default:
			return false, nil
		}
	case values.KindNumber:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		default:
			return nil, nil
		}
	case values.KindObject:
		s, ok := raw.(string)
		if !ok || s == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, engineerr.Database(err, "decode object column")
		}
		return m, nil
	default:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return raw, nil
	}
}
