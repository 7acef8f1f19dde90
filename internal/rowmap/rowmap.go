// Package rowmap implements the single row-to-row mapping algorithm used by
// both schema migration (spec.md §4.3 step 3) and the relational engine's
// move operation (spec.md §4.4 "Same mapping algorithm as migration").
package rowmap

import "github.com/reactivedb/reactive/internal/schema"

// BuildTargetPayload computes the insertable payload for one target row
// given a source row's declared fields and extras:
//
//  1. start from the source's extras
//  2. overlay the source's declared (non-metadata) fields
//  3. for each target field, take combined[fieldMap[target] or target] if
//     present, else defaults[target] if present, else omit entirely
//     (letting downstream required-field validation fail the row)
//  4. whatever is left over in the combined map becomes the target's extras
func BuildTargetPayload(sourceFields, sourceExtras map[string]any, target schema.Table, fieldMap map[string]string, defaults map[string]any) map[string]any {
	combined := make(map[string]any, len(sourceFields)+len(sourceExtras))
	for k, v := range sourceExtras {
		combined[k] = v
	}
	for k, v := range sourceFields {
		combined[k] = v
	}

	payload := make(map[string]any, len(target.Fields))
	for _, f := range target.Fields {
		sourceKey := f.Name
		if mapped, ok := fieldMap[f.Name]; ok && mapped != "" {
			sourceKey = mapped
		}
		if v, ok := combined[sourceKey]; ok {
			payload[f.Name] = v
			delete(combined, sourceKey)
			continue
		}
		if d, ok := defaults[f.Name]; ok {
			payload[f.Name] = d
		}
		// else: omitted, required-field validation will reject it downstream.
	}

	for k, v := range combined {
		payload[k] = v
	}
	return payload
}
