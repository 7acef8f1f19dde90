package values

import "fmt"

// Canonical renders a Value Definition as a deterministic string suitable
// for content-hashing: Object.shape entries are sorted by field name so
// that two Defs built in different declaration orders produce identical
// output (spec.md §4.2 step 3, §8 "semantically equal schemas hash
// identically").
func Canonical(d *Def) string {
	switch d.Kind {
	case KindString, KindNumber, KindBoolean:
		return string(d.Kind)
	case KindId:
		return fmt.Sprintf("id(%s)", d.Table)
	case KindOptional:
		return fmt.Sprintf("optional(%s)", Canonical(d.Inner))
	case KindObject:
		out := "object{"
		for i, f := range d.SortedShape() {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf("%s:%s", f.Name, Canonical(f.Def))
		}
		return out + "}"
	default:
		return fmt.Sprintf("unknown(%s)", d.Kind)
	}
}
