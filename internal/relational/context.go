package relational

import "github.com/reactivedb/reactive/internal/engineerr"

// OrderTerm is one `orderBy` entry; Direction defaults to "asc" when empty.
type OrderTerm struct {
	Field     string
	Direction string
}

// Query is the where/orderBy/limit/offset shape accepted by Get/First/Count.
type Query struct {
	Where   map[string]any
	OrderBy []OrderTerm
	Limit   *int
	Offset  *int
}

// Selector identifies the row(s) an update/delete/move targets. Exactly one
// of ID or Where must be set.
type Selector struct {
	ID    string
	Where map[string]any
}

func (s Selector) validate() error {
	hasID := s.ID != ""
	hasWhere := s.Where != nil
	if hasID == hasWhere {
		return engineerr.Validation("selector requires exactly one of id or where")
	}
	return nil
}

// MoveRequest describes a transactional row move between tables.
type MoveRequest struct {
	ToTable   string
	Selector  Selector
	FieldMap  map[string]string
	Defaults  map[string]any
}

// ReadContext is the narrow view handed to read endpoints: spec.md §4.4
// "A read-only context exposes only get, first, count."
type ReadContext interface {
	Get(table string, q Query) ([]Row, error)
	First(table string, q Query) (*Row, error)
	Count(table string, q Query) (int, error)
}

// MutationContext is the full view handed to write endpoints.
type MutationContext interface {
	ReadContext
	Insert(table string, value map[string]any) (string, error)
	Update(table string, sel Selector, value map[string]any) (int, error)
	Delete(table string, sel Selector) (int, error)
	Move(sourceTable string, req MoveRequest) (int, error)
	Transaction(fn func(MutationContext) (any, error)) (any, error)
}

// Context is the single concrete implementation of both ReadContext and
// MutationContext. A handler that holds a Context through the narrower
// ReadContext interface and somehow recovers a MutationContext view of the
// same value (type assertion, reflection) still cannot bypass read-only
// enforcement: every write method checks readOnly itself and fails with
// ConstraintError regardless of which interface the caller used to reach
// it (spec.md §4.4, "this check must be effective even when user code
// tries to bypass the declared type").
type Context struct {
	eng      *Engine
	exec     queryer
	readOnly bool
}

var (
	_ ReadContext     = (*Context)(nil)
	_ MutationContext = (*Context)(nil)
)

func (c *Context) guardWrite() error {
	if c.readOnly {
		return engineerr.Constraint("Query context is read-only")
	}
	return nil
}
