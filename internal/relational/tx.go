package relational

import "github.com/reactivedb/reactive/internal/engineerr"

// Transaction implements spec.md §4.4 transaction(fn): fn receives a
// MutationContext bound to a single SQLite transaction and every operation
// it performs either all commits or all rolls back together.
//
// spec.md §4.4/§9 also requires rejecting a "deferred" callback that would
// let the transaction's connection be used after fn returns. Go's call
// signature is synchronous by construction: fn must return before
// Transaction can commit or roll back, so there is no way to hand the
// caller a dangling transactional context the way a callback-based async
// runtime could. No additional check is needed to satisfy that invariant.
func (c *Context) Transaction(fn func(MutationContext) (any, error)) (any, error) {
	if err := c.guardWrite(); err != nil {
		return nil, err
	}
	if err := c.eng.Store.EnsureOpen(); err != nil {
		return nil, err
	}

	tx, err := c.eng.Store.DB.Begin()
	if err != nil {
		return nil, engineerr.Database(err, "begin transaction")
	}

	inner := &Context{eng: c.eng, exec: tx, readOnly: false}

	result, err := fn(inner)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return nil, engineerr.Database(rbErr, "rollback after %v", err)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, engineerr.Database(err, "commit transaction")
	}
	return result, nil
}
