// Package relational implements the typed CRUD, predicate/order/paging
// query DSL, foreign-key enforcement and transactions that make up the
// relational half of the engine (spec.md §4.4).
package relational

import (
	"database/sql"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/store"
)

// queryer is satisfied by both *sql.DB and *sql.Tx, letting every CRUD
// method run unmodified whether or not it is inside a transaction.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Engine binds a physical Store to the currently applied Compiled schema.
// It is the construction point for read-only and mutation Contexts; it
// exposes no CRUD methods of its own so that every access goes through an
// explicit read-only/mutation boundary (spec.md §4.4).
type Engine struct {
	Store    *store.Store
	Compiled *schema.Compiled
}

// New binds a Store to a Compiled schema. SetCompiled is used to rebind
// after a migration changes the active schema.
func New(s *store.Store, compiled *schema.Compiled) *Engine {
	return &Engine{Store: s, Compiled: compiled}
}

// SetCompiled rebinds the engine to a newly applied schema.
func (e *Engine) SetCompiled(c *schema.Compiled) {
	e.Compiled = c
}

// Read returns a read-only Context: Get/First/Count work, and every write
// method fails with ConstraintError.
func (e *Engine) Read() *Context {
	return &Context{eng: e, exec: e.Store.DB, readOnly: true}
}

// Write returns a mutation Context exposing the full CRUD surface.
func (e *Engine) Write() *Context {
	return &Context{eng: e, exec: e.Store.DB, readOnly: false}
}

func (e *Engine) table(name string) (schema.Table, error) {
	if e.Compiled == nil {
		return schema.Table{}, engineerr.Validation("no schema has been applied")
	}
	ct, ok := e.Compiled.Tables[name]
	if !ok {
		return schema.Table{}, engineerr.Validation("unknown table %q", name)
	}
	return ct.Table, nil
}
