package relational

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/physical"
	"github.com/reactivedb/reactive/internal/predicate"
	"github.com/reactivedb/reactive/internal/rowmap"
	"github.com/reactivedb/reactive/internal/schema"
)

// fieldResolver builds the predicate.Resolver for a table: declared fields
// resolve to their physical column, everything else resolves against the
// _extras JSON blob (spec.md §4.4 "unknown filter fields resolve against
// _extras using a JSON path extract").
func fieldResolver(t schema.Table) predicate.Resolver {
	known := t.FieldMap()
	return func(field string) string {
		if field == "_id" || field == "_createdAt" || field == "_updatedAt" {
			return physical.Quote(field)
		}
		if _, ok := known[field]; ok {
			return physical.Quote(field)
		}
		return fmt.Sprintf("json_extract(_extras, '$.%s')", field)
	}
}

func orderBySQL(t schema.Table, terms []OrderTerm) (string, error) {
	if len(terms) == 0 {
		return "", nil
	}
	resolve := fieldResolver(t)
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		dir := strings.ToLower(term.Direction)
		if dir == "" {
			dir = "asc"
		}
		if dir != "asc" && dir != "desc" {
			return "", engineerr.Validation("orderBy direction must be \"asc\" or \"desc\", got %q", term.Direction)
		}
		parts = append(parts, fmt.Sprintf("%s %s", resolve(term.Field), strings.ToUpper(dir)))
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func limitOffsetSQL(q Query) (string, []any, error) {
	var args []any
	if q.Offset != nil && *q.Offset < 0 {
		return "", nil, engineerr.Validation("offset must be non-negative")
	}
	if q.Limit != nil && *q.Limit < 0 {
		return "", nil, engineerr.Validation("limit must be non-negative")
	}

	switch {
	case q.Limit == nil && q.Offset == nil:
		return "", nil, nil
	case q.Limit != nil && q.Offset == nil:
		return " LIMIT ?", []any{*q.Limit}, nil
	case q.Limit == nil && q.Offset != nil:
		// Offset alone implies an unbounded limit (spec.md §4.4 "Order and paging").
		return " LIMIT -1 OFFSET ?", []any{*q.Offset}, nil
	default:
		return " LIMIT ? OFFSET ?", []any{*q.Limit, *q.Offset}, nil
	}
}

// Get implements spec.md §4.4 get(table, {where?, orderBy?, limit?, offset?}).
func (c *Context) Get(table string, q Query) ([]Row, error) {
	if err := c.eng.Store.EnsureOpen(); err != nil {
		return nil, err
	}
	t, err := c.eng.table(table)
	if err != nil {
		return nil, err
	}

	whereSQL, whereArgs, err := predicate.Compile(q.Where, fieldResolver(t))
	if err != nil {
		return nil, err
	}
	orderSQL, err := orderBySQL(t, q.OrderBy)
	if err != nil {
		return nil, err
	}
	pageSQL, pageArgs, err := limitOffsetSQL(q)
	if err != nil {
		return nil, err
	}

	cols := strings.Join(quoteAll(selectColumns(t)), ", ")
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s%s%s", cols, physical.Quote(table), whereSQL, orderSQL, pageSQL)

	args := append(append([]any{}, whereArgs...), pageArgs...)
	rows, err := c.exec.Query(stmt, args...)
	if err != nil {
		return nil, engineerr.Database(err, "get %s", table)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		r, err := scanRow(t, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// First implements spec.md §4.4 first = get(..., limit=1)[0] or null.
func (c *Context) First(table string, q Query) (*Row, error) {
	one := 1
	q.Limit = &one
	rows, err := c.Get(table, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Count implements spec.md §4.4 count(table, {where?}).
func (c *Context) Count(table string, q Query) (int, error) {
	if err := c.eng.Store.EnsureOpen(); err != nil {
		return 0, err
	}
	t, err := c.eng.table(table)
	if err != nil {
		return 0, err
	}
	whereSQL, args, err := predicate.Compile(q.Where, fieldResolver(t))
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", physical.Quote(table), whereSQL)
	var n int
	if err := c.exec.QueryRow(stmt, args...).Scan(&n); err != nil {
		return 0, engineerr.Database(err, "count %s", table)
	}
	return n, nil
}

// Insert implements spec.md §4.4 insert(table, value) -> id.
func (c *Context) Insert(table string, value map[string]any) (string, error) {
	if err := c.guardWrite(); err != nil {
		return "", err
	}
	if err := c.eng.Store.EnsureOpen(); err != nil {
		return "", err
	}
	t, err := c.eng.table(table)
	if err != nil {
		return "", err
	}

	fields, extras, idRefs, err := validateAndEncode(t, value)
	if err != nil {
		return "", err
	}

	id, _ := value["_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}

	var exists int
	err = c.exec.QueryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE _id = ?", physical.Quote(table)), id).Scan(&exists)
	if err == nil {
		return "", engineerr.Constraint("id already exists")
	}

	if err := c.verifyIDRefs(idRefs); err != nil {
		return "", err
	}

	cols, args, err := encodePhysical(t, fields)
	if err != nil {
		return "", err
	}

	extrasJSON, err := marshalExtras(extras)
	if err != nil {
		return "", err
	}

	now := nowISO()
	allCols := append([]string{"_id", "_createdAt", "_updatedAt", "_extras"}, cols...)
	allArgs := append([]any{id, now, now, extrasJSON}, args...)

	placeholders := strings.Repeat("?,", len(allCols))
	placeholders = placeholders[:len(placeholders)-1]

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		physical.Quote(table), strings.Join(quoteAll(allCols), ", "), placeholders)

	if _, err := c.exec.Exec(stmt, allArgs...); err != nil {
		return "", mapWriteError(err)
	}
	return id, nil
}

// Update implements spec.md §4.4 update: full-replace semantics for every
// row matched by sel.
func (c *Context) Update(table string, sel Selector, value map[string]any) (int, error) {
	if err := c.guardWrite(); err != nil {
		return 0, err
	}
	if err := sel.validate(); err != nil {
		return 0, err
	}
	if err := c.eng.Store.EnsureOpen(); err != nil {
		return 0, err
	}
	t, err := c.eng.table(table)
	if err != nil {
		return 0, err
	}

	fields, extras, idRefs, err := validateAndEncode(t, value)
	if err != nil {
		return 0, err
	}
	if err := c.verifyIDRefs(idRefs); err != nil {
		return 0, err
	}

	cols, args, err := encodePhysical(t, fields)
	if err != nil {
		return 0, err
	}
	extrasJSON, err := marshalExtras(extras)
	if err != nil {
		return 0, err
	}

	whereSQL, whereArgs, err := selectorSQL(t, sel)
	if err != nil {
		return 0, err
	}

	setClauses := make([]string, 0, len(cols)+2)
	setArgs := make([]any, 0, len(args)+2)
	for i, col := range cols {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", physical.Quote(col)))
		setArgs = append(setArgs, args[i])
	}
	setClauses = append(setClauses, physical.Quote("_extras")+" = ?", physical.Quote("_updatedAt")+" = ?")
	setArgs = append(setArgs, extrasJSON, nowISO())

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", physical.Quote(table), strings.Join(setClauses, ", "), whereSQL)
	res, err := c.exec.Exec(stmt, append(setArgs, whereArgs...)...)
	if err != nil {
		return 0, mapWriteError(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Delete implements spec.md §4.4 delete.
func (c *Context) Delete(table string, sel Selector) (int, error) {
	if err := c.guardWrite(); err != nil {
		return 0, err
	}
	if err := sel.validate(); err != nil {
		return 0, err
	}
	if err := c.eng.Store.EnsureOpen(); err != nil {
		return 0, err
	}
	t, err := c.eng.table(table)
	if err != nil {
		return 0, err
	}

	whereSQL, whereArgs, err := selectorSQL(t, sel)
	if err != nil {
		return 0, err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", physical.Quote(table), whereSQL)
	res, err := c.exec.Exec(stmt, whereArgs...)
	if err != nil {
		return 0, mapWriteError(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Move implements spec.md §4.4 move(sourceTable, {toTable, id|where,
// fieldMap?, defaults?}): transactional insert-then-delete using the same
// row mapping algorithm as migration.
func (c *Context) Move(sourceTable string, req MoveRequest) (int, error) {
	if err := c.guardWrite(); err != nil {
		return 0, err
	}
	if err := req.Selector.validate(); err != nil {
		return 0, err
	}

	result, err := c.Transaction(func(tx MutationContext) (any, error) {
		rows, err := tx.Get(sourceTable, Query{Where: selectorWhere(req.Selector)})
		if err != nil {
			return nil, err
		}
		moved := 0
		for _, row := range rows {
			target, err := c.eng.table(req.ToTable)
			if err != nil {
				return nil, err
			}
			payload := rowmap.BuildTargetPayload(row.Fields, row.Extras, target, req.FieldMap, req.Defaults)
			payload["_id"] = row.ID

			if _, err := tx.Insert(req.ToTable, payload); err != nil {
				return nil, err
			}
			if _, err := tx.Delete(sourceTable, Selector{ID: row.ID}); err != nil {
				return nil, err
			}
			moved++
		}
		return moved, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

func selectorWhere(sel Selector) map[string]any {
	if sel.ID != "" {
		return map[string]any{"_id": sel.ID}
	}
	return sel.Where
}

func selectorSQL(t schema.Table, sel Selector) (string, []any, error) {
	return predicate.Compile(selectorWhere(sel), fieldResolver(t))
}

// verifyIDRefs checks the Id Reference Invariant (spec.md §3) for every Id
// value observed during validation, including references nested inside an
// Object column where a physical foreign key cannot reach.
func (c *Context) verifyIDRefs(idRefs map[string]idRef) error {
	for path, ref := range idRefs {
		if _, err := c.eng.table(ref.Table); err != nil {
			return engineerr.Constraint("field %q references unknown table %q", path, ref.Table)
		}
		var exists int
		stmt := fmt.Sprintf("SELECT 1 FROM %s WHERE _id = ?", physical.Quote(ref.Table))
		if err := c.exec.QueryRow(stmt, ref.ID).Scan(&exists); err != nil {
			return engineerr.Constraint("field %q references non-existent %s %q", path, ref.Table, ref.ID)
		}
	}
	return nil
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = physical.Quote(c)
	}
	return out
}

func marshalExtras(extras map[string]any) (string, error) {
	data, err := json.Marshal(extras)
	if err != nil {
		return "", engineerr.Validation("failed to encode extras: %v", err)
	}
	return string(data), nil
}

// mapWriteError maps a raw SQLite error into the engine's error taxonomy.
func mapWriteError(err error) error {
	msg := err.Error()
	if strings.Contains(strings.ToUpper(msg), "FOREIGN KEY CONSTRAINT FAILED") || strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return engineerr.Constraint("Foreign key constraint failed")
	}
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return engineerr.Constraint("id already exists")
	}
	return engineerr.Database(err, "write failed")
}
