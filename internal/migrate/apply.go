package migrate

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/physical"
	"github.com/reactivedb/reactive/internal/rowmap"
	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/store"
	"github.com/reactivedb/reactive/internal/values"
)

// Migrator owns the single store handle the Schema Applier operates on.
// Previous is the last schema successfully applied to this store, used to
// decode source columns (booleans, objects) correctly during a migration
// copy. Apply loads it automatically from _schema_meta's stored table
// definitions when left nil; callers only need to set it explicitly to
// override that (tests supplying a schema the store itself never recorded).
type Migrator struct {
	Store    *store.Store
	Previous *schema.Compiled
}

// Result summarizes one successful Apply.
type Result struct {
	Plan       Plan
	BackupPath string // empty if the plan was a no-op
}

// Apply computes the migration Plan and, unless it is a no-op, executes it
// inside a single transaction per spec.md §4.3 Execution.
func (m *Migrator) Apply(target *schema.Compiled, rules RuleSet) (*Result, error) {
	if err := m.Store.EnsureOpen(); err != nil {
		return nil, err
	}

	managed, stored, err := m.readManagedState()
	if err != nil {
		return nil, err
	}
	previous := m.Previous
	if previous == nil {
		previous = stored
	}
	plan, err := ComputePlan(managed, m.physicalExists, target, rules)
	if err != nil {
		return nil, err
	}
	if plan.NoOp() {
		return &Result{Plan: plan}, nil
	}

	backupPath, err := m.backup()
	if err != nil {
		return nil, err
	}

	if err := m.execute(plan, target, rules, previous); err != nil {
		return nil, err
	}
	return &Result{Plan: plan, BackupPath: backupPath}, nil
}

// readManagedState reads every row of _schema_meta, returning both the
// table_name -> signature lookup ComputePlan diffs against and a Compiled
// reconstructed from the stored table_definition JSON, used to decode
// source columns during a migration copy (see Migrator.Previous).
func (m *Migrator) readManagedState() (map[string]string, *schema.Compiled, error) {
	rows, err := m.Store.DB.Query("SELECT table_name, table_signature, table_definition FROM _schema_meta")
	if err != nil {
		return nil, nil, engineerr.Database(err, "read _schema_meta")
	}
	defer func() { _ = rows.Close() }()

	signatures := map[string]string{}
	tables := map[string]schema.CompiledTable{}
	for rows.Next() {
		var name, sig, defJSON string
		if err := rows.Scan(&name, &sig, &defJSON); err != nil {
			return nil, nil, engineerr.Database(err, "scan _schema_meta row")
		}
		signatures[name] = sig
		var t schema.Table
		if err := json.Unmarshal([]byte(defJSON), &t); err != nil {
			return nil, nil, engineerr.Database(err, "decode stored table definition for %q", name)
		}
		tables[name] = schema.CompiledTable{Table: t, Signature: sig}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, engineerr.Database(err, "read _schema_meta")
	}
	return signatures, &schema.Compiled{Tables: tables}, nil
}

func (m *Migrator) physicalExists(name string) bool {
	var n int
	err := m.Store.DB.QueryRow(
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	return err == nil
}

func (m *Migrator) execute(plan Plan, target *schema.Compiled, rules RuleSet, previous *schema.Compiled) (execErr error) {
	if _, err := m.Store.DB.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return engineerr.Database(err, "disable foreign_keys for migration")
	}
	defer func() {
		if _, err := m.Store.DB.Exec("PRAGMA foreign_keys = ON"); err != nil && execErr == nil {
			execErr = engineerr.Database(err, "re-enable foreign_keys after migration")
		}
	}()

	tx, err := m.Store.DB.Begin()
	if err != nil {
		return engineerr.Database(err, "begin migration transaction")
	}
	defer func() { _ = tx.Rollback() }() // no-op once committed

	for _, action := range plan.Actions {
		switch action.Kind {
		case ActionCreate:
			if err := createFinal(tx, target, action.Target); err != nil {
				return err
			}
		case ActionMigrate:
			rule := rules[action.Target]
			if err := migrateTable(tx, previous, target, action, rule); err != nil {
				return err
			}
		case ActionRemove, ActionUnchanged:
			// no physical change; ActionRemove only drops management below.
		}
	}

	if violated, err := foreignKeyCheck(tx); err != nil {
		return err
	} else if violated {
		return engineerr.Constraint("Foreign key constraint failed")
	}

	if err := writeSchemaMeta(tx, target); err != nil {
		return err
	}

	return tx.Commit()
}

func createFinal(tx *sql.Tx, target *schema.Compiled, name string) error {
	ct := target.Tables[name]
	if _, err := tx.Exec(physical.CreateTableSQL(name, ct.Table)); err != nil {
		return engineerr.Database(err, "create table %q", name)
	}
	return createIndexes(tx, ct.Table)
}

func createIndexes(tx *sql.Tx, t schema.Table) error {
	for _, idx := range t.Indexes {
		if _, err := tx.Exec(physical.CreateIndexSQL(t.Name, idx)); err != nil {
			return engineerr.Database(err, "create index %q on %q", idx.Name, t.Name)
		}
	}
	return nil
}

func migrateTable(tx *sql.Tx, previous *schema.Compiled, target *schema.Compiled, action Action, rule Rule) error {
	ct := target.Tables[action.Target]
	tmpName := "__migrate_tmp_" + action.Target

	if _, err := tx.Exec(physical.CreateTableSQL(tmpName, ct.Table)); err != nil {
		return engineerr.Database(err, "create migration temp table for %q", action.Target)
	}

	if err := copyRows(tx, previous, ct.Table, tmpName, action.Source, rule); err != nil {
		return err
	}

	preexisted := tablePhysicallyExists(tx, action.Target)
	if preexisted {
		oldName := "__migrate_old_" + action.Target
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", physical.Quote(action.Target), physical.Quote(oldName))); err != nil {
			return engineerr.Database(err, "rename existing %q aside", action.Target)
		}
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", physical.Quote(tmpName), physical.Quote(action.Target))); err != nil {
			return engineerr.Database(err, "promote migrated %q", action.Target)
		}
		if _, err := tx.Exec(fmt.Sprintf("DROP TABLE %s", physical.Quote(oldName))); err != nil {
			return engineerr.Database(err, "drop superseded %q", action.Target)
		}
	} else {
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", physical.Quote(tmpName), physical.Quote(action.Target))); err != nil {
			return engineerr.Database(err, "promote migrated %q", action.Target)
		}
	}

	if action.Source != action.Target {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", physical.Quote(action.Source))); err != nil {
			return engineerr.Database(err, "empty migrated source %q", action.Source)
		}
	}

	return createIndexes(tx, ct.Table)
}

func tablePhysicallyExists(tx *sql.Tx, name string) bool {
	var n int
	err := tx.QueryRow("SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	return err == nil
}

// copyRows implements spec.md §4.3 step 3/4: for every source row, compute
// the target payload via the shared row-mapping algorithm, validate it
// against the target table's declared fields, and insert it into the
// temporary table, preserving _id/_createdAt and refreshing _updatedAt.
func copyRows(tx *sql.Tx, previous *schema.Compiled, target schema.Table, tmpName, source string, rule Rule) error {
	rows, err := tx.Query(fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", physical.Quote(source)))
	if err != nil {
		return engineerr.Database(err, "read source table %q", source)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return engineerr.Database(err, "read columns of %q", source)
	}

	var sourceTable *schema.Table
	if previous != nil {
		if ct, ok := previous.Tables[source]; ok {
			sourceTable = &ct.Table
		}
	}

	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return engineerr.Database(err, "scan source row of %q", source)
		}

		id, createdAt, sourceFields, sourceExtras, err := decodeSourceRow(cols, dest, sourceTable)
		if err != nil {
			return err
		}

		payload := rowmap.BuildTargetPayload(sourceFields, sourceExtras, target, rule.FieldMap, rule.Defaults)
		if err := insertMigratedRow(tx, tmpName, target, id, createdAt, payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func decodeSourceRow(cols []string, dest []any, sourceTable *schema.Table) (id, createdAt string, fields, extras map[string]any, err error) {
	fields = map[string]any{}
	extras = map[string]any{}

	var fieldDefs map[string]*values.Def
	if sourceTable != nil {
		fieldDefs = sourceTable.FieldMap()
	}

	for i, col := range cols {
		v := dest[i]
		switch col {
		case "_id":
			id, _ = v.(string)
		case "_createdAt":
			createdAt, _ = v.(string)
		case "_updatedAt":
			// recomputed on insert, discarded here.
		case "_extras":
			if s, ok := v.(string); ok && s != "" {
				if err := json.Unmarshal([]byte(s), &extras); err != nil {
					return "", "", nil, nil, engineerr.Database(err, "decode source _extras")
				}
			}
		default:
			if def, ok := fieldDefs[col]; ok {
				dv, derr := physical.DecodeScalar(def, v)
				if derr != nil {
					return "", "", nil, nil, derr
				}
				fields[col] = dv
			} else {
				fields[col] = v
			}
		}
	}
	return id, createdAt, fields, extras, nil
}

func insertMigratedRow(tx *sql.Tx, tmpName string, target schema.Table, id, createdAt string, payload map[string]any) error {
	known := target.FieldMap()
	fields := make(map[string]any, len(known))
	extras := map[string]any{}

	for name, def := range known {
		v, present := payload[name]
		nv, err := values.Validate(name, def, v, present)
		if err != nil {
			return err
		}
		if present {
			fields[name] = nv
		}
	}
	for k, v := range payload {
		if _, ok := known[k]; ok {
			continue
		}
		extras[k] = v
	}

	cols := []string{"_id", "_createdAt", "_updatedAt", "_extras"}
	extrasJSON, err := json.Marshal(extras)
	if err != nil {
		return engineerr.Validation("failed to encode migrated extras: %v", err)
	}
	args := []any{id, createdAt, nowISOMigrate(), string(extrasJSON)}

	for _, f := range target.Fields {
		cols = append(cols, f.Name)
		v, present := fields[f.Name]
		if !present {
			args = append(args, nil)
			continue
		}
		enc, err := physical.EncodeScalar(f.Def, v)
		if err != nil {
			return err
		}
		args = append(args, enc)
	}

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = physical.Quote(c)
		placeholders[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		physical.Quote(tmpName), joinComma(quoted), joinComma(placeholders))

	if _, err := tx.Exec(stmt, args...); err != nil {
		return engineerr.Database(err, "insert migrated row into %q", tmpName)
	}
	return nil
}

func foreignKeyCheck(tx *sql.Tx) (bool, error) {
	rows, err := tx.Query("PRAGMA foreign_key_check")
	if err != nil {
		return false, engineerr.Database(err, "foreign_key_check")
	}
	defer func() { _ = rows.Close() }()
	return rows.Next(), rows.Err()
}

func writeSchemaMeta(tx *sql.Tx, target *schema.Compiled) error {
	if _, err := tx.Exec("DELETE FROM _schema_meta"); err != nil {
		return engineerr.Database(err, "clear _schema_meta")
	}
	now := nowISOMigrate()
	for name, ct := range target.Tables {
		defJSON, err := json.Marshal(ct.Table)
		if err != nil {
			return engineerr.Validation("failed to encode table definition for %q: %v", name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO _schema_meta (table_name, table_signature, table_definition, updated_at) VALUES (?, ?, ?, ?)",
			name, ct.Signature, string(defJSON), now,
		); err != nil {
			return engineerr.Database(err, "write _schema_meta row for %q", name)
		}
	}

	managedNames := make([]string, 0, len(target.Tables))
	for name := range target.Tables {
		managedNames = append(managedNames, name)
	}
	managedJSON, err := json.Marshal(managedNames)
	if err != nil {
		return engineerr.Validation("failed to encode managed table list: %v", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO _schema_state (id, schema_signature, managed_tables, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET schema_signature = excluded.schema_signature,
		   managed_tables = excluded.managed_tables, updated_at = excluded.updated_at`,
		target.Signature, string(managedJSON), now,
	); err != nil {
		return engineerr.Database(err, "write _schema_state")
	}
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
