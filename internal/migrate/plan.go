package migrate

import (
	"sort"

	"github.com/reactivedb/reactive/internal/engineerr"
	"github.com/reactivedb/reactive/internal/schema"
)

// ActionKind classifies what a Plan does to one physical table.
type ActionKind string

const (
	ActionUnchanged ActionKind = "unchanged"
	ActionCreate    ActionKind = "create"
	ActionMigrate   ActionKind = "migrate"
	ActionRemove    ActionKind = "remove"
)

// Action is one table-level step in a Plan.
type Action struct {
	Target string
	Source string // set only for ActionMigrate
	Kind   ActionKind
}

// Plan is the pure, side-effect-free output of ComputePlan: the ordered set of
// table actions needed to bring the store from its current managed state to
// the target compiled schema.
type Plan struct {
	Actions []Action
}

// NoOp reports whether executing this Plan would change anything on disk.
func (p Plan) NoOp() bool {
	for _, a := range p.Actions {
		if a.Kind != ActionUnchanged {
			return false
		}
	}
	return true
}

// ComputePlan implements spec.md §4.3 Planning. managed is the table ->
// signature map recorded in _schema_meta; physicalExists reports whether a
// physical table with that name currently exists, independent of whether it
// is managed.
func ComputePlan(managed map[string]string, physicalExists func(name string) bool, target *schema.Compiled, rules RuleSet) (Plan, error) {
	var plan Plan
	unchanged := map[string]bool{}

	targetNames := make([]string, 0, len(target.Tables))
	for name := range target.Tables {
		targetNames = append(targetNames, name)
	}
	sort.Strings(targetNames)

	for _, name := range targetNames {
		ct := target.Tables[name]
		oldSig, wasManaged := managed[name]
		if wasManaged && oldSig == ct.Signature && physicalExists(name) {
			plan.Actions = append(plan.Actions, Action{Target: name, Kind: ActionUnchanged})
			unchanged[name] = true
			continue
		}

		source := ""
		if rule, ok := rules[name]; ok && rule.From != "" {
			source = rule.From
		} else if physicalExists(name) {
			source = name
		}

		if source == "" {
			if wasManaged {
				return Plan{}, engineerr.SchemaMismatch("managed table %q is missing and no migration source was provided", name)
			}
			plan.Actions = append(plan.Actions, Action{Target: name, Kind: ActionCreate})
			continue
		}
		plan.Actions = append(plan.Actions, Action{Target: name, Source: source, Kind: ActionMigrate})
	}

	managedNames := make([]string, 0, len(managed))
	for name := range managed {
		managedNames = append(managedNames, name)
	}
	sort.Strings(managedNames)
	for _, name := range managedNames {
		if _, ok := target.Tables[name]; !ok {
			plan.Actions = append(plan.Actions, Action{Target: name, Kind: ActionRemove})
		}
	}

	if err := validatePlan(plan, unchanged, target, rules); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// validatePlan enforces the cross-action rules spec.md §4.3 names: a source
// used by two targets, an unchanged table used as a source, and migration
// rules referencing unchanged tables or unknown target fields.
func validatePlan(plan Plan, unchanged map[string]bool, target *schema.Compiled, rules RuleSet) error {
	sourceUsers := map[string][]string{}
	for _, a := range plan.Actions {
		if a.Kind != ActionMigrate {
			continue
		}
		if unchanged[a.Source] {
			return engineerr.SchemaMismatch("table %q is unchanged and cannot be used as a migration source for %q", a.Source, a.Target)
		}
		sourceUsers[a.Source] = append(sourceUsers[a.Source], a.Target)
	}
	for source, targets := range sourceUsers {
		if len(targets) > 1 {
			sort.Strings(targets)
			return engineerr.SchemaMismatch("source table %q cannot be mapped to multiple targets %v", source, targets)
		}
	}

	for name, rule := range rules {
		if unchanged[name] {
			return engineerr.SchemaMismatch("migration rule declared for unchanged table %q", name)
		}
		ct, ok := target.Tables[name]
		if !ok {
			continue // rule for a table no longer in the target schema is simply unused
		}
		fields := ct.Table.FieldMap()
		for field := range rule.FieldMap {
			if _, ok := fields[field]; !ok {
				return engineerr.SchemaMismatch("migration rule for %q maps unknown field %q", name, field)
			}
		}
		for field := range rule.Defaults {
			if _, ok := fields[field]; !ok {
				return engineerr.SchemaMismatch("migration rule for %q defaults unknown field %q", name, field)
			}
		}
	}
	return nil
}
