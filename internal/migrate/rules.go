// Package migrate implements the Schema Applier / Migrator: planning which
// physical tables change between a previously applied schema and a newly
// compiled one, and executing that plan inside a single transaction with a
// pre-change backup (spec.md §4.3).
package migrate

import (
	"os"

	"github.com/reactivedb/reactive/internal/engineerr"
	"gopkg.in/yaml.v3"
)

// Rule describes how one target table's rows are derived from a source
// table during migration.
type Rule struct {
	From     string            `yaml:"from"`
	FieldMap map[string]string `yaml:"fieldMap"`
	Defaults map[string]any    `yaml:"defaults"`
}

// RuleSet maps target table name to its migration Rule.
type RuleSet map[string]Rule

type rulesDoc struct {
	Rules map[string]Rule `yaml:"rules"`
}

// LoadRules reads a declarative migration rule document from disk. It
// performs no semantic validation beyond unmarshalling — planning-time
// validation runs identically over the resulting RuleSet regardless of
// whether it came from YAML or a Go literal.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerr.SchemaLoad(err, "read migration rules %q", path)
	}
	var doc rulesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, engineerr.SchemaLoad(err, "parse migration rules %q", path)
	}
	return RuleSet(doc.Rules), nil
}
