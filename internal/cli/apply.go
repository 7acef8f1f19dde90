package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/reactivedb/reactive/internal/config"
	"github.com/reactivedb/reactive/internal/migrate"
	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/store"
	"github.com/reactivedb/reactive/internal/workspace"
	"github.com/spf13/cobra"
)

var planStyle = lipgloss.NewStyle().Bold(true)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <schema.yaml>",
		Short: "Compile a schema and apply it to the store, migrating as needed",
		Args:  cobra.ExactArgs(1),
		RunE:  runApply,
	}
	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	root, err := workspace.FindRoot()
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load config (run 'reactivectl init' first): %w", err)
	}

	sch, err := schema.LoadYAML(args[0])
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	compiled, err := schema.Compile(sch)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var rules migrate.RuleSet
	if cfg.MigrationRulesPath != "" {
		rules, err = migrate.LoadRules(workspace.Resolve(root, cfg.MigrationRulesPath))
		if err != nil {
			return fmt.Errorf("failed to load migration rules: %w", err)
		}
	}

	s, err := store.Open(workspace.StorePath(root, cfg.StorePath))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = s.Close() }()

	m := &migrate.Migrator{Store: s}

	cmd.Println(planStyle.Render("Schema: " + args[0]))

	skipConfirm, _ := cmd.Flags().GetBool("yes")
	if !skipConfirm {
		var proceed bool
		confirm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Apply this schema to the store?").
					Value(&proceed),
			),
		)
		if err := confirm.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !proceed {
			cmd.Println(warnStyle.Render("Aborted."))
			return nil
		}
	}

	result, err := m.Apply(compiled, rules)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	if result.Plan.NoOp() {
		cmd.Println(infoStyle.Render("No changes: store already matches this schema."))
		return nil
	}

	for _, action := range result.Plan.Actions {
		cmd.Printf("  %s %s\n", action.Kind, action.Target)
	}
	if result.BackupPath != "" {
		cmd.Println(successStyle.Render("Backup written to " + result.BackupPath))
	}
	cmd.Println(successStyle.Render("✓ Schema applied."))
	return nil
}
