package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/reactivedb/reactive/internal/config"
	"github.com/reactivedb/reactive/internal/store"
	"github.com/reactivedb/reactive/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a reactive workspace in the current directory",
		Long:  "Create a reactive.config.json pointing at a store file and function source directory.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := workspace.FindRoot()
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	cmd.Printf("%s Initializing reactive workspace in: %s\n", infoStyle.Render("→"), root)

	storePath := store.FileName
	sourceDir := "functions"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Store file path").
				Description("Relative to the workspace root").
				Value(&storePath),
			huh.NewInput().
				Title("Function source directory").
				Description("Where read/write endpoint functions are declared").
				Value(&sourceDir),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	cfgPath := config.Path(root)
	if _, err := os.Stat(cfgPath); err == nil {
		var overwrite bool
		confirm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%s already exists. Overwrite?", cfgPath)).
					Value(&overwrite),
			),
		)
		if err := confirm.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			cmd.Println(warnStyle.Render("Aborted."))
			return nil
		}
	}

	cfg := &config.Config{StorePath: storePath, SourceDir: sourceDir}
	if err := config.Save(cfg, root); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	s, err := store.Open(workspace.StorePath(root, storePath))
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() { _ = s.Close() }()

	cmd.Println(successStyle.Render(fmt.Sprintf("✓ Wrote %s and created %s", cfgPath, storePath)))
	return nil
}
