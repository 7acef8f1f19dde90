package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/reactivedb/reactive/internal/config"
	"github.com/reactivedb/reactive/internal/dispatch"
	"github.com/reactivedb/reactive/internal/mcptransport"
	"github.com/reactivedb/reactive/internal/registry"
	"github.com/reactivedb/reactive/internal/relational"
	"github.com/reactivedb/reactive/internal/runstate"
	"github.com/reactivedb/reactive/internal/schema"
	"github.com/reactivedb/reactive/internal/store"
	"github.com/reactivedb/reactive/internal/telemetry"
	"github.com/reactivedb/reactive/internal/vector"
	"github.com/reactivedb/reactive/internal/watch"
	"github.com/reactivedb/reactive/internal/workspace"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Call Dispatcher behind the MCP transport",
		RunE:  runServe,
	}
	cmd.Flags().Bool("watch", true, "reload the endpoint registry when the source directory changes")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := workspace.FindRoot()
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load config (run 'reactivectl init' first): %w", err)
	}

	running, state, err := runstate.IsRunning(root)
	if err != nil {
		return fmt.Errorf("failed to check run state: %w", err)
	}
	if running {
		return fmt.Errorf("reactivectl serve is already running (pid %d)", state.PID)
	}
	if err := runstate.Create(root); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	defer func() {
		if err := runstate.Remove(root); err != nil {
			log.Printf("warning: failed to remove run state: %v", err)
		}
	}()

	s, err := store.Open(workspace.StorePath(root, cfg.StorePath))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = s.Close() }()

	// serve binds an empty compiled schema and does not load the schema
	// that `reactivectl apply` recorded in the store; endpoints that touch
	// relational tables fail with ValidationError, not a panic.
	rel := relational.New(s, &schema.Compiled{Tables: map[string]schema.CompiledTable{}})
	vec := vector.New(s, vector.NewDocumentIndex(), nil)

	tel, err := telemetry.Open(filepath.Join(root, ".reactive"))
	if err != nil {
		return fmt.Errorf("failed to open telemetry log: %w", err)
	}
	defer func() { _ = tel.Close() }()

	reg := registry.New()
	sourceDir := workspace.SourceDir(root, cfg.SourceDir)
	if _, err := os.Stat(sourceDir); err == nil {
		if err := reg.Load(sourceDir); err != nil {
			return fmt.Errorf("failed to load endpoint registry: %w", err)
		}
	}

	d := dispatch.New(reg, rel, vec, tel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shouldWatch, _ := cmd.Flags().GetBool("watch")
	if shouldWatch {
		if _, err := os.Stat(sourceDir); err == nil {
			go func() {
				err := watch.Dir(ctx, sourceDir, func() {
					if err := reg.Load(sourceDir); err != nil {
						log.Printf("endpoint registry reload failed: %v", err)
					}
				})
				if err != nil {
					log.Printf("watch: %v", err)
				}
			}()
		}
	}

	server := mcptransport.NewServer("reactive", Version, d)
	cmd.Println(infoStyle.Render("→ serving over MCP stdio"))
	return mcptransport.Serve(ctx, server)
}
