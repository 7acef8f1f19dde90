// Package cli is the cobra-based reactivectl front end: operational
// tooling around the engine (init, apply, serve, version), not a
// replacement for the narrow interfaces spec.md §6 calls external
// (spec.md §4.13).
package cli

import "github.com/spf13/cobra"

// NewRootCmd builds the reactivectl root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "reactivectl",
		Short:   "Embedded polyglot database engine CLI",
		Long:    "reactivectl manages the reactive engine store: initializing a workspace, applying schema migrations, and serving the Call Dispatcher over MCP.",
		Version: Version,
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the reactivectl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(Version)
			return nil
		},
	}
}
