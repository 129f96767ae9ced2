package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X tesoreria/internal/cli.Version=...".
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tesoreria",
		Short:   "Finance ledger and budget reconciliation",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newReconcileCommand(),
		newSeedCommand(),
	)

	return rootCmd
}
