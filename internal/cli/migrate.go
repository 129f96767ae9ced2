package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tesoreria/internal/backend"
	applog "tesoreria/internal/log"
	"tesoreria/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			LoadEnvFile()
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger := SetupLogger(cfg, applog.ComponentStorage)

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			if err := storage.RunMigrations(bcfg.Type.Dialect(), bcfg.DSN); err != nil {
				return fmt.Errorf("migrate %s: %w", bcfg.Type, err)
			}

			logger.Info("Migrations applied", "backend", bcfg.Type.String())
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", bcfg.Type)
			return nil
		},
	}
}
