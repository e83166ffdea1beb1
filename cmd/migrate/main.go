package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lostfound/community/internal/db"
	"github.com/lostfound/community/pkg/config"
	"github.com/lostfound/community/pkg/logging"
)

func main() {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the Lost & Found database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		migrationCommand("up", "Apply every pending migration", db.MigrateUp),
		migrationCommand("down", "Roll back the most recent migration", db.MigrateDown),
		migrationCommand("status", "Show the state of every migration", db.MigrationStatus),
		migrationCommand("version", "Print the current schema version", func(ctx context.Context, sqlDB *sql.DB) error {
			version, err := db.MigrationVersion(ctx, sqlDB)
			if err != nil {
				return err
			}
			fmt.Println(version)
			return nil
		}),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func migrationCommand(use, short string, run func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := logging.InitLogger(&cfg.Logging); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logging.GetLogger().Sync()

			database, err := db.New(&cfg.Database, cfg.Logging.Level)
			if err != nil {
				return err
			}
			defer database.Close()

			sqlDB, err := database.DB.DB()
			if err != nil {
				return err
			}

			logging.GetLogger().Info("Running migrations", zap.String("command", use))
			return run(cmd.Context(), sqlDB)
		},
	}
}
