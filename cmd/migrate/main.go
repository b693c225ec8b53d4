// Command migrate manages the PromptForge database schema.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/config"
	"github.com/promptforge/api/internal/database"
	"github.com/promptforge/api/internal/telemetry"
)

const migrateLongDesc string = `Manage the PromptForge database schema.

Migrations are embedded in the binary and applied with golang-migrate.
The database URL defaults to DATABASE_URL.

Examples:
  migrate up
  migrate down
  migrate version
  migrate check --database-url postgres://localhost:5432/promptforge`

func main() {
	cfg := config.Load()
	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := newRootCmd(cfg.DatabaseURL, logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(defaultURL string, logger *zap.Logger) *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the PromptForge database schema",
		Long:         migrateLongDesc,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", defaultURL, "PostgreSQL connection URL")

	withMigrator := func(run func(*database.Migrator) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			mg, err := database.NewMigrator(databaseURL, logger)
			if err != nil {
				return err
			}
			defer mg.Close()
			return run(mg)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  withMigrator(func(mg *database.Migrator) error { return mg.Up() }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  withMigrator(func(mg *database.Migrator) error { return mg.Down() }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withMigrator(func(mg *database.Migrator) error {
			version, dirty, err := mg.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version %d (dirty: %t)\n", version, dirty)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check database connectivity",
		RunE: func(*cobra.Command, []string) error {
			return checkConnection(databaseURL)
		},
	})

	return cmd
}

func checkConnection(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	var result int
	if err := db.Pool().QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("querying: %w", err)
	}
	fmt.Println("Connection successful!")
	return nil
}
