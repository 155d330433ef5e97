package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-story/internal/config"
	"github.com/kozaktomas/photo-story/internal/database/postgres"
	"github.com/kozaktomas/photo-story/internal/database/sqlite"
	"github.com/kozaktomas/photo-story/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database schema migrations",
	Long: `Apply pending schema migrations to the configured database
(DATABASE_DRIVER=sqlite or postgres). Other commands migrate automatically;
use --status to only print the applied versions.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "Print applied versions without migrating")
}

// migrator is implemented by both SQL backends.
type migrator interface {
	Migrate(ctx context.Context) ([]int, error)
	MigrationsApplied(ctx context.Context) ([]int, error)
	Close() error
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Log, cmd.ErrOrStderr())

	var m migrator
	switch cfg.Database.Driver {
	case "", "sqlite":
		store, err := sqlite.Open(&cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to open SQLite database: %w", err)
		}
		m = store
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL environment variable is required for the postgres driver")
		}
		pool, err := postgres.NewPool(&cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		m = pool
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q (use sqlite or postgres)", cfg.Database.Driver)
	}
	defer m.Close()

	if mustGetBool(cmd, "status") {
		applied, err := m.MigrationsApplied(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		fmt.Printf("Applied migrations: %v\n", applied)
		return nil
	}

	applied, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) == 0 {
		fmt.Println("Database schema is up to date")
		return nil
	}
	fmt.Printf("Applied migrations: %v\n", applied)
	return nil
}
