package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abdulachik/subposter/internal/config"
	"github.com/abdulachik/subposter/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or list pending database migrations",
	Long: `Apply every pending migration to the queue and publication database.
With --status, only list the migrations that would run.`,
	RunE: runMigrate,
}

var migrateStatus bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "list pending migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	pending, err := store.PendingMigrations(ctx)
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintf(out, "%s is up to date\n", cfg.DatabasePath)
		return nil
	}

	if migrateStatus {
		fmt.Fprintf(out, "Pending migrations for %s:\n", cfg.DatabasePath)
		for _, file := range pending {
			fmt.Fprintf(out, "  %s\n", file)
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("migrations completed", "path", cfg.DatabasePath, "applied", len(pending))
	return nil
}
