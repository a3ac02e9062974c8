package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/edumind-api/internal/config"
	"github.com/phrazzld/edumind-api/internal/platform/logger"
	"github.com/phrazzld/edumind-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

// newMigrateCommand exposes the goose commands over the embedded migrations.
func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	for _, name := range []string{"up", "down", "status", "version", "redo", "reset"} {
		command := name
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: fmt.Sprintf("Run goose %s", command),
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				return runMigrations(c.Context(), command)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Create a new SQL migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return postgres.CreateMigration(postgres.MigrationsDir, args[0], slog.Default())
		},
	})
	return cmd
}

// runMigrations connects to the configured database and runs command.
func runMigrations(ctx context.Context, command string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("failed to close database connection", "error", cerr)
		}
	}()

	log.Info("running migrations", "command", command)
	return postgres.Migrate(ctx, db, command, log)
}
