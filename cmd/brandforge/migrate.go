package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/brandforge/internal/config"
	"github.com/jonathan/brandforge/internal/db"
	"github.com/jonathan/brandforge/internal/prompts"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Create or update the database schema and seed the default prompts, then exit.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := prompts.NewStore(database.Pool()).SeedDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed default prompts: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
