package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/internal/migratedb"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the engine's own tables to the database",
	Long: `Create the field_data_backups, field_migrations and migration_jobs
tables. Idempotent - safe to run multiple times. The serve command applies
the same DDL at startup; this exists for deployments that migrate
separately from serving.`,
	Example: `  # Apply engine tables
  fieldshift migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := migratedb.Apply(ctx, db); err != nil {
			return cli.GeneralError("applying engine tables", err)
		}
		fmt.Println("Engine tables applied successfully.")
		return nil
	},
}
