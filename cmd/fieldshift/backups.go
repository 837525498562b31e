package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/backup"
)

var backupsWithinDays int

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect and restore column snapshots",
}

var backupsListCmd = &cobra.Command{
	Use:   "list <form-id>",
	Short: "List a form's backups, newest first",
	Args:  cobra.ExactArgs(1),
	Example: `  # List all backups held for a form
  fieldshift backups list f1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		recs, err := backup.NewStore(db).FindByForm(ctx, args[0])
		if err != nil {
			return cli.GeneralError("querying backups", err)
		}
		if len(recs) == 0 {
			fmt.Printf("No backups for form %s.\n", args[0])
			return nil
		}

		now := time.Now().UTC()
		for _, rec := range recs {
			fmt.Printf("%s  %s.%s  %-16s  %d rows  %s\n",
				rec.ID, rec.Table, rec.Column, rec.BackupType, rec.Count(), expiryNote(rec, now))
		}
		return nil
	},
}

var backupsExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List backups whose retention expires soon",
	Example: `  # Backups expiring within a week
  fieldshift backups expiring --within-days 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		recs, err := backup.NewStore(db).FindExpiringSoon(ctx, backupsWithinDays)
		if err != nil {
			return cli.GeneralError("querying expiring backups", err)
		}
		if len(recs) == 0 {
			fmt.Printf("No backups expire within %d days.\n", backupsWithinDays)
			return nil
		}

		now := time.Now().UTC()
		for _, rec := range recs {
			fmt.Printf("%s  %s.%s  %d rows  %s\n",
				rec.ID, rec.Table, rec.Column, rec.Count(), expiryNote(rec, now))
		}
		return nil
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Write a backup's rows back to the live table",
	Long: `Restore a snapshot row by row. Restoration reports per-outcome: rows
whose target no longer exists fail the restore without touching the rest.`,
	Args: cobra.ExactArgs(1),
	Example: `  # Restore a snapshot by id
  fieldshift backups restore 9f2c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		store := backup.NewStore(db)
		rec, err := store.Get(ctx, args[0])
		if err != nil {
			return cli.GeneralError("querying backup", err)
		}

		res := store.Restore(ctx, rec, backup.NewSQLRestoreExecutor(db))
		if !res.Success {
			return cli.GeneralError(res.Message, nil)
		}
		fmt.Println(res.Message)
		return nil
	},
}

func init() {
	backupsExpiringCmd.Flags().IntVar(&backupsWithinDays, "within-days", 7, "expiry horizon in days")

	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsExpiringCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
}

func expiryNote(rec *backup.Record, now time.Time) string {
	days := rec.DaysUntilExpiration(now)
	if days == nil {
		return "never expires"
	}
	if *days < 0 {
		return "expired"
	}
	return fmt.Sprintf("expires in %dd", *days)
}
