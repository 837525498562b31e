package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/ledger"
)

var historyStats bool

var historyCmd = &cobra.Command{
	Use:   "history <form-id>",
	Short: "Show a form's migration ledger",
	Long: `Show a form's migration attempts, newest first. Each line carries the
outcome and, for rollbackable migrations, the ready-to-run reversal.`,
	Args: cobra.ExactArgs(1),
	Example: `  # Show the full ledger for a form
  fieldshift history f1

  # Show aggregate statistics instead
  fieldshift history f1 --stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		formID := args[0]

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		store := ledger.NewStore(db)

		if historyStats {
			stats, err := store.Statistics(ctx, formID)
			if err != nil {
				return cli.GeneralError("querying statistics", err)
			}
			fmt.Printf("Form %s: %d migrations (%d successful, %d failed)\n",
				formID, stats.Total, stats.Successful, stats.Failed)
			for typ, ts := range stats.ByType {
				fmt.Printf("  %-14s success: %d  failed: %d\n", typ, ts.Success, ts.Failed)
			}
			return nil
		}

		recs, err := store.FindByForm(ctx, formID)
		if err != nil {
			return cli.GeneralError("querying migration history", err)
		}
		if len(recs) == 0 {
			fmt.Printf("No migrations recorded for form %s.\n", formID)
			return nil
		}

		for _, rec := range recs {
			fmt.Printf("%s  %s  %s  by %s\n",
				rec.ExecutedAt.Format("2006-01-02 15:04:05"), rec.ID, rec.Describe(), rec.ExecutedBy)
			if rec.ErrorMessage != nil {
				fmt.Printf("    error: %s\n", *rec.ErrorMessage)
			}
			if sql := rec.RollbackSQL(); sql != nil {
				fmt.Printf("    rollback: %s\n", *sql)
			}
		}
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <migration-id>",
	Short: "Print the rollback statement for a migration",
	Long: `Print the ready-to-run reversal for a recorded migration. The
statement is printed, never executed: review it and run it yourself.
Failed migrations and additions whose field is still live have no
rollback.`,
	Args: cobra.ExactArgs(1),
	Example: `  # Print the reversal for a recorded migration
  fieldshift rollback 6b1e...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		rec, err := ledger.NewStore(db).Get(ctx, args[0])
		if err != nil {
			return cli.GeneralError("querying migration", err)
		}

		sql := rec.RollbackSQL()
		if sql == nil {
			return cli.ValidationError("migration is not rollbackable", nil)
		}
		fmt.Println(*sql)
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "show aggregate statistics instead of individual records")
}
