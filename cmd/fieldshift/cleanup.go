package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/backup"
	"github.com/warin/fieldshift/pkg/queue"
)

var (
	cleanupJobs    bool
	cleanupBackups bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune old jobs and expired backups",
	Long: `Prune completed jobs past the completed retention window, failed jobs
past the failed retention window, and backups whose retention expired.
The serve instance does the same on a schedule; this exists for one-off
runs and cron-driven deployments.`,
	Example: `  # Prune both jobs and backups
  fieldshift cleanup

  # Prune only expired backups
  fieldshift cleanup --backups`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// No selector means everything.
		if !cleanupJobs && !cleanupBackups {
			cleanupJobs, cleanupBackups = true, true
		}

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		now := time.Now().UTC()

		if cleanupJobs {
			n, err := queue.NewPGStore(db).Clean(ctx,
				now.Add(-cfg.Queue.CompletedRetention), now.Add(-cfg.Queue.FailedRetention))
			if err != nil {
				return cli.GeneralError("pruning jobs", err)
			}
			fmt.Printf("Pruned %d jobs.\n", n)
		}

		if cleanupBackups {
			n, err := backup.NewStore(db).CleanupExpired(ctx, now)
			if err != nil {
				return cli.GeneralError("deleting expired backups", err)
			}
			fmt.Printf("Deleted %d expired backups.\n", n)
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupJobs, "jobs", false, "prune completed and failed jobs")
	cleanupCmd.Flags().BoolVar(&cleanupBackups, "backups", false, "delete expired backups")
}
