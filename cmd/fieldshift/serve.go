package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/warin/fieldshift"
	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/executor/pgexec"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the migration engine",
	Long: `Run the migration engine: the single worker loop that drains the job
queue and the hourly sweeper that purges expired backups. One instance per
database is the intended deployment; the queue itself tolerates more.`,
	Example: `  # Run against the configured database
  fieldshift serve

  # Run with debug logging
  fieldshift serve -v`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := newLogger()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		eng := fieldshift.New(db, pgexec.New(db, newBackupStore(db)),
			fieldshift.WithLogger(log),
			fieldshift.WithConfig(engineConfig()),
		)
		if err := eng.Open(ctx); err != nil {
			return cli.GeneralError("starting engine", err)
		}

		level.Info(log).Log("msg", "engine started", "config", configPath)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		level.Info(log).Log("msg", "shutting down", "signal", sig.String())

		if err := eng.Close(); err != nil {
			return cli.GeneralError("stopping engine", err)
		}
		fmt.Println("Engine stopped.")
		return nil
	},
}
