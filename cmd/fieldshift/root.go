package main

import (
	"context"
	"database/sql"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/warin/fieldshift"
	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/backup"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "fieldshift",
	Short: "Dynamic field migration engine for PostgreSQL",
	Long: `fieldshift - Dynamic field migration engine for PostgreSQL

Fieldshift applies live schema changes to per-form physical tables through a
durable single-lane job queue, snapshots column data before destructive
changes, and keeps a permanent audit ledger of every attempt.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupEngine  = "engine"
	groupQueue   = "queue"
	groupData    = "data"
	groupUtility = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover fieldshift.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupEngine, Title: "Engine:"},
		&cobra.Group{ID: groupQueue, Title: "Queue:"},
		&cobra.Group{ID: groupData, Title: "Data:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Engine commands
	serveCmd.GroupID = groupEngine
	migrateCmd.GroupID = groupEngine
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)

	// Queue commands
	enqueueCmd.GroupID = groupQueue
	statusCmd.GroupID = groupQueue
	cleanupCmd.GroupID = groupQueue
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)

	// Data commands
	historyCmd.GroupID = groupData
	rollbackCmd.GroupID = groupData
	backupsCmd.GroupID = groupData
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(backupsCmd)

	// Utility commands
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// openDB connects to the configured database and verifies the connection.
func openDB(ctx context.Context) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, cli.ConfigError("resolving database connection", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, cli.DBConnectError("opening database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, cli.DBConnectError("connecting to database", err)
	}
	return db, nil
}

// newBackupStore builds a backup store honoring the configured retention
// window, so executor-taken snapshots expire on the same schedule as
// engine-internal ones. Extra options come first; the retention override
// is appended last.
func newBackupStore(db backup.Execer, opts ...backup.Option) *backup.Store {
	if cfg.Backup.Retention > 0 {
		opts = append(opts, backup.WithRetention(cfg.Backup.Retention))
	}
	return backup.NewStore(db, opts...)
}

// newLogger builds the go-kit logger honoring --verbose and --quiet.
func newLogger() kitlog.Logger {
	log := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	log = kitlog.With(log, "ts", kitlog.DefaultTimestampUTC)

	switch {
	case quiet:
		log = level.NewFilter(log, level.AllowError())
	case verbose > 0:
		log = level.NewFilter(log, level.AllowDebug())
	default:
		log = level.NewFilter(log, level.AllowInfo())
	}
	return log
}

// engineConfig maps file/env settings onto engine tunables.
func engineConfig() fieldshift.Config {
	return fieldshift.Config{
		BackupRetention:       cfg.Backup.Retention,
		SweepSchedule:         cfg.Sweeper.Schedule,
		MaxAttempts:           cfg.Queue.MaxAttempts,
		RetryInitial:          cfg.Queue.RetryInitial,
		RetryMax:              cfg.Queue.RetryMax,
		CompletedJobRetention: cfg.Queue.CompletedRetention,
		FailedJobRetention:    cfg.Queue.FailedRetention,
		PollInterval:          cfg.Queue.PollInterval,
	}
}
