// Package fieldshift is the dynamic field migration engine: it serializes
// live schema changes to form tables through a durable single-lane queue,
// snapshots column data before destructive changes, and keeps a permanent
// audit ledger of every attempt.
//
// # Usage
//
// Construct one Engine at process start and pass it by reference to every
// caller:
//
//	db, _ := sql.Open("pgx", dsn)
//	eng := fieldshift.New(db, myExecutor)
//	if err := eng.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	jobID, err := eng.Enqueue(ctx, queue.AddField{
//	    FormID: "f1", Table: "form_f1", Column: "age", DataType: "INTEGER",
//	}, "admin@example.com")
//
// The Engine owns the queue worker and the retention sweeper; Close shuts
// both down and is safe to call more than once.
package fieldshift

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"

	"github.com/warin/fieldshift/internal/migratedb"
	"github.com/warin/fieldshift/pkg/backup"
	"github.com/warin/fieldshift/pkg/executor"
	"github.com/warin/fieldshift/pkg/ledger"
	"github.com/warin/fieldshift/pkg/migration"
	"github.com/warin/fieldshift/pkg/queue"
	"github.com/warin/fieldshift/pkg/sweeper"
)

// Config tunes the engine. The zero value is usable; unset fields fall
// back to the documented defaults.
type Config struct {
	// BackupRetention is applied to backups created without an explicit
	// expiry. Default 90 days.
	BackupRetention time.Duration

	// SweepSchedule is the retention sweeper's cron spec. Default hourly.
	SweepSchedule string

	// MaxAttempts is the per-job attempt budget. Default 3.
	MaxAttempts int

	// RetryInitial and RetryMax bound the exponential backoff between
	// attempts.
	RetryInitial time.Duration
	RetryMax     time.Duration

	// CompletedJobRetention and FailedJobRetention control queue pruning.
	// Defaults 7 and 30 days.
	CompletedJobRetention time.Duration
	FailedJobRetention    time.Duration

	// PollInterval bounds how long an idle worker waits between checks.
	PollInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by the queue worker and sweeper.
func WithLogger(log kitlog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock substitutes the time source everywhere, for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithConfig applies tunables.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithEvents registers a job lifecycle listener on the queue worker.
func WithEvents(ev queue.Events) Option {
	return func(e *Engine) { e.events = ev }
}

// Engine composes the ledger, backup store, queue, and sweeper over one
// database handle and one schema executor. Construct once, share by
// reference.
type Engine struct {
	db     *sql.DB
	exec   executor.SchemaExecutor
	log    kitlog.Logger
	clock  clock.Clock
	cfg    Config
	events queue.Events

	ledger  *ledger.Store
	backups *backup.Store
	queue   *queue.Queue
	sweeper *sweeper.Sweeper

	mu     sync.Mutex
	opened bool
	closed bool
}

// New creates an Engine. Call Open before use.
func New(db *sql.DB, exec executor.SchemaExecutor, opts ...Option) *Engine {
	e := &Engine{
		db:    db,
		exec:  exec,
		log:   kitlog.NewNopLogger(),
		clock: clock.C,
	}
	for _, opt := range opts {
		opt(e)
	}

	backupOpts := []backup.Option{backup.WithClock(e.clock)}
	if e.cfg.BackupRetention > 0 {
		backupOpts = append(backupOpts, backup.WithRetention(e.cfg.BackupRetention))
	}
	e.backups = backup.NewStore(db, backupOpts...)
	e.ledger = ledger.NewStore(db, ledger.WithClock(e.clock))

	workerOpts := []queue.WorkerOption{queue.WithWorkerClock(e.clock)}
	if e.cfg.MaxAttempts > 0 {
		workerOpts = append(workerOpts, queue.WithMaxAttempts(e.cfg.MaxAttempts))
	}
	if e.cfg.RetryInitial > 0 && e.cfg.RetryMax > 0 {
		workerOpts = append(workerOpts, queue.WithRetryDelays(e.cfg.RetryInitial, e.cfg.RetryMax))
	}
	if e.events != nil {
		workerOpts = append(workerOpts, queue.WithEvents(e.events))
	}
	worker := queue.NewWorker(queue.NewPGStore(db), e.ledger, e.exec, e.log, workerOpts...)

	queueOpts := []queue.Option{queue.WithClock(e.clock)}
	if e.cfg.PollInterval > 0 {
		queueOpts = append(queueOpts, queue.WithPollInterval(e.cfg.PollInterval))
	}
	if e.cfg.CompletedJobRetention > 0 && e.cfg.FailedJobRetention > 0 {
		queueOpts = append(queueOpts, queue.WithJobRetention(e.cfg.CompletedJobRetention, e.cfg.FailedJobRetention))
	}
	e.queue = queue.New(queue.NewPGStore(db), worker, e.log, queueOpts...)

	sweeperOpts := []sweeper.Option{sweeper.WithClock(e.clock)}
	if e.cfg.SweepSchedule != "" {
		sweeperOpts = append(sweeperOpts, sweeper.WithSchedule(e.cfg.SweepSchedule))
	}
	e.sweeper = sweeper.New(e.backups, e.log, sweeperOpts...)

	return e
}

// Open applies the engine's own DDL and starts the worker loop and the
// retention sweeper. Idempotent.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opened {
		return nil
	}

	if err := migratedb.Apply(ctx, e.db); err != nil {
		return err
	}
	if err := e.sweeper.Start(); err != nil {
		return err
	}
	e.queue.Start()
	e.opened = true
	return nil
}

// Close stops the sweeper and the queue. Idempotent: a second Close is a
// no-op and never returns an error.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.sweeper.Stop()
	return e.queue.Close()
}

// Enqueue submits a migration job on behalf of requestedBy and returns
// its id.
func (e *Engine) Enqueue(ctx context.Context, p queue.Payload, requestedBy string) (string, error) {
	return e.queue.Enqueue(ctx, p, requestedBy)
}

// Status returns the form's job counts by state.
func (e *Engine) Status(ctx context.Context, formID string) (queue.Counts, error) {
	return e.queue.Status(ctx, formID)
}

// Pause stops new jobs from being dequeued; the active job still runs to
// completion.
func (e *Engine) Pause() { e.queue.Pause() }

// Resume continues dequeuing after a Pause.
func (e *Engine) Resume() { e.queue.Resume() }

// CleanJobs prunes old completed and failed jobs.
func (e *Engine) CleanJobs(ctx context.Context) (int, error) {
	return e.queue.Clean(ctx)
}

// Ledger exposes the audit store.
func (e *Engine) Ledger() *ledger.Store { return e.ledger }

// Backups exposes the backup store.
func (e *Engine) Backups() *backup.Store { return e.backups }

// CreateBackup takes a manual snapshot through the backup store.
func (e *Engine) CreateBackup(ctx context.Context, p backup.CreateParams) (*backup.Record, error) {
	return e.backups.Create(ctx, p)
}

// Restore writes a backup's rows back to the live table.
func (e *Engine) Restore(ctx context.Context, backupID string) (backup.RestoreResult, error) {
	rec, err := e.backups.Get(ctx, backupID)
	if err != nil {
		return backup.RestoreResult{}, err
	}
	return e.backups.Restore(ctx, rec, backup.NewSQLRestoreExecutor(e.db)), nil
}

// RollbackSQL returns the ready-to-run reversal for a migration record,
// or nil when the record is not rollbackable.
func (e *Engine) RollbackSQL(ctx context.Context, recordID string) (*string, error) {
	rec, err := e.ledger.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return rec.RollbackSQL(), nil
}

// Statistics aggregates a form's migration history.
func (e *Engine) Statistics(ctx context.Context, formID string) (*ledger.Stats, error) {
	return e.ledger.Statistics(ctx, formID)
}

// History returns a form's migration attempts, newest first.
func (e *Engine) History(ctx context.Context, formID string) ([]*migration.Record, error) {
	return e.ledger.FindByForm(ctx, formID)
}
