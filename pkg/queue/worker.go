package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/cenkalti/backoff/v4"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/warin/fieldshift/pkg/executor"
	"github.com/warin/fieldshift/pkg/ledger"
	"github.com/warin/fieldshift/pkg/migration"
)

// DefaultMaxAttempts is the per-job attempt budget.
const DefaultMaxAttempts = 3

// Default bounds for the exponential retry delay.
const (
	defaultRetryInitial = 30 * time.Second
	defaultRetryMax     = 10 * time.Minute
)

// Ledger is the slice of the audit store the worker writes to.
type Ledger interface {
	Record(ctx context.Context, p ledger.RecordParams) (*migration.Record, error)
}

// Events receives job lifecycle notifications. All methods are invoked
// synchronously from the worker goroutine.
type Events interface {
	// JobProgress is published during long-running phases, e.g. while a
	// large-table backup is being taken.
	JobProgress(job *Job, message string)

	// JobCompleted delivers the ledger record of the finished migration;
	// rec is never nil. The event is withheld when the schema change
	// landed but the ledger write failed.
	JobCompleted(job *Job, rec *migration.Record)

	JobFailed(job *Job, errMessage string)
}

// Worker executes one job at a time, end-to-end. NOT SAFE FOR CONCURRENT
// USE: the whole queue runs exactly one worker so that no two DDL
// operations ever race, on the same table or otherwise.
type Worker struct {
	store  Store
	ledger Ledger
	exec   executor.SchemaExecutor
	log    kitlog.Logger
	clock  clock.Clock
	events Events

	maxAttempts  int
	retryInitial time.Duration
	retryMax     time.Duration
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerClock substitutes the time source, for tests.
func WithWorkerClock(c clock.Clock) WorkerOption {
	return func(w *Worker) { w.clock = c }
}

// WithMaxAttempts overrides the attempt budget applied to new jobs.
func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) { w.maxAttempts = n }
}

// WithRetryDelays overrides the exponential backoff bounds.
func WithRetryDelays(initial, max time.Duration) WorkerOption {
	return func(w *Worker) { w.retryInitial, w.retryMax = initial, max }
}

// WithEvents registers a lifecycle listener.
func WithEvents(ev Events) WorkerOption {
	return func(w *Worker) { w.events = ev }
}

// NewWorker creates a worker over the given stores and executor.
func NewWorker(store Store, led Ledger, exec executor.SchemaExecutor, log kitlog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:        store,
		ledger:       led,
		exec:         exec,
		log:          log,
		clock:        clock.C,
		maxAttempts:  DefaultMaxAttempts,
		retryInitial: defaultRetryInitial,
		retryMax:     defaultRetryMax,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunOnce claims and fully resolves at most one job. Returns true when a
// job was processed, false when nothing was runnable.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNext(ctx, w.clock.Now().UTC())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.process(ctx, job)
	return true, nil
}

// process runs the claimed job to a resolution: completed, re-queued for
// retry, or terminally failed with a ledger entry.
func (w *Worker) process(ctx context.Context, job *Job) {
	log := kitlog.With(w.log, "job_id", job.ID, "job_type", job.Type, "form_id", job.FormID)
	level.Debug(log).Log("msg", "processing job", "attempt", job.Attempts+1)

	now := w.clock.Now().UTC()
	job.Attempts++
	job.UpdatedAt = now

	rec, attempt, runErr := w.run(ctx, job)
	switch {
	case runErr == nil:
		job.State = StateCompleted
		job.Error = ""
		job.CompletedAt = &now
		if w.events != nil && rec != nil {
			w.events.JobCompleted(job, rec)
		}

	case w.retryable(runErr) && job.Attempts < job.MaxAttempts:
		delay := w.retryDelay(job.Attempts)
		level.Debug(log).Log("msg", "will retry job", "err", runErr, "delay", delay)
		job.State = StateWaiting
		job.Error = runErr.Error()
		job.NotBefore = now.Add(delay)

	default:
		level.Error(log).Log("msg", "job failed terminally", "err", runErr, "attempts", job.Attempts)
		job.State = StateFailed
		job.Error = runErr.Error()
		job.CompletedAt = &now
		w.recordFailure(ctx, log, job, attempt, runErr)
		if w.events != nil {
			w.events.JobFailed(job, runErr.Error())
		}
	}

	if err := w.store.Update(ctx, job); err != nil {
		level.Error(log).Log("msg", "update job", "err", err)
	}
}

// run decodes the payload, invokes the executor, and writes the success
// ledger entry. On failure it also returns the attempt's captured ledger
// params so a terminal failure can be recorded with full context.
func (w *Worker) run(ctx context.Context, job *Job) (*migration.Record, *ledger.RecordParams, error) {
	payload, err := job.Payload()
	if err != nil {
		return nil, nil, backoff.Permanent(err)
	}

	var (
		res     executor.Result
		execErr error
		params  ledger.RecordParams
	)

	switch p := payload.(type) {
	case AddField:
		res, execErr = w.exec.AddColumn(ctx, executor.AddColumnRequest{
			FormID: p.FormID, FieldID: p.FieldID,
			Table: p.Table, Column: p.Column, DataType: p.DataType,
			RequestedBy: job.RequestedBy,
		})
		params = ledger.RecordParams{
			FieldID: p.FieldID, FormID: p.FormID,
			Type: migration.TypeAddColumn, Table: p.Table, Column: p.Column,
		}
		if res.NewValue.IsZero() {
			res.NewValue = migration.ColumnChange{Definition: &migration.ColumnDefinition{Type: p.DataType, Nullable: true}}
		}

	case DeleteField:
		if p.Backup && w.events != nil {
			w.events.JobProgress(job, fmt.Sprintf("taking pre-delete backup of %s.%s", p.Table, p.Column))
		}
		res, execErr = w.exec.DropColumn(ctx, executor.DropColumnRequest{
			FormID: p.FormID, FieldID: p.FieldID,
			Table: p.Table, Column: p.Column, Backup: p.Backup,
			RequestedBy: job.RequestedBy,
		})
		params = ledger.RecordParams{
			FieldID: p.FieldID, FormID: p.FormID,
			Type: migration.TypeDropColumn, Table: p.Table, Column: p.Column,
			BackupID: res.BackupID,
		}
		// After a successful drop the field no longer exists, so the
		// record is no longer field-scoped.
		if execErr == nil {
			params.FieldID = nil
		}

	case RenameField:
		res, execErr = w.exec.RenameColumn(ctx, executor.RenameColumnRequest{
			FormID: p.FormID, FieldID: p.FieldID,
			Table: p.Table, OldColumn: p.OldColumn, NewColumn: p.NewColumn,
			RequestedBy: job.RequestedBy,
		})
		params = ledger.RecordParams{
			FieldID: p.FieldID, FormID: p.FormID,
			Type: migration.TypeRenameColumn, Table: p.Table, Column: p.OldColumn,
		}
		if res.OldValue.IsZero() {
			res.OldValue = migration.ColumnChange{Rename: &migration.ColumnRename{Name: p.OldColumn}}
		}
		if res.NewValue.IsZero() {
			res.NewValue = migration.ColumnChange{Rename: &migration.ColumnRename{Name: p.NewColumn}}
		}

	case ChangeType:
		res, execErr = w.exec.ChangeColumnType(ctx, executor.ChangeTypeRequest{
			FormID: p.FormID, FieldID: p.FieldID,
			Table: p.Table, Column: p.Column, OldType: p.OldType, NewType: p.NewType,
			RequestedBy: job.RequestedBy,
		})
		params = ledger.RecordParams{
			FieldID: p.FieldID, FormID: p.FormID,
			Type: migration.TypeModifyColumn, Table: p.Table, Column: p.Column,
		}
		if res.OldValue.IsZero() && p.OldType != "" {
			res.OldValue = migration.ColumnChange{Definition: &migration.ColumnDefinition{Type: p.OldType}}
		}
		if res.NewValue.IsZero() {
			res.NewValue = migration.ColumnChange{Definition: &migration.ColumnDefinition{Type: p.NewType}}
		}

	default:
		return nil, nil, backoff.Permanent(fmt.Errorf("unhandled job payload %T", payload))
	}

	params.OldValue = res.OldValue
	params.NewValue = res.NewValue
	params.ExecutedBy = job.RequestedBy

	if execErr != nil {
		return nil, &params, execErr
	}

	params.Success = true
	params.RollbackStatement = migration.DeriveRollback(params.Type, params.Table, params.Column, params.OldValue, params.NewValue)

	rec, err := w.ledger.Record(ctx, params)
	if err != nil {
		// The schema change itself landed; a ledger write failure must
		// not re-run the DDL.
		level.Error(w.log).Log("msg", "record successful migration", "job_id", job.ID, "err", err)
		return nil, nil, nil
	}
	return rec, nil, nil
}

// recordFailure writes the terminal failed ledger entry. A failed
// migration never carries a rollback statement: the reached state is
// unknown.
func (w *Worker) recordFailure(ctx context.Context, log kitlog.Logger, job *Job, attempt *ledger.RecordParams, runErr error) {
	msg := runErr.Error()
	params := ledger.RecordParams{
		FormID:     job.FormID,
		Type:       job.Type.MigrationType(),
		ExecutedBy: job.RequestedBy,
	}
	if attempt != nil {
		params = *attempt
	}
	params.Success = false
	params.ErrorMessage = &msg
	params.RollbackStatement = nil

	if _, err := w.ledger.Record(ctx, params); err != nil {
		level.Error(log).Log("msg", "record failed migration", "err", err)
	}
}

// retryable reports whether the failure is worth another attempt. Typed
// executor errors expose their own transience; permanent-wrapped errors
// never retry; anything else is assumed transient, like a dropped
// connection mid-statement.
func (w *Worker) retryable(err error) bool {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return false
	}
	var execErr *executor.Error
	if errors.As(err, &execErr) {
		return execErr.Temporary()
	}
	return true
}

// retryDelay computes the backoff delay for the given attempt number
// (1-based). Deterministic: no jitter, doubling from the initial interval
// up to the cap.
func (w *Worker) retryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.retryInitial
	b.MaxInterval = w.retryMax
	b.Multiplier = 2
	b.RandomizationFactor = 0

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
