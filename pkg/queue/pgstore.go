package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Execer is the minimal database interface the job store needs.
// Implemented by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGStore is the durable Postgres job store backing the queue.
type PGStore struct {
	db Execer
}

var _ Store = (*PGStore)(nil)

// NewPGStore creates a job store over the migration_jobs table.
func NewPGStore(db Execer) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Enqueue(ctx context.Context, job *Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_jobs
			(id, form_id, job_type, args, priority, state, attempts, max_attempts, requested_by, not_before, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, job.ID, job.FormID, string(job.Type), []byte(job.Args), job.Priority, string(job.State),
		job.Attempts, job.MaxAttempts, job.RequestedBy, job.NotBefore, job.Error, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

// ClaimNext claims via a single conditional UPDATE ... RETURNING so that a
// concurrent claimer can never activate the same row. SKIP LOCKED keeps a
// second process from blocking on the one being claimed.
func (s *PGStore) ClaimNext(ctx context.Context, now time.Time) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE migration_jobs SET state = $1, updated_at = $2
		WHERE id = (
			SELECT id FROM migration_jobs
			WHERE state = $3 AND not_before <= $2
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, form_id, job_type, args, priority, state, attempts, max_attempts, requested_by, not_before, error, created_at, updated_at, completed_at
	`, string(StateActive), now, string(StateWaiting))

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}
	return job, nil
}

func (s *PGStore) Update(ctx context.Context, job *Job) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE migration_jobs
		SET state = $2, attempts = $3, not_before = $4, error = $5, updated_at = $6, completed_at = $7
		WHERE id = $1
	`, job.ID, string(job.State), job.Attempts, job.NotBefore, job.Error, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	return nil
}

func (s *PGStore) CountsByForm(ctx context.Context, formID string) (Counts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM migration_jobs
		WHERE form_id = $1
		GROUP BY state
	`, formID)
	if err != nil {
		return Counts{}, fmt.Errorf("counting jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var c Counts
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return Counts{}, fmt.Errorf("scanning job counts: %w", err)
		}
		switch State(state) {
		case StateWaiting:
			c.Waiting = n
		case StateActive:
			c.Active = n
		case StateCompleted:
			c.Completed = n
		case StateFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}

func (s *PGStore) Clean(ctx context.Context, completedBefore, failedBefore time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM migration_jobs
		WHERE (state = $1 AND completed_at IS NOT NULL AND completed_at < $2)
		   OR (state = $3 AND updated_at < $4)
	`, string(StateCompleted), completedBefore, string(StateFailed), failedBefore)
	if err != nil {
		return 0, fmt.Errorf("cleaning jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleaned jobs: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job         Job
		typ, state  string
		args        []byte
		errMsg      sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(&job.ID, &job.FormID, &typ, &args, &job.Priority, &state,
		&job.Attempts, &job.MaxAttempts, &job.RequestedBy, &job.NotBefore, &errMsg, &job.CreatedAt, &job.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	job.Type = JobType(typ)
	job.State = State(state)
	job.Args = args
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
