package queue

import (
	"context"
	"time"
)

// Retention windows for pruned jobs. Failed jobs keep diagnostic value
// longer than successes.
const (
	CompletedRetention = 7 * 24 * time.Hour
	FailedRetention    = 30 * 24 * time.Hour
)

// Counts aggregates a form's jobs by state.
type Counts struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Store persists jobs. The production implementation is PGStore; tests use
// a hand-written mock.
type Store interface {
	// Enqueue inserts a new waiting job.
	Enqueue(ctx context.Context, job *Job) error

	// ClaimNext atomically moves the next runnable job to active and
	// returns it, or nil when nothing is runnable. Runnable means waiting
	// with not_before at or past now; ordering is priority descending,
	// then enqueue order.
	ClaimNext(ctx context.Context, now time.Time) (*Job, error)

	// Update persists a job's current state.
	Update(ctx context.Context, job *Job) error

	// CountsByForm aggregates job counts for one form.
	CountsByForm(ctx context.Context, formID string) (Counts, error)

	// Clean prunes completed jobs older than completedBefore and failed
	// jobs older than failedBefore, returning the number pruned.
	Clean(ctx context.Context, completedBefore, failedBefore time.Time) (int, error)
}
