package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// defaultPollInterval bounds how long an idle queue waits before checking
// for newly runnable jobs (fresh enqueues or retries whose delay elapsed).
const defaultPollInterval = 2 * time.Second

// Queue is the job submission surface and the owner of the single worker
// loop. Construct one per process and share it by reference; Start begins
// processing and Close shuts it down idempotently.
type Queue struct {
	store  Store
	worker *Worker
	log    kitlog.Logger
	clock  clock.Clock

	pollInterval       time.Duration
	maxAttempts        int
	completedRetention time.Duration
	failedRetention    time.Duration

	mu      sync.Mutex
	paused  bool
	closed  bool
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock substitutes the time source, for tests.
func WithClock(c clock.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithPollInterval overrides the idle polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(q *Queue) { q.pollInterval = d }
}

// WithJobRetention overrides the completed/failed pruning windows.
func WithJobRetention(completed, failed time.Duration) Option {
	return func(q *Queue) { q.completedRetention, q.failedRetention = completed, failed }
}

// New creates a queue over a durable store and a worker. The worker's
// attempt budget is stamped onto each job at admission so it survives in
// the job row.
func New(store Store, worker *Worker, log kitlog.Logger, opts ...Option) *Queue {
	q := &Queue{
		store:              store,
		worker:             worker,
		log:                log,
		clock:              clock.C,
		pollInterval:       defaultPollInterval,
		maxAttempts:        worker.maxAttempts,
		completedRetention: CompletedRetention,
		failedRetention:    FailedRetention,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue validates and admits a job, returning its id. Admission never
// executes anything synchronously; the worker picks the job up in
// priority order. requestedBy identifies the actor for the audit trail.
func (q *Queue) Enqueue(ctx context.Context, p Payload, requestedBy string) (string, error) {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	if err := p.validate(); err != nil {
		return "", err
	}

	args, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshaling job payload: %w", err)
	}

	now := q.clock.Now().UTC()
	job := &Job{
		ID:          uuid.NewString(),
		FormID:      payloadFormID(p),
		Type:        p.JobType(),
		Args:        args,
		Priority:    p.JobType().Priority(),
		State:       StateWaiting,
		MaxAttempts: q.maxAttempts,
		RequestedBy: requestedBy,
		NotBefore:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := q.store.Enqueue(ctx, job); err != nil {
		return "", err
	}

	level.Debug(q.log).Log("msg", "job enqueued", "job_id", job.ID, "job_type", job.Type, "form_id", job.FormID)
	return job.ID, nil
}

// Status returns the form's job counts by state.
func (q *Queue) Status(ctx context.Context, formID string) (Counts, error) {
	return q.store.CountsByForm(ctx, formID)
}

// Start launches the worker loop. Safe to call once; subsequent calls are
// no-ops.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})
	go q.loop()
}

// loop drains runnable jobs, then idles until the next poll. Exactly one
// job is in flight at any moment; the next dequeue waits for the active
// one to fully resolve.
func (q *Queue) loop() {
	defer close(q.doneCh)

	ctx := context.Background()
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
		}

		if q.isPaused() {
			continue
		}

		for {
			processed, err := q.worker.RunOnce(ctx)
			if err != nil {
				level.Error(q.log).Log("msg", "claim job", "err", err)
				break
			}
			if !processed || q.isPaused() {
				break
			}
			select {
			case <-q.stopCh:
				return
			default:
			}
		}
	}
}

func (q *Queue) isPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// Pause stops new jobs from being dequeued. The active job, if any, still
// runs to completion: DDL is not safely abortable mid-statement.
func (q *Queue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = true
}

// Resume continues dequeuing after a Pause.
func (q *Queue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = false
}

// Clean prunes completed jobs older than 7 days and failed jobs older
// than 30 days (both configurable), returning the number pruned.
func (q *Queue) Clean(ctx context.Context) (int, error) {
	now := q.clock.Now().UTC()
	return q.store.Clean(ctx, now.Add(-q.completedRetention), now.Add(-q.failedRetention))
}

// Close stops the worker loop and releases the queue. Idempotent: closing
// an already-closed queue is a no-op and never returns an error.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	q.mu.Unlock()

	if started {
		close(q.stopCh)
		<-q.doneCh
	}
	return nil
}
