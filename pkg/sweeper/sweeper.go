// Package sweeper deletes expired backups on a schedule. It owns no state
// of its own: each sweep is a single conditional delete in the backup
// store, so overlapping or repeated runs are harmless.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep hourly.
const DefaultSchedule = "@hourly"

// Backups is the slice of the backup store the sweeper drives.
type Backups interface {
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper purges expired backups on a cron schedule.
type Sweeper struct {
	backups  Backups
	log      kitlog.Logger
	clock    clock.Clock
	schedule string

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock substitutes the time source, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Sweeper) { s.clock = c }
}

// WithSchedule overrides the cron schedule (standard cron syntax or the
// @every / @hourly descriptors).
func WithSchedule(spec string) Option {
	return func(s *Sweeper) { s.schedule = spec }
}

// New creates a sweeper over the backup store.
func New(backups Backups, log kitlog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		backups:  backups,
		log:      log,
		clock:    clock.C,
		schedule: DefaultSchedule,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the sweep on the schedule and begins running. Errors in
// a sweep are logged and never stop the schedule.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.started = true

	level.Info(s.log).Log("msg", "retention sweeper started", "schedule", s.schedule)
	return nil
}

// RunOnce performs a single sweep. Exposed for the CLI's one-shot cleanup.
func (s *Sweeper) RunOnce(ctx context.Context) {
	deleted, err := s.backups.CleanupExpired(ctx, s.clock.Now().UTC())
	if err != nil {
		level.Error(s.log).Log("msg", "cleanup expired backups", "err", err)
		return
	}
	if deleted > 0 {
		level.Info(s.log).Log("msg", "expired backups deleted", "count", deleted)
	}
}

// Stop halts the schedule, waiting for an in-flight sweep to finish.
// Idempotent.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	<-s.cron.Stop().Done()
}
