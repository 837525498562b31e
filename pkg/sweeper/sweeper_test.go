package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/WatchBeam/clock"
	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackups struct {
	mu      sync.Mutex
	calls   []time.Time
	deleted int
	err     error
}

func (f *fakeBackups) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.deleted, f.err
}

func (f *fakeBackups) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnce(t *testing.T) {
	backups := &fakeBackups{deleted: 4}
	mc := clock.NewMockClock()
	s := New(backups, kitlog.NewNopLogger(), WithClock(mc))

	s.RunOnce(context.Background())

	require.Equal(t, 1, backups.callCount())
	assert.Equal(t, mc.Now().UTC(), backups.calls[0])
}

func TestRunOnce_ErrorDoesNotPanic(t *testing.T) {
	backups := &fakeBackups{err: errors.New("db down")}
	s := New(backups, kitlog.NewNopLogger())

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())
	assert.Equal(t, 2, backups.callCount())
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := New(&fakeBackups{}, kitlog.NewNopLogger(), WithSchedule("not a cron spec"))
	require.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	backups := &fakeBackups{}
	// A tight @every schedule so the test observes at least one sweep.
	s := New(backups, kitlog.NewNopLogger(), WithSchedule("@every 10ms"))

	require.NoError(t, s.Start())
	require.NoError(t, s.Start()) // second start is a no-op

	require.Eventually(t, func() bool {
		return backups.callCount() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop() // idempotent

	after := backups.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, backups.callCount(), "no sweeps after Stop")
}
