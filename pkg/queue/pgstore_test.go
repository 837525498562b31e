package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPGStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPGStore(db), mock
}

func TestPGStoreEnqueue(t *testing.T) {
	store, mock := newMockPGStore(t)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	args := json.RawMessage(`{"formId":"f1"}`)

	mock.ExpectExec("INSERT INTO migration_jobs").
		WithArgs("j1", "f1", "ADD_FIELD", []byte(args), 1, "waiting",
			0, 3, "admin", now, "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Enqueue(context.Background(), &Job{
		ID: "j1", FormID: "f1", Type: JobAddField, Args: args,
		Priority: 1, State: StateWaiting, MaxAttempts: 3,
		RequestedBy: "admin", NotBefore: now, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreClaimNext(t *testing.T) {
	store, mock := newMockPGStore(t)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	cols := []string{"id", "form_id", "job_type", "args", "priority", "state",
		"attempts", "max_attempts", "requested_by", "not_before", "error",
		"created_at", "updated_at", "completed_at"}
	mock.ExpectQuery("UPDATE migration_jobs SET state").
		WithArgs("active", now, "waiting").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("j1", "f1", "DELETE_FIELD", []byte(`{"formId":"f1"}`), 10, "active",
				0, 3, "admin", now.Add(-time.Minute), nil, now.Add(-time.Minute), now, nil))

	job, err := store.ClaimNext(context.Background(), now)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, JobDeleteField, job.Type)
	assert.Equal(t, StateActive, job.State)
	assert.Empty(t, job.Error)
	assert.Nil(t, job.CompletedAt)
}

func TestPGStoreClaimNext_NothingRunnable(t *testing.T) {
	store, mock := newMockPGStore(t)
	now := time.Now().UTC()

	cols := []string{"id"}
	mock.ExpectQuery("UPDATE migration_jobs SET state").
		WillReturnRows(sqlmock.NewRows(cols))

	job, err := store.ClaimNext(context.Background(), now)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestPGStoreUpdate(t *testing.T) {
	store, mock := newMockPGStore(t)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	done := now.Add(time.Second)

	mock.ExpectExec("UPDATE migration_jobs").
		WithArgs("j1", "completed", 1, now, "", done, done).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), &Job{
		ID: "j1", State: StateCompleted, Attempts: 1,
		NotBefore: now, UpdatedAt: done, CompletedAt: &done,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreCountsByForm(t *testing.T) {
	store, mock := newMockPGStore(t)

	mock.ExpectQuery("SELECT state, COUNT").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"state", "count"}).
			AddRow("waiting", 2).
			AddRow("completed", 5).
			AddRow("failed", 1))

	counts, err := store.CountsByForm(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, Counts{Waiting: 2, Completed: 5, Failed: 1}, counts)
}

func TestPGStoreClean(t *testing.T) {
	store, mock := newMockPGStore(t)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	completedBefore := now.Add(-CompletedRetention)
	failedBefore := now.Add(-FailedRetention)

	mock.ExpectExec("DELETE FROM migration_jobs").
		WithArgs("completed", completedBefore, "failed", failedBefore).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.Clean(context.Background(), completedBefore, failedBefore)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
