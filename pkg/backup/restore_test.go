package backup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRestore fails on the row ids listed in failOn.
type scriptedRestore struct {
	failOn map[any]bool
	calls  int
}

func (e *scriptedRestore) RestoreRow(ctx context.Context, table, column string, rowID, value any) error {
	e.calls++
	if e.failOn[rowID] {
		return fmt.Errorf("row %v gone", rowID)
	}
	return nil
}

func TestRestore(t *testing.T) {
	store, _, _ := newMockStore(t)

	rec := &Record{
		Table:  "form_f1",
		Column: "age",
		Snapshot: []Row{
			{RowID: "r1", Value: 1},
			{RowID: "r2", Value: 2},
			{RowID: "r3", Value: 3},
		},
	}

	exec := &scriptedRestore{}
	res := store.Restore(context.Background(), rec, exec)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.RestoredCount)
	assert.Equal(t, "Restored 3 rows to form_f1.age", res.Message)
	assert.Equal(t, 3, exec.calls)
}

func TestRestore_EmptySnapshot(t *testing.T) {
	store, _, _ := newMockStore(t)

	exec := &scriptedRestore{}
	res := store.Restore(context.Background(), &Record{Table: "form_f1", Column: "age"}, exec)

	assert.False(t, res.Success)
	assert.Equal(t, "No data to restore", res.Message)
	assert.Equal(t, 0, res.RestoredCount)
	assert.Equal(t, 0, exec.calls, "executor must not be touched")
}

func TestRestore_RowFailureAborts(t *testing.T) {
	store, _, _ := newMockStore(t)

	rec := &Record{
		Table:  "form_f1",
		Column: "age",
		Snapshot: []Row{
			{RowID: "r1", Value: 1},
			{RowID: "r2", Value: 2},
			{RowID: "r3", Value: 3},
		},
	}

	exec := &scriptedRestore{failOn: map[any]bool{"r2": true}}
	res := store.Restore(context.Background(), rec, exec)

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Restore failed")
	assert.Contains(t, res.Message, "r2")
	assert.Equal(t, 0, res.RestoredCount)
	assert.Equal(t, 2, exec.calls, "restore stops at the first failure")
}

func TestSQLRestoreExecutor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	exec := NewSQLRestoreExecutor(db)

	t.Run("updates one row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "form_f1" SET "age" = \$1 WHERE "id" = \$2`).
			WithArgs("42", "r1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := exec.RestoreRow(context.Background(), "form_f1", "age", "r1", "42")
		require.NoError(t, err)
	})

	t.Run("missing row is an error", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "form_f1" SET "age" = \$1 WHERE "id" = \$2`).
			WithArgs("42", "gone").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := exec.RestoreRow(context.Background(), "form_f1", "age", "gone", "42")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no longer exists")
	})

	t.Run("exec failure propagates", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "form_f1" SET "age" = \$1 WHERE "id" = \$2`).
			WillReturnError(errors.New("deadlock"))

		err := exec.RestoreRow(context.Background(), "form_f1", "age", "r1", "42")
		require.Error(t, err)
	})

	t.Run("custom id column", func(t *testing.T) {
		custom := NewSQLRestoreExecutor(db).WithIDColumn("row_uuid")
		mock.ExpectExec(`UPDATE "form_f1" SET "age" = \$1 WHERE "row_uuid" = \$2`).
			WithArgs("42", "r1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := custom.RestoreRow(context.Background(), "form_f1", "age", "r1", "42")
		require.NoError(t, err)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
