package ledger

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/WatchBeam/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warin/fieldshift/pkg/migration"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *clock.MockClock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mc := clock.NewMockClock()
	return NewStore(db, WithClock(mc)), mock, mc
}

func strptr(s string) *string { return &s }

func TestRecord(t *testing.T) {
	store, mock, mc := newMockStore(t)
	now := mc.Now().UTC()

	mock.ExpectExec("INSERT INTO field_migrations").
		WithArgs(sqlmock.AnyArg(), nil, "f1", "ADD_COLUMN", "form_f1", "age",
			[]byte(`{"type":"INTEGER","nullable":true}`), []byte(`{"type":"INTEGER","nullable":true}`),
			nil, "admin", now, true, nil, "ALTER TABLE form_f1 DROP COLUMN age;").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := store.Record(context.Background(), RecordParams{
		FormID:            "f1",
		Type:              migration.TypeAddColumn,
		Table:             "form_f1",
		Column:            "age",
		OldValue:          migration.ColumnChange{Definition: &migration.ColumnDefinition{Type: "INTEGER", Nullable: true}},
		NewValue:          migration.ColumnChange{Definition: &migration.ColumnDefinition{Type: "INTEGER", Nullable: true}},
		ExecutedBy:        "admin",
		Success:           true,
		RollbackStatement: strptr("ALTER TABLE form_f1 DROP COLUMN age;"),
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, now, rec.ExecutedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_InvalidType(t *testing.T) {
	store, _, _ := newMockStore(t)

	_, err := store.Record(context.Background(), RecordParams{
		FormID: "f1",
		Type:   migration.Type("TRUNCATE"),
		Table:  "form_f1",
		Column: "age",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration type")
}

func TestRecord_FailedCannotCarryRollback(t *testing.T) {
	store, _, _ := newMockStore(t)

	_, err := store.Record(context.Background(), RecordParams{
		FormID:            "f1",
		Type:              migration.TypeDropColumn,
		Table:             "form_f1",
		Column:            "age",
		Success:           false,
		ErrorMessage:      strptr("lock timeout"),
		RollbackStatement: strptr("ALTER TABLE form_f1 ADD COLUMN age INTEGER;"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot carry a rollback statement")
}

func TestRecord_FailedAttempt(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectExec("INSERT INTO field_migrations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := store.Record(context.Background(), RecordParams{
		FormID:       "f1",
		Type:         migration.TypeModifyColumn,
		Table:        "form_f1",
		Column:       "age",
		ExecutedBy:   "admin",
		Success:      false,
		ErrorMessage: strptr("cannot cast TEXT to INTEGER"),
	})
	require.NoError(t, err)
	assert.False(t, rec.Success)
	require.NotNil(t, rec.ErrorMessage)
	assert.Nil(t, rec.RollbackStatement)
}

func TestGet_NotFound(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM field_migrations").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func recordCols() []string {
	return []string{"id", "field_id", "form_id", "migration_type", "table_name", "column_name",
		"old_value", "new_value", "backup_id", "executed_by", "executed_at",
		"success", "error_message", "rollback_statement"}
}

func TestGet(t *testing.T) {
	store, mock, mc := newMockStore(t)
	now := mc.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM field_migrations").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(recordCols()).
			AddRow("m1", "fld-1", "f1", "RENAME_COLUMN", "form_f1", "age",
				[]byte(`{"name":"age"}`), []byte(`{"name":"years"}`),
				nil, "admin", now, true, nil, "ALTER TABLE form_f1 RENAME COLUMN years TO age;"))

	rec, err := store.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, migration.TypeRenameColumn, rec.Type)
	require.NotNil(t, rec.FieldID)
	assert.Equal(t, "fld-1", *rec.FieldID)
	require.NotNil(t, rec.OldValue.Rename)
	assert.Equal(t, "age", rec.OldValue.Rename.Name)
	require.NotNil(t, rec.NewValue.Rename)
	assert.Equal(t, "years", rec.NewValue.Rename.Name)
	assert.True(t, rec.CanRollback())
}

func TestFindByForm(t *testing.T) {
	store, mock, mc := newMockStore(t)
	now := mc.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM field_migrations").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(recordCols()).
			AddRow("m2", nil, "f1", "DROP_COLUMN", "form_f1", "age",
				[]byte(`{"type":"INTEGER","nullable":true}`), []byte("null"),
				"b1", "admin", now, true, nil, "ALTER TABLE form_f1 ADD COLUMN age INTEGER;").
			AddRow("m1", nil, "f1", "ADD_COLUMN", "form_f1", "age",
				[]byte("null"), []byte(`{"type":"INTEGER","nullable":true}`),
				nil, "admin", now.Add(-time.Hour), true, nil, "ALTER TABLE form_f1 DROP COLUMN age;"))

	recs, err := store.FindByForm(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "m2", recs[0].ID)
	require.NotNil(t, recs[0].BackupID)
	assert.Equal(t, "b1", *recs[0].BackupID)
	assert.True(t, recs[0].OldValue.IsZero() == false)
	assert.True(t, recs[1].OldValue.IsZero())
}

func TestFindRecent(t *testing.T) {
	store, mock, mc := newMockStore(t)
	now := mc.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM field_migrations").
		WithArgs(now.Add(-24 * time.Hour)).
		WillReturnRows(sqlmock.NewRows(recordCols()).
			AddRow("m1", nil, "f1", "ADD_COLUMN", "form_f1", "age",
				[]byte("null"), []byte(`{"type":"INTEGER","nullable":true}`),
				nil, "admin", now.Add(-time.Hour), true, nil, nil))

	recs, err := store.FindRecent(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].IsRecent(now))
	require.NoError(t, mock.ExpectationsWereMet())
}
