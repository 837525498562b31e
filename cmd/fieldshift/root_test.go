package main

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/WatchBeam/clock"
	"github.com/stretchr/testify/require"

	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/backup"
)

func TestNewBackupStore_ConfiguredRetention(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg = &cli.Config{Backup: cli.BackupConfig{Retention: 30 * 24 * time.Hour}}
	mc := clock.NewMockClock()
	store := newBackupStore(db, backup.WithClock(mc))

	// A snapshot created through the CLI-built store expires per the
	// configured window, not the built-in default.
	wantRetention := mc.Now().UTC().Add(30 * 24 * time.Hour)
	mock.ExpectExec("INSERT INTO field_data_backups").
		WithArgs(sqlmock.AnyArg(), nil, "f1", "form_f1", "age", sqlmock.AnyArg(),
			backup.TypeAutoDelete, wantRetention, "admin", mc.Now().UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = store.Create(context.Background(), backup.CreateParams{
		FormID: "f1", Table: "form_f1", Column: "age",
		Type: backup.TypeAutoDelete, CreatedBy: "admin",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewBackupStore_DefaultRetention(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cfg = &cli.Config{}
	mc := clock.NewMockClock()
	store := newBackupStore(db, backup.WithClock(mc))

	wantRetention := mc.Now().UTC().Add(backup.DefaultRetention)
	mock.ExpectExec("INSERT INTO field_data_backups").
		WithArgs(sqlmock.AnyArg(), nil, "f1", "form_f1", "age", sqlmock.AnyArg(),
			backup.TypeAutoDelete, wantRetention, "admin", mc.Now().UTC()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = store.Create(context.Background(), backup.CreateParams{
		FormID: "f1", Table: "form_f1", Column: "age",
		Type: backup.TypeAutoDelete, CreatedBy: "admin",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
