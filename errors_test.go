package fieldshift_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/warin/fieldshift"
)

func TestErrorHelpers(t *testing.T) {
	t.Run("IsInvalidSnapshotErr", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", fieldshift.ErrInvalidSnapshot)
		if !fieldshift.IsInvalidSnapshotErr(err) {
			t.Error("IsInvalidSnapshotErr should return true for wrapped ErrInvalidSnapshot")
		}
		if fieldshift.IsInvalidSnapshotErr(errors.New("other error")) {
			t.Error("IsInvalidSnapshotErr should return false for other errors")
		}
	})

	t.Run("IsQueueClosedErr", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", fieldshift.ErrQueueClosed)
		if !fieldshift.IsQueueClosedErr(err) {
			t.Error("IsQueueClosedErr should return true for wrapped ErrQueueClosed")
		}
		if fieldshift.IsQueueClosedErr(errors.New("other error")) {
			t.Error("IsQueueClosedErr should return false for other errors")
		}
	})

	t.Run("IsNotFoundErr", func(t *testing.T) {
		backupMiss := fmt.Errorf("backup b1: %w", fieldshift.ErrBackupNotFound)
		if !fieldshift.IsNotFoundErr(backupMiss) {
			t.Error("IsNotFoundErr should return true for wrapped ErrBackupNotFound")
		}
		migrationMiss := fmt.Errorf("migration m1: %w", fieldshift.ErrMigrationNotFound)
		if !fieldshift.IsNotFoundErr(migrationMiss) {
			t.Error("IsNotFoundErr should return true for wrapped ErrMigrationNotFound")
		}
		if fieldshift.IsNotFoundErr(errors.New("other error")) {
			t.Error("IsNotFoundErr should return false for other errors")
		}
	})
}

func TestSentinelErrors(t *testing.T) {
	// Verify sentinel errors have meaningful messages
	tests := []struct {
		err error
	}{
		{fieldshift.ErrInvalidSnapshot},
		{fieldshift.ErrQueueClosed},
		{fieldshift.ErrUnknownJobType},
		{fieldshift.ErrBackupNotFound},
		{fieldshift.ErrMigrationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if tt.err.Error() == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}
