package fieldshift

import (
	"errors"

	"github.com/warin/fieldshift/pkg/backup"
	"github.com/warin/fieldshift/pkg/ledger"
	"github.com/warin/fieldshift/pkg/queue"
)

// Sentinel errors re-exported from the packages that raise them, so
// callers holding only an Engine can classify failures without importing
// every subpackage.
//
// Validation failures are rejected synchronously at the boundary and
// never enter the queue. Executor failures are typed separately in
// pkg/executor so the worker can decide whether a retry is worthwhile.
var (
	// ErrInvalidSnapshot: a backup snapshot element is missing its row id
	// or value.
	ErrInvalidSnapshot = backup.ErrInvalidSnapshot

	// ErrQueueClosed: a job was submitted after Close.
	ErrQueueClosed = queue.ErrClosed

	// ErrUnknownJobType: a job row names a type the worker does not
	// understand.
	ErrUnknownJobType = queue.ErrUnknownJobType

	// ErrBackupNotFound / ErrMigrationNotFound: lookup misses.
	ErrBackupNotFound    = backup.ErrNotFound
	ErrMigrationNotFound = ledger.ErrNotFound
)

// IsInvalidSnapshotErr returns true if err is or wraps ErrInvalidSnapshot.
func IsInvalidSnapshotErr(err error) bool {
	return errors.Is(err, ErrInvalidSnapshot)
}

// IsQueueClosedErr returns true if err is or wraps ErrQueueClosed.
func IsQueueClosedErr(err error) bool {
	return errors.Is(err, ErrQueueClosed)
}

// IsNotFoundErr returns true if err is a backup or migration lookup miss.
func IsNotFoundErr(err error) bool {
	return errors.Is(err, ErrBackupNotFound) || errors.Is(err, ErrMigrationNotFound)
}
