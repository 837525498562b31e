package backup

import "errors"

var (
	// ErrInvalidSnapshot is returned when a snapshot element is missing
	// its row id or its value. Malformed snapshots are rejected before
	// anything is written.
	ErrInvalidSnapshot = errors.New("backup: invalid snapshot")

	// ErrNotFound is returned by lookups for missing backups.
	ErrNotFound = errors.New("backup: not found")
)
