// Package backup persists point-in-time snapshots of a column's data taken
// before destructive schema changes, and restores them on demand. Records
// expire on a retention schedule and are purged by the sweeper.
package backup

import (
	"math"
	"time"
)

// Well-known backup type tags. The field is free-form; these are the tags
// the engine itself writes.
const (
	TypeManual         = "MANUAL"
	TypeAutoDelete     = "AUTO_DELETE"
	TypeAutoTypeChange = "AUTO_TYPE_CHANGE"
)

// Row is one captured cell: the owning data row's id and the column value
// it held at snapshot time.
type Row struct {
	RowID any `json:"rowId"`
	Value any `json:"value"`
}

// Record is a snapshot of one column's values across all rows that existed
// when it was taken.
type Record struct {
	ID      string
	FieldID *string
	FormID  string
	Table   string
	Column  string

	// Snapshot is always a sequence, possibly empty.
	Snapshot []Row

	// BackupType is a free-form tag describing why the snapshot was taken
	// (AUTO_DELETE, AUTO_TYPE_CHANGE, MANUAL, ...).
	BackupType string

	// RetentionUntil is the expiry timestamp. Nil means the backup never
	// expires.
	RetentionUntil *time.Time

	CreatedBy string
	CreatedAt time.Time
}

// Count returns the number of captured rows. Safe on a nil snapshot.
func (r *Record) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Snapshot)
}

// Expired reports whether the record's retention window has passed.
// Records without a retention timestamp never expire.
func (r *Record) Expired(now time.Time) bool {
	if r.RetentionUntil == nil {
		return false
	}
	return r.RetentionUntil.Before(now)
}

// DaysUntilExpiration returns the number of whole days until expiry,
// rounded up, or nil for records that never expire. Already-expired
// records yield a negative count.
func (r *Record) DaysUntilExpiration(now time.Time) *int {
	if r.RetentionUntil == nil {
		return nil
	}
	days := int(math.Ceil(r.RetentionUntil.Sub(now).Hours() / 24))
	return &days
}
