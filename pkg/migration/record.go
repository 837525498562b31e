package migration

import (
	"fmt"
	"time"
)

// recentWindow is how long a migration counts as recent for audit views.
const recentWindow = 24 * time.Hour

// Record is one attempted schema change in the audit ledger. Records are
// append-only: created once per attempt and never mutated.
type Record struct {
	ID       string
	FieldID  *string
	FormID   string
	Type     Type
	Table    string
	Column   string
	OldValue ColumnChange
	NewValue ColumnChange

	// BackupID references the snapshot taken immediately before this
	// migration, when one was requested.
	BackupID *string

	ExecutedBy string
	ExecutedAt time.Time

	Success      bool
	ErrorMessage *string

	// RollbackStatement is a ready-to-run reversal. Only present on
	// successful migrations where a reversal is derivable.
	RollbackStatement *string
}

// CanRollback reports whether the record's rollback statement may be run.
//
// An ADD_COLUMN whose field still exists is never rollbackable: the live
// form definition still expects the column, so dropping it would
// desynchronize the form from the physical table. All other successful
// types with a stored statement are rollbackable regardless of field state.
func (r *Record) CanRollback() bool {
	if !r.Success || r.RollbackStatement == nil {
		return false
	}
	if r.Type == TypeAddColumn && r.FieldID != nil {
		return false
	}
	return true
}

// RollbackSQL returns the stored rollback statement, or nil when the record
// is not rollbackable.
func (r *Record) RollbackSQL() *string {
	if !r.CanRollback() {
		return nil
	}
	return r.RollbackStatement
}

// IsRecent reports whether the record executed within the last 24 hours.
func (r *Record) IsRecent(now time.Time) bool {
	return now.Sub(r.ExecutedAt) < recentWindow
}

// Describe renders a one-line human-readable summary for audit views.
func (r *Record) Describe() string {
	var s string
	switch r.Type {
	case TypeAddColumn:
		s = fmt.Sprintf("Added column %s to table %s", r.Column, r.Table)
	case TypeDropColumn:
		s = fmt.Sprintf("Removed column %s from table %s", r.Column, r.Table)
	case TypeModifyColumn:
		s = fmt.Sprintf("Changed type of column %s in table %s", r.Column, r.Table)
	case TypeRenameColumn:
		to := r.Column
		if r.NewValue.Rename != nil {
			to = r.NewValue.Rename.Name
		}
		s = fmt.Sprintf("Renamed column %s to %s in table %s", r.Column, to, r.Table)
	default:
		s = fmt.Sprintf("Migration %s on table %s", r.Type, r.Table)
	}
	if !r.Success {
		s += " (FAILED)"
	}
	return s
}
