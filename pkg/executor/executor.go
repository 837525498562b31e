// Package executor defines the contract the migration engine uses to apply
// DDL to a form's physical table. The engine treats implementations as a
// black box: it hands over a structured instruction and receives either a
// Result describing the before/after column state or a typed *Error.
package executor

import (
	"context"

	"github.com/warin/fieldshift/pkg/migration"
)

// Result carries the information the ledger needs to record a completed
// operation: the column state before and after the change, and the id of
// any backup the executor took on the engine's behalf.
type Result struct {
	OldValue migration.ColumnChange
	NewValue migration.ColumnChange

	// BackupID is set by DropColumn when the request asked for a backup.
	BackupID *string
}

// AddColumnRequest adds a column to a form table.
type AddColumnRequest struct {
	FormID   string
	FieldID  *string
	Table    string
	Column   string
	DataType string

	// RequestedBy identifies the actor, for backup attribution.
	RequestedBy string
}

// DropColumnRequest removes a column, optionally snapshotting its data
// first.
type DropColumnRequest struct {
	FormID  string
	FieldID *string
	Table   string
	Column  string

	// Backup requests a snapshot of the column's data before the drop.
	Backup bool

	RequestedBy string
}

// RenameColumnRequest renames a column.
type RenameColumnRequest struct {
	FormID    string
	FieldID   *string
	Table     string
	OldColumn string
	NewColumn string

	RequestedBy string
}

// ChangeTypeRequest converts a column to a new data type.
type ChangeTypeRequest struct {
	FormID  string
	FieldID *string
	Table   string
	Column  string
	OldType string
	NewType string

	RequestedBy string
}

// SchemaExecutor performs schema changes against a physical table.
//
// Implementations are expected to be synchronous: each call blocks until
// the DDL fully resolves. Failures are reported as *Error so callers can
// distinguish transient causes (lock contention, lost connections) from
// permanent ones (missing column, incompatible cast).
type SchemaExecutor interface {
	AddColumn(ctx context.Context, req AddColumnRequest) (Result, error)
	DropColumn(ctx context.Context, req DropColumnRequest) (Result, error)
	RenameColumn(ctx context.Context, req RenameColumnRequest) (Result, error)
	ChangeColumnType(ctx context.Context, req ChangeTypeRequest) (Result, error)
}
