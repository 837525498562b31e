// Package pgexec is a reference SchemaExecutor for PostgreSQL. The engine
// itself only depends on the executor contract; this implementation backs
// the fieldshift daemon so the queue has something real to drive.
//
// Identifiers (table and column names) come from form definitions, not SQL
// authors, so every statement quotes them.
package pgexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/warin/fieldshift/pkg/backup"
	"github.com/warin/fieldshift/pkg/executor"
	"github.com/warin/fieldshift/pkg/migration"
)

// Execer is the minimal database interface the executor needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor applies column changes with plain ALTER TABLE statements and
// snapshots data through the backup store before destructive drops.
type Executor struct {
	db       Execer
	backups  *backup.Store
	idColumn string
}

var _ executor.SchemaExecutor = (*Executor)(nil)

// New creates a Postgres executor. Row ids for snapshots are read from
// the "id" column.
func New(db Execer, backups *backup.Store) *Executor {
	return &Executor{db: db, backups: backups, idColumn: "id"}
}

func (e *Executor) AddColumn(ctx context.Context, req executor.AddColumnRequest) (executor.Result, error) {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		pq.QuoteIdentifier(req.Table), pq.QuoteIdentifier(req.Column), req.DataType)
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return executor.Result{}, mapError("add column", req.Table, req.Column, err)
	}
	return executor.Result{
		NewValue: migration.ColumnChange{Definition: &migration.ColumnDefinition{Type: req.DataType, Nullable: true}},
	}, nil
}

func (e *Executor) DropColumn(ctx context.Context, req executor.DropColumnRequest) (executor.Result, error) {
	// Capture the definition first; it is gone after the drop and the
	// rollback statement needs it.
	oldDef, err := e.columnDefinition(ctx, req.Table, req.Column)
	if err != nil {
		return executor.Result{}, mapError("drop column", req.Table, req.Column, err)
	}

	res := executor.Result{OldValue: migration.ColumnChange{Definition: oldDef}}

	if req.Backup {
		rec, err := e.snapshotColumn(ctx, req)
		if err != nil {
			return executor.Result{}, err
		}
		res.BackupID = &rec.ID
	}

	stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		pq.QuoteIdentifier(req.Table), pq.QuoteIdentifier(req.Column))
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return executor.Result{}, mapError("drop column", req.Table, req.Column, err)
	}
	return res, nil
}

func (e *Executor) RenameColumn(ctx context.Context, req executor.RenameColumnRequest) (executor.Result, error) {
	stmt := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		pq.QuoteIdentifier(req.Table), pq.QuoteIdentifier(req.OldColumn), pq.QuoteIdentifier(req.NewColumn))
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return executor.Result{}, mapError("rename column", req.Table, req.OldColumn, err)
	}
	return executor.Result{
		OldValue: migration.ColumnChange{Rename: &migration.ColumnRename{Name: req.OldColumn}},
		NewValue: migration.ColumnChange{Rename: &migration.ColumnRename{Name: req.NewColumn}},
	}, nil
}

func (e *Executor) ChangeColumnType(ctx context.Context, req executor.ChangeTypeRequest) (executor.Result, error) {
	oldDef, err := e.columnDefinition(ctx, req.Table, req.Column)
	if err != nil {
		return executor.Result{}, mapError("change column type", req.Table, req.Column, err)
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
		pq.QuoteIdentifier(req.Table), pq.QuoteIdentifier(req.Column), req.NewType,
		pq.QuoteIdentifier(req.Column), req.NewType)
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return executor.Result{}, mapError("change column type", req.Table, req.Column, err)
	}
	return executor.Result{
		OldValue: migration.ColumnChange{Definition: oldDef},
		NewValue: migration.ColumnChange{Definition: &migration.ColumnDefinition{Type: req.NewType, Nullable: oldDef.Nullable}},
	}, nil
}

// snapshotColumn reads every row's id and current value and stores them
// as an AUTO_DELETE backup.
func (e *Executor) snapshotColumn(ctx context.Context, req executor.DropColumnRequest) (*backup.Record, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s",
		pq.QuoteIdentifier(e.idColumn), pq.QuoteIdentifier(req.Column),
		pq.QuoteIdentifier(req.Table), pq.QuoteIdentifier(e.idColumn))
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError("snapshot column", req.Table, req.Column, err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := make([]backup.Row, 0, 64)
	for rows.Next() {
		var rowID, value any
		if err := rows.Scan(&rowID, &value); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		snapshot = append(snapshot, backup.Row{RowID: rowID, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("snapshot column", req.Table, req.Column, err)
	}

	return e.backups.Create(ctx, backup.CreateParams{
		FieldID:   req.FieldID,
		FormID:    req.FormID,
		Table:     req.Table,
		Column:    req.Column,
		Snapshot:  snapshot,
		Type:      backup.TypeAutoDelete,
		CreatedBy: req.RequestedBy,
	})
}

// columnDefinition reads a column's current definition from
// information_schema.
func (e *Executor) columnDefinition(ctx context.Context, table, column string) (*migration.ColumnDefinition, error) {
	var (
		dataType   string
		isNullable string
		colDefault sql.NullString
	)
	err := e.db.QueryRowContext(ctx, `
		SELECT data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_name = $1 AND column_name = $2
	`, table, column).Scan(&dataType, &isNullable, &colDefault)
	if err == sql.ErrNoRows {
		return nil, &executor.Error{Code: executor.CodeColumnNotFound, Op: "inspect column", Table: table, Column: column}
	}
	if err != nil {
		return nil, err
	}

	def := &migration.ColumnDefinition{Type: dataType, Nullable: isNullable == "YES"}
	if colDefault.Valid {
		def.Default = &colDefault.String
	}
	return def, nil
}

// Postgres error codes the executor classifies.
const (
	pgUndefinedTable  = "42P01" // undefined_table
	pgUndefinedColumn = "42703" // undefined_column
	pgDuplicateColumn = "42701" // duplicate_column
	pgCannotCoerce    = "42846" // cannot_coerce
	pgInvalidText     = "22P02" // invalid_text_representation
	pgLockNotAvail    = "55P03" // lock_not_available
)

// mapError converts driver failures into typed executor errors. Unmapped
// codes pass through wrapped so the worker treats them as transient.
func mapError(op, table, column string, err error) error {
	if err == nil {
		return nil
	}
	var execErr *executor.Error
	if errors.As(err, &execErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code, ok := classify(pgErr)
		if ok {
			return &executor.Error{Code: code, Op: op, Table: table, Column: column, Err: err}
		}
	}
	return fmt.Errorf("%s %s.%s: %w", op, table, column, err)
}

func classify(pgErr *pgconn.PgError) (executor.Code, bool) {
	switch pgErr.Code {
	case pgUndefinedTable:
		return executor.CodeTableNotFound, true
	case pgUndefinedColumn:
		return executor.CodeColumnNotFound, true
	case pgDuplicateColumn:
		return executor.CodeColumnExists, true
	case pgCannotCoerce, pgInvalidText:
		return executor.CodeTypeConversion, true
	case pgLockNotAvail:
		return executor.CodeLockTimeout, true
	}
	// Class 08 is connection trouble, class 23 integrity violations.
	switch {
	case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
		return executor.CodeConnection, true
	case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23":
		return executor.CodeConstraintViolation, true
	}
	return "", false
}
