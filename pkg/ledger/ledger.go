// Package ledger is the append-only audit record of every attempted schema
// change. Entries are written once per migration attempt and never mutated;
// they back audit views, rollback lookups, and per-form statistics.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"

	"github.com/warin/fieldshift/pkg/migration"
)

// recentWindow bounds FindRecent queries.
const recentWindow = 24 * time.Hour

// Execer is the minimal database interface the ledger needs. Implemented
// by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads and writes migration records in the field_migrations table.
// Append-mostly and safe for concurrent writers; the database's own
// atomicity is the only locking needed.
type Store struct {
	db    Execer
	clock clock.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock substitutes the time source, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// NewStore creates a ledger store.
func NewStore(db Execer, opts ...Option) *Store {
	s := &Store{db: db, clock: clock.C}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordParams captures one migration attempt.
type RecordParams struct {
	FieldID  *string
	FormID   string
	Type     migration.Type
	Table    string
	Column   string
	OldValue migration.ColumnChange
	NewValue migration.ColumnChange

	BackupID   *string
	ExecutedBy string

	Success           bool
	ErrorMessage      *string
	RollbackStatement *string
}

// Record appends one migration attempt to the ledger. Pure data capture:
// no side effects beyond the insert.
//
// A failed attempt can never carry a rollback statement; the invariant is
// enforced here so it holds for every row ever written.
func (s *Store) Record(ctx context.Context, p RecordParams) (*migration.Record, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("ledger: invalid migration type %q", p.Type)
	}
	if !p.Success && p.RollbackStatement != nil {
		return nil, fmt.Errorf("ledger: failed migration cannot carry a rollback statement")
	}

	rec := &migration.Record{
		ID:                uuid.NewString(),
		FieldID:           p.FieldID,
		FormID:            p.FormID,
		Type:              p.Type,
		Table:             p.Table,
		Column:            p.Column,
		OldValue:          p.OldValue,
		NewValue:          p.NewValue,
		BackupID:          p.BackupID,
		ExecutedBy:        p.ExecutedBy,
		ExecutedAt:        s.clock.Now().UTC(),
		Success:           p.Success,
		ErrorMessage:      p.ErrorMessage,
		RollbackStatement: p.RollbackStatement,
	}

	oldJSON, err := json.Marshal(rec.OldValue)
	if err != nil {
		return nil, fmt.Errorf("marshaling old value: %w", err)
	}
	newJSON, err := json.Marshal(rec.NewValue)
	if err != nil {
		return nil, fmt.Errorf("marshaling new value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO field_migrations
			(id, field_id, form_id, migration_type, table_name, column_name, old_value, new_value,
			 backup_id, executed_by, executed_at, success, error_message, rollback_statement)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, rec.ID, rec.FieldID, rec.FormID, rec.Type.String(), rec.Table, rec.Column, oldJSON, newJSON,
		rec.BackupID, rec.ExecutedBy, rec.ExecutedAt, rec.Success, rec.ErrorMessage, rec.RollbackStatement)
	if err != nil {
		return nil, fmt.Errorf("inserting migration record: %w", err)
	}
	return rec, nil
}

// Get returns one record by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*migration.Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("migration %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying migration record: %w", err)
	}
	return rec, nil
}

// FindByForm returns all migration attempts for a form, newest first.
// Executor identity travels with each record (executed_by).
func (s *Store) FindByForm(ctx context.Context, formID string) ([]*migration.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+` WHERE form_id = $1 ORDER BY executed_at DESC`, formID)
	if err != nil {
		return nil, fmt.Errorf("querying migrations by form: %w", err)
	}
	return collectRecords(rows)
}

// FindRecent returns records executed within the last 24 hours, newest
// first.
func (s *Store) FindRecent(ctx context.Context, now time.Time) ([]*migration.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+` WHERE executed_at > $1 ORDER BY executed_at DESC`,
		now.Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("querying recent migrations: %w", err)
	}
	return collectRecords(rows)
}

const selectRecord = `
	SELECT id, field_id, form_id, migration_type, table_name, column_name, old_value, new_value,
	       backup_id, executed_by, executed_at, success, error_message, rollback_statement
	FROM field_migrations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*migration.Record, error) {
	var (
		rec              migration.Record
		fieldID          sql.NullString
		typ              string
		oldJSON, newJSON []byte
		backupID         sql.NullString
		errMsg           sql.NullString
		rollback         sql.NullString
	)
	err := row.Scan(&rec.ID, &fieldID, &rec.FormID, &typ, &rec.Table, &rec.Column, &oldJSON, &newJSON,
		&backupID, &rec.ExecutedBy, &rec.ExecutedAt, &rec.Success, &errMsg, &rollback)
	if err != nil {
		return nil, err
	}
	rec.Type = migration.Type(typ)
	if fieldID.Valid {
		rec.FieldID = &fieldID.String
	}
	if backupID.Valid {
		rec.BackupID = &backupID.String
	}
	if errMsg.Valid {
		rec.ErrorMessage = &errMsg.String
	}
	if rollback.Valid {
		rec.RollbackStatement = &rollback.String
	}
	if len(oldJSON) > 0 {
		if err := json.Unmarshal(oldJSON, &rec.OldValue); err != nil {
			return nil, fmt.Errorf("unmarshaling old value: %w", err)
		}
	}
	if len(newJSON) > 0 {
		if err := json.Unmarshal(newJSON, &rec.NewValue); err != nil {
			return nil, fmt.Errorf("unmarshaling new value: %w", err)
		}
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*migration.Record, error) {
	defer func() { _ = rows.Close() }()

	recs := make([]*migration.Record, 0, 8)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning migration record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
