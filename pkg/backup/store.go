package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"
)

// DefaultRetention is how long a backup is kept when the caller does not
// supply an explicit retention timestamp.
const DefaultRetention = 90 * 24 * time.Hour

// Execer is the minimal database interface the store needs. Implemented by
// *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads and writes backup records in the field_data_backups table.
// Safe for concurrent use: cleanup is a single conditional delete, so
// overlapping sweeps never double-count a row.
type Store struct {
	db        Execer
	clock     clock.Clock
	retention time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock substitutes the time source, for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithRetention overrides the default retention window applied when a
// backup is created without an explicit expiry.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// NewStore creates a backup store. Defaults (wall clock, 90-day retention)
// are resolved here so callers and tests see the same defaulting logic.
func NewStore(db Execer, opts ...Option) *Store {
	s := &Store{
		db:        db,
		clock:     clock.C,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a snapshot to persist.
type CreateParams struct {
	FieldID   *string
	FormID    string
	Table     string
	Column    string
	Snapshot  []Row
	Type      string
	CreatedBy string

	// RetentionUntil overrides the store's default retention when set.
	RetentionUntil *time.Time
}

// Create validates and persists a snapshot. Every snapshot element must
// carry both its row id and value; a malformed element fails the whole
// write with ErrInvalidSnapshot before anything is stored.
func (s *Store) Create(ctx context.Context, p CreateParams) (*Record, error) {
	for i, row := range p.Snapshot {
		if row.RowID == nil {
			return nil, fmt.Errorf("%w: element %d missing rowId", ErrInvalidSnapshot, i)
		}
		if row.Value == nil {
			return nil, fmt.Errorf("%w: element %d missing value", ErrInvalidSnapshot, i)
		}
	}

	now := s.clock.Now().UTC()
	rec := &Record{
		ID:         uuid.NewString(),
		FieldID:    p.FieldID,
		FormID:     p.FormID,
		Table:      p.Table,
		Column:     p.Column,
		Snapshot:   p.Snapshot,
		BackupType: p.Type,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  now,
	}
	if p.RetentionUntil != nil {
		rec.RetentionUntil = p.RetentionUntil
	} else {
		until := now.Add(s.retention)
		rec.RetentionUntil = &until
	}

	snapshot := rec.Snapshot
	if snapshot == nil {
		snapshot = []Row{}
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO field_data_backups
			(id, field_id, form_id, table_name, column_name, data_snapshot, backup_type, retention_until, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.FieldID, rec.FormID, rec.Table, rec.Column, snapshotJSON, rec.BackupType, rec.RetentionUntil, rec.CreatedBy, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting backup: %w", err)
	}
	return rec, nil
}

// Get returns one backup by id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectBackup+` WHERE id = $1`, id)
	rec, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying backup: %w", err)
	}
	return rec, nil
}

// FindByForm returns all backups for a form, newest first.
func (s *Store) FindByForm(ctx context.Context, formID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, selectBackup+` WHERE form_id = $1 ORDER BY created_at DESC`, formID)
	if err != nil {
		return nil, fmt.Errorf("querying backups by form: %w", err)
	}
	return collectBackups(rows)
}

// CleanupExpired deletes every backup whose retention window has passed.
// The delete is a single conditional statement, so concurrent sweeps
// observe disjoint row sets and never double-delete. Returns the number of
// rows removed by this invocation.
//
// The statement runs under Postgres's per-statement snapshot: a backup
// inserted mid-sweep is not considered until the next sweep.
func (s *Store) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM field_data_backups
		WHERE retention_until IS NOT NULL AND retention_until < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired backups: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted backups: %w", err)
	}
	return int(n), nil
}

// FindExpiringSoon returns backups whose retention expires within the given
// number of days, soonest first. Backups that never expire are excluded;
// already-expired backups still awaiting a sweep are included.
func (s *Store) FindExpiringSoon(ctx context.Context, withinDays int) ([]*Record, error) {
	now := s.clock.Now().UTC()
	cutoff := now.Add(time.Duration(withinDays) * 24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, selectBackup+`
		WHERE retention_until IS NOT NULL AND retention_until <= $1
		ORDER BY retention_until ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying expiring backups: %w", err)
	}
	return collectBackups(rows)
}

const selectBackup = `
	SELECT id, field_id, form_id, table_name, column_name, data_snapshot, backup_type, retention_until, created_by, created_at
	FROM field_data_backups`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBackup(row rowScanner) (*Record, error) {
	var (
		rec          Record
		fieldID      sql.NullString
		snapshotJSON []byte
		retention    sql.NullTime
	)
	err := row.Scan(&rec.ID, &fieldID, &rec.FormID, &rec.Table, &rec.Column,
		&snapshotJSON, &rec.BackupType, &retention, &rec.CreatedBy, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if fieldID.Valid {
		rec.FieldID = &fieldID.String
	}
	if retention.Valid {
		t := retention.Time
		rec.RetentionUntil = &t
	}
	if len(snapshotJSON) > 0 {
		if err := json.Unmarshal(snapshotJSON, &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
		}
	}
	if rec.Snapshot == nil {
		rec.Snapshot = []Row{}
	}
	return &rec, nil
}

func collectBackups(rows *sql.Rows) ([]*Record, error) {
	defer func() { _ = rows.Close() }()

	recs := make([]*Record, 0, 8)
	for rows.Next() {
		rec, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning backup: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
