package backup

import (
	"context"
	"fmt"

	"github.com/lib/pq"
)

// SQLRestoreExecutor restores snapshot rows with one UPDATE per row against
// the live table. The row id column defaults to "id".
type SQLRestoreExecutor struct {
	db       Execer
	idColumn string
}

// NewSQLRestoreExecutor creates a restore executor over the given handle.
func NewSQLRestoreExecutor(db Execer) *SQLRestoreExecutor {
	return &SQLRestoreExecutor{db: db, idColumn: "id"}
}

// WithIDColumn overrides the row id column name.
func (e *SQLRestoreExecutor) WithIDColumn(name string) *SQLRestoreExecutor {
	e.idColumn = name
	return e
}

var _ RestoreExecutor = (*SQLRestoreExecutor)(nil)

// RestoreRow writes one captured value back. Table and column names are
// caller-controlled identifiers, so they are quoted, not parameterized.
func (e *SQLRestoreExecutor) RestoreRow(ctx context.Context, table, column string, rowID, value any) error {
	stmt := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s = $2",
		pq.QuoteIdentifier(table), pq.QuoteIdentifier(column), pq.QuoteIdentifier(e.idColumn))
	res, err := e.db.ExecContext(ctx, stmt, value, rowID)
	if err != nil {
		return fmt.Errorf("restoring row %v: %w", rowID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("restoring row %v: row no longer exists", rowID)
	}
	return nil
}
