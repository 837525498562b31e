package migratedb

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer is the minimal interface needed to apply the DDL. Implemented by
// *sql.DB, *sql.Tx, and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply creates the engine's tables if they do not exist. Uses a
// transaction when the handle supports it so the schema lands atomically
// or not at all.
func Apply(ctx context.Context, db Execer) error {
	if txer, ok := db.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	}); ok {
		tx, err := txer.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("starting transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("applying engine DDL: %w", err)
		}
		return tx.Commit()
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("applying engine DDL: %w", err)
	}
	return nil
}
