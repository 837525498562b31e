// Package migratedb creates the engine's own durable tables. The DDL is
// idempotent (IF NOT EXISTS throughout), so applying it on every process
// start is safe.
package migratedb

// ddl defines the three durable tables:
//   - field_migrations: the append-only migration ledger
//   - field_data_backups: pre-change column snapshots
//   - migration_jobs: the queue's durable job store
//
// backup_id on field_migrations is intentionally not a foreign key: the
// sweeper deletes expired backups while ledger rows are immutable and
// kept forever.
const ddl = `-- Field migration engine tables

CREATE TABLE IF NOT EXISTS field_data_backups (
    id TEXT PRIMARY KEY,
    field_id TEXT,
    form_id TEXT NOT NULL,
    table_name TEXT NOT NULL,
    column_name TEXT NOT NULL,
    data_snapshot JSONB NOT NULL DEFAULT '[]'::jsonb,
    backup_type TEXT NOT NULL,
    retention_until TIMESTAMPTZ,
    created_by TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_field_data_backups_form
ON field_data_backups (form_id);

-- Sweeps and expiring-soon queries filter on retention_until
CREATE INDEX IF NOT EXISTS idx_field_data_backups_retention
ON field_data_backups (retention_until)
WHERE retention_until IS NOT NULL;

CREATE TABLE IF NOT EXISTS field_migrations (
    id TEXT PRIMARY KEY,
    field_id TEXT,
    form_id TEXT NOT NULL,
    migration_type TEXT NOT NULL,
    table_name TEXT NOT NULL,
    column_name TEXT NOT NULL,
    old_value JSONB,
    new_value JSONB,
    backup_id TEXT,
    executed_by TEXT NOT NULL,
    executed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    success BOOLEAN NOT NULL,
    error_message TEXT,
    rollback_statement TEXT,
    CONSTRAINT failed_has_no_rollback CHECK (success OR rollback_statement IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_field_migrations_form
ON field_migrations (form_id, executed_at DESC);

CREATE INDEX IF NOT EXISTS idx_field_migrations_executed_at
ON field_migrations (executed_at);

CREATE TABLE IF NOT EXISTS migration_jobs (
    id TEXT PRIMARY KEY,
    form_id TEXT NOT NULL,
    job_type TEXT NOT NULL,
    args JSONB NOT NULL,
    priority INT NOT NULL,
    state TEXT NOT NULL,
    attempts INT NOT NULL DEFAULT 0,
    max_attempts INT NOT NULL,
    requested_by TEXT NOT NULL DEFAULT '',
    not_before TIMESTAMPTZ NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);

-- Claim order: runnable first, highest priority, oldest enqueue
CREATE INDEX IF NOT EXISTS idx_migration_jobs_claim
ON migration_jobs (state, not_before, priority DESC, created_at);

CREATE INDEX IF NOT EXISTS idx_migration_jobs_form
ON migration_jobs (form_id);
`
