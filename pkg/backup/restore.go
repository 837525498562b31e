package backup

import (
	"context"
	"fmt"
)

// RestoreExecutor writes captured values back into the target table.
// Implementations decide whether writes are row-by-row or batched; the
// store only requires that a returned error means the row was not written.
type RestoreExecutor interface {
	RestoreRow(ctx context.Context, table, column string, rowID, value any) error
}

// RestoreResult is the structured outcome of a restore. Restores never
// surface errors to the caller; failures are normalized here so API layers
// can render a uniform message.
type RestoreResult struct {
	Success       bool
	Message       string
	RestoredCount int
}

// Restore writes the snapshot's values back through the executor. An empty
// snapshot fails fast without touching the executor. The first executor
// failure aborts the restore and is reported in the result; by then no
// count is claimed, matching the caller-visible contract that a failed
// restore restored nothing it can vouch for.
func (s *Store) Restore(ctx context.Context, rec *Record, exec RestoreExecutor) RestoreResult {
	if rec.Count() == 0 {
		return RestoreResult{Success: false, Message: "No data to restore"}
	}

	for _, row := range rec.Snapshot {
		if err := exec.RestoreRow(ctx, rec.Table, rec.Column, row.RowID, row.Value); err != nil {
			return RestoreResult{
				Success: false,
				Message: fmt.Sprintf("Restore failed: %v", err),
			}
		}
	}

	return RestoreResult{
		Success:       true,
		Message:       fmt.Sprintf("Restored %d rows to %s.%s", rec.Count(), rec.Table, rec.Column),
		RestoredCount: rec.Count(),
	}
}
