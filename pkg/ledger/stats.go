package ledger

import (
	"context"
	"fmt"

	"github.com/warin/fieldshift/pkg/migration"
)

// TypeStats counts outcomes for one migration type.
type TypeStats struct {
	Success int
	Failed  int
}

// Stats aggregates a form's migration history.
type Stats struct {
	Total      int
	Successful int
	Failed     int
	ByType     map[migration.Type]TypeStats
}

// Statistics aggregates outcome counts for a form, grouped by migration
// type. Forms with no history yield zero counts and an empty ByType map.
func (s *Store) Statistics(ctx context.Context, formID string) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT migration_type, success, COUNT(*)
		FROM field_migrations
		WHERE form_id = $1
		GROUP BY migration_type, success
	`, formID)
	if err != nil {
		return nil, fmt.Errorf("querying migration statistics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &Stats{ByType: make(map[migration.Type]TypeStats)}
	for rows.Next() {
		var (
			typ     string
			success bool
			count   int
		)
		if err := rows.Scan(&typ, &success, &count); err != nil {
			return nil, fmt.Errorf("scanning statistics row: %w", err)
		}

		mt := migration.Type(typ)
		ts := stats.ByType[mt]
		if success {
			ts.Success += count
			stats.Successful += count
		} else {
			ts.Failed += count
			stats.Failed += count
		}
		stats.ByType[mt] = ts
		stats.Total += count
	}
	return stats, rows.Err()
}
