package ledger

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warin/fieldshift/pkg/migration"
)

func TestStatistics(t *testing.T) {
	store, mock, _ := newMockStore(t)

	// 2 successful adds, 1 failed add, 1 successful drop.
	mock.ExpectQuery("SELECT migration_type, success, COUNT").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"migration_type", "success", "count"}).
			AddRow("ADD_COLUMN", true, 2).
			AddRow("ADD_COLUMN", false, 1).
			AddRow("DROP_COLUMN", true, 1))

	stats, err := store.Statistics(context.Background(), "f1")
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Successful)
	assert.Equal(t, 1, stats.Failed)

	assert.Equal(t, TypeStats{Success: 2, Failed: 1}, stats.ByType[migration.TypeAddColumn])
	assert.Equal(t, TypeStats{Success: 1, Failed: 0}, stats.ByType[migration.TypeDropColumn])
	_, ok := stats.ByType[migration.TypeRenameColumn]
	assert.False(t, ok, "types with no history are absent")
}

func TestStatistics_EmptyHistory(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("SELECT migration_type, success, COUNT").
		WithArgs("f9").
		WillReturnRows(sqlmock.NewRows([]string{"migration_type", "success", "count"}))

	stats, err := store.Statistics(context.Background(), "f9")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, stats.Successful)
	assert.Equal(t, 0, stats.Failed)
	assert.Empty(t, stats.ByType)
}
