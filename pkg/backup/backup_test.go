package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCount(t *testing.T) {
	var nilRec *Record
	assert.Equal(t, 0, nilRec.Count())

	rec := &Record{}
	assert.Equal(t, 0, rec.Count())

	rec.Snapshot = []Row{{RowID: 1, Value: "a"}, {RowID: 2, Value: "b"}}
	assert.Equal(t, 2, rec.Count())
}

func TestRecordExpired(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	t.Run("no retention never expires", func(t *testing.T) {
		rec := &Record{}
		assert.False(t, rec.Expired(now))
	})

	t.Run("past retention is expired", func(t *testing.T) {
		past := now.Add(-time.Hour)
		rec := &Record{RetentionUntil: &past}
		assert.True(t, rec.Expired(now))
	})

	t.Run("future retention is not expired", func(t *testing.T) {
		future := now.Add(time.Hour)
		rec := &Record{RetentionUntil: &future}
		assert.False(t, rec.Expired(now))
	})
}

func TestDaysUntilExpiration(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	t.Run("nil for never-expiring records", func(t *testing.T) {
		rec := &Record{}
		assert.Nil(t, rec.DaysUntilExpiration(now))
	})

	t.Run("rounds partial days up", func(t *testing.T) {
		until := now.Add(36 * time.Hour)
		rec := &Record{RetentionUntil: &until}
		days := rec.DaysUntilExpiration(now)
		require.NotNil(t, days)
		assert.Equal(t, 2, *days)
	})

	t.Run("exact days are not rounded", func(t *testing.T) {
		until := now.Add(5 * 24 * time.Hour)
		rec := &Record{RetentionUntil: &until}
		days := rec.DaysUntilExpiration(now)
		require.NotNil(t, days)
		assert.Equal(t, 5, *days)
	})

	t.Run("expired records go negative", func(t *testing.T) {
		until := now.Add(-48 * time.Hour)
		rec := &Record{RetentionUntil: &until}
		days := rec.DaysUntilExpiration(now)
		require.NotNil(t, days)
		assert.Equal(t, -2, *days)
	})
}
