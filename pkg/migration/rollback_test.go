package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRollback_AddColumn(t *testing.T) {
	got := DeriveRollback(TypeAddColumn, "form_f1", "age", ColumnChange{}, ColumnChange{
		Definition: &ColumnDefinition{Type: "INTEGER", Nullable: true},
	})
	require.NotNil(t, got)
	assert.Equal(t, "ALTER TABLE form_f1 DROP COLUMN age;", *got)
}

func TestDeriveRollback_DropColumn(t *testing.T) {
	t.Run("recreates the captured definition", func(t *testing.T) {
		got := DeriveRollback(TypeDropColumn, "form_f1", "age", ColumnChange{
			Definition: &ColumnDefinition{Type: "INTEGER", Nullable: true},
		}, ColumnChange{})
		require.NotNil(t, got)
		assert.Equal(t, "ALTER TABLE form_f1 ADD COLUMN age INTEGER;", *got)
	})

	t.Run("carries NOT NULL and DEFAULT", func(t *testing.T) {
		def := "0"
		got := DeriveRollback(TypeDropColumn, "form_f1", "age", ColumnChange{
			Definition: &ColumnDefinition{Type: "INTEGER", Nullable: false, Default: &def},
		}, ColumnChange{})
		require.NotNil(t, got)
		assert.Equal(t, "ALTER TABLE form_f1 ADD COLUMN age INTEGER NOT NULL DEFAULT 0;", *got)
	})

	t.Run("nil without a captured definition", func(t *testing.T) {
		assert.Nil(t, DeriveRollback(TypeDropColumn, "form_f1", "age", ColumnChange{}, ColumnChange{}))
	})
}

func TestDeriveRollback_RenameColumn(t *testing.T) {
	t.Run("renames back", func(t *testing.T) {
		got := DeriveRollback(TypeRenameColumn, "form_f1", "age", ColumnChange{
			Rename: &ColumnRename{Name: "age"},
		}, ColumnChange{
			Rename: &ColumnRename{Name: "years"},
		})
		require.NotNil(t, got)
		assert.Equal(t, "ALTER TABLE form_f1 RENAME COLUMN years TO age;", *got)
	})

	t.Run("nil without the old name", func(t *testing.T) {
		assert.Nil(t, DeriveRollback(TypeRenameColumn, "form_f1", "age", ColumnChange{}, ColumnChange{
			Rename: &ColumnRename{Name: "years"},
		}))
	})
}

func TestDeriveRollback_ModifyColumn(t *testing.T) {
	t.Run("reapplies the prior type", func(t *testing.T) {
		got := DeriveRollback(TypeModifyColumn, "form_f1", "age", ColumnChange{
			Definition: &ColumnDefinition{Type: "TEXT"},
		}, ColumnChange{
			Definition: &ColumnDefinition{Type: "INTEGER"},
		})
		require.NotNil(t, got)
		assert.Equal(t, "ALTER TABLE form_f1 ALTER COLUMN age TYPE TEXT;", *got)
	})

	t.Run("nil without the prior type", func(t *testing.T) {
		assert.Nil(t, DeriveRollback(TypeModifyColumn, "form_f1", "age", ColumnChange{}, ColumnChange{}))
	})
}

func TestDeriveRollback_UnknownType(t *testing.T) {
	assert.Nil(t, DeriveRollback(Type("NONSENSE"), "form_f1", "age", ColumnChange{}, ColumnChange{}))
}
