package migration

import "fmt"

// DeriveRollback computes the reversal statement for a successful migration,
// or nil when no reversal is derivable from the captured column state.
//
// Policy:
//   - ADD_COLUMN reverses to a DROP COLUMN.
//   - DROP_COLUMN reverses by re-creating the definition captured in
//     oldValue; without a captured definition there is nothing to rebuild.
//   - RENAME_COLUMN renames back to oldValue's name.
//   - MODIFY_COLUMN re-applies the prior type from oldValue.
//
// Callers must only invoke this for successful migrations; a failed
// migration never has a rollback statement because the reached state is
// unknown.
func DeriveRollback(typ Type, table, column string, oldValue, newValue ColumnChange) *string {
	var stmt string
	switch typ {
	case TypeAddColumn:
		stmt = fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, column)

	case TypeDropColumn:
		def := oldValue.Definition
		if def == nil || def.Type == "" {
			return nil
		}
		stmt = fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def.Type)
		if !def.Nullable {
			stmt += " NOT NULL"
		}
		if def.Default != nil {
			stmt += fmt.Sprintf(" DEFAULT %s", *def.Default)
		}
		stmt += ";"

	case TypeRenameColumn:
		if oldValue.Rename == nil || oldValue.Rename.Name == "" {
			return nil
		}
		newName := column
		if newValue.Rename != nil && newValue.Rename.Name != "" {
			newName = newValue.Rename.Name
		}
		stmt = fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", table, newName, oldValue.Rename.Name)

	case TypeModifyColumn:
		if oldValue.Definition == nil || oldValue.Definition.Type == "" {
			return nil
		}
		stmt = fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;", table, column, oldValue.Definition.Type)

	default:
		return nil
	}
	return &stmt
}
