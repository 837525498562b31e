// Package migration defines the domain types shared by the ledger, queue,
// and executor: migration kinds, column-change payloads, and the audit
// record with its rollback rules.
package migration

import (
	"encoding/json"
	"fmt"
)

// Type identifies the kind of schema change a migration performs.
type Type string

const (
	TypeAddColumn    Type = "ADD_COLUMN"
	TypeDropColumn   Type = "DROP_COLUMN"
	TypeModifyColumn Type = "MODIFY_COLUMN"
	TypeRenameColumn Type = "RENAME_COLUMN"
)

// Valid reports whether t is one of the known migration types.
func (t Type) Valid() bool {
	switch t {
	case TypeAddColumn, TypeDropColumn, TypeModifyColumn, TypeRenameColumn:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// ColumnChange describes the before or after state of a column for one
// migration. Exactly one of Definition or Rename is set, keyed by the
// migration type: add/drop/modify migrations carry a Definition, rename
// migrations carry a Rename.
type ColumnChange struct {
	Definition *ColumnDefinition `json:"-"`
	Rename     *ColumnRename     `json:"-"`
}

// ColumnDefinition captures a column's physical definition.
type ColumnDefinition struct {
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// ColumnRename captures a column name before or after a rename.
type ColumnRename struct {
	Name string `json:"name"`
}

// MarshalJSON serializes whichever variant is set. An empty ColumnChange
// marshals as null, matching a migration with no captured state.
func (c ColumnChange) MarshalJSON() ([]byte, error) {
	switch {
	case c.Definition != nil && c.Rename != nil:
		return nil, fmt.Errorf("column change: both definition and rename set")
	case c.Definition != nil:
		return json.Marshal(c.Definition)
	case c.Rename != nil:
		return json.Marshal(c.Rename)
	}
	return []byte("null"), nil
}

// UnmarshalJSON inspects the object shape: a "name" key selects the rename
// variant, a "type" key the definition variant.
func (c *ColumnChange) UnmarshalJSON(data []byte) error {
	*c = ColumnChange{}
	if string(data) == "null" {
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("column change: %w", err)
	}
	if _, ok := probe["name"]; ok {
		var r ColumnRename
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		c.Rename = &r
		return nil
	}

	var d ColumnDefinition
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	c.Definition = &d
	return nil
}

// IsZero reports whether no variant is set.
func (c ColumnChange) IsZero() bool {
	return c.Definition == nil && c.Rename == nil
}
