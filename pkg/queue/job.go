// Package queue is the durable, single-lane migration job queue. Jobs are
// rows in the migration_jobs table; one worker processes them end-to-end in
// priority order, retrying transient failures with exponential backoff and
// writing a ledger entry for every final outcome.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warin/fieldshift/pkg/migration"
)

// JobType identifies the schema change a job requests.
type JobType string

const (
	JobAddField    JobType = "ADD_FIELD"
	JobDeleteField JobType = "DELETE_FIELD"
	JobRenameField JobType = "RENAME_FIELD"
	JobChangeType  JobType = "CHANGE_TYPE"
)

// Priority tiers. Destructive work outranks additive work so that backups
// and cleanups are not starved behind a burst of additions. Within a tier,
// jobs run in enqueue order.
const (
	priorityAdd         = 1
	priorityAlter       = 5
	priorityDestructive = 10
)

// Priority returns the scheduling priority for the job type. Higher runs
// first.
func (t JobType) Priority() int {
	switch t {
	case JobDeleteField:
		return priorityDestructive
	case JobRenameField, JobChangeType:
		return priorityAlter
	default:
		return priorityAdd
	}
}

// MigrationType maps the job type to the ledger's migration type.
func (t JobType) MigrationType() migration.Type {
	switch t {
	case JobAddField:
		return migration.TypeAddColumn
	case JobDeleteField:
		return migration.TypeDropColumn
	case JobRenameField:
		return migration.TypeRenameColumn
	case JobChangeType:
		return migration.TypeModifyColumn
	}
	return ""
}

// State is a job's position in its lifecycle:
// waiting -> active -> completed | failed. A failed attempt with budget
// remaining moves back to waiting with a delayed not_before.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Payload is a job's typed argument block. Exactly one implementation per
// JobType; the worker switches over the type exhaustively.
type Payload interface {
	JobType() JobType
	validate() error
}

// AddField requests a new column.
type AddField struct {
	FormID   string  `json:"formId"`
	FieldID  *string `json:"fieldId"`
	Table    string  `json:"tableName"`
	Column   string  `json:"columnName"`
	DataType string  `json:"dataType"`
}

func (AddField) JobType() JobType { return JobAddField }

func (p AddField) validate() error {
	if p.FormID == "" || p.Table == "" || p.Column == "" || p.DataType == "" {
		return fmt.Errorf("add field: formId, tableName, columnName and dataType are required")
	}
	return nil
}

// DeleteField requests a column drop, optionally preceded by a snapshot.
type DeleteField struct {
	FormID  string  `json:"formId"`
	FieldID *string `json:"fieldId"`
	Table   string  `json:"tableName"`
	Column  string  `json:"columnName"`
	Backup  bool    `json:"backup"`
}

func (DeleteField) JobType() JobType { return JobDeleteField }

func (p DeleteField) validate() error {
	if p.FormID == "" || p.Table == "" || p.Column == "" {
		return fmt.Errorf("delete field: formId, tableName and columnName are required")
	}
	return nil
}

// RenameField requests a column rename.
type RenameField struct {
	FormID    string  `json:"formId"`
	FieldID   *string `json:"fieldId"`
	Table     string  `json:"tableName"`
	OldColumn string  `json:"oldColumnName"`
	NewColumn string  `json:"newColumnName"`
}

func (RenameField) JobType() JobType { return JobRenameField }

func (p RenameField) validate() error {
	if p.FormID == "" || p.Table == "" || p.OldColumn == "" || p.NewColumn == "" {
		return fmt.Errorf("rename field: formId, tableName, oldColumnName and newColumnName are required")
	}
	return nil
}

// ChangeType requests a column type change.
type ChangeType struct {
	FormID  string  `json:"formId"`
	FieldID *string `json:"fieldId"`
	Table   string  `json:"tableName"`
	Column  string  `json:"columnName"`
	OldType string  `json:"oldType"`
	NewType string  `json:"newType"`
}

func (ChangeType) JobType() JobType { return JobChangeType }

func (p ChangeType) validate() error {
	if p.FormID == "" || p.Table == "" || p.Column == "" || p.NewType == "" {
		return fmt.Errorf("change type: formId, tableName, columnName and newType are required")
	}
	return nil
}

// Job is one durable queue entry.
type Job struct {
	ID     string
	FormID string
	Type   JobType
	Args   json.RawMessage

	Priority    int
	State       State
	Attempts    int
	MaxAttempts int

	// RequestedBy is the identity of the actor who enqueued the change;
	// it becomes executed_by on the resulting ledger entry.
	RequestedBy string

	// NotBefore delays execution; retries land here so the delay survives
	// process restarts.
	NotBefore time.Time

	Error string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Payload decodes the job's argument block into its typed payload.
func (j *Job) Payload() (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch j.Type {
	case JobAddField:
		var v AddField
		err = json.Unmarshal(j.Args, &v)
		p = v
	case JobDeleteField:
		var v DeleteField
		err = json.Unmarshal(j.Args, &v)
		p = v
	case JobRenameField:
		var v RenameField
		err = json.Unmarshal(j.Args, &v)
		p = v
	case JobChangeType:
		var v ChangeType
		err = json.Unmarshal(j.Args, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, j.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", j.Type, err)
	}
	return p, nil
}

// payloadFormID extracts the owning form from a payload.
func payloadFormID(p Payload) string {
	switch v := p.(type) {
	case AddField:
		return v.FormID
	case DeleteField:
		return v.FormID
	case RenameField:
		return v.FormID
	case ChangeType:
		return v.FormID
	}
	return ""
}
