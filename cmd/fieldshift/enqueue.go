package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/warin/fieldshift"
	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/executor/pgexec"
	"github.com/warin/fieldshift/pkg/queue"
)

var (
	enqueueForm        string
	enqueueField       string
	enqueueTable       string
	enqueueColumn      string
	enqueueDataType    string
	enqueueBackup      bool
	enqueueOldColumn   string
	enqueueNewColumn   string
	enqueueOldType     string
	enqueueNewType     string
	enqueueRequestedBy string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Submit a field migration job",
	Long: `Submit a migration job to the durable queue. The job is admitted
immediately and executed by a running serve instance in priority order:
deletions first, then renames and type changes, then additions.`,
}

var enqueueAddCmd = &cobra.Command{
	Use:   "add-field",
	Short: "Add a column to a form table",
	Example: `  # Add a nullable INTEGER column
  fieldshift enqueue add-field --form f1 --table form_f1 --column age --data-type INTEGER`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitJob(cmd.Context(), queue.AddField{
			FormID:   enqueueForm,
			FieldID:  optional(enqueueField),
			Table:    enqueueTable,
			Column:   enqueueColumn,
			DataType: enqueueDataType,
		})
	},
}

var enqueueDeleteCmd = &cobra.Command{
	Use:   "delete-field",
	Short: "Drop a column from a form table",
	Example: `  # Drop with a pre-delete snapshot
  fieldshift enqueue delete-field --form f1 --table form_f1 --column age --backup`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitJob(cmd.Context(), queue.DeleteField{
			FormID:  enqueueForm,
			FieldID: optional(enqueueField),
			Table:   enqueueTable,
			Column:  enqueueColumn,
			Backup:  enqueueBackup,
		})
	},
}

var enqueueRenameCmd = &cobra.Command{
	Use:   "rename-field",
	Short: "Rename a column in a form table",
	Example: `  # Rename a column in place
  fieldshift enqueue rename-field --form f1 --table form_f1 --old-column age --new-column years`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitJob(cmd.Context(), queue.RenameField{
			FormID:    enqueueForm,
			FieldID:   optional(enqueueField),
			Table:     enqueueTable,
			OldColumn: enqueueOldColumn,
			NewColumn: enqueueNewColumn,
		})
	},
}

var enqueueChangeTypeCmd = &cobra.Command{
	Use:   "change-type",
	Short: "Change a column's data type",
	Example: `  # Convert a column with an explicit USING cast
  fieldshift enqueue change-type --form f1 --table form_f1 --column age --old-type TEXT --new-type INTEGER`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitJob(cmd.Context(), queue.ChangeType{
			FormID:  enqueueForm,
			FieldID: optional(enqueueField),
			Table:   enqueueTable,
			Column:  enqueueColumn,
			OldType: enqueueOldType,
			NewType: enqueueNewType,
		})
	},
}

func init() {
	pf := enqueueCmd.PersistentFlags()
	pf.StringVar(&enqueueForm, "form", "", "owning form id (required)")
	pf.StringVar(&enqueueField, "field", "", "field id within the form")
	pf.StringVar(&enqueueTable, "table", "", "physical table name (required)")
	pf.StringVar(&enqueueRequestedBy, "requested-by", "", "actor for the audit trail (default: OS user)")

	enqueueAddCmd.Flags().StringVar(&enqueueColumn, "column", "", "column name (required)")
	enqueueAddCmd.Flags().StringVar(&enqueueDataType, "data-type", "", "SQL data type (required)")

	enqueueDeleteCmd.Flags().StringVar(&enqueueColumn, "column", "", "column name (required)")
	enqueueDeleteCmd.Flags().BoolVar(&enqueueBackup, "backup", false, "snapshot the column's data before dropping")

	enqueueRenameCmd.Flags().StringVar(&enqueueOldColumn, "old-column", "", "current column name (required)")
	enqueueRenameCmd.Flags().StringVar(&enqueueNewColumn, "new-column", "", "new column name (required)")

	enqueueChangeTypeCmd.Flags().StringVar(&enqueueColumn, "column", "", "column name (required)")
	enqueueChangeTypeCmd.Flags().StringVar(&enqueueOldType, "old-type", "", "current SQL data type")
	enqueueChangeTypeCmd.Flags().StringVar(&enqueueNewType, "new-type", "", "target SQL data type (required)")

	enqueueCmd.AddCommand(enqueueAddCmd)
	enqueueCmd.AddCommand(enqueueDeleteCmd)
	enqueueCmd.AddCommand(enqueueRenameCmd)
	enqueueCmd.AddCommand(enqueueChangeTypeCmd)
}

// submitJob admits one job through an unstarted engine. Admission only
// writes the job row; a running serve instance picks it up.
func submitJob(ctx context.Context, p queue.Payload) error {
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	jobID, err := enqueueJob(ctx, db, p)
	if err != nil {
		return err
	}
	fmt.Printf("Job %s enqueued.\n", jobID)
	return nil
}

func enqueueJob(ctx context.Context, db *sql.DB, p queue.Payload) (string, error) {
	eng := fieldshift.New(db, pgexec.New(db, newBackupStore(db)),
		fieldshift.WithConfig(engineConfig()),
	)
	jobID, err := eng.Enqueue(ctx, p, requestedBy())
	if err != nil {
		return "", cli.ValidationError("enqueuing job", err)
	}
	return jobID, nil
}

// requestedBy resolves the audit actor: flag first, then the OS user.
func requestedBy() string {
	if enqueueRequestedBy != "" {
		return enqueueRequestedBy
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
