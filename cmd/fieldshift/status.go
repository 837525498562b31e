package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warin/fieldshift/internal/cli"
	"github.com/warin/fieldshift/pkg/queue"
)

var statusCmd = &cobra.Command{
	Use:   "status <form-id>",
	Short: "Show a form's job counts by state",
	Args:  cobra.ExactArgs(1),
	Example: `  # Show queue depth for a form
  fieldshift status f1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		formID := args[0]

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		counts, err := queue.NewPGStore(db).CountsByForm(ctx, formID)
		if err != nil {
			return cli.GeneralError("querying job counts", err)
		}

		fmt.Printf("Form %s:\n", formID)
		fmt.Printf("  waiting:    %d\n", counts.Waiting)
		fmt.Printf("  active:     %d\n", counts.Active)
		fmt.Printf("  completed:  %d\n", counts.Completed)
		fmt.Printf("  failed:     %d\n", counts.Failed)
		return nil
	},
}
