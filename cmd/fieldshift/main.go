// Package main is the fieldshift CLI.
//
// The CLI supports:
//   - serve: run the migration engine (worker loop + retention sweeper)
//   - migrate: apply the engine's own tables to the database
//   - enqueue: submit field migration jobs
//   - status: show a form's job counts
//   - history: show a form's migration ledger and statistics
//   - backups: list, inspect and restore column snapshots
//   - cleanup: prune old jobs and expired backups
//
// Commands that touch the database read the connection settings from
// fieldshift.yaml, FIELDSHIFT_* environment variables, or flags.
package main

func main() {
	Execute()
}
