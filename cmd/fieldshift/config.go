package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configShowSource bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  `Show the effective configuration after merging defaults, config file, and environment variables.`,
	Example: `  # Show effective configuration
  fieldshift config show

  # Show configuration with source file path
  fieldshift config show --source`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configShowSource {
			if configPath != "" {
				fmt.Printf("Config file: %s\n\n", configPath)
			} else {
				fmt.Println("Config file: (none, using defaults)")
				fmt.Println()
			}
		}

		fmt.Println("database:")
		if cfg.Database.URL != "" {
			fmt.Println("  url: (set)")
		} else {
			fmt.Printf("  host: %s\n", cfg.Database.Host)
			fmt.Printf("  port: %d\n", cfg.Database.Port)
			fmt.Printf("  name: %s\n", cfg.Database.Name)
			fmt.Printf("  user: %s\n", cfg.Database.User)
			fmt.Printf("  sslmode: %s\n", cfg.Database.SSLMode)
		}
		fmt.Println("queue:")
		fmt.Printf("  max_attempts: %d\n", cfg.Queue.MaxAttempts)
		fmt.Printf("  retry_initial: %s\n", cfg.Queue.RetryInitial)
		fmt.Printf("  retry_max: %s\n", cfg.Queue.RetryMax)
		fmt.Printf("  poll_interval: %s\n", cfg.Queue.PollInterval)
		fmt.Printf("  completed_retention: %s\n", cfg.Queue.CompletedRetention)
		fmt.Printf("  failed_retention: %s\n", cfg.Queue.FailedRetention)
		fmt.Println("backup:")
		fmt.Printf("  retention: %s\n", cfg.Backup.Retention)
		fmt.Println("sweeper:")
		fmt.Printf("  schedule: %s\n", cfg.Sweeper.Schedule)
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowSource, "source", false, "show config file source")
	configCmd.AddCommand(configShowCmd)
}
