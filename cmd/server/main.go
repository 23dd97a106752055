package main

import (
	"log"

	"github.com/spf13/cobra"
	"volunteer_chat/internal/config"
	"volunteer_chat/pkg/logger"
)

var (
	cfg       *config.Config
	appLogger logger.Logger

	rootCmd = &cobra.Command{
		Use:   "volunteer-chat",
		Short: "Support chat, notifications and points ledger for the volunteer platform",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			appLogger = logger.NewWithWriter(cmd.OutOrStdout(), cfg.Log.Level, cfg.Log.Format)
			return nil
		},
		// Running the binary without a subcommand starts the server.
		RunE: runServe,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().Bool("migrate", false, "apply the database schema before running")

	rootCmd.AddCommand(serveCmd, migrateCmd, jobsCmd, tokenCmd)
	jobsCmd.AddCommand(expireFeaturedCmd)

	tokenCmd.Flags().Int64("user-id", 0, "subject id")
	tokenCmd.Flags().String("role", "volunteer", "role claim (volunteer, organization, sponsor, admin)")
	tokenCmd.Flags().String("name", "", "display name claim")
	_ = tokenCmd.MarkFlagRequired("user-id")
}
