package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"volunteer_chat/internal/repository"
	"volunteer_chat/pkg/jwt"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.UsesMemoryStorage() {
			return errors.New("migrate needs STORAGE_DRIVER=postgres")
		}

		dbPool, err := connectPostgres(cmd.Context(), cfg.Database, appLogger)
		if err != nil {
			return err
		}
		defer dbPool.Close()

		return repository.Migrate(cmd.Context(), dbPool, appLogger)
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run maintenance jobs once",
}

var expireFeaturedCmd = &cobra.Command{
	Use:   "expire-featured",
	Short: "Expire featured projects whose end date has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")

		a, err := newApp(cmd.Context(), cfg, appLogger, migrate)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.expiry.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "expired=%d notified=%d emailed=%d mail_failed=%d\n", result.Expired, result.Notified, result.Emailed, result.MailFailed)
		return nil
	},
}

// tokenCmd mints an access token for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user-id")
		role, _ := cmd.Flags().GetString("role")
		name, _ := cmd.Flags().GetString("name")
		if userID <= 0 {
			return errors.New("user-id must be positive")
		}

		token, err := jwt.GenerateAccessToken(userID, role, name, cfg.JWT.AccessSecret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
