package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/mmdsgate/internal/core/auth"
	"github.com/solatis/mmdsgate/internal/core/config"
	"github.com/solatis/mmdsgate/internal/core/db"
	"github.com/spf13/cobra"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Issue and revoke translator API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key; the key is printed once",
	RunE: func(cmd *cobra.Command, args []string) error {
		clientID, _ := cmd.Flags().GetString("client-id")
		secretID, _ := cmd.Flags().GetString("secret-id")

		authenticator, database, err := openAuthenticator()
		if err != nil {
			return err
		}
		defer database.Close()

		keyID, key, err := authenticator.IssueKey(clientID, secretID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "api_key_id: %s\napi_key:    %s\n", keyID, key)
		return nil
	},
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		authenticator, database, err := openAuthenticator()
		if err != nil {
			return err
		}
		defer database.Close()

		return authenticator.RevokeKey(args[0])
	},
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyRevokeCmd)
	apiKeyCreateCmd.Flags().String("client-id", "", "client the key belongs to")
	apiKeyCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (default: lowest configured ID)")
	apiKeyCreateCmd.MarkFlagRequired("client-id")
}

func openAuthenticator() (*auth.Authenticator, *sqlx.DB, error) {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return nil, nil, fmt.Errorf("no HMAC secrets configured (set MMDS_HMAC_SECRET environment variable)")
	}

	database, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	if err := db.MigrateUp(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return auth.NewAuthenticator(secrets, queries), database, nil
}

func openDB() (*sqlx.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
