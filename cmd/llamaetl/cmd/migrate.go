package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"defillama-etl/internal/logging"
	"defillama-etl/internal/storage/migrations"
	pgstore "defillama-etl/internal/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply all embedded SQL migrations in order against DATABASE_URL.

Migrations are idempotent; running migrate against an up-to-date database
is a no-op. Ingestion assumes the schema is already in place, so migrate
must run before the first "llamaetl run".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		zl, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer zl.Sync() //nolint:errcheck
		logger := zl.Sugar()

		ctx := cmd.Context()
		pool, err := pgstore.NewPoolWithRetry(ctx, cfg.DatabaseURL, cfg.DBConnectRetries, cfg.DBConnectDelay)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}

		logger.Info("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
