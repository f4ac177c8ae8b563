package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"defillama-etl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "llamaetl",
	Short: "llamaetl - load DeFiLlama yield pool data into PostgreSQL",
	Long: `llamaetl fetches the DeFiLlama pool and protocol feeds and upserts
them into a normalized PostgreSQL schema: chains and projects as dimension
tables, pools keyed by external id, and one pool_snapshots row per pool per
UTC calendar day. Repeated runs on the same day are idempotent.

Configuration comes from the environment: DATABASE_URL (required),
SOURCE_URL and PROTOCOLS_URL (defaulted to the public endpoints), plus
FETCH_TIMEOUT, FAILURE_THRESHOLD, SCHEDULE and METRICS_ADDR.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}
