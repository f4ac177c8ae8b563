package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"defillama-etl/internal/feed"
	"defillama-etl/internal/ingestion"
	"defillama-etl/internal/logging"
	"defillama-etl/internal/observability"
	pgstore "defillama-etl/internal/storage/postgres"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion job once, or on a cron schedule",
	Long: `Fetch both feeds and upsert them into the database.

With SCHEDULE unset the job runs once and exits: 0 on success (including
sub-threshold per-record skips/failures), non-zero on any fatal condition.
With SCHEDULE set to a cron expression the process stays up and runs on
that schedule; METRICS_ADDR then optionally exposes /metrics and /health.

The schema must already exist (see "llamaetl migrate").`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngestion(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runIngestion(ctx context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	zl, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zl.Sync() //nolint:errcheck // stdout sync failure is not actionable
	logger := zl.Sugar()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infow("received signal, shutting down", "signal", sig)
		cancel()
	}()

	pool, err := pgstore.NewPoolWithRetry(ctx, cfg.DatabaseURL, cfg.DBConnectRetries, cfg.DBConnectDelay)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connection established")

	if cfg.Schedule == "" {
		return runOnce(ctx, pool, logger)
	}
	return runScheduled(ctx, pool, logger)
}

// runOnce executes a single ingestion run under the advisory lock.
func runOnce(ctx context.Context, pool *pgstore.Pool, logger *zap.SugaredLogger) error {
	lock, err := pool.TryIngestLock(ctx)
	if err != nil {
		return err
	}
	if lock == nil {
		return fmt.Errorf("another ingestion run holds the lock, refusing to overlap")
	}
	defer lock.Release(context.WithoutCancel(ctx)) //nolint:errcheck // lock dies with the session anyway

	client := feed.NewClient(cfg.SourceURL, cfg.ProtocolsURL, cfg.FetchTimeout)

	runner := ingestion.NewRunner(ingestion.Options{
		PoolSource:       client,
		ProtocolSource:   client,
		Chains:           pgstore.NewChainStore(pool),
		Projects:         pgstore.NewProjectStore(pool),
		Pools:            pgstore.NewPoolStore(pool),
		Snapshots:        pgstore.NewSnapshotStore(pool),
		FailureThreshold: cfg.FailureThreshold,
		Logger:           logger,
	})

	if _, err := runner.Run(ctx); err != nil {
		return fmt.Errorf("ingestion run: %w", err)
	}
	return nil
}

// runScheduled keeps the process up and triggers runs on the cron schedule.
func runScheduled(ctx context.Context, pool *pgstore.Pool, logger *zap.SugaredLogger) error {
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	// Scheduled firings must not overlap: a slow run would otherwise race
	// the next one for the advisory lock and fill the log with refusals.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	_, err := c.AddFunc(cfg.Schedule, func() {
		if err := runOnce(ctx, pool, logger); err != nil {
			logger.Errorw("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parse SCHEDULE %q: %w", cfg.Schedule, err)
	}

	logger.Infow("starting scheduler", "schedule", cfg.Schedule)
	c.Start()

	<-ctx.Done()

	stopCtx := c.Stop() // let an in-flight run finish
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timed out waiting for in-flight run")
	}
	return nil
}

// cronLogger adapts the zap logger to the cron.Logger interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

func serveMetrics(addr string, logger *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	})

	logger.Infow("starting metrics server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Errorw("metrics server error", "error", err)
	}
}
