// Package ingestion reconciles DeFiLlama feed snapshots into the
// relational schema: dimension resolution, pool/snapshot upserts and
// protocol-metadata enrichment.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/feed"
	"defillama-etl/internal/observability"
	"defillama-etl/internal/storage"
)

// ErrTooManyFailures aborts a run whose per-record write failures exceeded
// the configured threshold.
var ErrTooManyFailures = errors.New("too many record failures")

// DefaultFailureThreshold is the number of per-record write failures
// tolerated before the run aborts.
const DefaultFailureThreshold = 25

// PoolSource supplies the pool-list feed.
type PoolSource interface {
	FetchPools(ctx context.Context) ([]feed.PoolRecord, error)
}

// ProtocolSource supplies the protocol-metadata feed.
type ProtocolSource interface {
	FetchProtocols(ctx context.Context) ([]feed.ProtocolRecord, error)
}

// Options contains configuration for creating a Runner.
type Options struct {
	PoolSource     PoolSource
	ProtocolSource ProtocolSource
	Chains         storage.ChainStore
	Projects       storage.ProjectStore
	Pools          storage.PoolStore
	Snapshots      storage.SnapshotStore

	// FailureThreshold bounds per-record write failures before the run
	// aborts. Zero aborts on the first failure; negative selects
	// DefaultFailureThreshold.
	FailureThreshold int

	// Now overrides the run clock; snapshot_date derives from it. Default: time.Now.
	Now func() time.Time

	Logger *zap.SugaredLogger
}

// Runner executes one ingestion run: fetch both feeds, resolve dimensions,
// upsert pools and snapshots, then enrich project metadata.
type Runner struct {
	poolSource       PoolSource
	protocolSource   ProtocolSource
	chains           storage.ChainStore
	projects         storage.ProjectStore
	pools            storage.PoolStore
	snapshots        storage.SnapshotStore
	failureThreshold int
	now              func() time.Time
	logger           *zap.SugaredLogger
}

// Result is the end-of-run summary.
type Result struct {
	PoolsProcessed int
	PoolsSkipped   int
	PoolsFailed    int

	ProtocolsProcessed int
	ProtocolsSkipped   int
	ProtocolsFailed    int

	Duration time.Duration
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts Options) *Runner {
	failureThreshold := opts.FailureThreshold
	if failureThreshold < 0 {
		failureThreshold = DefaultFailureThreshold
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Runner{
		poolSource:       opts.PoolSource,
		protocolSource:   opts.ProtocolSource,
		chains:           opts.Chains,
		projects:         opts.Projects,
		pools:            opts.Pools,
		snapshots:        opts.Snapshots,
		failureThreshold: failureThreshold,
		now:              now,
		logger:           logger,
	}
}

// Run executes one full ingestion run. Transport and parse errors are fatal
// and surface before any write; per-record failures are counted and only
// become fatal past the failure threshold.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	started := r.now()
	result := &Result{}

	pools, protocols, err := r.fetch(ctx)
	if err != nil {
		observability.RecordRun("failed", r.now().Sub(started).Seconds())
		return nil, err
	}
	r.logger.Infow("feeds fetched", "pools", len(pools), "protocols", len(protocols))

	if err := r.ingestPools(ctx, pools, result); err != nil {
		result.Duration = r.now().Sub(started)
		observability.RecordRun("failed", result.Duration.Seconds())
		return result, err
	}

	if err := r.enrichProtocols(ctx, protocols, result); err != nil {
		result.Duration = r.now().Sub(started)
		observability.RecordRun("failed", result.Duration.Seconds())
		return result, err
	}

	result.Duration = r.now().Sub(started)
	observability.RecordRun("ok", result.Duration.Seconds())
	observability.RecordRunSuccess(r.now().Unix())

	r.logger.Infow("run complete",
		"pools_processed", result.PoolsProcessed,
		"pools_skipped", result.PoolsSkipped,
		"pools_failed", result.PoolsFailed,
		"protocols_processed", result.ProtocolsProcessed,
		"protocols_skipped", result.ProtocolsSkipped,
		"protocols_failed", result.ProtocolsFailed,
		"duration", result.Duration,
	)
	return result, nil
}

// fetch retrieves both feeds concurrently; they are independent documents.
// The protocol source is optional.
func (r *Runner) fetch(ctx context.Context) ([]feed.PoolRecord, []feed.ProtocolRecord, error) {
	type poolsFetch struct {
		records []feed.PoolRecord
		err     error
	}
	type protocolsFetch struct {
		records []feed.ProtocolRecord
		err     error
	}

	poolsCh := make(chan poolsFetch, 1)
	protocolsCh := make(chan protocolsFetch, 1)

	go func() {
		records, err := r.poolSource.FetchPools(ctx)
		poolsCh <- poolsFetch{records: records, err: err}
	}()
	go func() {
		if r.protocolSource == nil {
			protocolsCh <- protocolsFetch{}
			return
		}
		records, err := r.protocolSource.FetchProtocols(ctx)
		protocolsCh <- protocolsFetch{records: records, err: err}
	}()

	poolsRes := <-poolsCh
	protocolsRes := <-protocolsCh

	if poolsRes.err != nil {
		return nil, nil, poolsRes.err
	}
	if protocolsRes.err != nil {
		return nil, nil, protocolsRes.err
	}
	return poolsRes.records, protocolsRes.records, nil
}

// ingestPools upserts one Pool and one PoolSnapshot per record. Each pool's
// pool+snapshot upsert is one logical unit: a snapshot failure counts the
// whole record as failed.
func (r *Runner) ingestPools(ctx context.Context, records []feed.PoolRecord, result *Result) error {
	reconciler := NewReconciler(r.chains, r.projects)

	now := r.now().UTC()
	snapshotDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, rec := range records {
		if rec.Pool == "" {
			r.logger.Warnw("skipping pool record: missing pool id", "chain", rec.Chain, "project", rec.Project)
			result.PoolsSkipped++
			observability.RecordSkipped("pools")
			continue
		}

		chainID, projectID, err := reconciler.Resolve(ctx, rec.Chain, rec.Project)
		if errors.Is(err, ErrMissingIdentifiers) {
			r.logger.Warnw("skipping pool record: unresolvable dimensions",
				"pool", rec.Pool, "chain", rec.Chain, "project", rec.Project)
			result.PoolsSkipped++
			observability.RecordSkipped("pools")
			continue
		}
		if err != nil {
			if ferr := r.recordPoolFailure(rec.Pool, err, result); ferr != nil {
				return ferr
			}
			continue
		}

		pool := poolFromRecord(rec, chainID, projectID)
		if err := r.pools.Upsert(ctx, pool); err != nil {
			if ferr := r.recordPoolFailure(rec.Pool, err, result); ferr != nil {
				return ferr
			}
			continue
		}

		snapshot := snapshotFromRecord(rec, snapshotDate, now)
		if err := r.snapshots.Upsert(ctx, snapshot); err != nil {
			if ferr := r.recordPoolFailure(rec.Pool, err, result); ferr != nil {
				return ferr
			}
			continue
		}

		result.PoolsProcessed++
		observability.RecordProcessed("pools")
	}

	return nil
}

// recordPoolFailure counts one failed pool record and aborts the run once
// the threshold is exceeded.
func (r *Runner) recordPoolFailure(poolID string, err error, result *Result) error {
	r.logger.Errorw("pool record failed", "pool", poolID, "error", err)
	result.PoolsFailed++
	observability.RecordFailed("pools")

	if result.PoolsFailed > r.failureThreshold {
		return fmt.Errorf("%w: %d pool records failed (threshold %d), last error: %v",
			ErrTooManyFailures, result.PoolsFailed, r.failureThreshold, err)
	}
	return nil
}

// enrichProtocols applies the protocol-metadata pass.
func (r *Runner) enrichProtocols(ctx context.Context, records []feed.ProtocolRecord, result *Result) error {
	if len(records) == 0 {
		return nil
	}

	enricher := NewEnricher(r.projects, r.logger)

	for _, rec := range records {
		err := enricher.Apply(ctx, rec)
		switch {
		case err == nil:
			result.ProtocolsProcessed++
			observability.RecordProcessed("protocols")
		case errors.Is(err, ErrMissingIdentifiers):
			r.logger.Warnw("skipping protocol record: missing name", "slug", rec.Slug)
			result.ProtocolsSkipped++
			observability.RecordSkipped("protocols")
		case errors.Is(err, storage.ErrDuplicateKey):
			r.logger.Warnw("skipping protocol record: slug already claimed by another project",
				"name", rec.Name, "slug", rec.Slug)
			result.ProtocolsSkipped++
			observability.RecordSkipped("protocols")
		default:
			r.logger.Errorw("protocol record failed", "name", rec.Name, "error", err)
			result.ProtocolsFailed++
			observability.RecordFailed("protocols")

			if result.ProtocolsFailed > r.failureThreshold {
				return fmt.Errorf("%w: %d protocol records failed (threshold %d), last error: %v",
					ErrTooManyFailures, result.ProtocolsFailed, r.failureThreshold, err)
			}
		}
	}

	return nil
}

// poolFromRecord maps a feed record onto the pools row shape.
func poolFromRecord(rec feed.PoolRecord, chainID, projectID int32) *domain.Pool {
	return &domain.Pool{
		PoolID:           rec.Pool,
		ChainID:          chainID,
		ProjectID:        projectID,
		Symbol:           rec.Symbol,
		Stablecoin:       rec.Stablecoin,
		ILRisk:           rec.ILRisk,
		Exposure:         rec.Exposure,
		RewardTokens:     rec.RewardTokens,
		UnderlyingTokens: rec.UnderlyingTokens,
		PoolMeta:         rec.PoolMeta,
	}
}

// snapshotFromRecord maps a feed record onto the pool_snapshots row shape
// for the run's calendar date. Metric values pass through as provided;
// absent fields stay nil.
func snapshotFromRecord(rec feed.PoolRecord, snapshotDate, fetchedAt time.Time) *domain.PoolSnapshot {
	predictions := rec.PredictionFields()

	return &domain.PoolSnapshot{
		PoolID:                 rec.Pool,
		SnapshotDate:           snapshotDate,
		FetchedAt:              fetchedAt,
		TVLUsd:                 rec.TVLUsd,
		ApyBase:                rec.ApyBase,
		ApyReward:              rec.ApyReward,
		Apy:                    rec.Apy,
		ApyPct1D:               rec.ApyPct1D,
		ApyPct7D:               rec.ApyPct7D,
		ApyPct30D:              rec.ApyPct30D,
		IL7D:                   rec.IL7D,
		ApyBase7D:              rec.ApyBase7D,
		ApyMean30D:             rec.ApyMean30D,
		VolumeUsd1D:            rec.VolumeUsd1D,
		VolumeUsd7D:            rec.VolumeUsd7D,
		ApyBaseInception:       rec.ApyBaseInception,
		Mu:                     rec.Mu,
		Sigma:                  rec.Sigma,
		ObservationCount:       rec.Count,
		Outlier:                rec.Outlier,
		PredictedClass:         predictions.PredictedClass,
		PredictedProbability:   predictions.PredictedProbability,
		PredictedConfidenceBin: predictions.BinnedConfidence,
		Predictions:            objectOrNil(rec.Predictions),
	}
}

// objectOrNil drops empty and null JSON documents so they land as NULL
// rather than as a stored `{}`.
func objectOrNil(raw json.RawMessage) json.RawMessage {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "{}":
		return nil
	}
	return raw
}
