package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert inserts the snapshot or overwrites all metric fields keyed by
// (pool_id, snapshot_date). id and created_at survive same-day re-runs.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.PoolSnapshot) error {
	if snap == nil || snap.PoolID == "" || snap.SnapshotDate.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pool_snapshots (
			pool_id, snapshot_date, fetched_at, tvl_usd, apy_base, apy_reward,
			apy, apy_pct_1d, apy_pct_7d, apy_pct_30d, il_7d, apy_base_7d,
			apy_mean_30d, volume_usd_1d, volume_usd_7d, apy_base_inception,
			mu, sigma, observation_count, outlier, predicted_class,
			predicted_probability, predicted_confidence_bin, predictions
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20, $21,
			$22, $23, $24
		)
		ON CONFLICT (pool_id, snapshot_date) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at,
			tvl_usd = EXCLUDED.tvl_usd,
			apy_base = EXCLUDED.apy_base,
			apy_reward = EXCLUDED.apy_reward,
			apy = EXCLUDED.apy,
			apy_pct_1d = EXCLUDED.apy_pct_1d,
			apy_pct_7d = EXCLUDED.apy_pct_7d,
			apy_pct_30d = EXCLUDED.apy_pct_30d,
			il_7d = EXCLUDED.il_7d,
			apy_base_7d = EXCLUDED.apy_base_7d,
			apy_mean_30d = EXCLUDED.apy_mean_30d,
			volume_usd_1d = EXCLUDED.volume_usd_1d,
			volume_usd_7d = EXCLUDED.volume_usd_7d,
			apy_base_inception = EXCLUDED.apy_base_inception,
			mu = EXCLUDED.mu,
			sigma = EXCLUDED.sigma,
			observation_count = EXCLUDED.observation_count,
			outlier = EXCLUDED.outlier,
			predicted_class = EXCLUDED.predicted_class,
			predicted_probability = EXCLUDED.predicted_probability,
			predicted_confidence_bin = EXCLUDED.predicted_confidence_bin,
			predictions = EXCLUDED.predictions
	`

	_, err := s.pool.Exec(ctx, query,
		snap.PoolID,
		snap.SnapshotDate,
		snap.FetchedAt,
		snap.TVLUsd,
		snap.ApyBase,
		snap.ApyReward,
		snap.Apy,
		snap.ApyPct1D,
		snap.ApyPct7D,
		snap.ApyPct30D,
		snap.IL7D,
		snap.ApyBase7D,
		snap.ApyMean30D,
		snap.VolumeUsd1D,
		snap.VolumeUsd7D,
		snap.ApyBaseInception,
		snap.Mu,
		snap.Sigma,
		snap.ObservationCount,
		snap.Outlier,
		snap.PredictedClass,
		snap.PredictedProbability,
		snap.PredictedConfidenceBin,
		snap.Predictions,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetByPoolAndDate retrieves the snapshot for a pool on a calendar date.
// Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByPoolAndDate(ctx context.Context, poolID string, date time.Time) (*domain.PoolSnapshot, error) {
	row := s.pool.QueryRow(ctx, selectSnapshot+` WHERE pool_id = $1 AND snapshot_date = $2`, poolID, date)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by pool and date: %w", err)
	}
	return snap, nil
}

// GetByPool retrieves all snapshots for a pool ordered by snapshot_date ASC.
func (s *SnapshotStore) GetByPool(ctx context.Context, poolID string) ([]*domain.PoolSnapshot, error) {
	rows, err := s.pool.Query(ctx, selectSnapshot+` WHERE pool_id = $1 ORDER BY snapshot_date ASC`, poolID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by pool: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.PoolSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

const selectSnapshot = `
	SELECT id, pool_id, snapshot_date, fetched_at, tvl_usd, apy_base,
		apy_reward, apy, apy_pct_1d, apy_pct_7d, apy_pct_30d, il_7d,
		apy_base_7d, apy_mean_30d, volume_usd_1d, volume_usd_7d,
		apy_base_inception, mu, sigma, observation_count, outlier,
		predicted_class, predicted_probability, predicted_confidence_bin,
		predictions, created_at
	FROM pool_snapshots`

// scanSnapshot scans a single row into a PoolSnapshot.
func scanSnapshot(row pgx.Row) (*domain.PoolSnapshot, error) {
	var snap domain.PoolSnapshot

	err := row.Scan(
		&snap.ID,
		&snap.PoolID,
		&snap.SnapshotDate,
		&snap.FetchedAt,
		&snap.TVLUsd,
		&snap.ApyBase,
		&snap.ApyReward,
		&snap.Apy,
		&snap.ApyPct1D,
		&snap.ApyPct7D,
		&snap.ApyPct30D,
		&snap.IL7D,
		&snap.ApyBase7D,
		&snap.ApyMean30D,
		&snap.VolumeUsd1D,
		&snap.VolumeUsd7D,
		&snap.ApyBaseInception,
		&snap.Mu,
		&snap.Sigma,
		&snap.ObservationCount,
		&snap.Outlier,
		&snap.PredictedClass,
		&snap.PredictedProbability,
		&snap.PredictedConfidenceBin,
		&snap.Predictions,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &snap, nil
}
