package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Upsert inserts the pool or overwrites all mutable fields keyed by pool_id.
func (s *PoolStore) Upsert(ctx context.Context, p *domain.Pool) error {
	if p == nil || p.PoolID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pools (
			pool_id, chain_id, project_id, symbol, stablecoin, il_risk,
			exposure, reward_tokens, underlying_tokens, pool_meta
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (pool_id) DO UPDATE SET
			chain_id = EXCLUDED.chain_id,
			project_id = EXCLUDED.project_id,
			symbol = EXCLUDED.symbol,
			stablecoin = EXCLUDED.stablecoin,
			il_risk = EXCLUDED.il_risk,
			exposure = EXCLUDED.exposure,
			reward_tokens = EXCLUDED.reward_tokens,
			underlying_tokens = EXCLUDED.underlying_tokens,
			pool_meta = EXCLUDED.pool_meta,
			updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		p.PoolID,
		p.ChainID,
		p.ProjectID,
		p.Symbol,
		p.Stablecoin,
		p.ILRisk,
		p.Exposure,
		p.RewardTokens,
		p.UnderlyingTokens,
		p.PoolMeta,
	)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}
	return nil
}

// GetByID retrieves a pool by its external id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(ctx context.Context, poolID string) (*domain.Pool, error) {
	query := `
		SELECT pool_id, chain_id, project_id, symbol, stablecoin, il_risk,
			exposure, reward_tokens, underlying_tokens, pool_meta,
			created_at, updated_at
		FROM pools
		WHERE pool_id = $1
	`

	row := s.pool.QueryRow(ctx, query, poolID)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by id: %w", err)
	}
	return p, nil
}

// Delete removes a pool; pool_snapshots rows follow by ON DELETE CASCADE.
func (s *PoolStore) Delete(ctx context.Context, poolID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pools WHERE pool_id = $1`, poolID)
	if err != nil {
		return fmt.Errorf("delete pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPool scans a single row into a Pool.
func scanPool(row pgx.Row) (*domain.Pool, error) {
	var p domain.Pool

	err := row.Scan(
		&p.PoolID,
		&p.ChainID,
		&p.ProjectID,
		&p.Symbol,
		&p.Stablecoin,
		&p.ILRisk,
		&p.Exposure,
		&p.RewardTokens,
		&p.UnderlyingTokens,
		&p.PoolMeta,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}
