package postgres

import (
	"context"
	"fmt"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// ChainStore implements storage.ChainStore using PostgreSQL.
type ChainStore struct {
	pool *Pool
}

// NewChainStore creates a new ChainStore.
func NewChainStore(pool *Pool) *ChainStore {
	return &ChainStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChainStore = (*ChainStore)(nil)

// Upsert inserts the chain name if unseen and returns the row id.
// The no-op DO UPDATE makes RETURNING yield the existing id on conflict,
// so concurrent writers racing on the same new name converge on one row.
func (s *ChainStore) Upsert(ctx context.Context, name string) (int32, error) {
	if name == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO chains (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	var id int32
	if err := s.pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert chain: %w", err)
	}
	return id, nil
}

// GetByName retrieves a chain by exact name. Returns ErrNotFound if not exists.
func (s *ChainStore) GetByName(ctx context.Context, name string) (*domain.Chain, error) {
	query := `
		SELECT id, name, created_at
		FROM chains
		WHERE name = $1
	`

	var c domain.Chain
	err := s.pool.QueryRow(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get chain by name: %w", err)
	}
	return &c, nil
}
