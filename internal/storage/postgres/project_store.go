package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// ProjectStore implements storage.ProjectStore using PostgreSQL.
type ProjectStore struct {
	pool *Pool
}

// NewProjectStore creates a new ProjectStore.
func NewProjectStore(pool *Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProjectStore = (*ProjectStore)(nil)

// UpsertName inserts a bare project row for the given name if unseen and
// returns the row id. Same atomic upsert-returning-id shape as chains.
func (s *ProjectStore) UpsertName(ctx context.Context, name string) (int32, error) {
	if name == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO projects (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	var id int32
	if err := s.pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert project name: %w", err)
	}
	return id, nil
}

// UpsertMetadata overwrites all descriptive/metric fields of the project
// matched by name, creating the row when absent. The conflict target is the
// unique name column, so the only unique violation that can surface here is
// the slug constraint; it maps to ErrDuplicateKey.
func (s *ProjectStore) UpsertMetadata(ctx context.Context, p *domain.Project) (int32, error) {
	if p == nil || p.Name == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO projects (
			name, slug, symbol, chain, chains, category, description, twitter,
			listed_at, tvl, tvl_prev_day, tvl_prev_week, tvl_prev_month,
			mcap, fdv, change_1h, change_1d, change_7d, chain_tvls, tokens,
			audits, audit_note, forked_from, oracles, parent_protocols, other_chains
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26
		)
		ON CONFLICT (name) DO UPDATE SET
			slug = EXCLUDED.slug,
			symbol = EXCLUDED.symbol,
			chain = EXCLUDED.chain,
			chains = EXCLUDED.chains,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			twitter = EXCLUDED.twitter,
			listed_at = EXCLUDED.listed_at,
			tvl = EXCLUDED.tvl,
			tvl_prev_day = EXCLUDED.tvl_prev_day,
			tvl_prev_week = EXCLUDED.tvl_prev_week,
			tvl_prev_month = EXCLUDED.tvl_prev_month,
			mcap = EXCLUDED.mcap,
			fdv = EXCLUDED.fdv,
			change_1h = EXCLUDED.change_1h,
			change_1d = EXCLUDED.change_1d,
			change_7d = EXCLUDED.change_7d,
			chain_tvls = EXCLUDED.chain_tvls,
			tokens = EXCLUDED.tokens,
			audits = EXCLUDED.audits,
			audit_note = EXCLUDED.audit_note,
			forked_from = EXCLUDED.forked_from,
			oracles = EXCLUDED.oracles,
			parent_protocols = EXCLUDED.parent_protocols,
			other_chains = EXCLUDED.other_chains,
			updated_at = NOW()
		RETURNING id
	`

	var id int32
	err := s.pool.QueryRow(ctx, query,
		p.Name,
		p.Slug,
		p.Symbol,
		p.Chain,
		p.Chains,
		p.Category,
		p.Description,
		p.Twitter,
		p.ListedAt,
		p.TVL,
		p.TVLPrevDay,
		p.TVLPrevWeek,
		p.TVLPrevMonth,
		p.Mcap,
		p.FDV,
		p.Change1h,
		p.Change1d,
		p.Change7d,
		p.ChainTVLs,
		p.Tokens,
		p.Audits,
		p.AuditNote,
		p.ForkedFrom,
		p.Oracles,
		p.ParentProtocols,
		p.OtherChains,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, storage.ErrDuplicateKey
		}
		return 0, fmt.Errorf("upsert project metadata: %w", err)
	}
	return id, nil
}

// GetByName retrieves a project by exact name. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetByName(ctx context.Context, name string) (*domain.Project, error) {
	row := s.pool.QueryRow(ctx, selectProject+` WHERE name = $1`, name)
	p, err := scanProject(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	return p, nil
}

// GetBySlug retrieves a project by slug. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	row := s.pool.QueryRow(ctx, selectProject+` WHERE slug = $1`, slug)
	p, err := scanProject(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get project by slug: %w", err)
	}
	return p, nil
}

const selectProject = `
	SELECT id, name, slug, symbol, chain, chains, category, description, twitter,
		listed_at, tvl, tvl_prev_day, tvl_prev_week, tvl_prev_month,
		mcap, fdv, change_1h, change_1d, change_7d, chain_tvls, tokens,
		audits, audit_note, forked_from, oracles, parent_protocols, other_chains,
		created_at, updated_at
	FROM projects`

// scanProject scans a single row into a Project.
func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Symbol,
		&p.Chain,
		&p.Chains,
		&p.Category,
		&p.Description,
		&p.Twitter,
		&p.ListedAt,
		&p.TVL,
		&p.TVLPrevDay,
		&p.TVLPrevWeek,
		&p.TVLPrevMonth,
		&p.Mcap,
		&p.FDV,
		&p.Change1h,
		&p.Change1d,
		&p.Change7d,
		&p.ChainTVLs,
		&p.Tokens,
		&p.Audits,
		&p.AuditNote,
		&p.ForkedFrom,
		&p.Oracles,
		&p.ParentProtocols,
		&p.OtherChains,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}
