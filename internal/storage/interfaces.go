package storage

import (
	"context"
	"time"

	"defillama-etl/internal/domain"
)

// ChainStore provides access to chains storage.
type ChainStore interface {
	// Upsert inserts the chain name if unseen and returns the row id.
	// Atomic: two callers racing on the same new name both get the same id.
	Upsert(ctx context.Context, name string) (int32, error)

	// GetByName retrieves a chain by exact name. Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, name string) (*domain.Chain, error)
}

// ProjectStore provides access to projects storage.
type ProjectStore interface {
	// UpsertName inserts a bare project row for the given name if unseen
	// and returns the row id. Existing rows are left untouched.
	// Atomic in the same sense as ChainStore.Upsert.
	UpsertName(ctx context.Context, name string) (int32, error)

	// UpsertMetadata overwrites all descriptive/metric fields of the
	// project matched by name, creating the row when absent, and returns
	// the row id. Returns ErrDuplicateKey when the record's slug is
	// already claimed by a different project.
	UpsertMetadata(ctx context.Context, p *domain.Project) (int32, error)

	// GetByName retrieves a project by exact name. Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, name string) (*domain.Project, error)

	// GetBySlug retrieves a project by slug. Returns ErrNotFound if not exists.
	GetBySlug(ctx context.Context, slug string) (*domain.Project, error)
}

// PoolStore provides access to pools storage.
type PoolStore interface {
	// Upsert inserts the pool or overwrites all mutable fields keyed by
	// pool_id. created_at is set once; updated_at is bumped on every write.
	Upsert(ctx context.Context, p *domain.Pool) error

	// GetByID retrieves a pool by its external id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, poolID string) (*domain.Pool, error)

	// Delete removes a pool and, by cascade, all its snapshots.
	Delete(ctx context.Context, poolID string) error
}

// SnapshotStore provides access to pool_snapshots storage.
type SnapshotStore interface {
	// Upsert inserts the snapshot or overwrites all metric fields keyed by
	// (pool_id, snapshot_date). id and created_at are preserved across
	// same-day re-runs; fetched_at is refreshed.
	Upsert(ctx context.Context, s *domain.PoolSnapshot) error

	// GetByPoolAndDate retrieves the snapshot for a pool on a calendar
	// date. Returns ErrNotFound if not exists.
	GetByPoolAndDate(ctx context.Context, poolID string, date time.Time) (*domain.PoolSnapshot, error)

	// GetByPool retrieves all snapshots for a pool ordered by snapshot_date ASC.
	GetByPool(ctx context.Context, poolID string) ([]*domain.PoolSnapshot, error)
}
