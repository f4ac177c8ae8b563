package memory

import (
	"context"
	"sync"
	"time"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
//
// Delete cascades into an attached SnapshotStore when one is set, mirroring
// the ON DELETE CASCADE constraint in Postgres.
type PoolStore struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Pool
	snapshots *SnapshotStore
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{byID: make(map[string]*domain.Pool)}
}

// AttachSnapshots wires the snapshot store that Delete cascades into.
func (s *PoolStore) AttachSnapshots(snapshots *SnapshotStore) {
	s.snapshots = snapshots
}

// Upsert inserts the pool or overwrites all mutable fields keyed by pool_id.
func (s *PoolStore) Upsert(_ context.Context, p *domain.Pool) error {
	if p == nil || p.PoolID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	poolCopy := *p
	poolCopy.UpdatedAt = now

	if existing, exists := s.byID[p.PoolID]; exists {
		poolCopy.CreatedAt = existing.CreatedAt
	} else {
		poolCopy.CreatedAt = now
	}

	s.byID[p.PoolID] = &poolCopy
	return nil
}

// GetByID retrieves a pool by its external id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByID(_ context.Context, poolID string) (*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.byID[poolID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	poolCopy := *p
	return &poolCopy, nil
}

// Delete removes a pool and cascades into the attached snapshot store.
func (s *PoolStore) Delete(ctx context.Context, poolID string) error {
	s.mu.Lock()
	_, exists := s.byID[poolID]
	delete(s.byID, poolID)
	s.mu.Unlock()

	if !exists {
		return storage.ErrNotFound
	}
	if s.snapshots != nil {
		s.snapshots.deleteByPool(poolID)
	}
	return nil
}

var _ storage.PoolStore = (*PoolStore)(nil)
