package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	byKey  map[snapshotKey]*domain.PoolSnapshot
	nextID int64
}

type snapshotKey struct {
	poolID string
	date   string // calendar date, YYYY-MM-DD
}

func keyFor(poolID string, date time.Time) snapshotKey {
	return snapshotKey{poolID: poolID, date: date.UTC().Format("2006-01-02")}
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{byKey: make(map[snapshotKey]*domain.PoolSnapshot)}
}

// Upsert inserts the snapshot or overwrites all metric fields keyed by
// (pool_id, snapshot_date). id and created_at survive same-day re-runs.
func (s *SnapshotStore) Upsert(_ context.Context, snap *domain.PoolSnapshot) error {
	if snap == nil || snap.PoolID == "" || snap.SnapshotDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyFor(snap.PoolID, snap.SnapshotDate)
	snapCopy := *snap

	if existing, exists := s.byKey[key]; exists {
		snapCopy.ID = existing.ID
		snapCopy.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		snapCopy.ID = s.nextID
		snapCopy.CreatedAt = time.Now().UTC()
	}

	s.byKey[key] = &snapCopy
	return nil
}

// GetByPoolAndDate retrieves the snapshot for a pool on a calendar date.
// Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByPoolAndDate(_ context.Context, poolID string, date time.Time) (*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.byKey[keyFor(poolID, date)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	snapCopy := *snap
	return &snapCopy, nil
}

// GetByPool retrieves all snapshots for a pool ordered by snapshot_date ASC.
func (s *SnapshotStore) GetByPool(_ context.Context, poolID string) ([]*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snaps []*domain.PoolSnapshot
	for key, snap := range s.byKey {
		if key.poolID == poolID {
			snapCopy := *snap
			snaps = append(snaps, &snapCopy)
		}
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].SnapshotDate.Before(snaps[j].SnapshotDate)
	})
	return snaps, nil
}

// deleteByPool removes all snapshots for a pool. Used by PoolStore.Delete
// to mirror the cascade constraint.
func (s *SnapshotStore) deleteByPool(poolID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.byKey {
		if key.poolID == poolID {
			delete(s.byKey, key)
		}
	}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
