package memory

import (
	"context"
	"sync"
	"time"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// ChainStore is an in-memory implementation of storage.ChainStore.
type ChainStore struct {
	mu     sync.RWMutex
	byName map[string]*domain.Chain
	nextID int32
}

// NewChainStore creates a new in-memory chain store.
func NewChainStore() *ChainStore {
	return &ChainStore{byName: make(map[string]*domain.Chain)}
}

// Upsert inserts the chain name if unseen and returns the row id.
func (s *ChainStore) Upsert(_ context.Context, name string) (int32, error) {
	if name == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.byName[name]; exists {
		return c.ID, nil
	}

	s.nextID++
	s.byName[name] = &domain.Chain{
		ID:        s.nextID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	return s.nextID, nil
}

// GetByName retrieves a chain by exact name. Returns ErrNotFound if not exists.
func (s *ChainStore) GetByName(_ context.Context, name string) (*domain.Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.byName[name]
	if !exists {
		return nil, storage.ErrNotFound
	}

	chainCopy := *c
	return &chainCopy, nil
}

var _ storage.ChainStore = (*ChainStore)(nil)
