package memory

import (
	"context"
	"sync"
	"time"

	"defillama-etl/internal/domain"
	"defillama-etl/internal/storage"
)

// ProjectStore is an in-memory implementation of storage.ProjectStore.
type ProjectStore struct {
	mu     sync.RWMutex
	byName map[string]*domain.Project
	bySlug map[string]*domain.Project
	nextID int32
}

// NewProjectStore creates a new in-memory project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		byName: make(map[string]*domain.Project),
		bySlug: make(map[string]*domain.Project),
	}
}

// UpsertName inserts a bare project row for the given name if unseen and
// returns the row id.
func (s *ProjectStore) UpsertName(_ context.Context, name string) (int32, error) {
	if name == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, exists := s.byName[name]; exists {
		return p.ID, nil
	}

	s.nextID++
	now := time.Now().UTC()
	s.byName[name] = &domain.Project{
		ID:        s.nextID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.nextID, nil
}

// UpsertMetadata overwrites all descriptive/metric fields of the project
// matched by name, creating the row when absent. Returns ErrDuplicateKey
// when the slug is already claimed by a different project.
func (s *ProjectStore) UpsertMetadata(_ context.Context, p *domain.Project) (int32, error) {
	if p == nil || p.Name == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Slug != nil {
		if other, exists := s.bySlug[*p.Slug]; exists && other.Name != p.Name {
			return 0, storage.ErrDuplicateKey
		}
	}

	now := time.Now().UTC()

	existing, exists := s.byName[p.Name]
	if !exists {
		s.nextID++
		existing = &domain.Project{
			ID:        s.nextID,
			Name:      p.Name,
			CreatedAt: now,
		}
		s.byName[p.Name] = existing
	}

	if existing.Slug != nil {
		delete(s.bySlug, *existing.Slug)
	}

	id, createdAt := existing.ID, existing.CreatedAt
	updated := *p
	updated.ID = id
	updated.CreatedAt = createdAt
	updated.UpdatedAt = now
	*existing = updated

	if existing.Slug != nil {
		s.bySlug[*existing.Slug] = existing
	}

	return id, nil
}

// GetByName retrieves a project by exact name. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetByName(_ context.Context, name string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.byName[name]
	if !exists {
		return nil, storage.ErrNotFound
	}

	projectCopy := *p
	return &projectCopy, nil
}

// GetBySlug retrieves a project by slug. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetBySlug(_ context.Context, slug string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.bySlug[slug]
	if !exists {
		return nil, storage.ErrNotFound
	}

	projectCopy := *p
	return &projectCopy, nil
}

var _ storage.ProjectStore = (*ProjectStore)(nil)
