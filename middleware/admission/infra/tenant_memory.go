package infra

import (
	"context"
	"sort"
	"sync"

	"admission-gateway/middleware/admission/domain"
)

// MemoryTenantStore é o cadastro de tenants em processo.
type MemoryTenantStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Tenant
	byKey map[string]domain.Tenant
}

func NewMemoryTenantStore(seed ...domain.Tenant) *MemoryTenantStore {
	s := &MemoryTenantStore{
		byID:  make(map[string]domain.Tenant),
		byKey: make(map[string]domain.Tenant),
	}
	for _, t := range seed {
		s.byID[t.ID] = t
		s.byKey[t.APIKey] = t
	}
	return s
}

func (s *MemoryTenantStore) GetByAPIKey(_ context.Context, apiKey string) (domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byKey[apiKey]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (s *MemoryTenantStore) Add(_ context.Context, t domain.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byID[t.ID]; dup {
		return domain.ErrDuplicateTenant
	}
	if _, dup := s.byKey[t.APIKey]; dup {
		return domain.ErrDuplicateTenant
	}
	s.byID[t.ID] = t
	s.byKey[t.APIKey] = t
	return nil
}

func (s *MemoryTenantStore) List(_ context.Context) ([]domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Tenant, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
