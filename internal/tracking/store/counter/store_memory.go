package counter

import (
	"context"
	"sync"

	"doctrack/internal/tracking/models"
	"doctrack/pkg/platform/sentinel"
)

type key struct {
	scope   models.Scope
	section string
}

// InMemory is a map-backed counter store.
type InMemory struct {
	mu       sync.RWMutex
	counters map[key]models.Counter
}

func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[key]models.Counter)}
}

func (s *InMemory) Get(_ context.Context, scope models.Scope, section string) (*models.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctr, ok := s.counters[key{scope: scope, section: section}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := ctr
	return &out, nil
}

func (s *InMemory) Upsert(_ context.Context, ctr *models.Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key{scope: ctr.Scope, section: ctr.Section}] = *ctr
	return nil
}
