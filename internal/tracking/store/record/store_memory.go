package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"doctrack/internal/tracking/models"
	"doctrack/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and single-process deployments.
type InMemory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[uuid.UUID]models.Record)}
}

// Create assigns the record's ID and timestamps and stores a copy.
func (s *InMemory) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[rec.ID] = *rec
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := rec
	return &out, nil
}

func (s *InMemory) ListBySectionAndDate(_ context.Context, section, date string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r models.Record) bool {
		return r.Section == section && r.DateReceived == date
	}), nil
}

func (s *InMemory) ListByDate(_ context.Context, date string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r models.Record) bool {
		return r.DateReceived == date
	}), nil
}

func (s *InMemory) Update(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		return sentinel.ErrNotFound
	}
	rec.UpdatedAt = time.Now()
	s.records[rec.ID] = *rec
	return nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// collect copies matching records sorted by creation time so list results are
// deterministic. Callers hold at least the read lock.
func (s *InMemory) collect(match func(models.Record) bool) []*models.Record {
	var out []*models.Record
	for _, rec := range s.records {
		if match(rec) {
			r := rec
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
