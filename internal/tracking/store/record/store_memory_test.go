package record

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"doctrack/internal/tracking/models"
	"doctrack/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemorySuite) TestCreateAssignsIdentity() {
	rec := &models.Record{Section: "INVES", DateReceived: "2026-02-18"}
	s.Require().NoError(s.store.Create(s.ctx, rec))

	s.NotEqual(uuid.Nil, rec.ID)
	s.False(rec.CreatedAt.IsZero())
	s.False(rec.UpdatedAt.IsZero())

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, found.ID)
	s.Equal("INVES", found.Section)
}

func (s *InMemorySuite) TestFindByIDNotFound() {
	_, err := s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestListFilters() {
	mk := func(section, date string, created time.Time) {
		s.Require().NoError(s.store.Create(s.ctx, &models.Record{
			Section: section, DateReceived: date, CreatedAt: created,
		}))
	}
	base := time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)
	mk("INVES", "2026-02-18", base.Add(2*time.Minute))
	mk("INVES", "2026-02-18", base)
	mk("LEGAL", "2026-02-18", base.Add(time.Minute))
	mk("INVES", "2026-02-19", base)

	s.Run("by section and date, ordered by creation", func() {
		recs, err := s.store.ListBySectionAndDate(s.ctx, "INVES", "2026-02-18")
		s.Require().NoError(err)
		s.Require().Len(recs, 2)
		s.True(recs[0].CreatedAt.Before(recs[1].CreatedAt))
	})

	s.Run("by date spans sections", func() {
		recs, err := s.store.ListByDate(s.ctx, "2026-02-18")
		s.Require().NoError(err)
		s.Len(recs, 3)
	})

	s.Run("no matches yields empty", func() {
		recs, err := s.store.ListBySectionAndDate(s.ctx, "OPS", "2026-02-18")
		s.Require().NoError(err)
		s.Empty(recs)
	})
}

func (s *InMemorySuite) TestUpdate() {
	rec := &models.Record{Section: "INVES", DateReceived: "2026-02-18", Subject: "original"}
	s.Require().NoError(s.store.Create(s.ctx, rec))

	rec.Subject = "revised"
	s.Require().NoError(s.store.Update(s.ctx, rec))

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("revised", found.Subject)

	s.ErrorIs(s.store.Update(s.ctx, &models.Record{ID: uuid.New()}), sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestDelete() {
	rec := &models.Record{Section: "INVES", DateReceived: "2026-02-18"}
	s.Require().NoError(s.store.Create(s.ctx, rec))

	s.Require().NoError(s.store.Delete(s.ctx, rec.ID))
	_, err := s.store.FindByID(s.ctx, rec.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, rec.ID), sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestFindReturnsCopy() {
	rec := &models.Record{Section: "INVES", DateReceived: "2026-02-18", Subject: "original"}
	s.Require().NoError(s.store.Create(s.ctx, rec))

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	found.Subject = "mutated by caller"

	again, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("original", again.Subject)
}
