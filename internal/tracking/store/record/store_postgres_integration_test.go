//go:build integration

package record_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"doctrack/internal/tracking/models"
	recordstore "doctrack/internal/tracking/store/record"
	"doctrack/pkg/platform/sentinel"
	"doctrack/pkg/testutil/containers"
)

type PostgresRecordSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *recordstore.Postgres
	ctx      context.Context
}

func TestPostgresRecordSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRecordSuite))
}

func (s *PostgresRecordSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = recordstore.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresRecordSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "records"))
}

func (s *PostgresRecordSuite) newRecord(section, date string, officeSeq, sectionSeq int) *models.Record {
	return &models.Record{
		Section:              section,
		DateReceived:         date,
		Subject:              "incoming memo",
		Sender:               "regional office",
		OfficeControlNumber:  "DTS-MC-260218-01",
		SectionControlNumber: "DTS-" + section + "-260218-01",
		OfficeSequence:       officeSeq,
		SectionSequence:      sectionSeq,
	}
}

func (s *PostgresRecordSuite) TestCreateAndFind() {
	rec := s.newRecord("INVES", "2026-02-18", 1, 1)
	s.Require().NoError(s.store.Create(s.ctx, rec))
	s.NotEqual(uuid.Nil, rec.ID)

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, found.ID)
	s.Equal("INVES", found.Section)
	s.Equal("2026-02-18", found.DateReceived, "DATE column round-trips as YYYY-MM-DD")
	s.Equal(1, found.OfficeSequence)
	s.Equal(1, found.SectionSequence)
}

func (s *PostgresRecordSuite) TestFindNotFound() {
	_, err := s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresRecordSuite) TestListFilters() {
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord("INVES", "2026-02-18", 1, 1)))
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord("INVES", "2026-02-18", 2, 2)))
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord("LEGAL", "2026-02-18", 3, 1)))
	s.Require().NoError(s.store.Create(s.ctx, s.newRecord("INVES", "2026-02-19", 1, 1)))

	bySection, err := s.store.ListBySectionAndDate(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)
	s.Len(bySection, 2)

	byDate, err := s.store.ListByDate(s.ctx, "2026-02-18")
	s.Require().NoError(err)
	s.Len(byDate, 3)

	empty, err := s.store.ListBySectionAndDate(s.ctx, "OPS", "2026-02-18")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *PostgresRecordSuite) TestUpdateDescriptiveFieldsOnly() {
	rec := s.newRecord("INVES", "2026-02-18", 1, 1)
	s.Require().NoError(s.store.Create(s.ctx, rec))

	rec.Subject = "revised memo"
	rec.Sender = "central office"
	s.Require().NoError(s.store.Update(s.ctx, rec))

	found, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("revised memo", found.Subject)
	s.Equal("central office", found.Sender)
	s.Equal(rec.SectionControlNumber, found.SectionControlNumber)

	s.ErrorIs(s.store.Update(s.ctx, &models.Record{ID: uuid.New()}), sentinel.ErrNotFound)
}

func (s *PostgresRecordSuite) TestDelete() {
	rec := s.newRecord("INVES", "2026-02-18", 1, 1)
	s.Require().NoError(s.store.Create(s.ctx, rec))

	s.Require().NoError(s.store.Delete(s.ctx, rec.ID))
	_, err := s.store.FindByID(s.ctx, rec.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, rec.ID), sentinel.ErrNotFound)
}
