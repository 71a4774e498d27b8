package resetter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"doctrack/internal/tracking/controlno"
	"doctrack/internal/tracking/models"
	counterstore "doctrack/internal/tracking/store/counter"
	recordstore "doctrack/internal/tracking/store/record"
	"doctrack/pkg/platform/keylock"
)

type ResetterSuite struct {
	suite.Suite
	counters *counterstore.InMemory
	records  *recordstore.InMemory
	resetter *Resetter
	ctx      context.Context
}

func TestResetterSuite(t *testing.T) {
	suite.Run(t, new(ResetterSuite))
}

func (s *ResetterSuite) SetupTest() {
	s.counters = counterstore.NewInMemory()
	s.records = recordstore.NewInMemory()
	s.resetter = New(s.counters, s.records, keylock.New(), nil)
	s.ctx = context.Background()
}

func (s *ResetterSuite) addRecord(section, date string, officeSeq, sectionSeq int) {
	rec := &models.Record{
		Section:              section,
		DateReceived:         date,
		OfficeControlNumber:  controlno.Format("DTS", "", date, officeSeq),
		SectionControlNumber: controlno.Format("DTS", section, date, sectionSeq),
		OfficeSequence:       officeSeq,
		SectionSequence:      sectionSeq,
	}
	s.Require().NoError(s.records.Create(s.ctx, rec))
}

func (s *ResetterSuite) counter(scope models.Scope, section string) *models.Counter {
	ctr, err := s.counters.Get(s.ctx, scope, section)
	s.Require().NoError(err)
	return ctr
}

func (s *ResetterSuite) TestResetToRemainingMaximum() {
	// Counters claim more than the records that survived deletion.
	s.Require().NoError(s.counters.Upsert(s.ctx, &models.Counter{
		Scope: models.ScopeOffice, CurrentNumber: 5, LastDateUsed: "2026-02-18",
	}))
	s.Require().NoError(s.counters.Upsert(s.ctx, &models.Counter{
		Scope: models.ScopeSection, Section: "INVES", CurrentNumber: 5, LastDateUsed: "2026-02-18",
	}))
	s.addRecord("INVES", "2026-02-18", 1, 1)
	s.addRecord("INVES", "2026-02-18", 3, 3)

	result, err := s.resetter.Reset(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)
	s.Equal(3, result.HighestOffice)
	s.Equal(3, result.HighestSection)

	s.Equal(3, s.counter(models.ScopeOffice, "").CurrentNumber)
	s.Equal(3, s.counter(models.ScopeSection, "INVES").CurrentNumber)
}

func (s *ResetterSuite) TestEmptyPartitionResetsToZero() {
	s.Require().NoError(s.counters.Upsert(s.ctx, &models.Counter{
		Scope: models.ScopeSection, Section: "INVES", CurrentNumber: 7, LastDateUsed: "2026-02-18",
	}))

	result, err := s.resetter.Reset(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)
	s.Equal(0, result.HighestOffice)
	s.Equal(0, result.HighestSection)
	s.Equal(0, s.counter(models.ScopeSection, "INVES").CurrentNumber)
}

func (s *ResetterSuite) TestLastDateUsedPreserved() {
	// The counter has moved on to a newer date. Repairing yesterday's
	// partition must not drag rollover state backwards.
	s.Require().NoError(s.counters.Upsert(s.ctx, &models.Counter{
		Scope: models.ScopeSection, Section: "INVES", CurrentNumber: 2, LastDateUsed: "2026-02-19",
	}))
	s.addRecord("INVES", "2026-02-18", 1, 1)

	_, err := s.resetter.Reset(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)

	ctr := s.counter(models.ScopeSection, "INVES")
	s.Equal(1, ctr.CurrentNumber)
	s.Equal("2026-02-19", ctr.LastDateUsed)
}

func (s *ResetterSuite) TestMissingCounterMaterialized() {
	s.addRecord("INVES", "2026-02-18", 2, 2)

	result, err := s.resetter.Reset(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)
	s.Equal(2, result.HighestSection)

	ctr := s.counter(models.ScopeSection, "INVES")
	s.Equal(2, ctr.CurrentNumber)
	s.Equal("2026-02-18", ctr.LastDateUsed)
}

func (s *ResetterSuite) TestOfficeScopeSpansSections() {
	// The office maximum lives on a LEGAL record; resetting INVES must still
	// see it because office sequences are shared across sections.
	s.addRecord("INVES", "2026-02-18", 1, 1)
	s.addRecord("LEGAL", "2026-02-18", 4, 1)

	result, err := s.resetter.Reset(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)
	s.Equal(4, result.HighestOffice)
	s.Equal(1, result.HighestSection)
	s.Equal(4, s.counter(models.ScopeOffice, "").CurrentNumber)
}

func (s *ResetterSuite) TestIdempotent() {
	s.addRecord("INVES", "2026-02-18", 2, 2)

	first, err := s.resetter.Reset(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)
	second, err := s.resetter.Reset(s.ctx, "INVES", "2026-02-18")
	s.Require().NoError(err)
	s.Equal(first, second)
}
