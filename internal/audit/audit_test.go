package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type AuditSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestAuditSuite(t *testing.T) {
	suite.Run(t, new(AuditSuite))
}

func (s *AuditSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *AuditSuite) TestListRecentNewestFirst() {
	for _, action := range []string{ActionRecordCreated, ActionRecordDeleted, ActionCountersReset} {
		s.Require().NoError(s.store.Append(s.ctx, Event{ID: uuid.New(), Action: action}))
	}

	events, err := s.store.ListRecent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(ActionCountersReset, events[0].Action)
	s.Equal(ActionRecordDeleted, events[1].Action)

	all, err := s.store.ListRecent(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *AuditSuite) TestRecorderPersistsEmittedEvents() {
	recorder := NewRecorder(s.store, slog.Default())

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = recorder.Run(ctx)
	}()

	recordID := uuid.New()
	recorder.Emit(ActionRecordCreated, recordID, "INVES", "2026-02-18", "DTS-INVES-260218-01")

	s.Eventually(func() bool {
		events, err := s.store.ListRecent(s.ctx, 1)
		return err == nil && len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := s.store.ListRecent(s.ctx, 1)
	s.Require().NoError(err)
	event := events[0]
	s.Equal(ActionRecordCreated, event.Action)
	s.Equal(recordID, event.RecordID)
	s.Equal("INVES", event.Section)
	s.Equal("2026-02-18", event.DateReceived)
	s.Equal("DTS-INVES-260218-01", event.Detail)
	s.NotEqual(uuid.Nil, event.ID)
	s.False(event.Timestamp.IsZero())

	cancel()
	<-done
}

func (s *AuditSuite) TestEmitNeverBlocks() {
	recorder := NewRecorder(s.store, slog.Default())

	// No Run loop draining: overflow past the buffer must drop, not hang.
	for i := 0; i < 300; i++ {
		recorder.Emit(ActionRecordCreated, uuid.New(), "INVES", "2026-02-18", "")
	}
}
