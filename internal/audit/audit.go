// Package audit records record-lifecycle and repair events. Emission is
// asynchronous and lossy by design: an audit failure must never fail the
// operation that produced the event.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the tracking service.
const (
	ActionRecordCreated = "record.created"
	ActionRecordDeleted = "record.deleted"
	ActionCountersReset = "counters.reset"
)

// Event is one audit entry.
type Event struct {
	ID           uuid.UUID
	Action       string
	RecordID     uuid.UUID
	Section      string
	DateReceived string
	Detail       string
	Timestamp    time.Time
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Recorder buffers events on a channel consumed by Run. Emit never blocks;
// when the buffer is full the event is dropped and counted in the log.
type Recorder struct {
	store  Store
	inbox  chan Event
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		inbox:  make(chan Event, 256),
		logger: logger,
	}
}

// Emit queues an event for persistence.
func (r *Recorder) Emit(action string, recordID uuid.UUID, section, date, detail string) {
	event := Event{
		ID:           uuid.New(),
		Action:       action,
		RecordID:     recordID,
		Section:      section,
		DateReceived: date,
		Detail:       detail,
		Timestamp:    time.Now(),
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.Warn("audit buffer full, dropping event", "action", action)
	}
}

// Run consumes the inbox until ctx is cancelled. Store failures are logged
// and the loop keeps going.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-r.inbox:
			if err := r.store.Append(ctx, event); err != nil {
				r.logger.ErrorContext(ctx, "append audit event",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
