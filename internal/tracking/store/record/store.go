// Package record persists correspondence records. Implementations are
// interface-driven so the allocator, validator, and resetter stay testable
// and the backend can be swapped at startup without touching business code.
package record

import (
	"context"

	"github.com/google/uuid"

	"doctrack/internal/tracking/models"
)

// Store is the record persistence contract.
//
// ListBySectionAndDate returns the (section, dateReceived) partition used by
// the per-section scope. ListByDate returns every record sharing the date
// regardless of section; the office-wide scope is date-scoped but
// section-independent, so its reconciliation reads this wider set.
type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error)
	ListBySectionAndDate(ctx context.Context, section, date string) ([]*models.Record, error)
	ListByDate(ctx context.Context, date string) ([]*models.Record, error)
	Update(ctx context.Context, rec *models.Record) error
	Delete(ctx context.Context, id uuid.UUID) error
}
