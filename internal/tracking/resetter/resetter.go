// Package resetter recomputes counters from the records that actually
// remain, after deletions or for manual repair. It owns all counter writes
// during repair and shares the allocator's per-pair serialization.
package resetter

import (
	"context"
	"errors"
	"fmt"

	"doctrack/internal/tracking/allocator"
	"doctrack/internal/tracking/metrics"
	"doctrack/internal/tracking/models"
	counterstore "doctrack/internal/tracking/store/counter"
	recordstore "doctrack/internal/tracking/store/record"
	"doctrack/pkg/platform/keylock"
	"doctrack/pkg/platform/sentinel"
)

// Result reports the recomputed maxima for both scopes.
type Result struct {
	HighestOffice  int `json:"highestOffice"`
	HighestSection int `json:"highestSection"`
}

// Resetter overwrites counters with the stored record maximum.
type Resetter struct {
	counters counterstore.Store
	records  recordstore.Store
	locks    *keylock.KeyedMutex
	metrics  *metrics.Metrics
}

func New(counters counterstore.Store, records recordstore.Store, locks *keylock.KeyedMutex, m *metrics.Metrics) *Resetter {
	return &Resetter{counters: counters, records: records, locks: locks, metrics: m}
}

// Reset recomputes both counters for the partition to the highest sequence
// actually present among remaining records (0 when none remain) and
// overwrites currentNumber unconditionally. lastDateUsed is preserved so a
// repair never changes rollover behavior. Idempotent: a second call with no
// intervening record changes writes the same values again.
//
// The section scope reads only the (section, date) partition; the
// office-wide scope reads every record sharing the date, matching how the
// allocator and validator treat it.
func (r *Resetter) Reset(ctx context.Context, section, date string) (*Result, error) {
	officeMax, err := r.resetScope(ctx, models.ScopeOffice, section, date)
	if err != nil {
		return nil, err
	}
	sectionMax, err := r.resetScope(ctx, models.ScopeSection, section, date)
	if err != nil {
		return nil, err
	}

	r.metrics.RecordReset()
	return &Result{HighestOffice: officeMax, HighestSection: sectionMax}, nil
}

func (r *Resetter) resetScope(ctx context.Context, scope models.Scope, section, date string) (int, error) {
	counterSection := section
	if scope == models.ScopeOffice {
		counterSection = ""
	}

	unlock := r.locks.Lock(allocator.LockKey(scope, counterSection))
	defer unlock()

	var max int
	err := counterstore.WithTx(ctx, r.counters, func(ctx context.Context) error {
		var recs []*models.Record
		var err error
		if scope == models.ScopeOffice {
			recs, err = r.records.ListByDate(ctx, date)
		} else {
			recs, err = r.records.ListBySectionAndDate(ctx, section, date)
		}
		if err != nil {
			return fmt.Errorf("scan records for %s reset: %w", scope, err)
		}

		max = 0
		for _, rec := range recs {
			if seq := rec.Sequence(scope); seq > max {
				max = seq
			}
		}

		ctr, err := r.counters.Get(ctx, scope, counterSection)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			// First repair for a never-allocated pair; materialize the row with
			// the partition's date so a later allocation for it continues the run.
			ctr = &models.Counter{Scope: scope, Section: counterSection, LastDateUsed: date}
		case err != nil:
			return fmt.Errorf("load counter for %s reset: %w", scope, err)
		}

		ctr.CurrentNumber = max
		if err := r.counters.Upsert(ctx, ctr); err != nil {
			return fmt.Errorf("overwrite counter for %s reset: %w", scope, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return max, nil
}
