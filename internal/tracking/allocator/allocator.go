// Package allocator assigns the next sequence number for a
// (scope, section, date) partition. It owns all counter writes during
// allocation and self-heals counters left stale by out-of-band deletions.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"doctrack/internal/tracking/metrics"
	"doctrack/internal/tracking/models"
	counterstore "doctrack/internal/tracking/store/counter"
	recordstore "doctrack/internal/tracking/store/record"
	"doctrack/pkg/platform/keylock"
	"doctrack/pkg/platform/sentinel"
)

// Allocator computes and persists next sequence numbers.
//
// All counter read-modify-write cycles for one (scope, section) pair run
// under the shared keyed lock, which also serializes against the resetter.
// When the counter store supports transactions (Postgres), Allocate also
// wraps the cycle in one via counter.WithTx so Get takes a row lock and
// multi-replica deployments stay safe without the in-process lock helping.
// The memory and redis backends have no such lock and are single-process
// only.
type Allocator struct {
	counters counterstore.Store
	records  recordstore.Store
	locks    *keylock.KeyedMutex
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(counters counterstore.Store, records recordstore.Store, locks *keylock.KeyedMutex, logger *slog.Logger, m *metrics.Metrics) *Allocator {
	return &Allocator{
		counters: counters,
		records:  records,
		locks:    locks,
		logger:   logger,
		metrics:  m,
	}
}

// LockKey is the serialization key for one (scope, section) pair. The
// resetter uses the same keys so repair never interleaves with allocation.
func LockKey(scope models.Scope, section string) string {
	return string(scope) + "/" + section
}

// Allocate reserves and persists the next sequence number for the partition.
// Sequences restart at 1 whenever the date differs from the counter's last
// used date, including the very first allocation for the pair.
func (a *Allocator) Allocate(ctx context.Context, scope models.Scope, section, date string) (int, error) {
	unlock := a.locks.Lock(LockKey(scope, section))
	defer unlock()

	var next int
	err := counterstore.WithTx(ctx, a.counters, func(ctx context.Context) error {
		base, ctr, err := a.effectiveBase(ctx, scope, section, date)
		if err != nil {
			return err
		}

		next = base + 1
		ctr.CurrentNumber = next
		ctr.LastDateUsed = date
		if err := a.counters.Upsert(ctx, ctr); err != nil {
			return fmt.Errorf("advance counter %s/%s: %w", scope, section, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	a.metrics.RecordAllocation(string(scope))
	return next, nil
}

// Peek computes the sequence the next Allocate would return without
// advancing the counter. Best effort: a concurrent Allocate between Peek and
// the caller's commit can make the previewed number stale. Peek reads
// without a transaction; holding a row lock for a preview would only stall
// real allocations.
func (a *Allocator) Peek(ctx context.Context, scope models.Scope, section, date string) (int, error) {
	unlock := a.locks.Lock(LockKey(scope, section))
	defer unlock()

	base, _, err := a.effectiveBase(ctx, scope, section, date)
	if err != nil {
		return 0, err
	}
	a.metrics.RecordPreview(string(scope))
	return base + 1, nil
}

// effectiveBase loads (or lazily creates) the counter and computes the base
// the next sequence builds on: 0 after a date rollover, otherwise the stored
// value reconciled downward against the actual record maximum.
func (a *Allocator) effectiveBase(ctx context.Context, scope models.Scope, section, date string) (int, *models.Counter, error) {
	ctr, err := a.counters.Get(ctx, scope, section)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		ctr = &models.Counter{Scope: scope, Section: section, CurrentNumber: 0, LastDateUsed: date}
		return 0, ctr, nil
	case err != nil:
		return 0, nil, fmt.Errorf("load counter %s/%s: %w", scope, section, err)
	}

	if ctr.LastDateUsed != date {
		// Date rollover: each calendar day starts a fresh sequence.
		return 0, ctr, nil
	}

	base := ctr.CurrentNumber
	actualMax, any, err := a.storedMax(ctx, scope, section, date)
	if err != nil {
		return 0, nil, err
	}
	if any && actualMax < base {
		// The counter outran the records, usually after a manual deletion
		// that bypassed the resetter. Fall back to ground truth. The
		// opposite direction (records outrunning the counter) is left
		// alone: a reconciliation scan racing a concurrent allocation can
		// under-report, and the stored value must win then.
		a.logger.WarnContext(ctx, "counter ahead of stored records, self-healing",
			"scope", scope,
			"section", section,
			"date", date,
			"counter", base,
			"actual_max", actualMax,
		)
		a.metrics.RecordSelfHeal(string(scope))
		base = actualMax
	}
	return base, ctr, nil
}

// storedMax returns the highest sequence actually persisted for the scope's
// partition and whether the partition holds any records at all. An empty
// partition yields (0, false): numbers reserved ahead of record creation
// leave no trace in the record store, and reconciling against them would
// re-issue every reserved sequence. The office-wide scope spans every
// section sharing the date.
func (a *Allocator) storedMax(ctx context.Context, scope models.Scope, section, date string) (int, bool, error) {
	var recs []*models.Record
	var err error
	if scope == models.ScopeOffice {
		recs, err = a.records.ListByDate(ctx, date)
	} else {
		recs, err = a.records.ListBySectionAndDate(ctx, section, date)
	}
	if err != nil {
		return 0, false, fmt.Errorf("scan records for %s/%s@%s: %w", scope, section, date, err)
	}

	max := 0
	for _, rec := range recs {
		if seq := rec.Sequence(scope); seq > max {
			max = seq
		}
	}
	return max, len(recs) > 0, nil
}
