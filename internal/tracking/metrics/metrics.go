package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the tracking domain.
type Metrics struct {
	Allocations        *prometheus.CounterVec
	Previews           *prometheus.CounterVec
	SelfHeals          *prometheus.CounterVec
	Resets             prometheus.Counter
	ValidationProblems prometheus.Counter
	RepairFailures     prometheus.Counter
}

// New creates and registers the tracking metrics.
func New() *Metrics {
	return &Metrics{
		Allocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "doctrack_allocations_total",
			Help: "Control number allocations by scope",
		}, []string{"scope"}),
		Previews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "doctrack_previews_total",
			Help: "Control number previews by scope",
		}, []string{"scope"}),
		SelfHeals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "doctrack_counter_self_heals_total",
			Help: "Allocations that lowered a stale counter to the stored record maximum",
		}, []string{"scope"}),
		Resets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "doctrack_counter_resets_total",
			Help: "Counter reset operations",
		}),
		ValidationProblems: promauto.NewCounter(prometheus.CounterOpts{
			Name: "doctrack_validation_problems_total",
			Help: "Validation runs that found duplicates or gaps",
		}),
		RepairFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "doctrack_repair_failures_total",
			Help: "Post-deletion repairs that failed and were surfaced as warnings",
		}),
	}
}

// RecordAllocation counts one committed allocation for a scope.
func (m *Metrics) RecordAllocation(scope string) {
	if m == nil {
		return
	}
	m.Allocations.WithLabelValues(scope).Inc()
}

// RecordPreview counts one non-committing preview for a scope.
func (m *Metrics) RecordPreview(scope string) {
	if m == nil {
		return
	}
	m.Previews.WithLabelValues(scope).Inc()
}

// RecordSelfHeal counts one stale-counter reconciliation.
func (m *Metrics) RecordSelfHeal(scope string) {
	if m == nil {
		return
	}
	m.SelfHeals.WithLabelValues(scope).Inc()
}

// RecordReset counts one counter reset.
func (m *Metrics) RecordReset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

// RecordValidationProblems counts one validation run with findings.
func (m *Metrics) RecordValidationProblems() {
	if m == nil {
		return
	}
	m.ValidationProblems.Inc()
}

// RecordRepairFailure counts one failed post-deletion repair.
func (m *Metrics) RecordRepairFailure() {
	if m == nil {
		return
	}
	m.RepairFailures.Inc()
}
