// Package validator scans a (section, date) partition for duplicate control
// numbers and sequence gaps. It reports findings as structured data and
// never mutates state; inconsistency is its expected output, not an error.
package validator

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"doctrack/internal/tracking/controlno"
	"doctrack/internal/tracking/metrics"
	"doctrack/internal/tracking/models"
	recordstore "doctrack/internal/tracking/store/record"
)

const (
	StatusOK          = "ok"
	StatusIssuesFound = "issues_found"
)

// Duplicate reports one control-number string shared by several records.
type Duplicate struct {
	ControlNumber string       `json:"controlNumber"`
	Type          models.Scope `json:"type"`
	IDs           []uuid.UUID  `json:"ids"`
}

// Result is the outcome of one validation run.
type Result struct {
	Section      string      `json:"section"`
	DateReceived string      `json:"dateReceived"`
	Duplicates   []Duplicate `json:"duplicates"`
	Issues       []string    `json:"issues"`
	HasProblems  bool        `json:"hasProblems"`
	Status       string      `json:"status"`
}

// Validator checks partitions for duplicates and gaps.
type Validator struct {
	records recordstore.Store
	prefix  string
	metrics *metrics.Metrics
}

func New(records recordstore.Store, prefix string, m *metrics.Metrics) *Validator {
	return &Validator{records: records, prefix: prefix, metrics: m}
}

// Validate checks the section partition and the office-wide scope for the
// date. The section check covers only (section, date); the office-wide check
// spans every section sharing the date, because office sequences are
// date-scoped but section-independent.
func (v *Validator) Validate(ctx context.Context, section, date string) (*Result, error) {
	var sectionRecs, officeRecs []*models.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := v.records.ListBySectionAndDate(gctx, section, date)
		if err != nil {
			return fmt.Errorf("list section records: %w", err)
		}
		sectionRecs = recs
		return nil
	})
	g.Go(func() error {
		recs, err := v.records.ListByDate(gctx, date)
		if err != nil {
			return fmt.Errorf("list office records: %w", err)
		}
		officeRecs = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Section:      section,
		DateReceived: date,
		Duplicates:   []Duplicate{},
		Issues:       []string{},
	}

	result.Duplicates = append(result.Duplicates, findDuplicates(sectionRecs, models.ScopeSection)...)
	result.Duplicates = append(result.Duplicates, findDuplicates(officeRecs, models.ScopeOffice)...)

	result.Issues = append(result.Issues, v.findGaps(sectionRecs, models.ScopeSection, section, date)...)
	result.Issues = append(result.Issues, v.findGaps(officeRecs, models.ScopeOffice, "", date)...)

	result.HasProblems = len(result.Duplicates) > 0 || len(result.Issues) > 0
	result.Status = StatusOK
	if result.HasProblems {
		result.Status = StatusIssuesFound
		v.metrics.RecordValidationProblems()
	}
	return result, nil
}

// findDuplicates groups records by the literal control-number string for the
// scope and reports every value carried by more than one record.
func findDuplicates(recs []*models.Record, scope models.Scope) []Duplicate {
	byValue := make(map[string][]uuid.UUID)
	for _, rec := range recs {
		cn := rec.ControlNumber(scope)
		if cn == "" {
			continue
		}
		byValue[cn] = append(byValue[cn], rec.ID)
	}

	var out []Duplicate
	for cn, ids := range byValue {
		if len(ids) > 1 {
			out = append(out, Duplicate{ControlNumber: cn, Type: scope, IDs: ids})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ControlNumber < out[j].ControlNumber })
	return out
}

// findGaps reports every integer missing between adjacent present sequences,
// rendered as the control number it would have formatted to.
func (v *Validator) findGaps(recs []*models.Record, scope models.Scope, section, date string) []string {
	present := make(map[int]struct{})
	for _, rec := range recs {
		if seq := rec.Sequence(scope); seq > 0 {
			present[seq] = struct{}{}
		}
	}
	if len(present) < 2 {
		return nil
	}

	seqs := make([]int, 0, len(present))
	for seq := range present {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	var out []string
	for i := 1; i < len(seqs); i++ {
		for missing := seqs[i-1] + 1; missing < seqs[i]; missing++ {
			out = append(out, fmt.Sprintf("missing %s control number %s",
				scope, controlno.Format(v.prefix, section, date, missing)))
		}
	}
	return out
}
