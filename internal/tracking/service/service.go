// Package service orchestrates record CRUD around the allocator, validator,
// and resetter. Handlers stay thin; domain rules live here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"doctrack/internal/audit"
	"doctrack/internal/tracking/allocator"
	"doctrack/internal/tracking/controlno"
	"doctrack/internal/tracking/metrics"
	"doctrack/internal/tracking/models"
	"doctrack/internal/tracking/resetter"
	recordstore "doctrack/internal/tracking/store/record"
	"doctrack/internal/tracking/validator"
	dErrors "doctrack/pkg/domain-errors"
	"doctrack/pkg/platform/sentinel"
)

// AuditEmitter decouples the service from the audit recorder so unit tests
// can run without one.
type AuditEmitter interface {
	Emit(action string, recordID uuid.UUID, section, date, detail string)
}

// noopEmitter is used when auditing is not wired.
type noopEmitter struct{}

func (noopEmitter) Emit(string, uuid.UUID, string, string, string) {}

// Service is the tracking domain facade.
type Service struct {
	records   recordstore.Store
	allocator *allocator.Allocator
	validator *validator.Validator
	resetter  *resetter.Resetter
	audit     AuditEmitter
	prefix    string
	sections  map[string]bool
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Config carries the service's collaborators.
type Config struct {
	Records   recordstore.Store
	Allocator *allocator.Allocator
	Validator *validator.Validator
	Resetter  *resetter.Resetter
	Audit     AuditEmitter
	Prefix    string
	Sections  []string
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

func New(cfg Config) (*Service, error) {
	if cfg.Records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.Allocator == nil || cfg.Validator == nil || cfg.Resetter == nil {
		return nil, fmt.Errorf("allocator, validator, and resetter are required")
	}
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("control number prefix is required")
	}
	if len(cfg.Sections) == 0 {
		return nil, fmt.Errorf("at least one section is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = noopEmitter{}
	}

	sections := make(map[string]bool, len(cfg.Sections))
	for _, s := range cfg.Sections {
		sections[s] = true
	}
	return &Service{
		records:   cfg.Records,
		allocator: cfg.Allocator,
		validator: cfg.Validator,
		resetter:  cfg.Resetter,
		audit:     cfg.Audit,
		prefix:    cfg.Prefix,
		sections:  sections,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// CreateRecordRequest carries creation input; control numbers are assigned
// by the service, never by the caller.
type CreateRecordRequest struct {
	Section      string `json:"section"`
	DateReceived string `json:"dateReceived"`
	Subject      string `json:"subject"`
	Sender       string `json:"sender"`
}

// ControlNumbers is the pair of formatted numbers for one allocation.
type ControlNumbers struct {
	OfficeControlNumber  string `json:"officeControlNumber"`
	SectionControlNumber string `json:"sectionControlNumber"`
}

// DeleteResult is the outcome of a deletion plus its best-effort repair.
// Deletion always succeeds once the record is gone; repair and validation
// failures surface only as the warning.
type DeleteResult struct {
	Deleted    bool              `json:"deleted"`
	Repair     *resetter.Result  `json:"repair,omitempty"`
	Validation *validator.Result `json:"validation,omitempty"`
	Warning    string            `json:"warning,omitempty"`
}

func (s *Service) checkPartition(section, date string) error {
	if !s.sections[section] {
		return dErrors.New(dErrors.CodeBadRequest, "unknown section: "+section)
	}
	if !models.ValidDate(date) {
		return dErrors.New(dErrors.CodeBadRequest, "dateReceived must be YYYY-MM-DD")
	}
	return nil
}

// CreateRecord allocates both scopes, formats both control numbers, and
// persists the record. Scope counters advance independently; a failure
// between the two advances is tolerated because each is self-healing.
func (s *Service) CreateRecord(ctx context.Context, req CreateRecordRequest) (*models.Record, error) {
	if err := s.checkPartition(req.Section, req.DateReceived); err != nil {
		return nil, err
	}

	officeSeq, err := s.allocator.Allocate(ctx, models.ScopeOffice, "", req.DateReceived)
	if err != nil {
		return nil, fmt.Errorf("allocate office sequence: %w", err)
	}
	sectionSeq, err := s.allocator.Allocate(ctx, models.ScopeSection, req.Section, req.DateReceived)
	if err != nil {
		return nil, fmt.Errorf("allocate section sequence: %w", err)
	}

	rec := &models.Record{
		Section:              req.Section,
		DateReceived:         req.DateReceived,
		Subject:              req.Subject,
		Sender:               req.Sender,
		OfficeControlNumber:  controlno.Format(s.prefix, "", req.DateReceived, officeSeq),
		SectionControlNumber: controlno.Format(s.prefix, req.Section, req.DateReceived, sectionSeq),
		OfficeSequence:       officeSeq,
		SectionSequence:      sectionSeq,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	s.audit.Emit(audit.ActionRecordCreated, rec.ID, rec.Section, rec.DateReceived, rec.SectionControlNumber)
	return rec, nil
}

// AllocateControlNumbers implements allocate-or-preview. With commit=false
// it returns the numbers the next creation would receive without advancing
// anything; the preview is best effort and may be stale against a concurrent
// allocation. With commit=true both counters advance.
func (s *Service) AllocateControlNumbers(ctx context.Context, section, date string, commit bool) (*ControlNumbers, error) {
	if err := s.checkPartition(section, date); err != nil {
		return nil, err
	}

	next := s.allocator.Peek
	if commit {
		next = s.allocator.Allocate
	}

	officeSeq, err := next(ctx, models.ScopeOffice, "", date)
	if err != nil {
		return nil, fmt.Errorf("office sequence: %w", err)
	}
	sectionSeq, err := next(ctx, models.ScopeSection, section, date)
	if err != nil {
		return nil, fmt.Errorf("section sequence: %w", err)
	}

	return &ControlNumbers{
		OfficeControlNumber:  controlno.Format(s.prefix, "", date, officeSeq),
		SectionControlNumber: controlno.Format(s.prefix, section, date, sectionSeq),
	}, nil
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	rec, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func (s *Service) ListRecords(ctx context.Context, section, date string) ([]*models.Record, error) {
	if err := s.checkPartition(section, date); err != nil {
		return nil, err
	}
	recs, err := s.records.ListBySectionAndDate(ctx, section, date)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// UpdateRecordRequest carries the mutable descriptive fields.
type UpdateRecordRequest struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
}

// UpdateRecord rewrites descriptive fields. Control numbers and sequences
// are set once at creation and never change on update.
func (s *Service) UpdateRecord(ctx context.Context, id uuid.UUID, req UpdateRecordRequest) (*models.Record, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Subject = req.Subject
	rec.Sender = req.Sender
	if err := s.records.Update(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, fmt.Errorf("update record: %w", err)
	}
	return rec, nil
}

// DeleteRecord removes the record, then repairs and re-validates its
// partition. The deletion result is final once the record is gone: repair or
// validation failures are logged, counted, and attached as a warning, never
// rolled back into a deletion failure.
func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) (*DeleteResult, error) {
	rec, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, fmt.Errorf("delete record: %w", err)
	}

	result := &DeleteResult{Deleted: true}
	s.audit.Emit(audit.ActionRecordDeleted, id, rec.Section, rec.DateReceived, rec.SectionControlNumber)

	repair, err := s.resetter.Reset(ctx, rec.Section, rec.DateReceived)
	if err != nil {
		s.logger.ErrorContext(ctx, "post-deletion counter repair failed",
			"record_id", id,
			"section", rec.Section,
			"date", rec.DateReceived,
			"error", err,
		)
		s.metrics.RecordRepairFailure()
		result.Warning = "record deleted, but counter repair failed; run reset manually"
		return result, nil
	}
	result.Repair = repair
	s.audit.Emit(audit.ActionCountersReset, id, rec.Section, rec.DateReceived,
		fmt.Sprintf("office=%d section=%d", repair.HighestOffice, repair.HighestSection))

	validation, err := s.validator.Validate(ctx, rec.Section, rec.DateReceived)
	if err != nil {
		s.logger.ErrorContext(ctx, "post-deletion validation failed",
			"record_id", id,
			"section", rec.Section,
			"date", rec.DateReceived,
			"error", err,
		)
		s.metrics.RecordRepairFailure()
		result.Warning = "record deleted and counters repaired, but validation failed"
		return result, nil
	}
	result.Validation = validation
	if validation.HasProblems {
		result.Warning = "partition still has control number problems after repair"
	}
	return result, nil
}

// Validate runs the read-only partition check.
func (s *Service) Validate(ctx context.Context, section, date string) (*validator.Result, error) {
	if err := s.checkPartition(section, date); err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, section, date)
}

// ResetResult pairs a manual reset with the follow-up validation.
type ResetResult struct {
	HighestOffice  int               `json:"highestOffice"`
	HighestSection int               `json:"highestSection"`
	Validation     *validator.Result `json:"validation,omitempty"`
}

// Reset recomputes both counters for the partition and re-validates it.
func (s *Service) Reset(ctx context.Context, section, date string) (*ResetResult, error) {
	if err := s.checkPartition(section, date); err != nil {
		return nil, err
	}

	repair, err := s.resetter.Reset(ctx, section, date)
	if err != nil {
		return nil, fmt.Errorf("reset counters: %w", err)
	}
	s.audit.Emit(audit.ActionCountersReset, uuid.Nil, section, date,
		fmt.Sprintf("office=%d section=%d", repair.HighestOffice, repair.HighestSection))

	out := &ResetResult{HighestOffice: repair.HighestOffice, HighestSection: repair.HighestSection}
	validation, err := s.validator.Validate(ctx, section, date)
	if err != nil {
		// Reset already committed; report it without the validation detail.
		s.logger.WarnContext(ctx, "validation after manual reset failed",
			"section", section,
			"date", date,
			"error", err,
		)
		return out, nil
	}
	out.Validation = validation
	return out, nil
}
