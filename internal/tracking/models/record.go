package models

import (
	"time"

	"github.com/google/uuid"

	"doctrack/internal/tracking/controlno"
)

// Scope is one of the two independent numbering namespaces: the office-wide
// scope shared by every section, and the per-section scope.
type Scope string

const (
	ScopeOffice  Scope = "OFFICE"
	ScopeSection Scope = "SECTION"
)

// DateLayout is the wire and storage format for received dates.
const DateLayout = "2006-01-02"

// Record is one piece of incoming correspondence. Control-number fields are
// set once at creation and never mutated on update; descriptive fields may
// change freely.
type Record struct {
	ID           uuid.UUID `json:"id"`
	Section      string    `json:"section"`
	DateReceived string    `json:"dateReceived"`
	Subject      string    `json:"subject"`
	Sender       string    `json:"sender"`

	OfficeControlNumber  string `json:"officeControlNumber"`
	SectionControlNumber string `json:"sectionControlNumber"`

	// Sequences are stored as first-class integers alongside the formatted
	// strings. Rows written before this field existed carry 0 here; Sequence
	// falls back to parsing the control-number suffix for those.
	OfficeSequence  int `json:"officeSequence"`
	SectionSequence int `json:"sectionSequence"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sequence returns the record's sequence number for the given scope. The
// integer column wins; legacy rows without it fall back to the trailing-digit
// parse of the formatted control number.
func (r *Record) Sequence(scope Scope) int {
	var stored int
	var formatted string
	switch scope {
	case ScopeOffice:
		stored, formatted = r.OfficeSequence, r.OfficeControlNumber
	default:
		stored, formatted = r.SectionSequence, r.SectionControlNumber
	}
	if stored > 0 {
		return stored
	}
	if seq, ok := controlno.ParseSequence(formatted); ok {
		return seq
	}
	return 0
}

// ControlNumber returns the record's formatted control number for the scope.
func (r *Record) ControlNumber(scope Scope) string {
	if scope == ScopeOffice {
		return r.OfficeControlNumber
	}
	return r.SectionControlNumber
}

// Counter is the last-issued sequence state for one (scope, section) pair.
// Section is empty for the office-wide scope, which is not partitioned by
// section. CurrentNumber is only meaningful for LastDateUsed; a different
// allocation date rolls the effective base back to zero.
type Counter struct {
	Scope         Scope
	Section       string
	CurrentNumber int
	LastDateUsed  string
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
