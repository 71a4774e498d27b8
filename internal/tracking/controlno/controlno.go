// Package controlno renders and parses control numbers. The canonical format
// is "{PREFIX}-{SECTION|'MC'}-{YYMMDD}-{NN...}": prefix, section code (or the
// office-wide marker), short date, and the zero-padded sequence. The numeric
// suffix is what the validator and resetter parse back out, so any change to
// this format is a breaking change for both.
package controlno

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// OfficeCode replaces the section token for office-wide control numbers.
const OfficeCode = "MC"

var sequenceSuffix = regexp.MustCompile(`-(\d+)$`)

// Format renders a control number. An empty section means the office-wide
// scope. The sequence is zero-padded to at least two digits; wider sequences
// are never truncated. Date validation is the caller's responsibility.
func Format(prefix, section, date string, sequence int) string {
	code := section
	if code == "" {
		code = OfficeCode
	}
	return fmt.Sprintf("%s-%s-%s-%02d", prefix, code, ShortDate(date), sequence)
}

// ShortDate collapses an ISO date to YYMMDD: separators stripped, century
// dropped (e.g. "2026-02-18" -> "260218").
func ShortDate(date string) string {
	compact := strings.ReplaceAll(date, "-", "")
	if len(compact) == 8 {
		return compact[2:]
	}
	return compact
}

// ParseSequence extracts the numeric suffix from a formatted control number.
// Returns false for strings that do not end in "-<digits>".
func ParseSequence(controlNumber string) (int, bool) {
	m := sequenceSuffix.FindStringSubmatch(controlNumber)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return seq, true
}
