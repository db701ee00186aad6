package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// maxSamples bounds how many offending records a report keeps verbatim
const maxSamples = 5

// Skip reasons
const (
	ReasonMissingField = "missing_field"
	ReasonBadNumber    = "bad_number"
	ReasonBadTimestamp = "bad_timestamp"
	ReasonBadBucket    = "bad_year_month"
	ReasonSelfLoop     = "self_loop"
	ReasonNegative     = "negative_weight"
	ReasonDuplicate    = "duplicate_id"
	ReasonOutOfRange   = "out_of_range"
)

// MalformedReport counts records skipped during reading or sanitation
type MalformedReport struct {
	Table   string
	Reasons map[string]int
	Samples []string
}

// NewMalformedReport creates an empty report for table
func NewMalformedReport(table string) *MalformedReport {
	return &MalformedReport{Table: table, Reasons: make(map[string]int)}
}

// Add records one skipped record
func (r *MalformedReport) Add(reason, detail string) {
	r.Reasons[reason]++
	if len(r.Samples) < maxSamples {
		r.Samples = append(r.Samples, fmt.Sprintf("%s: %s", reason, detail))
	}
}

// Merge folds other into r
func (r *MalformedReport) Merge(other *MalformedReport) {
	if other == nil {
		return
	}
	for reason, n := range other.Reasons {
		r.Reasons[reason] += n
	}
	for _, s := range other.Samples {
		if len(r.Samples) >= maxSamples {
			break
		}
		r.Samples = append(r.Samples, s)
	}
}

// Skipped returns the total number of skipped records
func (r *MalformedReport) Skipped() int {
	total := 0
	for _, n := range r.Reasons {
		total += n
	}
	return total
}

// String summarizes the report, e.g. "events: 3 skipped (self_loop=2, bad_number=1)"
func (r *MalformedReport) String() string {
	if r.Skipped() == 0 {
		return fmt.Sprintf("%s: 0 skipped", r.Table)
	}
	reasons := make([]string, 0, len(r.Reasons))
	for reason := range r.Reasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, r.Reasons[reason]))
	}
	return fmt.Sprintf("%s: %d skipped (%s)", r.Table, r.Skipped(), strings.Join(parts, ", "))
}
