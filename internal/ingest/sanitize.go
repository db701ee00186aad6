package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/perrrseus/OpenSaga/internal/models"
)

// SanitizeEvents drops self-collaborations, negative or non-finite weights,
// and events without a usable year_month. Kept events always carry a label.
func SanitizeEvents(events []models.CollaborationEvent) ([]models.CollaborationEvent, *MalformedReport) {
	report := NewMalformedReport("events")
	kept := make([]models.CollaborationEvent, 0, len(events))

	for i, e := range events {
		switch {
		case e.Source == e.Target:
			report.Add(ReasonSelfLoop, fmt.Sprintf("record %d: %d -> %d", i, e.Source, e.Target))
			continue
		case math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0):
			report.Add(ReasonBadNumber, fmt.Sprintf("record %d: weight %v", i, e.Weight))
			continue
		case e.Weight < 0:
			report.Add(ReasonNegative, fmt.Sprintf("record %d: weight %v", i, e.Weight))
			continue
		}

		label := e.Bucket()
		if label == "" {
			report.Add(ReasonMissingField, fmt.Sprintf("record %d: no timestamp or year_month", i))
			continue
		}
		if _, err := time.Parse(models.YearMonthLayout, label); err != nil {
			report.Add(ReasonBadBucket, fmt.Sprintf("record %d: %q", i, label))
			continue
		}
		e.YearMonth = label
		kept = append(kept, e)
	}
	return kept, report
}

// SanitizeDevelopers drops repeated ids (first wins) and non-finite or
// out-of-range activity levels.
func SanitizeDevelopers(developers []models.Developer) ([]models.Developer, *MalformedReport) {
	report := NewMalformedReport("developers")
	seen := make(map[models.DeveloperID]bool, len(developers))
	kept := make([]models.Developer, 0, len(developers))

	for _, d := range developers {
		if seen[d.ID] {
			report.Add(ReasonDuplicate, d.ID.String())
			continue
		}
		if math.IsNaN(d.ActivityLevel) || math.IsInf(d.ActivityLevel, 0) {
			report.Add(ReasonBadNumber, fmt.Sprintf("%d: activity_level %v", d.ID, d.ActivityLevel))
			continue
		}
		if d.ActivityLevel < 0 || d.ActivityLevel > 1 {
			report.Add(ReasonOutOfRange, fmt.Sprintf("%d: activity_level %v", d.ID, d.ActivityLevel))
			continue
		}
		seen[d.ID] = true
		kept = append(kept, d)
	}
	return kept, report
}
