package temporal

import (
	"sort"
	"time"

	"github.com/perrrseus/OpenSaga/internal/models"
)

// Bucket is one calendar month of events
type Bucket struct {
	Label  string
	Index  int
	Start  time.Time
	Events []models.CollaborationEvent
	// Activity lists developers active this month independent of events
	Activity []models.DeveloperID
}

// GroupBuckets partitions events by year-month label and orders the buckets
// chronologically, assigning zero-based indexes. Labels that do not parse as
// YYYY-MM are returned in rejected. With fillGaps, empty months between the
// first and last bucket are emitted too.
func GroupBuckets(events []models.CollaborationEvent, activity map[string][]models.DeveloperID, fillGaps bool) (buckets []Bucket, rejected int) {
	byLabel := make(map[string]*Bucket)
	get := func(label string) *Bucket {
		if b, ok := byLabel[label]; ok {
			return b
		}
		start, err := time.Parse(models.YearMonthLayout, label)
		if err != nil {
			return nil
		}
		b := &Bucket{Label: label, Start: start}
		byLabel[label] = b
		return b
	}

	for _, e := range events {
		b := get(e.Bucket())
		if b == nil {
			rejected++
			continue
		}
		b.Events = append(b.Events, e)
	}
	for label, ids := range activity {
		b := get(label)
		if b == nil {
			rejected += len(ids)
			continue
		}
		b.Activity = append(b.Activity, ids...)
	}

	if fillGaps && len(byLabel) > 1 {
		first, last := bounds(byLabel)
		for m := first.AddDate(0, 1, 0); m.Before(last); m = m.AddDate(0, 1, 0) {
			get(m.Format(models.YearMonthLayout))
		}
	}

	buckets = make([]Bucket, 0, len(byLabel))
	for _, b := range byLabel {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Start.Before(buckets[j].Start) })
	for i := range buckets {
		buckets[i].Index = i
	}
	return buckets, rejected
}

func bounds(byLabel map[string]*Bucket) (first, last time.Time) {
	for _, b := range byLabel {
		if first.IsZero() || b.Start.Before(first) {
			first = b.Start
		}
		if last.IsZero() || b.Start.After(last) {
			last = b.Start
		}
	}
	return first, last
}
