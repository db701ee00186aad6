package temporal

import (
	"github.com/perrrseus/OpenSaga/internal/canonical"
	"github.com/perrrseus/OpenSaga/internal/models"
)

type orderedPair struct {
	src, dst models.DeveloperID
}

// Trends emits three volume rows per bucket: unique (distinct ordered pairs),
// non_unique (events beyond the first per pair) and total (all events).
func Trends(buckets []Bucket) []models.TrendRow {
	rows := make([]models.TrendRow, 0, 3*len(buckets))
	for _, b := range buckets {
		pairs := make(map[orderedPair]struct{})
		active := make(map[models.DeveloperID]struct{})
		var weight float64
		for _, e := range b.Events {
			pairs[orderedPair{e.Source, e.Target}] = struct{}{}
			active[e.Source] = struct{}{}
			active[e.Target] = struct{}{}
			weight += e.Weight
		}

		total := len(b.Events)
		unique := len(pairs)
		avg := 0.0
		if total > 0 {
			avg = round(weight/float64(total), 4)
		}
		base := models.TrendRow{
			YearMonth:           b.Label,
			NumCollaborations:   total,
			NumActiveDevelopers: len(active),
			AvgCollabWeight:     avg,
			UniquePairs:         unique,
			NonUnique:           total - unique,
		}

		for _, kind := range []struct {
			name  string
			value int
		}{
			{models.CollabTypeUnique, unique},
			{models.CollabTypeNonUnique, total - unique},
			{models.CollabTypeTotal, total},
		} {
			row := base
			row.CollabType = kind.name
			row.TargetValue = kind.value
			rows = append(rows, row)
		}
	}
	return rows
}

// UndirectedPairs counts distinct canonical pairs in a bucket
func UndirectedPairs(b Bucket) int {
	resolved, _ := canonical.Canonicalize(canonical.FromEvents(b.Events))
	return len(resolved)
}
