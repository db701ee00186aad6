// Package ranking turns raw metric columns into percentile ranks and the
// core-developer classification.
package ranking

import (
	"math"
	"sort"

	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/metrics"
	"github.com/perrrseus/OpenSaga/internal/models"
)

// DefaultCoreQuantile is the influence quantile at or above which a node is core
const DefaultCoreQuantile = 0.8

// noiseThreshold bounds the representation error NormalizeFloat cleans up
const noiseThreshold = 1e-9

// NormalizeFloat rounds x to two decimals only when x is already within 1e-9
// of that rounding. Any other value is returned unchanged.
func NormalizeFloat(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r := math.Round(x*100) / 100
	if math.Abs(x-r) < noiseThreshold {
		return r
	}
	return x
}

// PercentileRanks returns, per node, 100 * (number of nodes with value <= its
// value) / n. Tied values share the highest rank they span, so the maximum
// always maps to 100.
func PercentileRanks(values map[models.DeveloperID]float64) map[models.DeveloperID]float64 {
	ids := make([]models.DeveloperID, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if values[ids[i]] != values[ids[j]] {
			return values[ids[i]] < values[ids[j]]
		}
		return ids[i] < ids[j]
	})

	n := float64(len(ids))
	out := make(map[models.DeveloperID]float64, len(ids))
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && values[ids[j+1]] == values[ids[i]] {
			j++
		}
		// positions 0..j all hold values <= values[ids[i]]
		pct := float64(j+1) / n * 100
		for k := i; k <= j; k++ {
			out[ids[k]] = pct
		}
		i = j + 1
	}
	return out
}

// Quantile returns the q-quantile of values with linear interpolation between
// closest ranks. Empty input returns 0.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// ClassifyCore marks nodes whose score is at or above the q-quantile of all
// scores. The threshold is returned with the classification.
func ClassifyCore(scores map[models.DeveloperID]float64, q float64) (map[models.DeveloperID]bool, float64) {
	values := make([]float64, 0, len(scores))
	for _, v := range scores {
		values = append(values, v)
	}
	threshold := Quantile(values, q)

	core := make(map[models.DeveloperID]bool, len(scores))
	for id, v := range scores {
		core[id] = v >= threshold
	}
	return core, threshold
}

// BuildNodeTable joins node attributes with computed metrics, percentiles and
// the core flag. Rows are ordered by developer id.
func BuildNodeTable(snap *graph.Snapshot, res *metrics.Result, coreQuantile float64) []models.NodeMetrics {
	activity := make(map[models.DeveloperID]float64, snap.NodeCount())
	for _, id := range snap.Nodes() {
		d, _ := snap.Developer(id)
		activity[id] = d.ActivityLevel
	}

	prPct := PercentileRanks(res.PageRank)
	degPct := PercentileRanks(res.Degree)
	btwPct := PercentileRanks(res.Betweenness)
	actPct := PercentileRanks(activity)
	core, _ := ClassifyCore(res.PageRank, coreQuantile)

	rows := make([]models.NodeMetrics, 0, snap.NodeCount())
	for _, id := range snap.Nodes() {
		d, _ := snap.Developer(id)
		rows = append(rows, models.NodeMetrics{
			Developer:             d,
			PageRankScore:         NormalizeFloat(res.PageRank[id]),
			DegreeCentrality:      NormalizeFloat(res.Degree[id]),
			BetweennessCentrality: NormalizeFloat(res.Betweenness[id]),
			PageRankPercentile:    NormalizeFloat(prPct[id]),
			DegreePercentile:      NormalizeFloat(degPct[id]),
			BetweennessPercentile: NormalizeFloat(btwPct[id]),
			ActivityPercentile:    NormalizeFloat(actPct[id]),
			IsCoreDeveloper:       core[id],
		})
	}
	return rows
}

// CoreDevelopers filters core rows, ordered by influence descending then id
func CoreDevelopers(rows []models.NodeMetrics) []models.NodeMetrics {
	var out []models.NodeMetrics
	for _, r := range rows {
		if r.IsCoreDeveloper {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PageRankScore != out[j].PageRankScore {
			return out[i].PageRankScore > out[j].PageRankScore
		}
		return out[i].ID < out[j].ID
	})
	return out
}
