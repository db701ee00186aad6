// Package canonical resolves directed collaboration records into undirected
// pairs. Two resolutions exist and are kept separate: Canonicalize keeps the
// strongest observed strength per pair, AggregateVolume sums every record.
package canonical

import (
	"math"
	"sort"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
)

// Key is an order-independent pair identifier with Low < High
type Key struct {
	Low  models.DeveloperID
	High models.DeveloperID
}

// NewKey orders a and b numerically. A self-pair is rejected.
func NewKey(a, b models.DeveloperID) (Key, error) {
	if a == b {
		return Key{}, errors.MalformedRecordf("self-collaboration %d -> %d", a, b)
	}
	if a < b {
		return Key{Low: a, High: b}, nil
	}
	return Key{Low: b, High: a}, nil
}

// Less orders keys by (Low, High)
func (k Key) Less(o Key) bool {
	if k.Low != o.Low {
		return k.Low < o.Low
	}
	return k.High < o.High
}

// Triple is the minimal directed record the canonicalizer reads
type Triple struct {
	Source models.DeveloperID
	Target models.DeveloperID
	Weight float64
}

// FromEvents projects collaboration events onto triples
func FromEvents(events []models.CollaborationEvent) []Triple {
	out := make([]Triple, 0, len(events))
	for _, e := range events {
		out = append(out, Triple{Source: e.Source, Target: e.Target, Weight: e.Weight})
	}
	return out
}

// FromEdges projects canonical edges back onto triples
func FromEdges(edges []models.CanonicalEdge) []Triple {
	out := make([]Triple, 0, len(edges))
	for _, e := range edges {
		out = append(out, Triple{Source: e.Source, Target: e.Target, Weight: e.Weight})
	}
	return out
}

// Canonicalize maps every pair to the maximum weight seen for it in either
// direction. Self-pairs are skipped and counted. Empty input yields an empty map.
func Canonicalize(triples []Triple) (map[Key]float64, int) {
	resolved := make(map[Key]float64)
	skipped := 0
	for _, t := range triples {
		key, err := NewKey(t.Source, t.Target)
		if err != nil {
			skipped++
			continue
		}
		if cur, ok := resolved[key]; !ok || t.Weight > cur {
			resolved[key] = t.Weight
		}
	}
	return resolved, skipped
}

// Edges flattens a resolved map into canonical edges ordered by key
func Edges(resolved map[Key]float64) []models.CanonicalEdge {
	keys := make([]Key, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	edges := make([]models.CanonicalEdge, 0, len(keys))
	for _, k := range keys {
		edges = append(edges, models.CanonicalEdge{Source: k.Low, Target: k.High, Weight: resolved[k]})
	}
	return edges
}

// SortByStrength orders edges by weight descending, ties by key ascending
func SortByStrength(edges []models.CanonicalEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}

// TopK returns the k strongest canonical edges. k <= 0 returns all of them.
func TopK(resolved map[Key]float64, k int) []models.CanonicalEdge {
	edges := Edges(resolved)
	SortByStrength(edges)
	if k > 0 && len(edges) > k {
		edges = edges[:k]
	}
	return edges
}

// Clamp caps every weight at max. max <= 0 disables clamping.
func Clamp(edges []models.CanonicalEdge, max float64) []models.CanonicalEdge {
	if max <= 0 {
		return edges
	}
	out := make([]models.CanonicalEdge, len(edges))
	for i, e := range edges {
		if e.Weight > max {
			e.Weight = max
		}
		out[i] = e
	}
	return out
}

// AggregateVolume sums weights over both directions per pair, rounded to two
// decimals. Output is ordered by key.
func AggregateVolume(triples []Triple) []models.CanonicalEdge {
	sums := make(map[Key]float64)
	for _, t := range triples {
		key, err := NewKey(t.Source, t.Target)
		if err != nil {
			continue
		}
		sums[key] += t.Weight
	}
	edges := Edges(sums)
	for i := range edges {
		edges[i].Weight = math.Round(edges[i].Weight*100) / 100
	}
	return edges
}
