package community

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/models"
)

var tracer = otel.Tracer("collabgraph.community")

// Modularity defaults
const (
	DefaultSeed       = 42
	DefaultResolution = 1.0
	DefaultMaxPasses  = 10
)

// ModularityPartitioner runs Louvain local moving plus aggregation on the
// weighted undirected projection. Node visit order is shuffled from Seed, so
// equal seeds give equal partitions.
type ModularityPartitioner struct {
	Seed       int64
	Resolution float64
	MaxPasses  int

	logger *slog.Logger
}

// NewModularityPartitioner returns a partitioner with the given seed and defaults otherwise
func NewModularityPartitioner(seed int64) *ModularityPartitioner {
	return &ModularityPartitioner{Seed: seed, Resolution: DefaultResolution, MaxPasses: DefaultMaxPasses}
}

// SetLogger sets the logger used for completion diagnostics
func (p *ModularityPartitioner) SetLogger(logger *slog.Logger) { p.logger = logger }

// Name returns "modularity"
func (p *ModularityPartitioner) Name() string { return StrategyModularity }

// String describes the parameters that determine the partition
func (p *ModularityPartitioner) String() string {
	return fmt.Sprintf("modularity(seed=%d,resolution=%g,passes=%d)", p.Seed, p.Resolution, p.MaxPasses)
}

// Available rejects unusable parameters
func (p *ModularityPartitioner) Available() error {
	if p.Resolution <= 0 {
		return errors.DependencyUnavailable(fmt.Errorf("resolution must be > 0, got %g", p.Resolution),
			"modularity partitioner unavailable")
	}
	if p.MaxPasses <= 0 {
		return errors.DependencyUnavailable(fmt.Errorf("max passes must be > 0, got %d", p.MaxPasses),
			"modularity partitioner unavailable")
	}
	return nil
}

// level is one aggregation level of the Louvain hierarchy
type level struct {
	adj      [][]neighbor // sorted by index, no self entries
	self     []float64    // self-loop weight per node
	strength []float64    // weighted degree, self-loops counted twice
	m        float64      // total edge weight
}

type neighbor struct {
	idx int
	w   float64
}

// Partition returns singletons for an edgeless snapshot. A projection whose
// total weight is zero has no modularity and reports DependencyUnavailable.
func (p *ModularityPartitioner) Partition(ctx context.Context, snap *graph.Snapshot) (*Result, error) {
	if err := p.Available(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "community.Modularity",
		trace.WithAttributes(
			attribute.Int("node_count", snap.NodeCount()),
			attribute.Int("edge_count", snap.EdgeCount()),
			attribute.Int64("seed", p.Seed),
			attribute.Float64("resolution", p.Resolution),
		),
	)
	defer span.End()

	nodes := snap.Nodes()
	raw := make(map[models.DeveloperID]int, len(nodes))
	for i, id := range nodes {
		raw[id] = i
	}
	if snap.EdgeCount() == 0 {
		span.AddEvent("no_edges")
		return newResult(p.Name(), nodes, raw), nil
	}

	base := buildLevel(nodes, snap.Undirected())
	if base.m <= 0 {
		return nil, errors.DependencyUnavailable(nil, "modularity undefined for zero total edge weight").
			WithContext("scope", snap.Scope)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	membership := make([]int, len(nodes))
	for i := range membership {
		membership[i] = i
	}

	cur := base
	passes := 0
	for passes < p.MaxPasses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		passes++
		comm, moved := p.moveNodes(cur, rng)
		labels, count := compact(comm)
		for i := range membership {
			membership[i] = labels[comm[membership[i]]]
		}
		if !moved || count == len(cur.strength) {
			break
		}
		cur = aggregate(cur, comm, labels, count)
	}

	for i, id := range nodes {
		raw[id] = membership[i]
	}
	res := newResult(p.Name(), nodes, raw)
	res.Modularity = modularity(base, membership, p.Resolution)

	logger := p.logger
	if logger == nil {
		logger = slog.Default().With("component", "community")
	}
	logger.Debug("modularity partition completed",
		"scope", snap.Scope,
		"passes", passes,
		"communities", res.Count(),
		"modularity", res.Modularity)
	span.SetAttributes(
		attribute.Int("passes", passes),
		attribute.Int("communities", res.Count()),
		attribute.Float64("modularity", res.Modularity),
	)
	return res, nil
}

func buildLevel(nodes []models.DeveloperID, u *graph.Undirected) *level {
	index := make(map[models.DeveloperID]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}
	lv := &level{
		adj:      make([][]neighbor, len(nodes)),
		self:     make([]float64, len(nodes)),
		strength: make([]float64, len(nodes)),
	}
	for i, id := range nodes {
		for _, nb := range u.Neighbors(id) {
			w := u.Weight(id, nb)
			lv.adj[i] = append(lv.adj[i], neighbor{idx: index[nb], w: w})
			lv.strength[i] += w
			if index[nb] > i {
				lv.m += w
			}
		}
	}
	return lv
}

// moveNodes performs local moving until no single move improves modularity.
// Returns the community of each node at this level and whether any node moved.
func (p *ModularityPartitioner) moveNodes(lv *level, rng *rand.Rand) ([]int, bool) {
	n := len(lv.strength)
	comm := make([]int, n)
	tot := make([]float64, n)
	for i := 0; i < n; i++ {
		comm[i] = i
		tot[i] = lv.strength[i]
	}

	twoM := 2 * lv.m
	movedAny := false
	for {
		improved := false
		for _, i := range rng.Perm(n) {
			own := comm[i]
			ki := lv.strength[i]

			// weights from i to each neighbouring community, in neighbour order
			links := make(map[int]float64)
			var order []int
			for _, nb := range lv.adj[i] {
				c := comm[nb.idx]
				if _, ok := links[c]; !ok {
					order = append(order, c)
				}
				links[c] += nb.w
			}

			tot[own] -= ki
			best := own
			bestGain := links[own] - p.Resolution*tot[own]*ki/twoM
			for _, c := range order {
				gain := links[c] - p.Resolution*tot[c]*ki/twoM
				if gain > bestGain+1e-12 {
					best, bestGain = c, gain
				}
			}
			tot[best] += ki
			if best != own {
				comm[i] = best
				improved = true
				movedAny = true
			}
		}
		if !improved {
			break
		}
	}
	return comm, movedAny
}

// compact maps community labels onto 0..count-1 in node order
func compact(comm []int) (map[int]int, int) {
	labels := make(map[int]int)
	for _, c := range comm {
		if _, ok := labels[c]; !ok {
			labels[c] = len(labels)
		}
	}
	return labels, len(labels)
}

// aggregate collapses each community of lv into one node
func aggregate(lv *level, comm []int, labels map[int]int, count int) *level {
	weights := make([]map[int]float64, count)
	for i := range weights {
		weights[i] = make(map[int]float64)
	}
	next := &level{
		adj:      make([][]neighbor, count),
		self:     make([]float64, count),
		strength: make([]float64, count),
		m:        lv.m,
	}

	for i := range lv.adj {
		ci := labels[comm[i]]
		next.self[ci] += lv.self[i]
		for _, nb := range lv.adj[i] {
			if nb.idx < i {
				continue
			}
			cj := labels[comm[nb.idx]]
			if ci == cj {
				next.self[ci] += nb.w
				continue
			}
			weights[ci][cj] += nb.w
			weights[cj][ci] += nb.w
		}
	}

	for c := 0; c < count; c++ {
		for d := 0; d < count; d++ {
			if w, ok := weights[c][d]; ok {
				next.adj[c] = append(next.adj[c], neighbor{idx: d, w: w})
				next.strength[c] += w
			}
		}
		next.strength[c] += 2 * next.self[c]
	}
	return next
}

// modularity scores membership on the base level:
// Q = sum_c [ L_c/m - resolution * (d_c / 2m)^2 ]
func modularity(base *level, membership []int, resolution float64) float64 {
	if base.m <= 0 {
		return 0
	}
	internal := make(map[int]float64)
	degree := make(map[int]float64)
	for i := range base.adj {
		degree[membership[i]] += base.strength[i]
		for _, nb := range base.adj[i] {
			if nb.idx > i && membership[nb.idx] == membership[i] {
				internal[membership[i]] += nb.w
			}
		}
	}
	var q float64
	for c, d := range degree {
		frac := d / (2 * base.m)
		q += internal[c]/base.m - resolution*frac*frac
	}
	return q
}
