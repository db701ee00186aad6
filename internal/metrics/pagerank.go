package metrics

import (
	"context"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/models"
)

var tracer = otel.Tracer("collabgraph.metrics")

// PageRank configuration constants
const (
	DefaultDampingFactor = 0.85
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
)

// Options configures the influence ranking
type Options struct {
	// DampingFactor is the probability of following an edge. Must be in [0, 1].
	DampingFactor float64
	// MaxIterations bounds power iteration. Must be > 0.
	MaxIterations int
	// Tolerance is the per-node L1 convergence threshold. Must be > 0.
	Tolerance float64
}

// DefaultOptions returns damping 0.85, 100 iterations, tolerance 1e-6
func DefaultOptions() Options {
	return Options{
		DampingFactor: DefaultDampingFactor,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Validate replaces out-of-range values with defaults
func (o *Options) Validate() {
	if o.DampingFactor < 0 || o.DampingFactor > 1 {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
}

// PageRankResult holds influence scores and solver diagnostics
type PageRankResult struct {
	Scores     map[models.DeveloperID]float64
	Iterations int
	Converged  bool
	Delta      float64
}

// PageRank computes weighted damped random-walk scores over the directed
// snapshot by power iteration. Transition probability along u->v is
// w(u,v)/outWeight(u); nodes with no outgoing weight redistribute uniformly.
//
// An edgeless snapshot is not iterated: every node gets 1/n and a
// NumericDegeneracy error is returned alongside the usable result.
// Convergence is declared when the L1 change falls below n*Tolerance.
func PageRank(ctx context.Context, snap *graph.Snapshot, opts Options) (*PageRankResult, error) {
	return pageRank(ctx, snap, opts, slog.Default().With("component", "metrics"))
}

func pageRank(ctx context.Context, snap *graph.Snapshot, opts Options, logger *slog.Logger) (*PageRankResult, error) {
	_, span := tracer.Start(ctx, "metrics.PageRank",
		trace.WithAttributes(
			attribute.String("scope", snap.Scope),
			attribute.Int("node_count", snap.NodeCount()),
			attribute.Int("edge_count", snap.EdgeCount()),
		),
	)
	defer span.End()

	opts.Validate()
	nodes := snap.Nodes()
	n := len(nodes)
	result := &PageRankResult{Scores: make(map[models.DeveloperID]float64, n), Converged: true}
	if n == 0 {
		return result, nil
	}

	uniform := 1.0 / float64(n)
	if snap.EdgeCount() == 0 {
		for _, id := range nodes {
			result.Scores[id] = uniform
		}
		span.AddEvent("edgeless_graph")
		return result, errors.NumericDegeneracyf("influence ranking undefined for edgeless scope %q", snap.Scope)
	}

	d := opts.DampingFactor
	outWeight := make(map[models.DeveloperID]float64, n)
	var dangling []models.DeveloperID
	for _, id := range nodes {
		w := snap.OutWeight(id)
		outWeight[id] = w
		if w <= 0 {
			dangling = append(dangling, id)
		}
	}

	scores := make(map[models.DeveloperID]float64, n)
	next := make(map[models.DeveloperID]float64, n)
	for _, id := range nodes {
		scores[id] = uniform
	}

	result.Converged = false
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if ctx.Err() != nil {
			span.AddEvent("cancelled")
			break
		}

		var danglingSum float64
		for _, id := range dangling {
			danglingSum += scores[id]
		}
		base := (1-d)/float64(n) + d*danglingSum/float64(n)

		for _, v := range nodes {
			rank := base
			for _, u := range snap.Predecessors(v) {
				if outWeight[u] <= 0 {
					continue
				}
				w, _ := snap.Weight(u, v)
				rank += d * scores[u] * w / outWeight[u]
			}
			next[v] = rank
		}

		var delta float64
		for _, id := range nodes {
			delta += math.Abs(next[id] - scores[id])
		}
		scores, next = next, scores
		result.Iterations = iter + 1
		result.Delta = delta

		if delta < float64(n)*opts.Tolerance {
			result.Converged = true
			break
		}
	}
	result.Scores = scores

	logger.Debug("pagerank completed",
		"scope", snap.Scope,
		"iterations", result.Iterations,
		"converged", result.Converged,
		"delta", result.Delta,
		"node_count", n)

	span.SetAttributes(
		attribute.Int("iterations", result.Iterations),
		attribute.Bool("converged", result.Converged),
	)
	return result, nil
}
