package metrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/models"
)

// Result holds every structural metric for one snapshot
type Result struct {
	Scope       string
	PageRank    map[models.DeveloperID]float64
	Degree      map[models.DeveloperID]float64
	Betweenness map[models.DeveloperID]float64

	Density    float64
	Clustering float64
	Components int

	Iterations int
	Converged  bool
	// Degenerate is set when a metric fell back to its documented default
	Degenerate bool
}

// Computer runs the metric suite over snapshots
type Computer struct {
	opts   Options
	logger *slog.Logger
}

// NewComputer creates a metric computer. Out-of-range options fall back to defaults.
func NewComputer(opts Options, logger *slog.Logger) *Computer {
	opts.Validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Computer{
		opts:   opts,
		logger: logger.With("component", "metrics"),
	}
}

// Options returns the validated ranking options
func (c *Computer) Options() Options { return c.opts }

// Compute calculates influence, degree, betweenness, density, clustering and
// component count. Degenerate inputs (edgeless or single-node) recover to
// zero density and clustering, uniform influence, one component per node.
func (c *Computer) Compute(ctx context.Context, snap *graph.Snapshot) (*Result, error) {
	if snap == nil || snap.NodeCount() == 0 {
		return nil, errors.EmptyScopef("no snapshot to compute metrics on")
	}

	ctx, span := tracer.Start(ctx, "metrics.Compute",
		trace.WithAttributes(
			attribute.String("scope", snap.Scope),
			attribute.Int("node_count", snap.NodeCount()),
			attribute.Int("edge_count", snap.EdgeCount()),
		),
	)
	defer span.End()
	start := time.Now()

	result := &Result{Scope: snap.Scope}
	absorb := func(metric string, err error) {
		if err == nil {
			return
		}
		if !errors.IsType(err, errors.ErrorTypeNumericDegeneracy) {
			c.logger.Warn("unexpected metric error", "scope", snap.Scope, "metric", metric, "error", err)
		}
		result.Degenerate = true
	}

	pr, err := pageRank(ctx, snap, c.opts, c.logger)
	absorb("pagerank", err)
	result.PageRank = pr.Scores
	result.Iterations = pr.Iterations
	result.Converged = pr.Converged
	if !pr.Converged {
		c.logger.Warn("pagerank did not converge",
			"scope", snap.Scope,
			"iterations", pr.Iterations,
			"delta", pr.Delta)
	}

	result.Degree = DegreeCentrality(snap)
	result.Betweenness = Betweenness(snap)

	result.Density, err = Density(snap)
	absorb("density", err)

	undirected := snap.Undirected()
	result.Clustering, err = AverageClustering(undirected)
	absorb("clustering", err)
	result.Components = ConnectedComponents(undirected)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.Debug("metrics computed",
		"scope", snap.Scope,
		"nodes", snap.NodeCount(),
		"edges", snap.EdgeCount(),
		"degenerate", result.Degenerate,
		"duration", time.Since(start))

	return result, nil
}
