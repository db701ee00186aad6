// Package temporal drives per-month snapshot analysis and assembles the
// monthly time series.
package temporal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/perrrseus/OpenSaga/internal/community"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/metrics"
	"github.com/perrrseus/OpenSaga/internal/models"
	"github.com/perrrseus/OpenSaga/internal/ranking"
)

// Cache stores computed bucket results keyed by a content fingerprint
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Options configures an Aggregator
type Options struct {
	CoreQuantile float64
	FillGaps     bool
	Workers      int
}

// BucketResult is the full analysis of one scope
type BucketResult struct {
	Summary     models.MonthlySummary        `json:"summary"`
	Communities []models.CommunityAssignment `json:"communities"`
	Nodes       []models.NodeMetrics         `json:"nodes"`
	Strategy    string                       `json:"strategy"`
	FellBack    bool                         `json:"fell_back"`
	Unknown     []models.DeveloperID         `json:"unknown,omitempty"`
	Cached      bool                         `json:"-"`
}

// Result is the time series produced by Run
type Result struct {
	Buckets     []BucketResult
	Summaries   []models.MonthlySummary
	Communities []models.CommunityAssignment
	Trends      []models.TrendRow
	Rejected    int
}

// Aggregator runs the snapshot pipeline across monthly buckets
type Aggregator struct {
	builder  *graph.Builder
	computer *metrics.Computer
	detector *community.Detector
	cache    Cache
	opts     Options
	onBucket func(BucketResult)
	logger   *slog.Logger
}

// Option configures optional Aggregator collaborators
type Option func(*Aggregator)

// WithCache enables bucket result caching
func WithCache(c Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

// WithBucketHook is called once per processed bucket, in completion order
func WithBucketHook(fn func(BucketResult)) Option {
	return func(a *Aggregator) { a.onBucket = fn }
}

// NewAggregator wires the pipeline stages together
func NewAggregator(computer *metrics.Computer, detector *community.Detector, opts Options, logger *slog.Logger, options ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CoreQuantile <= 0 || opts.CoreQuantile > 1 {
		opts.CoreQuantile = ranking.DefaultCoreQuantile
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	a := &Aggregator{
		builder:  graph.NewBuilder(logger),
		computer: computer,
		detector: detector,
		opts:     opts,
		logger:   logger.With("component", "temporal"),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Run groups events into months and analyses each one. Results are ordered
// chronologically regardless of worker count.
func (a *Aggregator) Run(ctx context.Context, developers []models.Developer, events []models.CollaborationEvent, activity map[string][]models.DeveloperID) (*Result, error) {
	if len(developers) == 0 {
		return nil, errors.ValidationError("developer table is empty")
	}

	directory := make(map[models.DeveloperID]models.Developer, len(developers))
	for _, d := range developers {
		if _, ok := directory[d.ID]; !ok {
			directory[d.ID] = d
		}
	}

	buckets, rejected := GroupBuckets(events, activity, a.opts.FillGaps)
	if rejected > 0 {
		a.logger.Warn("records without a valid year_month skipped", "skipped", rejected)
	}

	results := make([]BucketResult, len(buckets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i := range buckets {
		i := i
		g.Go(func() error {
			res, err := a.processBucket(gctx, directory, buckets[i])
			if err != nil {
				return fmt.Errorf("bucket %s: %w", buckets[i].Label, err)
			}
			results[i] = *res
			if a.onBucket != nil {
				a.onBucket(*res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{Buckets: results, Trends: Trends(buckets), Rejected: rejected}
	for _, r := range results {
		out.Summaries = append(out.Summaries, r.Summary)
		out.Communities = append(out.Communities, r.Communities...)
	}
	return out, nil
}

func (a *Aggregator) processBucket(ctx context.Context, directory map[models.DeveloperID]models.Developer, b Bucket) (*BucketResult, error) {
	active, unknown := graph.ActiveDevelopers(directory, b.Events, b.Activity...)
	if len(unknown) > 0 {
		a.logger.Warn("events reference unknown developers",
			"bucket", b.Label,
			"skipped", len(unknown))
	}

	var key string
	if a.cache != nil {
		key = a.fingerprint(b, active)
		var cached BucketResult
		hit, err := a.cache.Get(ctx, key, &cached)
		if err != nil {
			a.logger.Warn("cache error (non-fatal)", "bucket", b.Label, "error", err)
		} else if hit {
			a.logger.Debug("bucket served from cache", "bucket", b.Label)
			cached.Cached = true
			return &cached, nil
		}
	}

	res, err := a.Analyze(ctx, b.Label, b.Index, active, b.Events)
	if err != nil {
		if !errors.IsType(err, errors.ErrorTypeEmptyScope) {
			return nil, err
		}
		a.logger.Warn("bucket has no active developers", "bucket", b.Label, "reason", err)
		// structural metrics stay zero; event volume still matches the trend rows
		res = &BucketResult{Summary: models.MonthlySummary{
			YearMonth:         b.Label,
			MonthIndex:        b.Index,
			NumCollaborations: len(b.Events),
			AvgCollabStrength: round(meanWeight(b.Events), 4),
		}}
	}
	res.Unknown = unknown

	a.logger.Debug("bucket processed",
		"bucket", b.Label,
		"nodes", res.Summary.NumActiveDevelopers,
		"edges", res.Summary.NumEdges,
		"undirected_pairs", UndirectedPairs(b),
		"communities", res.Summary.NumCommunities)

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, res); err != nil {
			a.logger.Warn("failed to cache bucket result", "bucket", b.Label, "error", err)
		}
	}
	return res, nil
}

// Analyze builds a snapshot of developers and events for one scope and runs
// metrics, community detection and node ranking on it. An empty developer
// list yields an EmptyScope error.
func (a *Aggregator) Analyze(ctx context.Context, scope string, index int, developers []models.Developer, events []models.CollaborationEvent) (*BucketResult, error) {
	snap, _, err := a.builder.Build(scope, developers, events)
	if err != nil {
		return nil, err
	}

	mres, err := a.computer.Compute(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}
	comm, err := a.detector.Detect(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("detect communities: %w", err)
	}

	mean, std := comm.SizeStats()
	summary := models.MonthlySummary{
		YearMonth:                scope,
		MonthIndex:               index,
		NumActiveDevelopers:      snap.NodeCount(),
		NumCollaborations:        len(events),
		NumEdges:                 snap.EdgeCount(),
		AvgCollabStrength:        round(meanWeight(events), 4),
		NumCommunities:           comm.Count(),
		AvgCommunitySize:         round(mean, 1),
		CommunitySizeStd:         round(std, 2),
		NetworkDensity:           round(mres.Density, 4),
		AvgClusteringCoefficient: round(mres.Clustering, 4),
		NumConnectedComponents:   mres.Components,
	}

	return &BucketResult{
		Summary:     summary,
		Communities: comm.Rows(scope, index),
		Nodes:       ranking.BuildNodeTable(snap, mres, a.opts.CoreQuantile),
		Strategy:    comm.Strategy,
		FellBack:    comm.FellBack,
	}, nil
}

// fingerprint hashes bucket content and every parameter that affects the result
func (a *Aggregator) fingerprint(b Bucket, active []models.Developer) string {
	h := sha256.New()
	mopts := a.computer.Options()
	fmt.Fprintf(h, "v1|%s|%d|%s|%g|%d|%g|%g\n", b.Label, b.Index, a.detector.Describe(),
		mopts.DampingFactor, mopts.MaxIterations, mopts.Tolerance, a.opts.CoreQuantile)
	for _, d := range active {
		fmt.Fprintf(h, "n|%d|%s|%s|%g\n", d.ID, d.Name, d.PrimaryTech, d.ActivityLevel)
	}

	events := append([]models.CollaborationEvent(nil), b.Events...)
	sort.Slice(events, func(i, j int) bool {
		if events[i].Source != events[j].Source {
			return events[i].Source < events[j].Source
		}
		if events[i].Target != events[j].Target {
			return events[i].Target < events[j].Target
		}
		if events[i].Weight != events[j].Weight {
			return events[i].Weight < events[j].Weight
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	for _, e := range events {
		fmt.Fprintf(h, "e|%d|%d|%g|%s\n", e.Source, e.Target, e.Weight, e.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	return "bucket:" + hex.EncodeToString(h.Sum(nil))
}

func meanWeight(events []models.CollaborationEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var total float64
	for _, e := range events {
		total += e.Weight
	}
	return total / float64(len(events))
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
