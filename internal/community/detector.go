package community

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/graph"
)

// FallbackHook is notified whenever the preferred strategy is bypassed
type FallbackHook func(strategy string, reason error)

// Detector runs a preferred partitioner and degrades to connected components
// when the preferred one is unavailable or fails. The choice of preferred
// strategy is fixed at construction.
type Detector struct {
	preferred Partitioner
	fallback  Partitioner
	reason    error
	hook      FallbackHook
	logger    *slog.Logger
}

// DetectorOption configures a Detector
type DetectorOption func(*Detector)

// WithFallbackHook registers a callback for degraded-mode notices
func WithFallbackHook(hook FallbackHook) DetectorOption {
	return func(d *Detector) { d.hook = hook }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) DetectorOption {
	return func(d *Detector) { d.logger = logger }
}

// NewDetector checks preferred once. If it is nil or unavailable every
// Detect call goes straight to the components strategy and reports a fallback.
func NewDetector(preferred Partitioner, opts ...DetectorOption) *Detector {
	d := &Detector{
		fallback: ConnectedComponentsPartitioner{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "community")

	if preferred == nil {
		return d
	}
	if l, ok := preferred.(interface{ SetLogger(*slog.Logger) }); ok {
		l.SetLogger(d.logger)
	}
	if preferred.Name() == d.fallback.Name() {
		return d
	}
	if err := preferred.Available(); err != nil {
		d.reason = err
		d.logger.Warn("preferred community strategy unavailable, using connected components",
			"strategy", preferred.Name(),
			"reason", err)
		return d
	}
	d.preferred = preferred
	return d
}

// NewDetectorForStrategy builds a Detector from a configured strategy name
func NewDetectorForStrategy(strategy string, seed int64, resolution float64, maxPasses int, opts ...DetectorOption) *Detector {
	switch strategy {
	case StrategyComponents:
		return NewDetector(nil, opts...)
	default:
		return NewDetector(&ModularityPartitioner{Seed: seed, Resolution: resolution, MaxPasses: maxPasses}, opts...)
	}
}

// Strategy names the partitioner Detect tries first
func (d *Detector) Strategy() string {
	if d.preferred != nil {
		return d.preferred.Name()
	}
	return d.fallback.Name()
}

// Describe identifies the effective strategy and its parameters
func (d *Detector) Describe() string {
	if s, ok := d.preferred.(fmt.Stringer); ok {
		return s.String()
	}
	return d.fallback.Name()
}

// Detect partitions snap. DependencyUnavailable never escapes: it is logged
// and answered by the fallback. Only a fallback failure is returned, as a
// critical error.
func (d *Detector) Detect(ctx context.Context, snap *graph.Snapshot) (*Result, error) {
	if snap == nil || snap.NodeCount() == 0 {
		return nil, errors.EmptyScopef("no snapshot to partition")
	}

	if d.preferred != nil {
		res, err := d.preferred.Partition(ctx, snap)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn("community detection degraded to connected components",
			"bucket", snap.Scope,
			"strategy", d.preferred.Name(),
			"reason", err)
		d.notify(d.preferred.Name(), err)
	} else if d.reason != nil {
		d.notify(StrategyModularity, d.reason)
	}

	res, err := d.fallback.Partition(ctx, snap)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityCritical,
			"all community detection strategies failed").WithContext("scope", snap.Scope)
	}
	res.FellBack = d.preferred != nil || d.reason != nil
	return res, nil
}

func (d *Detector) notify(strategy string, reason error) {
	if d.hook != nil {
		d.hook(strategy, reason)
	}
}
