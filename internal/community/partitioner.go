// Package community partitions snapshots into collaboration groups.
package community

import (
	"context"

	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/models"
)

// Strategy names
const (
	StrategyModularity = "modularity"
	StrategyComponents = "components"
)

// Partitioner assigns every node of a snapshot to exactly one community
type Partitioner interface {
	// Name identifies the strategy in logs and results
	Name() string
	// Available reports why the strategy cannot run, or nil
	Available() error
	// Partition computes the assignment for one snapshot
	Partition(ctx context.Context, snap *graph.Snapshot) (*Result, error)
}

// ConnectedComponentsPartitioner groups nodes by connected component of the
// undirected projection. It is deterministic and always available.
type ConnectedComponentsPartitioner struct{}

// Name returns "components"
func (ConnectedComponentsPartitioner) Name() string { return StrategyComponents }

// Available always returns nil
func (ConnectedComponentsPartitioner) Available() error { return nil }

// Partition labels each component in order of its smallest node id
func (p ConnectedComponentsPartitioner) Partition(ctx context.Context, snap *graph.Snapshot) (*Result, error) {
	_, span := tracer.Start(ctx, "community.Components")
	defer span.End()

	raw := make(map[models.DeveloperID]int, snap.NodeCount())
	for label, component := range snap.Undirected().Components() {
		for _, id := range component {
			raw[id] = label
		}
	}
	return newResult(p.Name(), snap.Nodes(), raw), nil
}
