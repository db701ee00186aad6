package graph

import (
	"log/slog"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
)

// Builder materializes Snapshots from node and edge tables
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a graph builder instance
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger.With("component", "graph")}
}

// BuildStats tracks graph construction statistics
type BuildStats struct {
	Nodes          int
	Edges          int // distinct directed edges
	Records        int // edge records folded into Edges
	DroppedEdges   int // an endpoint was not materialized
	SelfLoops      int
	DuplicateNodes int
}

// Build adds every developer as a node, then every event whose endpoints are
// both nodes. Events touching unknown developers are dropped silently (counted
// in stats). Repeated same-direction events accumulate weight.
// Returns an EmptyScope error when developers is empty.
func (b *Builder) Build(scope string, developers []models.Developer, events []models.CollaborationEvent) (*Snapshot, *BuildStats, error) {
	stats := &BuildStats{}
	snap := newSnapshot(scope)

	for _, d := range developers {
		if !snap.addNode(d) {
			stats.DuplicateNodes++
		}
	}
	if snap.NodeCount() == 0 {
		return nil, stats, errors.EmptyScopef("scope %q has no nodes", scope).WithContext("scope", scope)
	}
	snap.seal()

	for _, e := range events {
		if e.Source == e.Target {
			stats.SelfLoops++
			continue
		}
		if !snap.HasNode(e.Source) || !snap.HasNode(e.Target) {
			stats.DroppedEdges++
			continue
		}
		snap.addEdge(e.Source, e.Target, e.Weight)
		stats.Records++
	}

	stats.Nodes = snap.NodeCount()
	stats.Edges = snap.EdgeCount()

	b.logger.Debug("snapshot built",
		"scope", scope,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"dropped", stats.DroppedEdges,
		"self_loops", stats.SelfLoops)

	return snap, stats, nil
}

// BuildEdges builds a snapshot from canonical edges, one directed edge per pair
func (b *Builder) BuildEdges(scope string, developers []models.Developer, edges []models.CanonicalEdge) (*Snapshot, *BuildStats, error) {
	events := make([]models.CollaborationEvent, 0, len(edges))
	for _, e := range edges {
		events = append(events, models.CollaborationEvent{Source: e.Source, Target: e.Target, Weight: e.Weight})
	}
	return b.Build(scope, developers, events)
}

// BuildSnapshot builds with a default Builder
func BuildSnapshot(scope string, developers []models.Developer, events []models.CollaborationEvent) (*Snapshot, error) {
	snap, _, err := NewBuilder(nil).Build(scope, developers, events)
	return snap, err
}

// ActiveDevelopers returns the developers appearing as a source or target in
// events, plus any ids in extra. Ids absent from the directory are returned
// in unknown, ascending.
func ActiveDevelopers(directory map[models.DeveloperID]models.Developer, events []models.CollaborationEvent, extra ...models.DeveloperID) (active []models.Developer, unknown []models.DeveloperID) {
	ids := make(map[models.DeveloperID]struct{})
	mark := func(id models.DeveloperID) { ids[id] = struct{}{} }
	for _, e := range events {
		mark(e.Source)
		mark(e.Target)
	}
	for _, id := range extra {
		mark(id)
	}

	for _, id := range sortedKeys(ids) {
		d, ok := directory[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		active = append(active, d)
	}
	return active, unknown
}
