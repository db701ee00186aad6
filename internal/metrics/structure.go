package metrics

import (
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/graph"
)

// Density is distinct directed edges over n(n-1). Fewer than two nodes or no
// edges yields 0 with a NumericDegeneracy error.
func Density(snap *graph.Snapshot) (float64, error) {
	n := snap.NodeCount()
	if n <= 1 || snap.EdgeCount() == 0 {
		return 0, errors.NumericDegeneracyf("density undefined for %d nodes, %d edges", n, snap.EdgeCount())
	}
	return float64(snap.EdgeCount()) / float64(n*(n-1)), nil
}

// AverageClustering averages local clustering over every node of the
// unweighted undirected projection. Nodes with degree < 2 contribute 0.
func AverageClustering(u *graph.Undirected) (float64, error) {
	nodes := u.Nodes()
	if len(nodes) == 0 || u.EdgeCount() == 0 {
		return 0, errors.NumericDegeneracyf("clustering undefined for %d nodes, %d edges", len(nodes), u.EdgeCount())
	}

	var total float64
	for _, v := range nodes {
		neighbors := u.Neighbors(v)
		k := len(neighbors)
		if k < 2 {
			continue
		}
		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if u.Connected(neighbors[i], neighbors[j]) {
					links++
				}
			}
		}
		total += 2 * float64(links) / float64(k*(k-1))
	}
	return total / float64(len(nodes)), nil
}

// ConnectedComponents counts components of the undirected projection.
// An edgeless projection has one component per node.
func ConnectedComponents(u *graph.Undirected) int {
	return len(u.Components())
}
