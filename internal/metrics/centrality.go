package metrics

import (
	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/models"
)

// DegreeCentrality returns (in-degree + out-degree) / (n - 1) per node.
// A single-node snapshot scores 1.
func DegreeCentrality(snap *graph.Snapshot) map[models.DeveloperID]float64 {
	nodes := snap.Nodes()
	out := make(map[models.DeveloperID]float64, len(nodes))
	if len(nodes) == 1 {
		out[nodes[0]] = 1
		return out
	}
	scale := 1.0 / float64(len(nodes)-1)
	for _, id := range nodes {
		out[id] = float64(snap.InDegree(id)+snap.OutDegree(id)) * scale
	}
	return out
}

// Betweenness computes unweighted shortest-path betweenness on the directed
// snapshot (Brandes), normalized by 1/((n-1)(n-2)) when n > 2.
func Betweenness(snap *graph.Snapshot) map[models.DeveloperID]float64 {
	nodes := snap.Nodes()
	bc := make(map[models.DeveloperID]float64, len(nodes))
	for _, id := range nodes {
		bc[id] = 0
	}
	if snap.EdgeCount() == 0 {
		return bc
	}

	for _, s := range nodes {
		stack := make([]models.DeveloperID, 0, len(nodes))
		preds := make(map[models.DeveloperID][]models.DeveloperID)
		sigma := map[models.DeveloperID]float64{s: 1}
		dist := map[models.DeveloperID]int{s: 0}

		queue := []models.DeveloperID{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range snap.Successors(v) {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := make(map[models.DeveloperID]float64, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				bc[w] += delta[w]
			}
		}
	}

	n := len(nodes)
	if n > 2 {
		scale := 1.0 / float64((n-1)*(n-2))
		for id := range bc {
			bc[id] *= scale
		}
	}
	return bc
}
