package graph

import (
	"sort"

	"github.com/perrrseus/OpenSaga/internal/models"
)

// Snapshot is a directed weighted graph materialized for one analysis scope.
// Parallel edges are folded into one directed edge whose weight is the sum.
type Snapshot struct {
	Scope string

	nodes []models.DeveloperID
	attrs map[models.DeveloperID]models.Developer
	out   map[models.DeveloperID]map[models.DeveloperID]float64
	in    map[models.DeveloperID]map[models.DeveloperID]float64

	edgeCount   int
	totalWeight float64
}

func newSnapshot(scope string) *Snapshot {
	return &Snapshot{
		Scope: scope,
		attrs: make(map[models.DeveloperID]models.Developer),
		out:   make(map[models.DeveloperID]map[models.DeveloperID]float64),
		in:    make(map[models.DeveloperID]map[models.DeveloperID]float64),
	}
}

func (s *Snapshot) addNode(d models.Developer) bool {
	if _, ok := s.attrs[d.ID]; ok {
		return false
	}
	s.attrs[d.ID] = d
	s.nodes = append(s.nodes, d.ID)
	s.out[d.ID] = make(map[models.DeveloperID]float64)
	s.in[d.ID] = make(map[models.DeveloperID]float64)
	return true
}

// addEdge accumulates weight on u->v. Both endpoints must exist.
func (s *Snapshot) addEdge(u, v models.DeveloperID, w float64) {
	if _, seen := s.out[u][v]; !seen {
		s.edgeCount++
	}
	s.out[u][v] += w
	s.in[v][u] += w
	s.totalWeight += w
}

func (s *Snapshot) seal() {
	sort.Slice(s.nodes, func(i, j int) bool { return s.nodes[i] < s.nodes[j] })
}

// Nodes returns node ids in ascending order. The slice must not be modified.
func (s *Snapshot) Nodes() []models.DeveloperID { return s.nodes }

// NodeCount returns the number of materialized nodes
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of distinct directed edges
func (s *Snapshot) EdgeCount() int { return s.edgeCount }

// TotalWeight returns the sum of all edge weights
func (s *Snapshot) TotalWeight() float64 { return s.totalWeight }

// HasNode reports whether id is materialized in the snapshot
func (s *Snapshot) HasNode(id models.DeveloperID) bool {
	_, ok := s.attrs[id]
	return ok
}

// Developer returns the attribute payload carried by a node
func (s *Snapshot) Developer(id models.DeveloperID) (models.Developer, bool) {
	d, ok := s.attrs[id]
	return d, ok
}

// Weight returns the accumulated weight of u->v and whether the edge exists
func (s *Snapshot) Weight(u, v models.DeveloperID) (float64, bool) {
	w, ok := s.out[u][v]
	return w, ok
}

// Successors returns the out-neighbours of id in ascending order
func (s *Snapshot) Successors(id models.DeveloperID) []models.DeveloperID {
	return sortedKeys(s.out[id])
}

// Predecessors returns the in-neighbours of id in ascending order
func (s *Snapshot) Predecessors(id models.DeveloperID) []models.DeveloperID {
	return sortedKeys(s.in[id])
}

// OutDegree counts distinct successors
func (s *Snapshot) OutDegree(id models.DeveloperID) int { return len(s.out[id]) }

// InDegree counts distinct predecessors
func (s *Snapshot) InDegree(id models.DeveloperID) int { return len(s.in[id]) }

// OutWeight sums the weights of id's outgoing edges
func (s *Snapshot) OutWeight(id models.DeveloperID) float64 {
	var total float64
	for _, w := range s.out[id] {
		total += w
	}
	return total
}

// Undirected returns the undirected projection: an edge exists if either
// direction exists and its weight is the sum of both directions.
func (s *Snapshot) Undirected() *Undirected {
	u := &Undirected{
		nodes: s.nodes,
		adj:   make(map[models.DeveloperID]map[models.DeveloperID]float64, len(s.nodes)),
	}
	for _, id := range s.nodes {
		u.adj[id] = make(map[models.DeveloperID]float64)
	}
	for _, src := range s.nodes {
		for dst, w := range s.out[src] {
			if _, ok := u.adj[src][dst]; !ok {
				u.edgeCount++
			}
			u.adj[src][dst] += w
			u.adj[dst][src] += w
			u.totalWeight += w
		}
	}
	return u
}

// Undirected is the symmetric projection of a Snapshot
type Undirected struct {
	nodes       []models.DeveloperID
	adj         map[models.DeveloperID]map[models.DeveloperID]float64
	edgeCount   int
	totalWeight float64
}

// Nodes returns node ids in ascending order
func (u *Undirected) Nodes() []models.DeveloperID { return u.nodes }

// EdgeCount returns the number of undirected edges
func (u *Undirected) EdgeCount() int { return u.edgeCount }

// TotalWeight returns the sum of undirected edge weights
func (u *Undirected) TotalWeight() float64 { return u.totalWeight }

// Neighbors returns id's neighbours in ascending order
func (u *Undirected) Neighbors(id models.DeveloperID) []models.DeveloperID {
	return sortedKeys(u.adj[id])
}

// Degree returns the number of distinct neighbours
func (u *Undirected) Degree(id models.DeveloperID) int { return len(u.adj[id]) }

// Weight returns the undirected weight between a and b
func (u *Undirected) Weight(a, b models.DeveloperID) float64 { return u.adj[a][b] }

// Connected reports whether a and b share an edge
func (u *Undirected) Connected(a, b models.DeveloperID) bool {
	_, ok := u.adj[a][b]
	return ok
}

func sortedKeys[V any](m map[models.DeveloperID]V) []models.DeveloperID {
	ids := make([]models.DeveloperID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Components returns the connected components by breadth-first search. Each
// component is sorted ascending and components are ordered by their smallest id.
func (u *Undirected) Components() [][]models.DeveloperID {
	visited := make(map[models.DeveloperID]bool, len(u.nodes))
	var components [][]models.DeveloperID

	for _, start := range u.nodes {
		if visited[start] {
			continue
		}
		visited[start] = true
		component := []models.DeveloperID{start}
		queue := []models.DeveloperID{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range u.Neighbors(cur) {
				if visited[next] {
					continue
				}
				visited[next] = true
				component = append(component, next)
				queue = append(queue, next)
			}
		}
		sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
		components = append(components, component)
	}
	return components
}
