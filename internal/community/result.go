package community

import (
	"math"
	"sort"

	"github.com/perrrseus/OpenSaga/internal/models"
)

// Result is a partition of a snapshot's nodes. Community ids are contiguous
// from 0 and numbered by first appearance over ascending node ids.
type Result struct {
	Strategy    string
	Assignments map[models.DeveloperID]int
	Sizes       []int
	Modularity  float64
	// FellBack is set when the preferred strategy could not run
	FellBack bool
}

// newResult relabels raw labels contiguously in node order
func newResult(strategy string, nodes []models.DeveloperID, raw map[models.DeveloperID]int) *Result {
	res := &Result{
		Strategy:    strategy,
		Assignments: make(map[models.DeveloperID]int, len(nodes)),
	}
	relabel := make(map[int]int)
	for _, id := range nodes {
		label, ok := relabel[raw[id]]
		if !ok {
			label = len(relabel)
			relabel[raw[id]] = label
			res.Sizes = append(res.Sizes, 0)
		}
		res.Assignments[id] = label
		res.Sizes[label]++
	}
	return res
}

// Count returns the number of communities
func (r *Result) Count() int { return len(r.Sizes) }

// Members returns the ids in community c, ascending
func (r *Result) Members(c int) []models.DeveloperID {
	var ids []models.DeveloperID
	for id, label := range r.Assignments {
		if label == c {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SizeStats returns the mean and population standard deviation of community
// sizes. The deviation is 0 with fewer than two communities.
func (r *Result) SizeStats() (mean, std float64) {
	if len(r.Sizes) == 0 {
		return 0, 0
	}
	var total float64
	for _, s := range r.Sizes {
		total += float64(s)
	}
	mean = total / float64(len(r.Sizes))
	if len(r.Sizes) < 2 {
		return mean, 0
	}
	var sq float64
	for _, s := range r.Sizes {
		d := float64(s) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(r.Sizes)))
}

// Rows flattens the partition into assignment records ordered by developer id
func (r *Result) Rows(yearMonth string, monthIndex int) []models.CommunityAssignment {
	ids := make([]models.DeveloperID, 0, len(r.Assignments))
	for id := range r.Assignments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]models.CommunityAssignment, 0, len(ids))
	for _, id := range ids {
		c := r.Assignments[id]
		rows = append(rows, models.CommunityAssignment{
			YearMonth:     yearMonth,
			MonthIndex:    monthIndex,
			DeveloperID:   id,
			CommunityID:   c,
			CommunitySize: r.Sizes[c],
		})
	}
	return rows
}
