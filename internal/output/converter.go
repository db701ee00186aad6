package output

import (
	"strconv"

	"github.com/perrrseus/OpenSaga/internal/models"
)

// Table names double as output file names
const (
	NodeMetricsTable    = "developer_metrics"
	CoreDevelopersTable = "core_developers"
	CanonicalEdgesTable = "canonical_edges"
	VolumeEdgesTable    = "volume_edges"
	CommunitiesTable    = "community_assignments"
	SummariesTable      = "monthly_summaries"
	TrendsTable         = "collaboration_trends"
	RunsTable           = "runs"
)

var nodeColumns = []string{
	"developer_id", "name", "primary_tech", "activity_level",
	"pagerank_score", "degree_centrality", "betweenness_centrality",
	"pagerank_score_percentile", "degree_centrality_percentile",
	"betweenness_centrality_percentile", "activity_level_percentile",
	"is_core_developer",
}

// FromNodeMetrics converts a node metrics table
func FromNodeMetrics(name string, nodes []models.NodeMetrics) *Table {
	if nodes == nil {
		nodes = []models.NodeMetrics{}
	}
	t := &Table{Name: name, Columns: nodeColumns, Records: nodes}
	for _, n := range nodes {
		t.Rows = append(t.Rows, []string{
			n.ID.String(),
			n.Name,
			n.PrimaryTech,
			formatFloat(n.ActivityLevel),
			formatFloat(n.PageRankScore),
			formatFloat(n.DegreeCentrality),
			formatFloat(n.BetweennessCentrality),
			formatFloat(n.PageRankPercentile),
			formatFloat(n.DegreePercentile),
			formatFloat(n.BetweennessPercentile),
			formatFloat(n.ActivityPercentile),
			strconv.FormatBool(n.IsCoreDeveloper),
		})
	}
	return t
}

// FromEdges converts canonical or volume edges
func FromEdges(name string, edges []models.CanonicalEdge) *Table {
	if edges == nil {
		edges = []models.CanonicalEdge{}
	}
	t := &Table{Name: name, Columns: []string{"source", "target", "weight"}, Records: edges}
	for _, e := range edges {
		t.Rows = append(t.Rows, []string{e.Source.String(), e.Target.String(), formatFloat(e.Weight)})
	}
	return t
}

// FromCommunities converts community assignments
func FromCommunities(rows []models.CommunityAssignment) *Table {
	if rows == nil {
		rows = []models.CommunityAssignment{}
	}
	t := &Table{
		Name:    CommunitiesTable,
		Columns: []string{"year_month", "month_index", "developer_id", "community_id", "community_size"},
		Records: rows,
	}
	for _, c := range rows {
		t.Rows = append(t.Rows, []string{
			c.YearMonth,
			strconv.Itoa(c.MonthIndex),
			c.DeveloperID.String(),
			strconv.Itoa(c.CommunityID),
			strconv.Itoa(c.CommunitySize),
		})
	}
	return t
}

// FromSummaries converts monthly summaries
func FromSummaries(rows []models.MonthlySummary) *Table {
	if rows == nil {
		rows = []models.MonthlySummary{}
	}
	t := &Table{
		Name: SummariesTable,
		Columns: []string{
			"year_month", "month_index", "num_active_developers", "num_collaborations",
			"num_edges", "avg_collab_strength", "num_communities", "avg_community_size",
			"community_size_std", "network_density", "avg_clustering_coefficient",
			"num_connected_components",
		},
		Records: rows,
	}
	for _, m := range rows {
		t.Rows = append(t.Rows, []string{
			m.YearMonth,
			strconv.Itoa(m.MonthIndex),
			strconv.Itoa(m.NumActiveDevelopers),
			strconv.Itoa(m.NumCollaborations),
			strconv.Itoa(m.NumEdges),
			formatFloat(m.AvgCollabStrength),
			strconv.Itoa(m.NumCommunities),
			formatFloat(m.AvgCommunitySize),
			formatFloat(m.CommunitySizeStd),
			formatFloat(m.NetworkDensity),
			formatFloat(m.AvgClusteringCoefficient),
			strconv.Itoa(m.NumConnectedComponents),
		})
	}
	return t
}

// FromTrends converts trend rows
func FromTrends(rows []models.TrendRow) *Table {
	if rows == nil {
		rows = []models.TrendRow{}
	}
	t := &Table{
		Name: TrendsTable,
		Columns: []string{
			"year_month", "num_collaborations", "num_active_developers", "avg_collab_weight",
			"unique_pairs", "collab_type", "non_unique", "target_value",
		},
		Records: rows,
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.YearMonth,
			strconv.Itoa(r.NumCollaborations),
			strconv.Itoa(r.NumActiveDevelopers),
			formatFloat(r.AvgCollabWeight),
			strconv.Itoa(r.UniquePairs),
			r.CollabType,
			strconv.Itoa(r.NonUnique),
			strconv.Itoa(r.TargetValue),
		})
	}
	return t
}

// FromRuns converts stored run headers
func FromRuns(runs []models.Run) *Table {
	if runs == nil {
		runs = []models.Run{}
	}
	t := &Table{Name: RunsTable, Columns: []string{"id", "kind", "scope", "created_at"}, Records: runs}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{r.ID, r.Kind, r.Scope, r.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	return t
}

// formatFloat writes the shortest representation that round-trips
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
