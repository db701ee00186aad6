package models

import (
	"fmt"
	"time"
)

// YearMonthLayout is the bucket label format (e.g. "2025-03")
const YearMonthLayout = "2006-01"

// DeveloperID identifies a developer. Canonical edge keys order ids numerically.
type DeveloperID int64

// String returns the decimal form of the id
func (id DeveloperID) String() string {
	return fmt.Sprintf("%d", int64(id))
}

// Developer is a node record, immutable for the analysis window
type Developer struct {
	ID            DeveloperID `json:"developer_id" yaml:"developer_id" db:"developer_id"`
	Name          string      `json:"name" yaml:"name" db:"name"`
	PrimaryTech   string      `json:"primary_tech" yaml:"primary_tech" db:"primary_tech"`
	ActivityLevel float64     `json:"activity_level" yaml:"activity_level" db:"activity_level"`
}

// CollaborationEvent is one raw, timestamped, directed edge record.
// Events between the same pair are not pre-deduplicated.
type CollaborationEvent struct {
	Source    DeveloperID `json:"source" yaml:"source" db:"source"`
	Target    DeveloperID `json:"target" yaml:"target" db:"target"`
	Weight    float64     `json:"weight" yaml:"weight" db:"weight"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp" db:"timestamp"`
	YearMonth string      `json:"year_month" yaml:"year_month" db:"year_month"`
}

// Bucket returns the event's year-month label, deriving it from the timestamp when unset
func (e CollaborationEvent) Bucket() string {
	if e.YearMonth != "" {
		return e.YearMonth
	}
	if e.Timestamp.IsZero() {
		return ""
	}
	return e.Timestamp.UTC().Format(YearMonthLayout)
}

// CanonicalEdge is an undirected pair (Source < Target) with one resolved strength
type CanonicalEdge struct {
	Source DeveloperID `json:"source" yaml:"source" db:"source"`
	Target DeveloperID `json:"target" yaml:"target" db:"target"`
	Weight float64     `json:"weight" yaml:"weight" db:"weight"`
}

// NodeMetrics is the per-node output row of one snapshot
type NodeMetrics struct {
	Developer `yaml:",inline"`

	PageRankScore         float64 `json:"pagerank_score" yaml:"pagerank_score" db:"pagerank_score"`
	DegreeCentrality      float64 `json:"degree_centrality" yaml:"degree_centrality" db:"degree_centrality"`
	BetweennessCentrality float64 `json:"betweenness_centrality" yaml:"betweenness_centrality" db:"betweenness_centrality"`

	PageRankPercentile    float64 `json:"pagerank_score_percentile" yaml:"pagerank_score_percentile" db:"pagerank_score_percentile"`
	DegreePercentile      float64 `json:"degree_centrality_percentile" yaml:"degree_centrality_percentile" db:"degree_centrality_percentile"`
	BetweennessPercentile float64 `json:"betweenness_centrality_percentile" yaml:"betweenness_centrality_percentile" db:"betweenness_centrality_percentile"`
	ActivityPercentile    float64 `json:"activity_level_percentile" yaml:"activity_level_percentile" db:"activity_level_percentile"`

	IsCoreDeveloper bool `json:"is_core_developer" yaml:"is_core_developer" db:"is_core_developer"`
}

// CommunityAssignment maps one developer to a community within one bucket.
// Community ids carry no meaning across buckets.
type CommunityAssignment struct {
	YearMonth     string      `json:"year_month" yaml:"year_month" db:"year_month"`
	MonthIndex    int         `json:"month_index" yaml:"month_index" db:"month_index"`
	DeveloperID   DeveloperID `json:"developer_id" yaml:"developer_id" db:"developer_id"`
	CommunityID   int         `json:"community_id" yaml:"community_id" db:"community_id"`
	CommunitySize int         `json:"community_size" yaml:"community_size" db:"community_size"`
}

// MonthlySummary is the per-bucket structural summary
type MonthlySummary struct {
	YearMonth                string  `json:"year_month" yaml:"year_month" db:"year_month"`
	MonthIndex               int     `json:"month_index" yaml:"month_index" db:"month_index"`
	NumActiveDevelopers      int     `json:"num_active_developers" yaml:"num_active_developers" db:"num_active_developers"`
	NumCollaborations        int     `json:"num_collaborations" yaml:"num_collaborations" db:"num_collaborations"`
	NumEdges                 int     `json:"num_edges" yaml:"num_edges" db:"num_edges"`
	AvgCollabStrength        float64 `json:"avg_collab_strength" yaml:"avg_collab_strength" db:"avg_collab_strength"`
	NumCommunities           int     `json:"num_communities" yaml:"num_communities" db:"num_communities"`
	AvgCommunitySize         float64 `json:"avg_community_size" yaml:"avg_community_size" db:"avg_community_size"`
	CommunitySizeStd         float64 `json:"community_size_std" yaml:"community_size_std" db:"community_size_std"`
	NetworkDensity           float64 `json:"network_density" yaml:"network_density" db:"network_density"`
	AvgClusteringCoefficient float64 `json:"avg_clustering_coefficient" yaml:"avg_clustering_coefficient" db:"avg_clustering_coefficient"`
	NumConnectedComponents   int     `json:"num_connected_components" yaml:"num_connected_components" db:"num_connected_components"`
}

// Trend row kinds
const (
	CollabTypeUnique    = "unique"
	CollabTypeNonUnique = "non_unique"
	CollabTypeTotal     = "total"
)

// TrendRow is one of the three per-bucket collaboration volume rows
type TrendRow struct {
	YearMonth           string  `json:"year_month" yaml:"year_month" db:"year_month"`
	NumCollaborations   int     `json:"num_collaborations" yaml:"num_collaborations" db:"num_collaborations"`
	NumActiveDevelopers int     `json:"num_active_developers" yaml:"num_active_developers" db:"num_active_developers"`
	AvgCollabWeight     float64 `json:"avg_collab_weight" yaml:"avg_collab_weight" db:"avg_collab_weight"`
	UniquePairs         int     `json:"unique_pairs" yaml:"unique_pairs" db:"unique_pairs"`
	CollabType          string  `json:"collab_type" yaml:"collab_type" db:"collab_type"`
	NonUnique           int     `json:"non_unique" yaml:"non_unique" db:"non_unique"`
	TargetValue         int     `json:"target_value" yaml:"target_value" db:"target_value"`
}

// Run identifies one stored analysis execution
type Run struct {
	ID        string    `json:"id" yaml:"id" db:"id"`
	Kind      string    `json:"kind" yaml:"kind" db:"kind"`
	Scope     string    `json:"scope" yaml:"scope" db:"scope"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
}
