package main

import (
	"fmt"

	"github.com/perrrseus/OpenSaga/internal/models"
	"github.com/perrrseus/OpenSaga/internal/output"
	"github.com/perrrseus/OpenSaga/internal/ranking"
	"github.com/perrrseus/OpenSaga/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score every developer over the full period",
	Long: `Build one collaboration graph from all events and compute influence
(PageRank), degree and betweenness centrality, percentile ranks, core
developer flags and communities.

Examples:
  collabgraph analyze
  collabgraph analyze --core-only -f json
  collabgraph analyze --write -o results/`,
	RunE: runAnalyze,
}

var coreOnly bool

func init() {
	analyzeCmd.Flags().BoolVar(&coreOnly, "core-only", false, "only print the core developer table")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	in, err := loadInputs()
	if err != nil {
		return err
	}

	agg := newAggregator(nil)
	res, err := agg.Analyze(ctx, "all", 0, in.developers, in.events)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	counters.RecordBucket(res.Strategy)

	core := ranking.CoreDevelopers(res.Nodes)
	logger.WithFields(logrus.Fields{
		"developers":  res.Summary.NumActiveDevelopers,
		"edges":       res.Summary.NumEdges,
		"communities": res.Summary.NumCommunities,
		"core":        len(core),
		"strategy":    res.Strategy,
	}).Info("Analysis complete")

	persist(ctx, &storage.RunData{
		Kind:        storage.KindAnalyze,
		Scope:       "all",
		Summaries:   []models.MonthlySummary{res.Summary},
		Communities: res.Communities,
		Nodes:       res.Nodes,
	})

	if coreOnly {
		return emit(output.FromNodeMetrics(output.CoreDevelopersTable, core))
	}
	return emit(
		output.FromNodeMetrics(output.NodeMetricsTable, res.Nodes),
		output.FromNodeMetrics(output.CoreDevelopersTable, core),
		output.FromCommunities(res.Communities),
	)
}
