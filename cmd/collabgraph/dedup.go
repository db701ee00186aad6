package main

import (
	"github.com/perrrseus/OpenSaga/internal/canonical"
	"github.com/perrrseus/OpenSaga/internal/output"
	"github.com/perrrseus/OpenSaga/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "List the strongest undirected collaboration pairs",
	Long: `Collapse directed, repeated collaboration events into one undirected edge
per developer pair. The pair strength is the maximum weight seen in either
direction. Edges are listed strongest first.

Examples:
  collabgraph dedup --top 20
  collabgraph dedup --top 0 --clamp 1.5 -f csv`,
	RunE: runDedup,
}

var (
	topK     int
	clampMax float64
)

func init() {
	dedupCmd.Flags().IntVar(&topK, "top", -1, "number of edges to keep, 0 for all (default from config)")
	dedupCmd.Flags().Float64Var(&clampMax, "clamp", -1, "upper bound on edge strength, 0 disables (default from config)")
}

func runDedup(cmd *cobra.Command, args []string) error {
	if topK >= 0 {
		cfg.Dedup.TopK = topK
	}
	if clampMax >= 0 {
		cfg.Dedup.ClampMax = clampMax
	}

	in, err := loadInputs()
	if err != nil {
		return err
	}

	resolved, skipped := canonical.Canonicalize(canonical.FromEvents(in.events))
	if skipped > 0 {
		counters.RecordMalformed("events", "self_loop", skipped)
	}
	edges := canonical.Clamp(canonical.TopK(resolved, cfg.Dedup.TopK), cfg.Dedup.ClampMax)

	logger.WithFields(logrus.Fields{
		"pairs": len(resolved),
		"kept":  len(edges),
	}).Info("Edges canonicalized")

	persist(cmd.Context(), &storage.RunData{Kind: storage.KindDedup, Scope: "all", Edges: edges})
	return emit(output.FromEdges(output.CanonicalEdgesTable, edges))
}
