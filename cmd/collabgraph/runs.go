package main

import (
	"github.com/perrrseus/OpenSaga/internal/output"
	"github.com/perrrseus/OpenSaga/internal/storage"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored runs",
	Long:  `List and reload runs saved to the configured result store (sqlite or postgres).`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the tables of a stored run",
	Long: `Print the tables saved with a run. For evolve runs --month restricts the
summary and community tables to the given months.

Examples:
  collabgraph runs show 0b6c... --month 2025-01 --month 2025-02`,
	Args: cobra.ExactArgs(1),
	RunE: runRunsShow,
}

var (
	runsKind  string
	runsLimit int
	months    []string
)

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().StringVar(&runsKind, "kind", "", "only runs of this kind (analyze, evolve, dedup, volume)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsShowCmd.Flags().StringSliceVar(&months, "month", nil, "restrict to year-month (repeatable)")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), runsKind, runsLimit)
	if err != nil {
		return err
	}
	return emit(output.FromRuns(runs))
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		return err
	}

	switch run.Kind {
	case storage.KindDedup:
		edges, err := store.LoadEdges(ctx, run.ID)
		if err != nil {
			return err
		}
		return emit(output.FromEdges(output.CanonicalEdgesTable, edges))

	case storage.KindVolume:
		edges, err := store.LoadEdges(ctx, run.ID)
		if err != nil {
			return err
		}
		return emit(output.FromEdges(output.VolumeEdgesTable, edges))

	case storage.KindAnalyze:
		nodes, err := store.LoadNodeMetrics(ctx, run.ID)
		if err != nil {
			return err
		}
		communities, err := store.LoadCommunities(ctx, run.ID)
		if err != nil {
			return err
		}
		return emit(output.FromNodeMetrics(output.NodeMetricsTable, nodes), output.FromCommunities(communities))

	default:
		summaries, err := store.LoadSummaries(ctx, run.ID, months...)
		if err != nil {
			return err
		}
		communities, err := store.LoadCommunities(ctx, run.ID, months...)
		if err != nil {
			return err
		}
		trends, err := store.LoadTrends(ctx, run.ID)
		if err != nil {
			return err
		}
		return emit(output.FromSummaries(summaries), output.FromCommunities(communities), output.FromTrends(trends))
	}
}
