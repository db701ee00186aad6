package main

import (
	"fmt"

	"github.com/perrrseus/OpenSaga/internal/cache"
	"github.com/perrrseus/OpenSaga/internal/output"
	"github.com/perrrseus/OpenSaga/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Analyze the network month by month",
	Long: `Group collaboration events into calendar months and analyze each month as
its own snapshot. Produces the monthly summary time series, per-month
community assignments and collaboration volume trends.

Examples:
  collabgraph evolve
  collabgraph evolve --fill-gaps --workers 4
  collabgraph evolve --summaries-only -f json`,
	RunE: runEvolve,
}

var (
	fillGaps      bool
	workers       int
	summariesOnly bool
)

func init() {
	evolveCmd.Flags().BoolVar(&fillGaps, "fill-gaps", false, "emit empty months between the first and last observed month")
	evolveCmd.Flags().IntVar(&workers, "workers", 0, "months analyzed in parallel (default from config)")
	evolveCmd.Flags().BoolVar(&summariesOnly, "summaries-only", false, "only print the monthly summary table")
}

func runEvolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cmd.Flags().Changed("fill-gaps") {
		cfg.Temporal.FillGaps = fillGaps
	}
	if workers > 0 {
		cfg.Temporal.Workers = workers
	}

	in, err := loadInputs()
	if err != nil {
		return err
	}

	resultCache, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		logger.WithError(err).Warn("Cache unavailable, continuing without it")
	}
	if resultCache != nil {
		defer resultCache.Close()
	}

	res, err := newAggregator(resultCache).Run(ctx, in.developers, in.events, in.activity)
	if err != nil {
		return fmt.Errorf("evolve: %w", err)
	}

	fellBack := 0
	for _, b := range res.Buckets {
		if b.FellBack {
			fellBack++
		}
	}
	logger.WithFields(logrus.Fields{
		"months":    len(res.Summaries),
		"fell_back": fellBack,
		"rejected":  res.Rejected,
	}).Info("Evolution analysis complete")

	persist(ctx, &storage.RunData{
		Kind:        storage.KindEvolve,
		Scope:       scopeOf(res.Summaries),
		Summaries:   res.Summaries,
		Communities: res.Communities,
		Trends:      res.Trends,
	})

	if summariesOnly {
		return emit(output.FromSummaries(res.Summaries))
	}
	return emit(
		output.FromSummaries(res.Summaries),
		output.FromCommunities(res.Communities),
		output.FromTrends(res.Trends),
	)
}
