package main

import (
	"github.com/perrrseus/OpenSaga/internal/canonical"
	"github.com/perrrseus/OpenSaga/internal/output"
	"github.com/perrrseus/OpenSaga/internal/storage"
	"github.com/spf13/cobra"
)

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Sum collaboration volume per developer pair",
	Long: `Aggregate every event into one undirected edge per pair whose weight is
the total over both directions, rounded to two decimals. Unlike dedup this
measures volume, not peak strength.`,
	RunE: runVolume,
}

func runVolume(cmd *cobra.Command, args []string) error {
	in, err := loadInputs()
	if err != nil {
		return err
	}

	edges := canonical.AggregateVolume(canonical.FromEvents(in.events))
	logger.WithField("pairs", len(edges)).Info("Volume aggregated")

	persist(cmd.Context(), &storage.RunData{Kind: storage.KindVolume, Scope: "all", Edges: edges})
	return emit(output.FromEdges(output.VolumeEdgesTable, edges))
}
