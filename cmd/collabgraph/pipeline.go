package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/perrrseus/OpenSaga/internal/cache"
	"github.com/perrrseus/OpenSaga/internal/community"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/ingest"
	"github.com/perrrseus/OpenSaga/internal/logging"
	"github.com/perrrseus/OpenSaga/internal/metrics"
	"github.com/perrrseus/OpenSaga/internal/models"
	"github.com/perrrseus/OpenSaga/internal/output"
	"github.com/perrrseus/OpenSaga/internal/storage"
	"github.com/perrrseus/OpenSaga/internal/temporal"
	"github.com/sirupsen/logrus"
)

// inputs holds the sanitized input tables
type inputs struct {
	developers []models.Developer
	events     []models.CollaborationEvent
	activity   map[string][]models.DeveloperID
}

// loadInputs reads and sanitizes the configured tables. A missing developer
// or collaboration table is fatal; the activity table is optional.
func loadInputs() (*inputs, error) {
	devs, devReport, err := ingest.ReadDevelopersFile(cfg.Input.Developers)
	if err != nil {
		return nil, err
	}
	devs, sanitized := ingest.SanitizeDevelopers(devs)
	devReport.Merge(sanitized)
	reportMalformed(devReport)

	events, evReport, err := ingest.ReadEventsFile(cfg.Input.Collaborations)
	if err != nil {
		return nil, err
	}
	events, cleaned := ingest.SanitizeEvents(events)
	evReport.Merge(cleaned)
	reportMalformed(evReport)

	in := &inputs{developers: devs, events: events}

	if cfg.Input.Activity != "" {
		activity, actReport, err := ingest.ReadActivityFile(cfg.Input.Activity)
		if err != nil {
			return nil, err
		}
		reportMalformed(actReport)
		in.activity = activity
	}

	if len(in.developers) == 0 {
		return nil, errors.ValidationErrorf("no usable developer records in %s", cfg.Input.Developers)
	}

	logger.WithFields(logrus.Fields{
		"developers": len(in.developers),
		"events":     len(in.events),
	}).Debug("Inputs loaded")
	return in, nil
}

func reportMalformed(r *ingest.MalformedReport) {
	if r == nil || r.Skipped() == 0 {
		return
	}
	for reason, n := range r.Reasons {
		counters.RecordMalformed(r.Table, reason, n)
	}
	logger.WithFields(logrus.Fields{
		"table":   r.Table,
		"skipped": r.Skipped(),
	}).Warn("Skipped malformed records")
	logger.Debug(r.String())
}

func newComputer() *metrics.Computer {
	return metrics.NewComputer(metrics.Options{
		DampingFactor: cfg.Analysis.Damping,
		MaxIterations: cfg.Analysis.MaxIterations,
		Tolerance:     cfg.Analysis.Tolerance,
	}, logging.Default())
}

func newDetector() *community.Detector {
	c := cfg.Community
	return community.NewDetectorForStrategy(c.Strategy, c.Seed, c.Resolution, c.MaxPasses,
		community.WithLogger(logging.Default()),
		community.WithFallbackHook(func(strategy string, reason error) {
			counters.RecordFallback(strategy)
		}),
	)
}

func newAggregator(resultCache cache.Cache) *temporal.Aggregator {
	opts := []temporal.Option{
		temporal.WithBucketHook(func(r temporal.BucketResult) {
			if r.Cached {
				counters.BucketCacheHits.Inc()
				return
			}
			counters.RecordBucket(r.Strategy)
		}),
	}
	if resultCache != nil {
		opts = append(opts, temporal.WithCache(resultCache))
	}

	return temporal.NewAggregator(newComputer(), newDetector(), temporal.Options{
		CoreQuantile: cfg.Analysis.CoreQuantile,
		FillGaps:     cfg.Temporal.FillGaps,
		Workers:      cfg.Temporal.Workers,
	}, logging.Default(), opts...)
}

// emit prints tables to stdout, or writes them under the output directory with --write
func emit(tables ...*output.Table) error {
	if writeOut {
		fw := output.NewFileWriter(cfg.Output.Directory, cfg.Output.Format)
		for _, t := range tables {
			path, err := fw.Write(t)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{"table": t.Name, "rows": t.Len()}).Infof("Wrote %s", path)
		}
		return nil
	}

	f := output.ResolveFormat(cfg.Output.Format, os.Stdout)
	for i, t := range tables {
		if i > 0 && f == output.FormatTable {
			fmt.Fprintln(os.Stdout)
		}
		if err := output.Render(os.Stdout, t, f); err != nil {
			return err
		}
	}
	return nil
}

// persist saves the run when storage is enabled. Storage failures are
// reported but do not fail a completed analysis.
func persist(ctx context.Context, data *storage.RunData) {
	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Warn("Storage unavailable, run not saved")
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	run, err := store.SaveRun(ctx, data)
	if err != nil {
		logger.WithError(err).Warn("Failed to save run")
		return
	}
	logger.WithFields(logrus.Fields{"run_id": run.ID, "kind": run.Kind}).Info("Run saved")
}

func openStore() (storage.Store, error) {
	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.ConfigError("storage is disabled; set storage.type to sqlite or postgres")
	}
	return store, nil
}

func scopeOf(summaries []models.MonthlySummary) string {
	if len(summaries) == 0 {
		return ""
	}
	first, last := summaries[0].YearMonth, summaries[len(summaries)-1].YearMonth
	if first == last {
		return first
	}
	return strings.Join([]string{first, last}, "..")
}
