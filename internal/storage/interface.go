package storage

import (
	"context"
	stderrors "errors"

	"github.com/perrrseus/OpenSaga/internal/config"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a run id does not exist
var ErrNotFound = stderrors.New("not found")

// Run kinds
const (
	KindAnalyze = "analyze"
	KindEvolve  = "evolve"
	KindDedup   = "dedup"
	KindVolume  = "volume"
)

// RunData is everything one command produced. Empty slices are skipped.
type RunData struct {
	Kind        string
	Scope       string
	Summaries   []models.MonthlySummary
	Communities []models.CommunityAssignment
	Nodes       []models.NodeMetrics
	Edges       []models.CanonicalEdge
	Trends      []models.TrendRow
}

// Store persists analysis runs
type Store interface {
	// SaveRun writes the run and all of its tables in one transaction
	SaveRun(ctx context.Context, data *RunData) (*models.Run, error)
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	// ListRuns returns runs newest first. Empty kind matches every kind.
	ListRuns(ctx context.Context, kind string, limit int) ([]models.Run, error)

	// LoadSummaries returns a run's monthly summaries, optionally restricted to the given months
	LoadSummaries(ctx context.Context, runID string, months ...string) ([]models.MonthlySummary, error)
	LoadCommunities(ctx context.Context, runID string, months ...string) ([]models.CommunityAssignment, error)
	LoadNodeMetrics(ctx context.Context, runID string) ([]models.NodeMetrics, error)
	LoadEdges(ctx context.Context, runID string) ([]models.CanonicalEdge, error)
	LoadTrends(ctx context.Context, runID string) ([]models.TrendRow, error)

	Close() error
}

// Open returns the store selected by cfg.Type, or nil when persistence is disabled
func Open(cfg config.StorageConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.LocalPath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := NewPostgresStore(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.ConfigErrorf("unknown storage type %q", cfg.Type)
	}
}
