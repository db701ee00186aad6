package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/perrrseus/OpenSaga/internal/config"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "results.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreSaveAndLoadEvolveRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	data := &RunData{
		Kind:  KindEvolve,
		Scope: "2024-12..2025-01",
		Summaries: []models.MonthlySummary{
			{YearMonth: "2024-12", MonthIndex: 0, NumActiveDevelopers: 3, NumCollaborations: 2, NumEdges: 2,
				AvgCollabStrength: 0.75, NumCommunities: 1, AvgCommunitySize: 3, NetworkDensity: 0.3333,
				NumConnectedComponents: 1},
			{YearMonth: "2025-01", MonthIndex: 1, NumActiveDevelopers: 2, NumCollaborations: 1, NumEdges: 1,
				AvgCollabStrength: 0.5, NumCommunities: 1, AvgCommunitySize: 2, NetworkDensity: 0.5,
				NumConnectedComponents: 1},
		},
		Communities: []models.CommunityAssignment{
			{YearMonth: "2024-12", MonthIndex: 0, DeveloperID: 1, CommunityID: 0, CommunitySize: 3},
			{YearMonth: "2024-12", MonthIndex: 0, DeveloperID: 2, CommunityID: 0, CommunitySize: 3},
			{YearMonth: "2025-01", MonthIndex: 1, DeveloperID: 1, CommunityID: 0, CommunitySize: 2},
		},
		Trends: []models.TrendRow{
			{YearMonth: "2024-12", CollabType: models.CollabTypeUnique, NumCollaborations: 2, UniquePairs: 2, TargetValue: 2},
			{YearMonth: "2024-12", CollabType: models.CollabTypeNonUnique, NumCollaborations: 2, TargetValue: 0},
			{YearMonth: "2024-12", CollabType: models.CollabTypeTotal, NumCollaborations: 2, TargetValue: 2},
		},
	}

	run, err := store.SaveRun(ctx, data)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, KindEvolve, got.Kind)
	assert.Equal(t, "2024-12..2025-01", got.Scope)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, 0)

	summaries, err := store.LoadSummaries(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, data.Summaries, summaries)

	january, err := store.LoadSummaries(ctx, run.ID, "2025-01")
	require.NoError(t, err)
	require.Len(t, january, 1)
	assert.Equal(t, 1, january[0].MonthIndex)

	communities, err := store.LoadCommunities(ctx, run.ID, "2024-12")
	require.NoError(t, err)
	assert.Equal(t, data.Communities[:2], communities)

	trends, err := store.LoadTrends(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, data.Trends, trends)
}

func TestSQLiteStoreNodeMetricsAndEdges(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	nodes := []models.NodeMetrics{
		{
			Developer:             models.Developer{ID: 1, Name: "Ada", PrimaryTech: "go", ActivityLevel: 0.9},
			PageRankScore:         0.4,
			DegreeCentrality:      1,
			BetweennessCentrality: 0.5,
			PageRankPercentile:    100,
			IsCoreDeveloper:       true,
		},
		{
			Developer:     models.Developer{ID: 2, Name: "Linus", PrimaryTech: "c", ActivityLevel: 0.2},
			PageRankScore: 0.1,
		},
	}
	edges := []models.CanonicalEdge{
		{Source: 1, Target: 2, Weight: 0.9},
		{Source: 2, Target: 3, Weight: 0.4},
	}

	run, err := store.SaveRun(ctx, &RunData{Kind: KindAnalyze, Scope: "all", Nodes: nodes, Edges: edges})
	require.NoError(t, err)

	gotNodes, err := store.LoadNodeMetrics(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, nodes, gotNodes)

	gotEdges, err := store.LoadEdges(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, edges, gotEdges)
}

func TestSQLiteStoreListRunsAndNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.SaveRun(ctx, &RunData{Kind: KindAnalyze, Scope: "all"})
	require.NoError(t, err)
	_, err = store.SaveRun(ctx, &RunData{Kind: KindDedup, Scope: "all"})
	require.NoError(t, err)

	all, err := store.ListRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	dedup, err := store.ListRuns(ctx, KindDedup, 0)
	require.NoError(t, err)
	require.Len(t, dedup, 1)
	assert.Equal(t, KindDedup, dedup[0].Kind)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := store.LoadSummaries(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpen(t *testing.T) {
	store, err := Open(config.StorageConfig{Type: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = Open(config.StorageConfig{Type: "mongo"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	store, err = Open(config.StorageConfig{Type: "sqlite", LocalPath: filepath.Join(t.TempDir(), "r.db")}, nil)
	require.NoError(t, err)
	_, ok := store.(*SQLiteStore)
	assert.True(t, ok)
	require.NoError(t, store.Close())
}

func TestSQLiteStoreErrorTypes(t *testing.T) {
	ctx := context.Background()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err := NewSQLiteStore(filepath.Join(blocker, "results.db"), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFileSystem))

	store := newTestStore(t)
	_, err = store.SaveRun(ctx, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	require.NoError(t, store.Close())
	_, err = store.ListRuns(ctx, "", 5)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDatabase))
	assert.True(t, errors.IsFatal(err))

	_, err = store.LoadTrends(ctx, "any")
	assert.True(t, errors.IsType(err, errors.ErrorTypeDatabase))
}
