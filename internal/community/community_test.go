package community

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/models"
)

type edge struct {
	src, dst models.DeveloperID
	w        float64
}

func snapshot(t *testing.T, nodes []models.DeveloperID, edges ...edge) *graph.Snapshot {
	t.Helper()
	devs := make([]models.Developer, 0, len(nodes))
	for _, id := range nodes {
		devs = append(devs, models.Developer{ID: id})
	}
	events := make([]models.CollaborationEvent, 0, len(edges))
	for _, e := range edges {
		events = append(events, models.CollaborationEvent{Source: e.src, Target: e.dst, Weight: e.w})
	}
	snap, err := graph.BuildSnapshot("2025-01", devs, events)
	require.NoError(t, err)
	return snap
}

func twoTriangles(t *testing.T) *graph.Snapshot {
	return snapshot(t, []models.DeveloperID{1, 2, 3, 4, 5, 6},
		edge{1, 2, 1}, edge{2, 3, 1}, edge{3, 1, 1},
		edge{4, 5, 1}, edge{5, 6, 1}, edge{6, 4, 1},
		edge{3, 4, 1})
}

func assertCoverage(t *testing.T, snap *graph.Snapshot, res *Result) {
	t.Helper()
	require.Len(t, res.Assignments, snap.NodeCount())
	total := 0
	for c, size := range res.Sizes {
		assert.Len(t, res.Members(c), size)
		total += size
	}
	assert.Equal(t, snap.NodeCount(), total)
	for _, id := range snap.Nodes() {
		c, ok := res.Assignments[id]
		require.True(t, ok, "node %d missing", id)
		assert.GreaterOrEqual(t, c, 0)
		assert.Less(t, c, res.Count())
	}
}

func TestConnectedComponentsPartitioner(t *testing.T) {
	snap := snapshot(t, []models.DeveloperID{5, 4, 3, 2, 1}, edge{2, 1, 1}, edge{4, 3, 1})

	res, err := ConnectedComponentsPartitioner{}.Partition(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, map[models.DeveloperID]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 2}, res.Assignments)
	assert.Equal(t, []int{2, 2, 1}, res.Sizes)
	assertCoverage(t, snap, res)

	again, err := ConnectedComponentsPartitioner{}.Partition(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestZeroEdgeSingletons(t *testing.T) {
	snap := snapshot(t, []models.DeveloperID{1, 2, 3})

	partitioners := []Partitioner{ConnectedComponentsPartitioner{}, NewModularityPartitioner(7)}
	for _, p := range partitioners {
		t.Run(p.Name(), func(t *testing.T) {
			res, err := p.Partition(context.Background(), snap)
			require.NoError(t, err)
			assert.Equal(t, 3, res.Count())
			assert.Equal(t, []int{1, 1, 1}, res.Sizes)
			assertCoverage(t, snap, res)
		})
	}
}

func TestModularityTwoTriangles(t *testing.T) {
	snap := twoTriangles(t)

	for _, seed := range []int64{1, 2, 3, 42, 99} {
		res, err := NewModularityPartitioner(seed).Partition(context.Background(), snap)
		require.NoError(t, err)
		assertCoverage(t, snap, res)

		assert.Equal(t, 2, res.Count(), "seed %d", seed)
		assert.Equal(t, res.Assignments[1], res.Assignments[2])
		assert.Equal(t, res.Assignments[1], res.Assignments[3])
		assert.Equal(t, res.Assignments[4], res.Assignments[5])
		assert.Equal(t, res.Assignments[4], res.Assignments[6])
		assert.Equal(t, 0, res.Assignments[1])
		assert.InDelta(t, 2*(3.0/7-0.25), res.Modularity, 1e-9)
	}
}

func TestModularitySeedReproducible(t *testing.T) {
	snap := snapshot(t, []models.DeveloperID{1, 2, 3, 4, 5, 6, 7, 8},
		edge{1, 2, 0.5}, edge{2, 3, 1.2}, edge{3, 4, 0.1}, edge{4, 5, 0.9},
		edge{5, 6, 0.3}, edge{6, 7, 1.0}, edge{7, 8, 0.4}, edge{8, 1, 0.2}, edge{2, 6, 0.7})

	p := NewModularityPartitioner(42)
	a, err := p.Partition(context.Background(), snap)
	require.NoError(t, err)
	b, err := p.Partition(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, a.Assignments, b.Assignments)
}

func TestModularityAvailable(t *testing.T) {
	assert.NoError(t, NewModularityPartitioner(1).Available())

	err := (&ModularityPartitioner{Resolution: 0, MaxPasses: 5}).Available()
	assert.True(t, errors.IsType(err, errors.ErrorTypeDependencyUnavailable))

	err = (&ModularityPartitioner{Resolution: 1, MaxPasses: 0}).Available()
	assert.True(t, errors.IsType(err, errors.ErrorTypeDependencyUnavailable))
}

func TestDetectorFallsBackWhenUnavailable(t *testing.T) {
	var notices []string
	d := NewDetector(&ModularityPartitioner{Resolution: -1, MaxPasses: 5},
		WithFallbackHook(func(strategy string, reason error) {
			notices = append(notices, strategy)
			assert.True(t, errors.IsType(reason, errors.ErrorTypeDependencyUnavailable))
		}))
	assert.Equal(t, StrategyComponents, d.Strategy())

	res, err := d.Detect(context.Background(), twoTriangles(t))
	require.NoError(t, err)
	assert.True(t, res.FellBack)
	assert.Equal(t, StrategyComponents, res.Strategy)
	assert.Equal(t, 1, res.Count())
	assert.Equal(t, []string{StrategyModularity}, notices)
}

func TestDetectorFallsBackOnRuntimeFailure(t *testing.T) {
	calls := 0
	d := NewDetector(NewModularityPartitioner(1), WithFallbackHook(func(string, error) { calls++ }))
	assert.Equal(t, StrategyModularity, d.Strategy())

	snap := snapshot(t, []models.DeveloperID{1, 2, 3}, edge{1, 2, 0}, edge{2, 3, 0})
	res, err := d.Detect(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, res.FellBack)
	assert.Equal(t, 1, res.Count())
	assert.Equal(t, 1, calls)
}

func TestDetectorComponentsByDefault(t *testing.T) {
	d := NewDetectorForStrategy(StrategyComponents, 0, 0, 0)
	res, err := d.Detect(context.Background(), twoTriangles(t))
	require.NoError(t, err)
	assert.False(t, res.FellBack)
	assert.Equal(t, StrategyComponents, res.Strategy)

	_, err = d.Detect(context.Background(), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmptyScope))
}

func TestResultStatsAndRows(t *testing.T) {
	res := newResult(StrategyComponents, []models.DeveloperID{1, 2, 3, 4, 5},
		map[models.DeveloperID]int{1: 9, 2: 9, 3: 4, 4: 4, 5: 7})

	mean, std := res.SizeStats()
	assert.InDelta(t, 5.0/3, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/9), std, 1e-12)

	rows := res.Rows("2025-03", 2)
	require.Len(t, rows, 5)
	assert.Equal(t, models.CommunityAssignment{
		YearMonth: "2025-03", MonthIndex: 2, DeveloperID: 3, CommunityID: 1, CommunitySize: 2,
	}, rows[2])

	single := newResult(StrategyComponents, []models.DeveloperID{1}, map[models.DeveloperID]int{1: 0})
	mean, std = single.SizeStats()
	assert.Equal(t, 1.0, mean)
	assert.Equal(t, 0.0, std)
}

func TestDetectorLogsPartitionWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := NewDetector(NewModularityPartitioner(DefaultSeed), WithLogger(logger))
	_, err := d.Detect(context.Background(), twoTriangles(t))
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "modularity partition completed") {
			found = true
			assert.Contains(t, line, "component=community")
			assert.Equal(t, 1, strings.Count(line, "component="))
		}
	}
	assert.True(t, found, "partition completion goes through the detector's logger")
}
