package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrrseus/OpenSaga/internal/graph"
	"github.com/perrrseus/OpenSaga/internal/metrics"
	"github.com/perrrseus/OpenSaga/internal/models"
)

func TestNormalizeFloat(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"noise below rounding", 0.1499999999997, 0.15},
		{"genuine precision kept", 0.123456, 0.123456},
		{"sum artifact", 0.1 + 0.2, 0.3},
		{"tiny value", 1e-10, 0},
		{"already two decimals", 0.25, 0.25},
		{"integer", 2, 2},
		{"just outside threshold", 0.15 + 2e-9, 0.15 + 2e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFloat(tt.in))
		})
	}
}

func TestPercentileRanks(t *testing.T) {
	tests := []struct {
		name   string
		values map[models.DeveloperID]float64
		want   map[models.DeveloperID]float64
	}{
		{
			name:   "distinct values",
			values: map[models.DeveloperID]float64{1: 0.1, 2: 0.2, 3: 0.5, 4: 0.3},
			want:   map[models.DeveloperID]float64{1: 25, 2: 50, 3: 100, 4: 75},
		},
		{
			name:   "tie below max counts every tied node",
			values: map[models.DeveloperID]float64{1: 0.1, 2: 0.2, 3: 0.2, 4: 0.5},
			want:   map[models.DeveloperID]float64{1: 25, 2: 75, 3: 75, 4: 100},
		},
		{
			name:   "tied max",
			values: map[models.DeveloperID]float64{1: 0.1, 2: 0.5, 3: 0.5},
			want:   map[models.DeveloperID]float64{1: 100.0 / 3, 2: 100, 3: 100},
		},
		{
			name:   "all zero",
			values: map[models.DeveloperID]float64{1: 0, 2: 0, 3: 0, 4: 0},
			want:   map[models.DeveloperID]float64{1: 100, 2: 100, 3: 100, 4: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentileRanks(tt.values)
			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.InDelta(t, want, got[id], 1e-12, "node %d", id)
			}
		})
	}

	assert.Empty(t, PercentileRanks(nil))
}

func TestPercentileBounds(t *testing.T) {
	tests := []struct {
		name  string
		value func(i int) float64
	}{
		{"unique max", func(i int) float64 { return float64(i) }},
		{"tied max", func(i int) float64 { return float64((i * 7) % 11) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[models.DeveloperID]float64{}
			top := 0.0
			for i := 1; i <= 37; i++ {
				v := tt.value(i)
				values[models.DeveloperID(i)] = v
				if v > top {
					top = v
				}
			}
			pct := PercentileRanks(values)

			for id, p := range pct {
				assert.GreaterOrEqual(t, p, 0.0, "node %d", id)
				assert.LessOrEqual(t, p, 100.0, "node %d", id)
				if values[id] == top {
					assert.Equal(t, 100.0, p, "node %d holds the maximum", id)
				}
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"interpolated", []float64{5, 1, 3, 2, 4}, 0.8, 4.2},
		{"exact position", []float64{10, 20, 30, 40, 50, 60}, 0.8, 50},
		{"single value", []float64{7}, 0.8, 7},
		{"empty", nil, 0.8, 0},
		{"min", []float64{3, 1, 2}, 0, 1},
		{"max", []float64{3, 1, 2}, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.values, tt.q), 1e-12)
		})
	}
}

func TestClassifyCoreBoundary(t *testing.T) {
	scores := map[models.DeveloperID]float64{
		1: 0.1, 2: 0.2, 3: 0.3, 4: 0.4999999, 5: 0.5, 6: 0.6,
	}
	core, threshold := ClassifyCore(scores, DefaultCoreQuantile)

	assert.Equal(t, 0.5, threshold)
	assert.True(t, core[5], "score equal to threshold is core")
	assert.True(t, core[6])
	assert.False(t, core[4], "score just below threshold is not core")
	assert.False(t, core[1])
}

func TestBuildNodeTable(t *testing.T) {
	devs := []models.Developer{
		{ID: 1, Name: "ana", PrimaryTech: "go", ActivityLevel: 0.9},
		{ID: 2, Name: "bo", PrimaryTech: "python", ActivityLevel: 0.4},
		{ID: 3, Name: "cy", PrimaryTech: "rust", ActivityLevel: 0.1},
		{ID: 4, Name: "di", PrimaryTech: "go", ActivityLevel: 0.4},
	}
	events := []models.CollaborationEvent{
		{Source: 2, Target: 1, Weight: 1},
		{Source: 3, Target: 1, Weight: 1},
		{Source: 4, Target: 1, Weight: 1},
		{Source: 1, Target: 2, Weight: 0.5},
	}
	snap, err := graph.BuildSnapshot("all", devs, events)
	require.NoError(t, err)
	res, err := metrics.NewComputer(metrics.DefaultOptions(), nil).Compute(context.Background(), snap)
	require.NoError(t, err)

	rows := BuildNodeTable(snap, res, DefaultCoreQuantile)
	require.Len(t, rows, 4)
	for i, r := range rows {
		assert.Equal(t, devs[i], r.Developer)
		for _, p := range []float64{r.PageRankPercentile, r.DegreePercentile, r.BetweennessPercentile, r.ActivityPercentile} {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 100.0)
		}
	}

	assert.True(t, rows[0].IsCoreDeveloper)
	assert.Equal(t, 100.0, rows[0].PageRankPercentile)
	assert.Equal(t, 100.0, rows[0].ActivityPercentile)
	assert.Equal(t, 75.0, rows[1].ActivityPercentile)
	assert.Equal(t, 75.0, rows[3].ActivityPercentile)
	assert.InDelta(t, 4.0/3, rows[0].DegreeCentrality, 1e-12)

	core := CoreDevelopers(rows)
	require.NotEmpty(t, core)
	assert.Equal(t, models.DeveloperID(1), core[0].ID)
}
