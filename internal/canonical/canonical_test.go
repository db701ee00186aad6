package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
)

func TestNewKey(t *testing.T) {
	tests := []struct {
		name    string
		a, b    models.DeveloperID
		want    Key
		wantErr bool
	}{
		{"already ordered", 1, 2, Key{1, 2}, false},
		{"reversed", 9, 3, Key{3, 9}, false},
		{"numeric not lexical", 10, 9, Key{9, 10}, false},
		{"self pair", 4, 4, Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewKey(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeMalformedRecord))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalizeMaxResolution(t *testing.T) {
	resolved, skipped := Canonicalize([]Triple{
		{1, 2, 0.4},
		{2, 1, 0.9},
		{1, 2, 0.2},
	})

	assert.Equal(t, 0, skipped)
	require.Len(t, resolved, 1)
	assert.Equal(t, 0.9, resolved[Key{1, 2}])
}

func TestCanonicalizeSymmetry(t *testing.T) {
	weights := []float64{0.3, 1.2, 0.7, 0.05}

	var forward, mixed []Triple
	for i, w := range weights {
		forward = append(forward, Triple{5, 8, w})
		if i%2 == 0 {
			mixed = append(mixed, Triple{8, 5, w})
		} else {
			mixed = append(mixed, Triple{5, 8, w})
		}
	}

	a, _ := Canonicalize(forward)
	b, _ := Canonicalize(mixed)
	assert.Equal(t, a, b)
	assert.Equal(t, 1.2, a[Key{5, 8}])
}

func TestCanonicalizeIdempotent(t *testing.T) {
	first, _ := Canonicalize([]Triple{
		{3, 1, 0.5}, {1, 3, 0.6}, {2, 4, 1.1}, {4, 2, 0.1}, {7, 6, 0.0},
	})
	second, skipped := Canonicalize(FromEdges(Edges(first)))

	assert.Equal(t, 0, skipped)
	assert.Equal(t, first, second)
}

func TestCanonicalizeEdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		resolved, skipped := Canonicalize(nil)
		assert.NotNil(t, resolved)
		assert.Empty(t, resolved)
		assert.Equal(t, 0, skipped)
	})

	t.Run("self pairs skipped", func(t *testing.T) {
		resolved, skipped := Canonicalize([]Triple{{1, 1, 5}, {1, 2, 0.1}})
		assert.Equal(t, 1, skipped)
		assert.Equal(t, map[Key]float64{{1, 2}: 0.1}, resolved)
	})
}

func TestTopK(t *testing.T) {
	resolved := map[Key]float64{
		{1, 2}: 0.5,
		{3, 4}: 0.9,
		{1, 5}: 0.9,
		{2, 6}: 0.1,
	}

	got := TopK(resolved, 3)
	assert.Equal(t, []models.CanonicalEdge{
		{Source: 1, Target: 5, Weight: 0.9},
		{Source: 3, Target: 4, Weight: 0.9},
		{Source: 1, Target: 2, Weight: 0.5},
	}, got)

	assert.Len(t, TopK(resolved, 0), 4)
	assert.Len(t, TopK(resolved, 10), 4)
}

func TestClamp(t *testing.T) {
	edges := []models.CanonicalEdge{{Source: 1, Target: 2, Weight: 2.3}, {Source: 1, Target: 3, Weight: 0.4}}

	clamped := Clamp(edges, 1.5)
	assert.Equal(t, 1.5, clamped[0].Weight)
	assert.Equal(t, 0.4, clamped[1].Weight)
	assert.Equal(t, 2.3, edges[0].Weight, "input must not be mutated")

	assert.Equal(t, edges, Clamp(edges, 0))
}

func TestAggregateVolume(t *testing.T) {
	got := AggregateVolume([]Triple{
		{1, 2, 0.4},
		{2, 1, 0.9},
		{1, 2, 0.2},
		{3, 3, 1.0},
		{4, 3, 0.333},
		{3, 4, 0.333},
	})

	require.Len(t, got, 2)
	assert.Equal(t, models.CanonicalEdge{Source: 1, Target: 2, Weight: 1.5}, got[0])
	assert.Equal(t, models.CanonicalEdge{Source: 3, Target: 4, Weight: 0.67}, got[1])
}
