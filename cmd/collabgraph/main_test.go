package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perrrseus/OpenSaga/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const developersCSV = `developer_id,name,primary_tech,activity_level
1,Ada,go,0.9
2,Grace,cobol,0.7
3,Linus,c,0.5
4,Barbara,clu,0.2
`

const collaborationsCSV = `source,target,weight,timestamp
1,2,0.5,2024-12-03 10:00:00
2,3,1.0,2024-12-09 16:30:00
1,2,0.5,2025-01-15 09:00:00
3,3,0.4,2025-01-16 09:00:00
`

// setup writes the input tables and a config file pointing at them
func setup(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()

	devs := filepath.Join(dir, "developers.csv")
	collabs := filepath.Join(dir, "collaborations.csv")
	require.NoError(t, os.WriteFile(devs, []byte(developersCSV), 0644))
	require.NoError(t, os.WriteFile(collabs, []byte(collaborationsCSV), 0644))

	cfgPath = filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf(`input:
  developers: %s
  collaborations: %s
storage:
  type: sqlite
  local_path: %s
log:
  level: error
`, devs, collabs, filepath.Join(dir, "results.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	writeOut, noStore, coreOnly, summariesOnly, fillGaps = false, false, false, false, false
	format, outputDir = "", ""
	topK, clampMax, workers = -1, -1, 0

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestEvolveWritesTablesAndStoresRun(t *testing.T) {
	dir, cfgPath := setup(t)
	out := filepath.Join(dir, "out")

	require.NoError(t, execute(t, "evolve", "--config", cfgPath, "--write", "-o", out))

	summaries := readLines(t, filepath.Join(out, "monthly_summaries.csv"))
	require.Len(t, summaries, 3)
	assert.True(t, strings.HasPrefix(summaries[1], "2024-12,0,3,2,2,0.75,"), summaries[1])
	assert.True(t, strings.HasPrefix(summaries[2], "2025-01,1,2,1,1,0.5,"), summaries[2])

	trends := readLines(t, filepath.Join(out, "collaboration_trends.csv"))
	assert.Len(t, trends, 7, "header plus three rows per month")

	_, err := os.Stat(filepath.Join(out, "community_assignments.csv"))
	assert.NoError(t, err)

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "results.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), storage.KindEvolve, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "2024-12..2025-01", runs[0].Scope)

	stored, err := store.LoadSummaries(context.Background(), runs[0].ID, "2025-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].NumActiveDevelopers)
}

func TestDedupAndVolume(t *testing.T) {
	dir, cfgPath := setup(t)
	out := filepath.Join(dir, "out")

	require.NoError(t, execute(t, "dedup", "--config", cfgPath, "--no-store", "--write", "-o", out, "--top", "1"))
	assert.Equal(t, []string{"source,target,weight", "2,3,1"}, readLines(t, filepath.Join(out, "canonical_edges.csv")))

	require.NoError(t, execute(t, "volume", "--config", cfgPath, "--no-store", "--write", "-o", out))
	assert.Equal(t, []string{"source,target,weight", "1,2,1", "2,3,1"}, readLines(t, filepath.Join(out, "volume_edges.csv")))
}

func TestAnalyzeCoreDevelopers(t *testing.T) {
	dir, cfgPath := setup(t)
	out := filepath.Join(dir, "out")

	require.NoError(t, execute(t, "analyze", "--config", cfgPath, "--no-store", "--write", "-o", out, "--core-only"))

	core := readLines(t, filepath.Join(out, "core_developers.csv"))
	require.GreaterOrEqual(t, len(core), 2)
	for _, row := range core[1:] {
		assert.True(t, strings.HasSuffix(row, ",true"), row)
	}
}

func TestConfigValidateRejectsBadStrategy(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("community:\n  strategy: spectral\n"), 0644))

	err := execute(t, "config", "validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "community.strategy")
}

func TestCachePurgeAfterEvolve(t *testing.T) {
	dir, cfgPath := setup(t)

	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f, "cache:\n  type: bolt\n  path: %s\n", filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, execute(t, "evolve", "--config", cfgPath, "--no-store", "--write", "-o", filepath.Join(dir, "out")))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)

	require.NoError(t, execute(t, "cache", "purge", "--config", cfgPath))
	assert.Equal(t, "Purged 2 cached bucket results\n", buf.String())

	buf.Reset()
	require.NoError(t, execute(t, "cache", "purge", "--config", cfgPath))
	assert.Equal(t, "Purged 0 cached bucket results\n", buf.String())
}

func TestCachePurgeRequiresCache(t *testing.T) {
	_, cfgPath := setup(t)

	err := execute(t, "cache", "purge", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache is disabled")
}
