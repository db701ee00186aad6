package ingest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
)

func TestReadDevelopers(t *testing.T) {
	in := "developer_id,name,primary_tech,activity_level\n" +
		"1,ana,Go,0.9\n" +
		"2.0,bo,Python,0.4\n" +
		",ghost,Rust,0.1\n" +
		"4,di,Go,high\n"

	devs, report, err := ReadDevelopers(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []models.Developer{
		{ID: 1, Name: "ana", PrimaryTech: "Go", ActivityLevel: 0.9},
		{ID: 2, Name: "bo", PrimaryTech: "Python", ActivityLevel: 0.4},
	}, devs)
	assert.Equal(t, 2, report.Skipped())
	assert.Equal(t, 1, report.Reasons[ReasonMissingField])
	assert.Equal(t, 1, report.Reasons[ReasonBadNumber])
}

func TestReadDevelopersMissingColumn(t *testing.T) {
	_, _, err := ReadDevelopers(strings.NewReader("developer_id,name\n1,ana\n"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, _, err = ReadDevelopers(strings.NewReader(""))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReadEvents(t *testing.T) {
	in := "source,target,weight,timestamp,year_month\n" +
		"1,2,0.4,2025-01-05 10:00:00,2025-01\n" +
		"2,1,0.9,2025-01-07T08:30:00Z,\n" +
		"1,2,x,2025-01-09,2025-01\n" +
		"3,4,0.2,yesterday,2025-02\n" +
		"5,6,1.0,,2025-03\n"

	events, report, err := ReadEvents(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "2025-01", events[0].Bucket())
	assert.Equal(t, "2025-01", events[1].Bucket())
	assert.Equal(t, time.Date(2025, 1, 7, 8, 30, 0, 0, time.UTC), events[1].Timestamp)
	assert.True(t, events[2].Timestamp.IsZero())
	assert.Equal(t, "2025-03", events[2].Bucket())

	assert.Equal(t, 1, report.Reasons[ReasonBadNumber])
	assert.Equal(t, 1, report.Reasons[ReasonBadTimestamp])
}

func TestReadEventsRequiresTimeColumn(t *testing.T) {
	_, _, err := ReadEvents(strings.NewReader("source,target,weight\n1,2,0.5\n"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReadActivity(t *testing.T) {
	in := "year_month,developer_id\n2025-01,1\n2025-01,2\n2025-13x,3\n2025-02,4\n"
	activity, report, err := ReadActivity(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, map[string][]models.DeveloperID{"2025-01": {1, 2}, "2025-02": {4}}, activity)
	assert.Equal(t, 1, report.Skipped())
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "developers.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffdeveloper_id,name,primary_tech,activity_level\n7,eve,Go,0.5\n"), 0644))

	devs, _, err := ReadDevelopersFile(path)
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, models.DeveloperID(7), devs[0].ID)

	_, _, err = ReadEventsFile(filepath.Join(dir, "missing.csv"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFileSystem))
}

func TestSanitizeEvents(t *testing.T) {
	ts := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	events := []models.CollaborationEvent{
		{Source: 1, Target: 2, Weight: 0.5, YearMonth: "2025-01"},
		{Source: 3, Target: 3, Weight: 0.5, YearMonth: "2025-01"},
		{Source: 1, Target: 2, Weight: -1, YearMonth: "2025-01"},
		{Source: 1, Target: 2, Weight: math.NaN(), YearMonth: "2025-01"},
		{Source: 1, Target: 2, Weight: 0.5},
		{Source: 1, Target: 2, Weight: 0.5, YearMonth: "Jan 2025"},
		{Source: 2, Target: 1, Weight: 0, Timestamp: ts},
	}

	kept, report := SanitizeEvents(events)
	require.Len(t, kept, 2)
	assert.Equal(t, "2025-04", kept[1].YearMonth)
	assert.Equal(t, 5, report.Skipped())
	assert.Equal(t, 1, report.Reasons[ReasonSelfLoop])
	assert.Equal(t, 1, report.Reasons[ReasonNegative])
	assert.Equal(t, 1, report.Reasons[ReasonBadNumber])
	assert.Equal(t, 1, report.Reasons[ReasonMissingField])
	assert.Equal(t, 1, report.Reasons[ReasonBadBucket])
	assert.Contains(t, report.String(), "events: 5 skipped")
}

func TestSanitizeDevelopers(t *testing.T) {
	kept, report := SanitizeDevelopers([]models.Developer{
		{ID: 1, Name: "first", ActivityLevel: 0.2},
		{ID: 1, Name: "second", ActivityLevel: 0.3},
		{ID: 2, ActivityLevel: 1.5},
		{ID: 3, ActivityLevel: math.Inf(1)},
		{ID: 4, ActivityLevel: 1},
	})

	require.Len(t, kept, 2)
	assert.Equal(t, "first", kept[0].Name)
	assert.Equal(t, models.DeveloperID(4), kept[1].ID)
	assert.Equal(t, 3, report.Skipped())
}

func TestMalformedReportMerge(t *testing.T) {
	a := NewMalformedReport("events")
	b := NewMalformedReport("events")
	for i := 0; i < 4; i++ {
		a.Add(ReasonSelfLoop, "x")
		b.Add(ReasonNegative, "y")
	}
	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, 8, a.Skipped())
	assert.Len(t, a.Samples, maxSamples)
	assert.Equal(t, "events: 8 skipped (negative_weight=4, self_loop=4)", a.String())
	assert.Equal(t, "activity: 0 skipped", NewMalformedReport("activity").String())
}
