// Package ingest reads the developer and collaboration tables and removes
// records the engine cannot use.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// header maps column names to positions
type header map[string]int

func readHeader(r *csv.Reader, table string, required ...string) (header, error) {
	names, err := r.Read()
	if err == io.EOF {
		return nil, errors.ValidationErrorf("%s table is empty", table)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", table, err)
	}
	h := make(header, len(names))
	for i, name := range names {
		h[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, errors.ValidationErrorf("%s table is missing column %q", table, col)
		}
	}
	return h, nil
}

func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

func parseID(s string) (models.DeveloperID, error) {
	if s == "" {
		return 0, fmt.Errorf("empty id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return models.DeveloperID(id), nil
	}
	// ids exported by dataframe tools sometimes carry a trailing ".0"
	if f, ferr := strconv.ParseFloat(s, 64); ferr == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return models.DeveloperID(int64(f)), nil
	}
	return 0, err
}

// ParseTimestamp accepts RFC3339, "YYYY-MM-DD HH:MM:SS" and "YYYY-MM-DD"
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadDevelopers parses the node table. Columns developer_id, name,
// primary_tech and activity_level are required; malformed rows are skipped.
func ReadDevelopers(r io.Reader) ([]models.Developer, *MalformedReport, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "developers", "developer_id", "name", "primary_tech", "activity_level")
	if err != nil {
		return nil, nil, err
	}

	report := NewMalformedReport("developers")
	var out []models.Developer
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read developers line %d: %w", line, err)
		}

		id, err := parseID(h.get(row, "developer_id"))
		if err != nil {
			report.Add(ReasonMissingField, fmt.Sprintf("line %d: developer_id: %v", line, err))
			continue
		}
		activity, err := strconv.ParseFloat(h.get(row, "activity_level"), 64)
		if err != nil {
			report.Add(ReasonBadNumber, fmt.Sprintf("line %d: activity_level", line))
			continue
		}
		out = append(out, models.Developer{
			ID:            id,
			Name:          h.get(row, "name"),
			PrimaryTech:   h.get(row, "primary_tech"),
			ActivityLevel: activity,
		})
	}
	return out, report, nil
}

// ReadEvents parses the edge table. source, target and weight are required;
// each row also needs a timestamp or a year_month.
func ReadEvents(r io.Reader) ([]models.CollaborationEvent, *MalformedReport, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "collaborations", "source", "target", "weight")
	if err != nil {
		return nil, nil, err
	}
	_, hasTS := h["timestamp"]
	_, hasYM := h["year_month"]
	if !hasTS && !hasYM {
		return nil, nil, errors.ValidationError("collaborations table needs a timestamp or year_month column")
	}

	report := NewMalformedReport("events")
	var out []models.CollaborationEvent
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read collaborations line %d: %w", line, err)
		}

		src, err1 := parseID(h.get(row, "source"))
		dst, err2 := parseID(h.get(row, "target"))
		if err1 != nil || err2 != nil {
			report.Add(ReasonMissingField, fmt.Sprintf("line %d: source/target", line))
			continue
		}
		weight, err := strconv.ParseFloat(h.get(row, "weight"), 64)
		if err != nil {
			report.Add(ReasonBadNumber, fmt.Sprintf("line %d: weight %q", line, h.get(row, "weight")))
			continue
		}

		e := models.CollaborationEvent{
			Source:    src,
			Target:    dst,
			Weight:    weight,
			YearMonth: h.get(row, "year_month"),
		}
		if raw := h.get(row, "timestamp"); raw != "" {
			ts, err := ParseTimestamp(raw)
			if err != nil {
				report.Add(ReasonBadTimestamp, fmt.Sprintf("line %d: %v", line, err))
				continue
			}
			e.Timestamp = ts
		}
		out = append(out, e)
	}
	return out, report, nil
}

// ReadActivity parses an optional year_month,developer_id table listing
// developers active in a month regardless of collaboration events.
func ReadActivity(r io.Reader) (map[string][]models.DeveloperID, *MalformedReport, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "activity", "year_month", "developer_id")
	if err != nil {
		return nil, nil, err
	}

	report := NewMalformedReport("activity")
	out := make(map[string][]models.DeveloperID)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read activity line %d: %w", line, err)
		}
		label := h.get(row, "year_month")
		if _, err := time.Parse(models.YearMonthLayout, label); err != nil {
			report.Add(ReasonBadBucket, fmt.Sprintf("line %d: %q", line, label))
			continue
		}
		id, err := parseID(h.get(row, "developer_id"))
		if err != nil {
			report.Add(ReasonMissingField, fmt.Sprintf("line %d: developer_id", line))
			continue
		}
		out[label] = append(out[label], id)
	}
	return out, report, nil
}

// ReadDevelopersFile opens path and reads the node table
func ReadDevelopersFile(path string) ([]models.Developer, *MalformedReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.FileSystemErrorf(err, "open developers table %s", path)
	}
	defer f.Close()
	return ReadDevelopers(f)
}

// ReadEventsFile opens path and reads the edge table
func ReadEventsFile(path string) ([]models.CollaborationEvent, *MalformedReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.FileSystemErrorf(err, "open collaborations table %s", path)
	}
	defer f.Close()
	return ReadEvents(f)
}

// ReadActivityFile opens path and reads the activity table
func ReadActivityFile(path string) (map[string][]models.DeveloperID, *MalformedReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.FileSystemErrorf(err, "open activity table %s", path)
	}
	defer f.Close()
	return ReadActivity(f)
}
