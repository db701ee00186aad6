package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/perrrseus/OpenSaga/internal/models"
	"github.com/sirupsen/logrus"
)

// monthFilter appends a year_month restriction to a query that already binds run_id
type monthFilter func(query string, runID string, months []string) (string, []any, error)

// sqlStore holds the queries shared by the SQLite and Postgres backends.
// Queries are written with ? placeholders and rebound for the driver.
type sqlStore struct {
	db       *sqlx.DB
	logger   *logrus.Logger
	inMonths monthFilter
}

const (
	insertRun = `INSERT INTO runs (id, kind, scope, created_at) VALUES (?, ?, ?, ?)`

	insertSummary = `
		INSERT INTO monthly_summaries
		(run_id, year_month, month_index, num_active_developers, num_collaborations,
		 num_edges, avg_collab_strength, num_communities, avg_community_size,
		 community_size_std, network_density, avg_clustering_coefficient,
		 num_connected_components)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertCommunity = `
		INSERT INTO community_assignments
		(run_id, year_month, month_index, developer_id, community_id, community_size)
		VALUES (?, ?, ?, ?, ?, ?)`

	insertNodeMetric = `
		INSERT INTO node_metrics
		(run_id, developer_id, name, primary_tech, activity_level,
		 pagerank_score, degree_centrality, betweenness_centrality,
		 pagerank_score_percentile, degree_centrality_percentile,
		 betweenness_centrality_percentile, activity_level_percentile,
		 is_core_developer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertEdge = `INSERT INTO canonical_edges (run_id, source, target, weight) VALUES (?, ?, ?, ?)`

	insertTrend = `
		INSERT INTO trends
		(run_id, year_month, collab_type, num_collaborations, num_active_developers,
		 avg_collab_weight, unique_pairs, non_unique, target_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

func (s *sqlStore) SaveRun(ctx context.Context, data *RunData) (*models.Run, error) {
	if data == nil {
		return nil, errors.ValidationError("save run: nil data")
	}

	run := &models.Run{
		ID:        uuid.NewString(),
		Kind:      data.Kind,
		Scope:     data.Scope,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.DatabaseError(err, "begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(insertRun), run.ID, run.Kind, run.Scope, run.CreatedAt); err != nil {
		return nil, errors.DatabaseError(err, "save run")
	}

	err = insertRows(ctx, tx, insertSummary, len(data.Summaries), func(i int) []any {
		m := data.Summaries[i]
		return []any{run.ID, m.YearMonth, m.MonthIndex, m.NumActiveDevelopers, m.NumCollaborations,
			m.NumEdges, m.AvgCollabStrength, m.NumCommunities, m.AvgCommunitySize,
			m.CommunitySizeStd, m.NetworkDensity, m.AvgClusteringCoefficient,
			m.NumConnectedComponents}
	})
	if err != nil {
		return nil, errors.DatabaseError(err, "save summaries")
	}

	err = insertRows(ctx, tx, insertCommunity, len(data.Communities), func(i int) []any {
		c := data.Communities[i]
		return []any{run.ID, c.YearMonth, c.MonthIndex, c.DeveloperID, c.CommunityID, c.CommunitySize}
	})
	if err != nil {
		return nil, errors.DatabaseError(err, "save communities")
	}

	err = insertRows(ctx, tx, insertNodeMetric, len(data.Nodes), func(i int) []any {
		n := data.Nodes[i]
		return []any{run.ID, n.ID, n.Name, n.PrimaryTech, n.ActivityLevel,
			n.PageRankScore, n.DegreeCentrality, n.BetweennessCentrality,
			n.PageRankPercentile, n.DegreePercentile, n.BetweennessPercentile,
			n.ActivityPercentile, n.IsCoreDeveloper}
	})
	if err != nil {
		return nil, errors.DatabaseError(err, "save node metrics")
	}

	err = insertRows(ctx, tx, insertEdge, len(data.Edges), func(i int) []any {
		e := data.Edges[i]
		return []any{run.ID, e.Source, e.Target, e.Weight}
	})
	if err != nil {
		return nil, errors.DatabaseError(err, "save edges")
	}

	err = insertRows(ctx, tx, insertTrend, len(data.Trends), func(i int) []any {
		t := data.Trends[i]
		return []any{run.ID, t.YearMonth, t.CollabType, t.NumCollaborations, t.NumActiveDevelopers,
			t.AvgCollabWeight, t.UniquePairs, t.NonUnique, t.TargetValue}
	})
	if err != nil {
		return nil, errors.DatabaseError(err, "save trends")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.DatabaseError(err, "commit run")
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":      run.ID,
		"kind":        run.Kind,
		"summaries":   len(data.Summaries),
		"communities": len(data.Communities),
		"nodes":       len(data.Nodes),
		"edges":       len(data.Edges),
		"trends":      len(data.Trends),
	}).Debug("run saved")

	return run, nil
}

func insertRows(ctx context.Context, tx *sqlx.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(query))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	var run models.Run
	query := s.db.Rebind(`SELECT id, kind, scope, created_at FROM runs WHERE id = ?`)

	if err := s.db.GetContext(ctx, &run, query, runID); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.DatabaseError(err, "get run")
	}
	return &run, nil
}

func (s *sqlStore) ListRuns(ctx context.Context, kind string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	runs := []models.Run{}
	var err error
	if kind == "" {
		query := s.db.Rebind(`SELECT id, kind, scope, created_at FROM runs ORDER BY created_at DESC LIMIT ?`)
		err = s.db.SelectContext(ctx, &runs, query, limit)
	} else {
		query := s.db.Rebind(`SELECT id, kind, scope, created_at FROM runs WHERE kind = ? ORDER BY created_at DESC LIMIT ?`)
		err = s.db.SelectContext(ctx, &runs, query, kind, limit)
	}
	if err != nil {
		return nil, errors.DatabaseError(err, "list runs")
	}
	return runs, nil
}

func (s *sqlStore) LoadSummaries(ctx context.Context, runID string, months ...string) ([]models.MonthlySummary, error) {
	base := `
		SELECT year_month, month_index, num_active_developers, num_collaborations,
		       num_edges, avg_collab_strength, num_communities, avg_community_size,
		       community_size_std, network_density, avg_clustering_coefficient,
		       num_connected_components
		FROM monthly_summaries WHERE run_id = ?`

	query, args, err := s.filter(base, runID, months, " ORDER BY month_index")
	if err != nil {
		return nil, errors.DatabaseError(err, "load summaries")
	}

	rows := []models.MonthlySummary{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError(err, "load summaries")
	}
	return rows, nil
}

func (s *sqlStore) LoadCommunities(ctx context.Context, runID string, months ...string) ([]models.CommunityAssignment, error) {
	base := `
		SELECT year_month, month_index, developer_id, community_id, community_size
		FROM community_assignments WHERE run_id = ?`

	query, args, err := s.filter(base, runID, months, " ORDER BY month_index, developer_id")
	if err != nil {
		return nil, errors.DatabaseError(err, "load communities")
	}

	rows := []models.CommunityAssignment{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError(err, "load communities")
	}
	return rows, nil
}

func (s *sqlStore) LoadNodeMetrics(ctx context.Context, runID string) ([]models.NodeMetrics, error) {
	query := s.db.Rebind(`
		SELECT developer_id, name, primary_tech, activity_level,
		       pagerank_score, degree_centrality, betweenness_centrality,
		       pagerank_score_percentile, degree_centrality_percentile,
		       betweenness_centrality_percentile, activity_level_percentile,
		       is_core_developer
		FROM node_metrics WHERE run_id = ? ORDER BY developer_id`)

	rows := []models.NodeMetrics{}
	if err := s.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, errors.DatabaseError(err, "load node metrics")
	}
	return rows, nil
}

func (s *sqlStore) LoadEdges(ctx context.Context, runID string) ([]models.CanonicalEdge, error) {
	query := s.db.Rebind(`
		SELECT source, target, weight FROM canonical_edges
		WHERE run_id = ? ORDER BY weight DESC, source, target`)

	rows := []models.CanonicalEdge{}
	if err := s.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, errors.DatabaseError(err, "load edges")
	}
	return rows, nil
}

func (s *sqlStore) LoadTrends(ctx context.Context, runID string) ([]models.TrendRow, error) {
	query := s.db.Rebind(`
		SELECT year_month, collab_type, num_collaborations, num_active_developers,
		       avg_collab_weight, unique_pairs, non_unique, target_value
		FROM trends WHERE run_id = ? ORDER BY id`)

	rows := []models.TrendRow{}
	if err := s.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, errors.DatabaseError(err, "load trends")
	}
	return rows, nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) filter(base, runID string, months []string, suffix string) (string, []any, error) {
	if len(months) == 0 {
		return s.db.Rebind(base + suffix), []any{runID}, nil
	}
	query, args, err := s.inMonths(base, runID, months)
	if err != nil {
		return "", nil, err
	}
	return s.db.Rebind(query + suffix), args, nil
}
