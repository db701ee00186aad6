package storage

import (
	"context"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, errors.DatabaseError(err, "connect to postgres")
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{&sqlStore{
		db:       db,
		logger:   logger,
		inMonths: postgresMonths,
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError(err, "init schema")
	}

	return store, nil
}

func postgresMonths(query, runID string, months []string) (string, []any, error) {
	return query + " AND year_month = ANY(?)", []any{runID, pq.Array(months)}, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			scope TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS monthly_summaries (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			year_month TEXT NOT NULL,
			month_index INTEGER NOT NULL,
			num_active_developers INTEGER,
			num_collaborations INTEGER,
			num_edges INTEGER,
			avg_collab_strength DOUBLE PRECISION,
			num_communities INTEGER,
			avg_community_size DOUBLE PRECISION,
			community_size_std DOUBLE PRECISION,
			network_density DOUBLE PRECISION,
			avg_clustering_coefficient DOUBLE PRECISION,
			num_connected_components INTEGER,
			PRIMARY KEY (run_id, year_month)
		)`,
		`CREATE TABLE IF NOT EXISTS community_assignments (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			year_month TEXT NOT NULL,
			month_index INTEGER NOT NULL,
			developer_id BIGINT NOT NULL,
			community_id INTEGER NOT NULL,
			community_size INTEGER NOT NULL,
			PRIMARY KEY (run_id, year_month, developer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS node_metrics (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			developer_id BIGINT NOT NULL,
			name TEXT,
			primary_tech TEXT,
			activity_level DOUBLE PRECISION,
			pagerank_score DOUBLE PRECISION,
			degree_centrality DOUBLE PRECISION,
			betweenness_centrality DOUBLE PRECISION,
			pagerank_score_percentile DOUBLE PRECISION,
			degree_centrality_percentile DOUBLE PRECISION,
			betweenness_centrality_percentile DOUBLE PRECISION,
			activity_level_percentile DOUBLE PRECISION,
			is_core_developer BOOLEAN,
			PRIMARY KEY (run_id, developer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS canonical_edges (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			source BIGINT NOT NULL,
			target BIGINT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, source, target)
		)`,
		`CREATE TABLE IF NOT EXISTS trends (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			year_month TEXT NOT NULL,
			collab_type TEXT NOT NULL,
			num_collaborations INTEGER,
			num_active_developers INTEGER,
			avg_collab_weight DOUBLE PRECISION,
			unique_pairs INTEGER,
			non_unique INTEGER,
			target_value INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_trends_run ON trends(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
