package storage

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/perrrseus/OpenSaga/internal/errors"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements storage using SQLite (for local runs)
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.FileSystemErrorf(err, "create database directory %s", dir)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.DatabaseErrorf(err, "connect to sqlite %s", path)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{&sqlStore{
		db:       db,
		logger:   logger,
		inMonths: sqliteMonths,
	}}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.DatabaseError(err, "init schema")
	}

	logger.WithField("path", path).Debug("sqlite store opened")
	return store, nil
}

func sqliteMonths(query, runID string, months []string) (string, []any, error) {
	return sqlx.In(query+" AND year_month IN (?)", runID, months)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		scope TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS monthly_summaries (
		run_id TEXT NOT NULL,
		year_month TEXT NOT NULL,
		month_index INTEGER NOT NULL,
		num_active_developers INTEGER,
		num_collaborations INTEGER,
		num_edges INTEGER,
		avg_collab_strength REAL,
		num_communities INTEGER,
		avg_community_size REAL,
		community_size_std REAL,
		network_density REAL,
		avg_clustering_coefficient REAL,
		num_connected_components INTEGER,
		PRIMARY KEY (run_id, year_month),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS community_assignments (
		run_id TEXT NOT NULL,
		year_month TEXT NOT NULL,
		month_index INTEGER NOT NULL,
		developer_id INTEGER NOT NULL,
		community_id INTEGER NOT NULL,
		community_size INTEGER NOT NULL,
		PRIMARY KEY (run_id, year_month, developer_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS node_metrics (
		run_id TEXT NOT NULL,
		developer_id INTEGER NOT NULL,
		name TEXT,
		primary_tech TEXT,
		activity_level REAL,
		pagerank_score REAL,
		degree_centrality REAL,
		betweenness_centrality REAL,
		pagerank_score_percentile REAL,
		degree_centrality_percentile REAL,
		betweenness_centrality_percentile REAL,
		activity_level_percentile REAL,
		is_core_developer INTEGER,
		PRIMARY KEY (run_id, developer_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS canonical_edges (
		run_id TEXT NOT NULL,
		source INTEGER NOT NULL,
		target INTEGER NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (run_id, source, target),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS trends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		year_month TEXT NOT NULL,
		collab_type TEXT NOT NULL,
		num_collaborations INTEGER,
		num_active_developers INTEGER,
		avg_collab_weight REAL,
		unique_pairs INTEGER,
		non_unique INTEGER,
		target_value INTEGER,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, created_at);
	CREATE INDEX IF NOT EXISTS idx_trends_run ON trends(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
