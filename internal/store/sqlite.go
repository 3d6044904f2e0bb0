package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLite backs dev setups and the test suite. Write transactions take the
// database lock immediately (_txlock=immediate), so the ingest
// read-modify-write serializes the same way the Postgres row lock does.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		path = "./data/clawpulse.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := "file:" + path + "?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLite{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		last_seen DATETIME NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_verified INTEGER NOT NULL DEFAULT 0,
		total_spend REAL NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		total_sessions INTEGER NOT NULL DEFAULT 0,
		days_active INTEGER NOT NULL DEFAULT 1,
		streak INTEGER NOT NULL DEFAULT 1
	);
	CREATE UNIQUE INDEX IF NOT EXISTS agents_name_lower_idx ON agents (lower(name));
	CREATE INDEX IF NOT EXISTS agents_created_at_idx ON agents (created_at);
	CREATE INDEX IF NOT EXISTS agents_last_seen_idx ON agents (last_seen);

	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		key_digest TEXT NOT NULL UNIQUE,
		prefix TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		last_used DATETIME NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS api_keys_agent_idx ON api_keys (agent_id);

	CREATE TABLE IF NOT EXISTS challenges (
		id TEXT PRIMARY KEY,
		nonce TEXT NOT NULL,
		expected_digest TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		used INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS metrics (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		ts DATETIME NOT NULL,
		period TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cache_read_tokens INTEGER NOT NULL,
		cost REAL NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		session_count INTEGER NOT NULL,
		request_count INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS metrics_agent_ts_idx ON metrics (agent_id, ts);
	CREATE INDEX IF NOT EXISTS metrics_ts_idx ON metrics (ts);

	CREATE TABLE IF NOT EXISTS daily_stats (
		agent_id TEXT NOT NULL REFERENCES agents(id),
		date TEXT NOT NULL,
		total_cost REAL NOT NULL,
		total_tokens INTEGER NOT NULL,
		session_count INTEGER NOT NULL,
		primary_model TEXT NOT NULL,
		primary_provider TEXT NOT NULL,
		PRIMARY KEY (agent_id, date)
	);

	CREATE TABLE IF NOT EXISTS global_stats (
		date TEXT PRIMARY KEY,
		total_agents INTEGER NOT NULL,
		total_cost REAL NOT NULL,
		total_tokens INTEGER NOT NULL,
		active_agents INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS badges (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		icon TEXT NOT NULL,
		criteria TEXT NOT NULL,
		earned_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS agent_badges (
		agent_id TEXT NOT NULL REFERENCES agents(id),
		badge_id TEXT NOT NULL REFERENCES badges(id),
		earned_at DATETIME NOT NULL,
		PRIMARY KEY (agent_id, badge_id)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLite) Close() {
	_ = s.db.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		if serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			strings.Contains(serr.Error(), "UNIQUE constraint failed") {
			return ErrConflict
		}
	}
	return err
}
