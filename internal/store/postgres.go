package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production backend.
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	p := &Postgres{Pool: pool}
	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		last_seen TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		total_spend DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_tokens BIGINT NOT NULL DEFAULT 0,
		total_sessions BIGINT NOT NULL DEFAULT 0,
		days_active BIGINT NOT NULL DEFAULT 1,
		streak BIGINT NOT NULL DEFAULT 1
	);
	CREATE UNIQUE INDEX IF NOT EXISTS agents_name_lower_idx ON agents (lower(name));
	CREATE INDEX IF NOT EXISTS agents_created_at_idx ON agents (created_at);
	CREATE INDEX IF NOT EXISTS agents_last_seen_idx ON agents (last_seen);

	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		key_digest TEXT NOT NULL UNIQUE,
		prefix TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		last_used TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE INDEX IF NOT EXISTS api_keys_agent_idx ON api_keys (agent_id);

	CREATE TABLE IF NOT EXISTS challenges (
		id TEXT PRIMARY KEY,
		nonce TEXT NOT NULL,
		expected_digest TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS metrics (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL REFERENCES agents(id),
		ts TIMESTAMPTZ NOT NULL,
		period TEXT NOT NULL,
		input_tokens BIGINT NOT NULL,
		output_tokens BIGINT NOT NULL,
		cache_read_tokens BIGINT NOT NULL,
		cost DOUBLE PRECISION NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		session_count BIGINT NOT NULL,
		request_count BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS metrics_agent_ts_idx ON metrics (agent_id, ts);
	CREATE INDEX IF NOT EXISTS metrics_ts_idx ON metrics (ts);

	CREATE TABLE IF NOT EXISTS daily_stats (
		agent_id TEXT NOT NULL REFERENCES agents(id),
		date TEXT NOT NULL,
		total_cost DOUBLE PRECISION NOT NULL,
		total_tokens BIGINT NOT NULL,
		session_count BIGINT NOT NULL,
		primary_model TEXT NOT NULL,
		primary_provider TEXT NOT NULL,
		PRIMARY KEY (agent_id, date)
	);

	CREATE TABLE IF NOT EXISTS global_stats (
		date TEXT PRIMARY KEY,
		total_agents BIGINT NOT NULL,
		total_cost DOUBLE PRECISION NOT NULL,
		total_tokens BIGINT NOT NULL,
		active_agents BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS badges (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		icon TEXT NOT NULL,
		criteria TEXT NOT NULL,
		earned_count BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS agent_badges (
		agent_id TEXT NOT NULL REFERENCES agents(id),
		badge_id TEXT NOT NULL REFERENCES badges(id),
		earned_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (agent_id, badge_id)
	);
	`
	_, err := p.Pool.Exec(ctx, schema)
	return err
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Pool.Ping(ctx)
}

func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
