package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// IngestMetrics appends the raw metrics row and folds the deltas into the
// agent's running totals in one transaction. The row lock on the agent makes
// concurrent pushes serialize instead of losing updates.
func (p *Postgres) IngestMetrics(ctx context.Context, par IngestParams) error {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO metrics (id, agent_id, ts, period, input_tokens, output_tokens,
			cache_read_tokens, cost, provider, model, session_count, request_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		NewID(), par.AgentID, par.Timestamp, par.Period, par.InputTokens, par.OutputTokens,
		par.CacheReadTokens, par.Cost, par.Provider, par.Model, par.SessionCount, par.RequestCount)
	if err != nil {
		return mapPgErr(err)
	}

	var a Agent
	err = tx.QueryRow(ctx, `
		SELECT last_seen, days_active, streak FROM agents WHERE id = $1 FOR UPDATE`, par.AgentID).
		Scan(&a.LastSeen, &a.DaysActive, &a.Streak)
	if err != nil {
		return mapPgErr(err)
	}
	daysActive, streak := advanceActivity(a.LastSeen, par.Timestamp, a.DaysActive, a.Streak)

	_, err = tx.Exec(ctx, `
		UPDATE agents SET
			total_spend = total_spend + $1,
			total_tokens = total_tokens + $2,
			total_sessions = total_sessions + $3,
			last_seen = $4,
			days_active = $5,
			streak = $6,
			model = CASE WHEN $7 != '' THEN $7 ELSE model END,
			provider = CASE WHEN $8 != '' THEN $8 ELSE provider END
		WHERE id = $9`,
		par.Cost, par.InputTokens+par.OutputTokens+par.CacheReadTokens, par.SessionCount,
		par.Timestamp, daysActive, streak, par.Model, par.Provider, par.AgentID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) ListAgentMetrics(ctx context.Context, agentID string, limit int) ([]MetricsRecord, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT id, agent_id, ts, period, input_tokens, output_tokens,
		       cache_read_tokens, cost, provider, model, session_count, request_count
		FROM metrics WHERE agent_id = $1
		ORDER BY ts DESC LIMIT $2`, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MetricsRecord
	for rows.Next() {
		var m MetricsRecord
		if err := rows.Scan(&m.ID, &m.AgentID, &m.Timestamp, &m.Period,
			&m.InputTokens, &m.OutputTokens, &m.CacheReadTokens, &m.Cost,
			&m.Provider, &m.Model, &m.SessionCount, &m.RequestCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) AgentTokenBreakdown(ctx context.Context, agentID string) (TokenBreakdown, error) {
	var b TokenBreakdown
	err := p.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cache_read_tokens), 0)
		FROM metrics WHERE agent_id = $1`, agentID).
		Scan(&b.Input, &b.Output, &b.Cache)
	return b, err
}
