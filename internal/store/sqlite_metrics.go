package store

import (
	"context"
)

// IngestMetrics appends the raw metrics row and folds the deltas into the
// agent's running totals in one transaction. The immediate write lock makes
// concurrent pushes for the same agent serialize instead of losing updates.
func (s *SQLite) IngestMetrics(ctx context.Context, p IngestParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metrics (id, agent_id, ts, period, input_tokens, output_tokens,
			cache_read_tokens, cost, provider, model, session_count, request_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		NewID(), p.AgentID, p.Timestamp, p.Period, p.InputTokens, p.OutputTokens,
		p.CacheReadTokens, p.Cost, p.Provider, p.Model, p.SessionCount, p.RequestCount)
	if err != nil {
		return mapSQLiteErr(err)
	}

	var a Agent
	err = tx.QueryRowContext(ctx, `
		SELECT last_seen, days_active, streak FROM agents WHERE id = ?`, p.AgentID).
		Scan(&a.LastSeen, &a.DaysActive, &a.Streak)
	if err != nil {
		return mapSQLiteErr(err)
	}
	daysActive, streak := advanceActivity(a.LastSeen, p.Timestamp, a.DaysActive, a.Streak)

	_, err = tx.ExecContext(ctx, `
		UPDATE agents SET
			total_spend = total_spend + ?,
			total_tokens = total_tokens + ?,
			total_sessions = total_sessions + ?,
			last_seen = ?,
			days_active = ?,
			streak = ?,
			model = CASE WHEN ? != '' THEN ? ELSE model END,
			provider = CASE WHEN ? != '' THEN ? ELSE provider END
		WHERE id = ?`,
		p.Cost, p.InputTokens+p.OutputTokens+p.CacheReadTokens, p.SessionCount,
		p.Timestamp, daysActive, streak,
		p.Model, p.Model, p.Provider, p.Provider, p.AgentID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) ListAgentMetrics(ctx context.Context, agentID string, limit int) ([]MetricsRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, ts, period, input_tokens, output_tokens,
		       cache_read_tokens, cost, provider, model, session_count, request_count
		FROM metrics WHERE agent_id = ?
		ORDER BY ts DESC LIMIT ?`, agentID, limit)
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

func (s *SQLite) AgentTokenBreakdown(ctx context.Context, agentID string) (TokenBreakdown, error) {
	var b TokenBreakdown
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cache_read_tokens), 0)
		FROM metrics WHERE agent_id = ?`, agentID).
		Scan(&b.Input, &b.Output, &b.Cache)
	return b, err
}
