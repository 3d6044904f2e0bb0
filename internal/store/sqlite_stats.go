package store

import (
	"context"
	"time"
)

func (s *SQLite) ListLeaderboard(ctx context.Context, sortKey string, limit int) ([]Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, model, provider, created_at, last_seen,
		       is_active, is_verified, total_spend, total_tokens, total_sessions,
		       days_active, streak
		FROM agents WHERE is_active = 1
		ORDER BY `+leaderboardOrder(sortKey)+`, created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Model, &a.Provider,
			&a.CreatedAt, &a.LastSeen, &a.IsActive, &a.IsVerified,
			&a.TotalSpend, &a.TotalTokens, &a.TotalSessions, &a.DaysActive, &a.Streak); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) CountAgents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE is_active = 1`).Scan(&n)
	return n, err
}

func (s *SQLite) CountAgentsSeenSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents WHERE is_active = 1 AND last_seen >= ?`, since).Scan(&n)
	return n, err
}

func (s *SQLite) SumAgentTotals(ctx context.Context) (float64, int64, error) {
	var spend float64
	var tokens int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_spend), 0), COALESCE(SUM(total_tokens), 0)
		FROM agents WHERE is_active = 1`).Scan(&spend, &tokens)
	return spend, tokens, err
}

func (s *SQLite) ProviderSpendBreakdown(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, SUM(total_spend) FROM agents
		WHERE is_active = 1 AND provider != ''
		GROUP BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var provider string
		var spend float64
		if err := rows.Scan(&provider, &spend); err != nil {
			return nil, err
		}
		out[provider] = spend
	}
	return out, rows.Err()
}

func (s *SQLite) ModelCountBreakdown(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, COUNT(*) FROM agents
		WHERE is_active = 1 AND model != ''
		GROUP BY model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var model string
		var n int64
		if err := rows.Scan(&model, &n); err != nil {
			return nil, err
		}
		out[model] = n
	}
	return out, rows.Err()
}

func (s *SQLite) EcosystemTokenBreakdown(ctx context.Context) (TokenBreakdown, error) {
	var b TokenBreakdown
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cache_read_tokens), 0)
		FROM metrics`).Scan(&b.Input, &b.Output, &b.Cache)
	return b, err
}

func (s *SQLite) ProviderEfficiency(ctx context.Context) ([]ProviderEfficiencyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, SUM(cost),
		       SUM(input_tokens + output_tokens + cache_read_tokens)
		FROM metrics WHERE provider != ''
		GROUP BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProviderEfficiencyRow
	for rows.Next() {
		var r ProviderEfficiencyRow
		if err := rows.Scan(&r.Provider, &r.TotalCost, &r.TotalTokens); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) EnsureDefaultBadges(ctx context.Context, defaults []Badge) error {
	for _, b := range defaults {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO badges (id, slug, name, description, icon, criteria)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (slug) DO NOTHING`,
			NewID(), b.Slug, b.Name, b.Description, b.Icon, b.Criteria)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) ListBadges(ctx context.Context) ([]Badge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, name, description, icon, criteria, earned_count
		FROM badges ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Badge
	for rows.Next() {
		var b Badge
		if err := rows.Scan(&b.ID, &b.Slug, &b.Name, &b.Description, &b.Icon,
			&b.Criteria, &b.EarnedCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLite) ListAgentBadges(ctx context.Context, agentID string) ([]AgentBadge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.slug, b.name, b.description, b.icon, b.criteria, b.earned_count,
		       ab.earned_at
		FROM agent_badges ab
		JOIN badges b ON b.id = ab.badge_id
		WHERE ab.agent_id = ?
		ORDER BY ab.earned_at`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentBadge
	for rows.Next() {
		var ab AgentBadge
		if err := rows.Scan(&ab.ID, &ab.Slug, &ab.Name, &ab.Description, &ab.Icon,
			&ab.Criteria, &ab.EarnedCount, &ab.EarnedAt); err != nil {
			return nil, err
		}
		out = append(out, ab)
	}
	return out, rows.Err()
}

// AwardBadge grants the badge if the agent does not hold it yet and reports
// whether a new grant happened.
func (s *SQLite) AwardBadge(ctx context.Context, agentID, slug string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var badgeID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM badges WHERE slug = ?`, slug).Scan(&badgeID)
	if err != nil {
		return false, mapSQLiteErr(err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO agent_badges (agent_id, badge_id, earned_at)
		VALUES (?, ?, ?)
		ON CONFLICT (agent_id, badge_id) DO NOTHING`, agentID, badgeID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE badges SET earned_count = earned_count + 1 WHERE id = ?`, badgeID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (s *SQLite) DailyAgentTotals(ctx context.Context, from, to time.Time) ([]DailyAgentTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, SUM(cost),
		       SUM(input_tokens + output_tokens + cache_read_tokens),
		       SUM(session_count),
		       MAX(model), MAX(provider)
		FROM metrics
		WHERE ts >= ? AND ts < ?
		GROUP BY agent_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyAgentTotal
	for rows.Next() {
		var t DailyAgentTotal
		if err := rows.Scan(&t.AgentID, &t.TotalCost, &t.TotalTokens,
			&t.SessionCount, &t.LastModel, &t.LastProvider); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) UpsertDailyStats(ctx context.Context, row DailyStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (agent_id, date, total_cost, total_tokens,
			session_count, primary_model, primary_provider)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_id, date) DO UPDATE SET
			total_cost = excluded.total_cost,
			total_tokens = excluded.total_tokens,
			session_count = excluded.session_count,
			primary_model = excluded.primary_model,
			primary_provider = excluded.primary_provider`,
		row.AgentID, row.Date, row.TotalCost, row.TotalTokens,
		row.SessionCount, row.PrimaryModel, row.PrimaryProvider)
	return err
}

func (s *SQLite) UpsertGlobalStats(ctx context.Context, row GlobalStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_stats (date, total_agents, total_cost, total_tokens, active_agents)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			total_agents = excluded.total_agents,
			total_cost = excluded.total_cost,
			total_tokens = excluded.total_tokens,
			active_agents = excluded.active_agents`,
		row.Date, row.TotalAgents, row.TotalCost, row.TotalTokens, row.ActiveAgents)
	return err
}

func (s *SQLite) LatestGlobalStatsDate(ctx context.Context) (string, error) {
	var date string
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(date), '') FROM global_stats`).Scan(&date)
	if err != nil {
		return "", err
	}
	return date, nil
}
