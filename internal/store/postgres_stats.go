package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

func (p *Postgres) ListLeaderboard(ctx context.Context, sortKey string, limit int) ([]Agent, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT id, name, description, model, provider, created_at, last_seen,
		       is_active, is_verified, total_spend, total_tokens, total_sessions,
		       days_active, streak
		FROM agents WHERE is_active
		ORDER BY `+leaderboardOrder(sortKey)+`, created_at ASC
		LIMIT $1`, limit)
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

func (p *Postgres) CountAgents(ctx context.Context) (int64, error) {
	var n int64
	err := p.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents WHERE is_active`).Scan(&n)
	return n, err
}

func (p *Postgres) CountAgentsSeenSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := p.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM agents WHERE is_active AND last_seen >= $1`, since).Scan(&n)
	return n, err
}

func (p *Postgres) SumAgentTotals(ctx context.Context) (float64, int64, error) {
	var spend float64
	var tokens int64
	err := p.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_spend), 0), COALESCE(SUM(total_tokens), 0)
		FROM agents WHERE is_active`).Scan(&spend, &tokens)
	return spend, tokens, err
}

func (p *Postgres) ProviderSpendBreakdown(ctx context.Context) (map[string]float64, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT provider, SUM(total_spend) FROM agents
		WHERE is_active AND provider != ''
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

func (p *Postgres) ModelCountBreakdown(ctx context.Context) (map[string]int64, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT model, COUNT(*) FROM agents
		WHERE is_active AND model != ''
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

func (p *Postgres) EcosystemTokenBreakdown(ctx context.Context) (TokenBreakdown, error) {
	var b TokenBreakdown
	err := p.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cache_read_tokens), 0)
		FROM metrics`).Scan(&b.Input, &b.Output, &b.Cache)
	return b, err
}

func (p *Postgres) ProviderEfficiency(ctx context.Context) ([]ProviderEfficiencyRow, error) {
	rows, err := p.Pool.Query(ctx, `
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

func (p *Postgres) EnsureDefaultBadges(ctx context.Context, defaults []Badge) error {
	for _, b := range defaults {
		_, err := p.Pool.Exec(ctx, `
			INSERT INTO badges (id, slug, name, description, icon, criteria)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (slug) DO NOTHING`,
			NewID(), b.Slug, b.Name, b.Description, b.Icon, b.Criteria)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) ListBadges(ctx context.Context) ([]Badge, error) {
	rows, err := p.Pool.Query(ctx, `
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

func (p *Postgres) ListAgentBadges(ctx context.Context, agentID string) ([]AgentBadge, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT b.id, b.slug, b.name, b.description, b.icon, b.criteria, b.earned_count,
		       ab.earned_at
		FROM agent_badges ab
		JOIN badges b ON b.id = ab.badge_id
		WHERE ab.agent_id = $1
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

func (p *Postgres) AwardBadge(ctx context.Context, agentID, slug string, at time.Time) (bool, error) {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var badgeID string
	err = tx.QueryRow(ctx, `SELECT id FROM badges WHERE slug = $1`, slug).Scan(&badgeID)
	if err != nil {
		return false, mapPgErr(err)
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO agent_badges (agent_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (agent_id, badge_id) DO NOTHING`, agentID, badgeID, at)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE badges SET earned_count = earned_count + 1 WHERE id = $1`, badgeID); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (p *Postgres) DailyAgentTotals(ctx context.Context, from, to time.Time) ([]DailyAgentTotal, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT agent_id, SUM(cost),
		       SUM(input_tokens + output_tokens + cache_read_tokens),
		       SUM(session_count),
		       MAX(model), MAX(provider)
		FROM metrics
		WHERE ts >= $1 AND ts < $2
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

func (p *Postgres) UpsertDailyStats(ctx context.Context, row DailyStats) error {
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO daily_stats (agent_id, date, total_cost, total_tokens,
			session_count, primary_model, primary_provider)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent_id, date) DO UPDATE SET
			total_cost = EXCLUDED.total_cost,
			total_tokens = EXCLUDED.total_tokens,
			session_count = EXCLUDED.session_count,
			primary_model = EXCLUDED.primary_model,
			primary_provider = EXCLUDED.primary_provider`,
		row.AgentID, row.Date, row.TotalCost, row.TotalTokens,
		row.SessionCount, row.PrimaryModel, row.PrimaryProvider)
	return err
}

func (p *Postgres) UpsertGlobalStats(ctx context.Context, row GlobalStats) error {
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO global_stats (date, total_agents, total_cost, total_tokens, active_agents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			total_agents = EXCLUDED.total_agents,
			total_cost = EXCLUDED.total_cost,
			total_tokens = EXCLUDED.total_tokens,
			active_agents = EXCLUDED.active_agents`,
		row.Date, row.TotalAgents, row.TotalCost, row.TotalTokens, row.ActiveAgents)
	return err
}

func (p *Postgres) LatestGlobalStatsDate(ctx context.Context) (string, error) {
	var date string
	err := p.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(date), '') FROM global_stats`).Scan(&date)
	if err != nil {
		return "", err
	}
	return date, nil
}
