package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

func (p *Postgres) CreateAgentWithKey(ctx context.Context, par CreateAgentParams) (string, error) {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	agentID := NewID()
	_, err = tx.Exec(ctx, `
		INSERT INTO agents (id, name, description, model, provider, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		agentID, par.Name, par.Description, par.Model, par.Provider, par.Now)
	if err != nil {
		return "", mapPgErr(err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO api_keys (id, agent_id, key_digest, prefix, created_at, last_used)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		NewID(), agentID, par.KeyDigest, par.KeyPrefix, par.Now)
	if err != nil {
		return "", mapPgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return agentID, nil
}

func (p *Postgres) GetAgentByID(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	err := p.Pool.QueryRow(ctx, `
		SELECT id, name, description, model, provider, created_at, last_seen,
		       is_active, is_verified, total_spend, total_tokens, total_sessions,
		       days_active, streak
		FROM agents WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Description, &a.Model, &a.Provider,
			&a.CreatedAt, &a.LastSeen, &a.IsActive, &a.IsVerified,
			&a.TotalSpend, &a.TotalTokens, &a.TotalSessions, &a.DaysActive, &a.Streak)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &a, nil
}

// CountAgentsByNamePrefixSince compares the key with left(), not LIKE, so
// '%' and '_' in names count as literal characters.
func (p *Postgres) CountAgentsByNamePrefixSince(ctx context.Context, prefix string, since time.Time) (int, error) {
	var n int
	err := p.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM agents
		WHERE left(lower(name), 4) = lower($1) AND created_at >= $2`,
		prefix, since).Scan(&n)
	return n, err
}

func (p *Postgres) GetKeyByDigest(ctx context.Context, digest string) (*APIKey, error) {
	var k APIKey
	err := p.Pool.QueryRow(ctx, `
		SELECT id, agent_id, key_digest, prefix, created_at, last_used, is_active
		FROM api_keys WHERE key_digest = $1 AND is_active`, digest).
		Scan(&k.ID, &k.AgentID, &k.KeyDigest, &k.Prefix, &k.CreatedAt, &k.LastUsed, &k.IsActive)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &k, nil
}

func (p *Postgres) TouchKey(ctx context.Context, keyID string, at time.Time) error {
	_, err := p.Pool.Exec(ctx, `UPDATE api_keys SET last_used = $1 WHERE id = $2`, at, keyID)
	return err
}

func (p *Postgres) RotateKey(ctx context.Context, agentID, newDigest, newPrefix string, at time.Time) (string, error) {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE agent_id = $1 AND is_active`, agentID); err != nil {
		return "", err
	}
	keyID := NewID()
	_, err = tx.Exec(ctx, `
		INSERT INTO api_keys (id, agent_id, key_digest, prefix, created_at, last_used)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		keyID, agentID, newDigest, newPrefix, at)
	if err != nil {
		return "", mapPgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return keyID, nil
}

func (p *Postgres) SetAgentVerified(ctx context.Context, agentID string) error {
	tag, err := p.Pool.Exec(ctx, `UPDATE agents SET is_verified = TRUE WHERE id = $1`, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateChallenge(ctx context.Context, par CreateChallengeParams) (string, error) {
	id := NewID()
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO challenges (id, nonce, expected_digest, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, par.Nonce, par.ExpectedDigest, par.Now, par.ExpiresAt)
	if err != nil {
		return "", mapPgErr(err)
	}
	return id, nil
}

func (p *Postgres) GetChallenge(ctx context.Context, id string) (*Challenge, error) {
	var c Challenge
	err := p.Pool.QueryRow(ctx, `
		SELECT id, nonce, expected_digest, created_at, expires_at, used
		FROM challenges WHERE id = $1`, id).
		Scan(&c.ID, &c.Nonce, &c.ExpectedDigest, &c.CreatedAt, &c.ExpiresAt, &c.Used)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &c, nil
}

func (p *Postgres) ConsumeChallenge(ctx context.Context, id string) (bool, error) {
	tag, err := p.Pool.Exec(ctx,
		`UPDATE challenges SET used = TRUE WHERE id = $1 AND NOT used`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
