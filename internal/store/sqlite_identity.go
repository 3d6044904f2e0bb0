package store

import (
	"context"
	"database/sql"
	"time"
)

func (s *SQLite) CreateAgentWithKey(ctx context.Context, p CreateAgentParams) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	agentID := NewID()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO agents (id, name, description, model, provider, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		agentID, p.Name, p.Description, p.Model, p.Provider, p.Now, p.Now)
	if err != nil {
		return "", mapSQLiteErr(err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO api_keys (id, agent_id, key_digest, prefix, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?)`,
		NewID(), agentID, p.KeyDigest, p.KeyPrefix, p.Now, p.Now)
	if err != nil {
		return "", mapSQLiteErr(err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return agentID, nil
}

func (s *SQLite) GetAgentByID(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, model, provider, created_at, last_seen,
		       is_active, is_verified, total_spend, total_tokens, total_sessions,
		       days_active, streak
		FROM agents WHERE id = ?`, id)
	return scanAgentRow(row)
}

func scanAgentRow(row *sql.Row) (*Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Model, &a.Provider,
		&a.CreatedAt, &a.LastSeen, &a.IsActive, &a.IsVerified,
		&a.TotalSpend, &a.TotalTokens, &a.TotalSessions, &a.DaysActive, &a.Streak)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return &a, nil
}

// CountAgentsByNamePrefixSince compares the key with substr, not LIKE, so
// '%' and '_' in names count as literal characters.
func (s *SQLite) CountAgentsByNamePrefixSince(ctx context.Context, prefix string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM agents
		WHERE substr(lower(name), 1, 4) = lower(?) AND created_at >= ?`,
		prefix, since).Scan(&n)
	return n, err
}

func (s *SQLite) GetKeyByDigest(ctx context.Context, digest string) (*APIKey, error) {
	var k APIKey
	err := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, key_digest, prefix, created_at, last_used, is_active
		FROM api_keys WHERE key_digest = ? AND is_active = 1`, digest).
		Scan(&k.ID, &k.AgentID, &k.KeyDigest, &k.Prefix, &k.CreatedAt, &k.LastUsed, &k.IsActive)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return &k, nil
}

func (s *SQLite) TouchKey(ctx context.Context, keyID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE id = ?`, at, keyID)
	return err
}

func (s *SQLite) RotateKey(ctx context.Context, agentID, newDigest, newPrefix string, at time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE api_keys SET is_active = 0 WHERE agent_id = ? AND is_active = 1`, agentID); err != nil {
		return "", err
	}
	keyID := NewID()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO api_keys (id, agent_id, key_digest, prefix, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?)`,
		keyID, agentID, newDigest, newPrefix, at, at)
	if err != nil {
		return "", mapSQLiteErr(err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return keyID, nil
}

func (s *SQLite) SetAgentVerified(ctx context.Context, agentID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agents SET is_verified = 1 WHERE id = ?`, agentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) CreateChallenge(ctx context.Context, p CreateChallengeParams) (string, error) {
	id := NewID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenges (id, nonce, expected_digest, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, p.Nonce, p.ExpectedDigest, p.Now, p.ExpiresAt)
	if err != nil {
		return "", mapSQLiteErr(err)
	}
	return id, nil
}

func (s *SQLite) GetChallenge(ctx context.Context, id string) (*Challenge, error) {
	var c Challenge
	err := s.db.QueryRowContext(ctx, `
		SELECT id, nonce, expected_digest, created_at, expires_at, used
		FROM challenges WHERE id = ?`, id).
		Scan(&c.ID, &c.Nonce, &c.ExpectedDigest, &c.CreatedAt, &c.ExpiresAt, &c.Used)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return &c, nil
}

func (s *SQLite) ConsumeChallenge(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE challenges SET used = 1 WHERE id = ? AND used = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
