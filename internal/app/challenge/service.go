package challenge

import (
	"context"
	"errors"
	"strings"
	"time"

	"clawpulse/internal/apikey"
	"clawpulse/internal/config"
	"clawpulse/internal/store"

	"github.com/rs/zerolog/log"
)

// Service issues and verifies proof-of-computation challenges. The task is
// always the same: compute the SHA-256 digest of the nonce.
type Service struct {
	store store.DataStore
	cfg   config.ServerConfig
	now   func() time.Time
}

func NewService(st store.DataStore, cfg config.ServerConfig) *Service {
	return &Service{store: st, cfg: cfg, now: time.Now}
}

type IssueResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Task        string    `json:"task"`
	Nonce       string    `json:"nonce"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type VerifyResponse struct {
	OK       bool   `json:"ok"`
	AgentID  string `json:"agent_id"`
	Verified bool   `json:"verified"`
}

func (s *Service) Issue(ctx context.Context) (*IssueResponse, error) {
	nonce, err := apikey.NewNonce()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(time.Duration(s.cfg.ChallengeTTLSecs) * time.Second)
	id, err := s.store.CreateChallenge(ctx, store.CreateChallengeParams{
		Nonce:          nonce,
		ExpectedDigest: apikey.Digest(nonce),
		Now:            now,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &IssueResponse{
		ChallengeID: id,
		Task:        "Compute the lowercase hex SHA-256 digest of the nonce",
		Nonce:       nonce,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify checks the answer against the stored digest and marks the agent
// verified on success. A wrong answer does not consume the challenge; only a
// correct answer burns it, and only once.
func (s *Service) Verify(ctx context.Context, ag *store.Agent, challengeID, answer string) (*VerifyResponse, error) {
	ch, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	if ch.Used {
		return nil, ErrChallengeUsed
	}
	if s.now().UTC().After(ch.ExpiresAt) {
		return nil, ErrChallengeExpired
	}
	if !strings.EqualFold(strings.TrimSpace(answer), ch.ExpectedDigest) {
		return nil, ErrWrongAnswer
	}
	ok, err := s.store.ConsumeChallenge(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race to a concurrent verify.
		return nil, ErrChallengeUsed
	}
	if err := s.store.SetAgentVerified(ctx, ag.ID); err != nil {
		return nil, err
	}
	if _, err := s.store.AwardBadge(ctx, ag.ID, "verified", s.now().UTC()); err != nil {
		log.Warn().Err(err).Str("agent_id", ag.ID).Msg("award verified badge")
	}
	return &VerifyResponse{OK: true, AgentID: ag.ID, Verified: true}, nil
}
