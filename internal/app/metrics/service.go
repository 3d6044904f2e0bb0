package metrics

import (
	"context"
	"strings"
	"time"

	"clawpulse/internal/config"
	"clawpulse/internal/store"

	"github.com/rs/zerolog/log"
)

const defaultPeriod = "hourly"

// Badge award thresholds.
const (
	millionClubTokens = 1_000_000
	highRollerSpend   = 100.0
	weekStreakDays    = 7
)

type PushInput struct {
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	CacheReadTokens int64   `json:"cache_read_tokens"`
	Cost            float64 `json:"cost"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	Period          string  `json:"period"`
	SessionCount    int64   `json:"session_count"`
	RequestCount    int64   `json:"request_count"`
}

type PushResponse struct {
	OK      bool   `json:"ok"`
	AgentID string `json:"agent_id"`
}

// Service ingests metrics pushes for authenticated agents.
type Service struct {
	store store.DataStore
	cfg   config.ServerConfig
	now   func() time.Time
}

func NewService(st store.DataStore, cfg config.ServerConfig) *Service {
	return &Service{store: st, cfg: cfg, now: time.Now}
}

// DefaultBadges is the seed set applied at boot.
func DefaultBadges() []store.Badge {
	return []store.Badge{
		{Slug: "first-push", Name: "First Push", Description: "Reported metrics for the first time", Icon: "📡", Criteria: "any metrics push"},
		{Slug: "million-club", Name: "Million Club", Description: "Passed one million cumulative tokens", Icon: "🏆", Criteria: "total_tokens >= 1000000"},
		{Slug: "high-roller", Name: "High Roller", Description: "Passed $100 cumulative spend", Icon: "💸", Criteria: "total_spend >= 100"},
		{Slug: "week-streak", Name: "Week Streak", Description: "Active seven days in a row", Icon: "🔥", Criteria: "streak >= 7"},
		{Slug: "verified", Name: "Verified", Description: "Passed the computation challenge", Icon: "✅", Criteria: "challenge verified"},
	}
}

// Push appends a metrics record and folds the counters into the agent's
// aggregates. The record insert and the aggregate update commit together.
func (s *Service) Push(ctx context.Context, ag *store.Agent, in PushInput) (*PushResponse, error) {
	if in.InputTokens < 0 {
		return nil, &ValidationError{Field: "input_tokens", Reason: "negative"}
	}
	if in.OutputTokens < 0 {
		return nil, &ValidationError{Field: "output_tokens", Reason: "negative"}
	}
	if in.CacheReadTokens < 0 {
		return nil, &ValidationError{Field: "cache_read_tokens", Reason: "negative"}
	}
	if in.Cost < 0 {
		return nil, &ValidationError{Field: "cost", Reason: "negative"}
	}
	if in.SessionCount < 0 {
		return nil, &ValidationError{Field: "session_count", Reason: "negative"}
	}
	if in.RequestCount < 0 {
		return nil, &ValidationError{Field: "request_count", Reason: "negative"}
	}
	period := strings.TrimSpace(in.Period)
	if period == "" {
		period = defaultPeriod
	}

	err := s.store.IngestMetrics(ctx, store.IngestParams{
		AgentID:         ag.ID,
		Timestamp:       s.now().UTC(),
		Period:          period,
		InputTokens:     in.InputTokens,
		OutputTokens:    in.OutputTokens,
		CacheReadTokens: in.CacheReadTokens,
		Cost:            in.Cost,
		Provider:        strings.TrimSpace(in.Provider),
		Model:           strings.TrimSpace(in.Model),
		SessionCount:    in.SessionCount,
		RequestCount:    in.RequestCount,
	})
	if err != nil {
		return nil, err
	}

	s.awardBadges(ctx, ag.ID)
	return &PushResponse{OK: true, AgentID: ag.ID}, nil
}

// awardBadges is best effort; a failed award never fails the push.
func (s *Service) awardBadges(ctx context.Context, agentID string) {
	ag, err := s.store.GetAgentByID(ctx, agentID)
	if err != nil {
		log.Warn().Err(err).Str("agent_id", agentID).Msg("badge reload failed")
		return
	}
	now := s.now().UTC()
	award := func(slug string) {
		if _, err := s.store.AwardBadge(ctx, agentID, slug, now); err != nil {
			log.Warn().Err(err).Str("agent_id", agentID).Str("badge", slug).Msg("badge award failed")
		}
	}
	award("first-push")
	if ag.TotalTokens >= millionClubTokens {
		award("million-club")
	}
	if ag.TotalSpend >= highRollerSpend {
		award("high-roller")
	}
	if ag.Streak >= weekStreakDays {
		award("week-streak")
	}
}
