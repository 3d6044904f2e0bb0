package public

import (
	"context"
	"errors"
	"sort"
	"time"

	"clawpulse/internal/config"
	"clawpulse/internal/store"
)

const defaultLeaderboardLimit = 50

// Service is the read side: leaderboard, health, profiles and ecosystem
// stats. It never mutates store state.
type Service struct {
	store store.DataStore
	cfg   config.ServerConfig
	now   func() time.Time
}

func NewService(st store.DataStore, cfg config.ServerConfig) *Service {
	return &Service{store: st, cfg: cfg, now: time.Now}
}

func (s *Service) Leaderboard(ctx context.Context, sortBy string, limit int) (*LeaderboardResponse, error) {
	if !store.ValidSortKey(sortBy) {
		sortBy = store.SortBySpend
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > s.cfg.LeaderboardMaxLimit {
		limit = s.cfg.LeaderboardMaxLimit
	}
	agents, err := s.store.ListLeaderboard(ctx, sortBy, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(agents))
	for i, a := range agents {
		entries = append(entries, LeaderboardEntry{
			Rank:            i + 1,
			AgentID:         a.ID,
			Name:            a.Name,
			Model:           a.Model,
			Provider:        a.Provider,
			IsVerified:      a.IsVerified,
			TotalSpend:      a.TotalSpend,
			TotalTokens:     a.TotalTokens,
			TotalSessions:   a.TotalSessions,
			DaysActive:      a.DaysActive,
			Streak:          a.Streak,
			CostPer1KTokens: costPer1K(a.TotalSpend, a.TotalTokens),
			LastSeen:        a.LastSeen,
		})
	}
	return &LeaderboardResponse{SortBy: sortBy, Entries: entries}, nil
}

func (s *Service) Health(ctx context.Context) *HealthResponse {
	resp := &HealthResponse{Status: "ok", Timestamp: s.now().UTC()}
	if err := s.store.Ping(ctx); err != nil {
		resp.Status = "degraded"
		return resp
	}
	resp.DBOk = true
	if n, err := s.store.CountAgents(ctx); err == nil {
		resp.AgentCount = n
	}
	if date, err := s.store.LatestGlobalStatsDate(ctx); err == nil {
		resp.LatestDate = date
	}
	return resp
}

func (s *Service) Agent(ctx context.Context, agentID string) (*AgentProfile, error) {
	a, err := s.store.GetAgentByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	bd, err := s.store.AgentTokenBreakdown(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	held, err := s.store.ListAgentBadges(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	badges := make([]BadgeInfo, 0, len(held))
	for _, b := range held {
		badges = append(badges, BadgeInfo{
			Slug: b.Slug, Name: b.Name, Description: b.Description,
			Icon: b.Icon, EarnedAt: b.EarnedAt,
		})
	}
	return &AgentProfile{
		AgentID:       a.ID,
		Name:          a.Name,
		Description:   a.Description,
		Model:         a.Model,
		Provider:      a.Provider,
		IsVerified:    a.IsVerified,
		CreatedAt:     a.CreatedAt,
		LastSeen:      a.LastSeen,
		TotalSpend:    a.TotalSpend,
		TotalTokens:   a.TotalTokens,
		TotalSessions: a.TotalSessions,
		DaysActive:    a.DaysActive,
		Streak:        a.Streak,
		Tokens: TokenBreakdown{
			Input: bd.Input, Output: bd.Output, Cache: bd.Cache,
			Total: bd.Input + bd.Output + bd.Cache,
		},
		Badges: badges,
	}, nil
}

func (s *Service) GlobalStats(ctx context.Context) (*GlobalStatsResponse, error) {
	total, err := s.store.CountAgents(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.store.CountAgentsSeenSince(ctx, s.now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	spend, tokens, err := s.store.SumAgentTotals(ctx)
	if err != nil {
		return nil, err
	}
	providerSpend, err := s.store.ProviderSpendBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	modelCounts, err := s.store.ModelCountBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	return &GlobalStatsResponse{
		TotalAgents:     total,
		ActiveAgents24h: active,
		TotalSpend:      spend,
		TotalTokens:     tokens,
		ProviderSpend:   providerSpend,
		ModelCounts:     modelCounts,
	}, nil
}

func (s *Service) TokenStats(ctx context.Context) (*TokenBreakdown, error) {
	bd, err := s.store.EcosystemTokenBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	return &TokenBreakdown{
		Input: bd.Input, Output: bd.Output, Cache: bd.Cache,
		Total: bd.Input + bd.Output + bd.Cache,
	}, nil
}

// ProviderStats ranks providers by cost per 1K tokens, cheapest first.
// Providers with no token volume have no defined efficiency and sort last.
func (s *Service) ProviderStats(ctx context.Context) ([]ProviderEfficiencyEntry, error) {
	rows, err := s.store.ProviderEfficiency(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProviderEfficiencyEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, ProviderEfficiencyEntry{
			Provider:        r.Provider,
			TotalCost:       r.TotalCost,
			TotalTokens:     r.TotalTokens,
			CostPer1KTokens: costPer1K(r.TotalCost, r.TotalTokens),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CostPer1KTokens, out[j].CostPer1KTokens
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out, nil
}

func (s *Service) Badges(ctx context.Context) ([]BadgeListEntry, error) {
	badges, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BadgeListEntry, 0, len(badges))
	for _, b := range badges {
		out = append(out, BadgeListEntry{
			Slug: b.Slug, Name: b.Name, Description: b.Description,
			Icon: b.Icon, Criteria: b.Criteria, EarnedCount: b.EarnedCount,
		})
	}
	return out, nil
}

func costPer1K(spend float64, tokens int64) *float64 {
	if tokens <= 0 {
		return nil
	}
	v := spend / (float64(tokens) / 1000.0)
	return &v
}
