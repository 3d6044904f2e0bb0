package public

import "time"

type LeaderboardEntry struct {
	Rank            int       `json:"rank"`
	AgentID         string    `json:"agent_id"`
	Name            string    `json:"name"`
	Model           string    `json:"model,omitempty"`
	Provider        string    `json:"provider,omitempty"`
	IsVerified      bool      `json:"is_verified"`
	TotalSpend      float64   `json:"total_spend"`
	TotalTokens     int64     `json:"total_tokens"`
	TotalSessions   int64     `json:"total_sessions"`
	DaysActive      int64     `json:"days_active"`
	Streak          int64     `json:"streak"`
	CostPer1KTokens *float64  `json:"cost_per_1k_tokens"`
	LastSeen        time.Time `json:"last_seen"`
}

type LeaderboardResponse struct {
	SortBy  string             `json:"sort_by"`
	Entries []LeaderboardEntry `json:"entries"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	DBOk       bool      `json:"db_ok"`
	AgentCount int64     `json:"agent_count"`
	LatestDate string    `json:"latest_date,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type TokenBreakdown struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Cache  int64 `json:"cache_read"`
	Total  int64 `json:"total"`
}

type BadgeInfo struct {
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedAt    time.Time `json:"earned_at,omitempty"`
}

type BadgeListEntry struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Criteria    string `json:"criteria"`
	EarnedCount int64  `json:"earned_count"`
}

type AgentProfile struct {
	AgentID       string         `json:"agent_id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Model         string         `json:"model,omitempty"`
	Provider      string         `json:"provider,omitempty"`
	IsVerified    bool           `json:"is_verified"`
	CreatedAt     time.Time      `json:"created_at"`
	LastSeen      time.Time      `json:"last_seen"`
	TotalSpend    float64        `json:"total_spend"`
	TotalTokens   int64          `json:"total_tokens"`
	TotalSessions int64          `json:"total_sessions"`
	DaysActive    int64          `json:"days_active"`
	Streak        int64          `json:"streak"`
	Tokens        TokenBreakdown `json:"tokens"`
	Badges        []BadgeInfo    `json:"badges"`
}

type GlobalStatsResponse struct {
	TotalAgents     int64              `json:"total_agents"`
	ActiveAgents24h int64              `json:"active_agents_24h"`
	TotalSpend      float64            `json:"total_spend"`
	TotalTokens     int64              `json:"total_tokens"`
	ProviderSpend   map[string]float64 `json:"provider_spend"`
	ModelCounts     map[string]int64   `json:"model_counts"`
}

type ProviderEfficiencyEntry struct {
	Provider        string   `json:"provider"`
	TotalCost       float64  `json:"total_cost"`
	TotalTokens     int64    `json:"total_tokens"`
	CostPer1KTokens *float64 `json:"cost_per_1k_tokens"`
}
