package store

import "time"

type Agent struct {
	ID            string
	Name          string
	Description   string
	Model         string
	Provider      string
	CreatedAt     time.Time
	LastSeen      time.Time
	IsActive      bool
	IsVerified    bool
	TotalSpend    float64
	TotalTokens   int64
	TotalSessions int64
	DaysActive    int64
	Streak        int64
}

type APIKey struct {
	ID        string
	AgentID   string
	KeyDigest string
	Prefix    string
	CreatedAt time.Time
	LastUsed  time.Time
	IsActive  bool
}

type Challenge struct {
	ID             string
	Nonce          string
	ExpectedDigest string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Used           bool
}

type MetricsRecord struct {
	ID              string
	AgentID         string
	Timestamp       time.Time
	Period          string
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
	Cost            float64
	Provider        string
	Model           string
	SessionCount    int64
	RequestCount    int64
}

type TokenBreakdown struct {
	Input  int64
	Output int64
	Cache  int64
}

type ProviderEfficiencyRow struct {
	Provider    string
	TotalCost   float64
	TotalTokens int64
}

type Badge struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Icon        string
	Criteria    string
	EarnedCount int64
}

type AgentBadge struct {
	Badge
	EarnedAt time.Time
}

type DailyStats struct {
	AgentID         string
	Date            string
	TotalCost       float64
	TotalTokens     int64
	SessionCount    int64
	PrimaryModel    string
	PrimaryProvider string
}

type GlobalStats struct {
	Date         string
	TotalAgents  int64
	TotalCost    float64
	TotalTokens  int64
	ActiveAgents int64
}

type DailyAgentTotal struct {
	AgentID      string
	TotalCost    float64
	TotalTokens  int64
	SessionCount int64
	LastModel    string
	LastProvider string
}

type CreateAgentParams struct {
	Name        string
	Description string
	Model       string
	Provider    string
	KeyDigest   string
	KeyPrefix   string
	Now         time.Time
}

type CreateChallengeParams struct {
	Nonce          string
	ExpectedDigest string
	Now            time.Time
	ExpiresAt      time.Time
}

type IngestParams struct {
	AgentID         string
	Timestamp       time.Time
	Period          string
	InputTokens     int64
	OutputTokens    int64
	CacheReadTokens int64
	Cost            float64
	Provider        string
	Model           string
	SessionCount    int64
	RequestCount    int64
}

// advanceActivity rolls days_active/streak forward when an ingest lands on
// a new UTC day. Same day leaves both untouched; a consecutive day extends
// the streak; a gap resets it.
func advanceActivity(lastSeen, now time.Time, daysActive, streak int64) (int64, int64) {
	lastDay := lastSeen.UTC().Truncate(24 * time.Hour)
	nowDay := now.UTC().Truncate(24 * time.Hour)
	if !nowDay.After(lastDay) {
		return daysActive, streak
	}
	daysActive++
	if nowDay.Sub(lastDay) == 24*time.Hour {
		streak++
	} else {
		streak = 1
	}
	return daysActive, streak
}
