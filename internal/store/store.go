// Package store persists agents, credentials, challenges, and metrics.
// Two backends implement DataStore: Postgres (production) and SQLite
// (development and tests). Invariants that must hold under concurrent
// writers (name uniqueness, the agent+key dual create, the ingest
// read-modify-write, the single-use challenge flip) are enforced in the
// storage layer, not in application logic.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clawpulse/internal/config"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type DataStore interface {
	Close()
	Ping(ctx context.Context) error

	// Identity.
	CreateAgentWithKey(ctx context.Context, p CreateAgentParams) (string, error)
	GetAgentByID(ctx context.Context, id string) (*Agent, error)
	CountAgentsByNamePrefixSince(ctx context.Context, prefix string, since time.Time) (int, error)
	GetKeyByDigest(ctx context.Context, digest string) (*APIKey, error)
	TouchKey(ctx context.Context, keyID string, at time.Time) error
	RotateKey(ctx context.Context, agentID, newDigest, newPrefix string, at time.Time) (string, error)
	SetAgentVerified(ctx context.Context, agentID string) error

	// Challenges.
	CreateChallenge(ctx context.Context, p CreateChallengeParams) (string, error)
	GetChallenge(ctx context.Context, id string) (*Challenge, error)
	ConsumeChallenge(ctx context.Context, id string) (bool, error)

	// Metrics ingestion.
	IngestMetrics(ctx context.Context, p IngestParams) error
	ListAgentMetrics(ctx context.Context, agentID string, limit int) ([]MetricsRecord, error)
	AgentTokenBreakdown(ctx context.Context, agentID string) (TokenBreakdown, error)

	// Read side.
	ListLeaderboard(ctx context.Context, sortKey string, limit int) ([]Agent, error)
	CountAgents(ctx context.Context) (int64, error)
	CountAgentsSeenSince(ctx context.Context, since time.Time) (int64, error)
	SumAgentTotals(ctx context.Context) (spend float64, tokens int64, err error)
	ProviderSpendBreakdown(ctx context.Context) (map[string]float64, error)
	ModelCountBreakdown(ctx context.Context) (map[string]int64, error)
	EcosystemTokenBreakdown(ctx context.Context) (TokenBreakdown, error)
	ProviderEfficiency(ctx context.Context) ([]ProviderEfficiencyRow, error)

	// Badges.
	EnsureDefaultBadges(ctx context.Context, defaults []Badge) error
	ListBadges(ctx context.Context) ([]Badge, error)
	ListAgentBadges(ctx context.Context, agentID string) ([]AgentBadge, error)
	AwardBadge(ctx context.Context, agentID, slug string, at time.Time) (bool, error)

	// Rollup.
	DailyAgentTotals(ctx context.Context, from, to time.Time) ([]DailyAgentTotal, error)
	UpsertDailyStats(ctx context.Context, row DailyStats) error
	UpsertGlobalStats(ctx context.Context, row GlobalStats) error
	LatestGlobalStatsDate(ctx context.Context) (string, error)
}

// Open picks a backend from cfg.StoreDriver and applies the schema.
func Open(ctx context.Context, cfg config.ServerConfig) (DataStore, error) {
	switch cfg.StoreDriver {
	case "postgres", "":
		return NewPostgres(ctx, cfg.PostgresDSN)
	case "sqlite":
		return NewSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.StoreDriver)
	}
}

// Leaderboard sort keys.
const (
	SortBySpend      = "spend"
	SortByTokens     = "tokens"
	SortBySessions   = "sessions"
	SortByEfficiency = "efficiency"
	SortByStreak     = "streak"
)

// ValidSortKey reports whether key is one of the leaderboard sort keys.
func ValidSortKey(key string) bool {
	switch key {
	case SortBySpend, SortByTokens, SortBySessions, SortByEfficiency, SortByStreak:
		return true
	}
	return false
}

// leaderboardOrder maps a sort key to its ORDER BY clause. Efficiency is
// cost per 1000 tokens ascending; agents with zero tokens have no defined
// efficiency and sort last. Ties fall back to the store's natural order.
func leaderboardOrder(sortKey string) string {
	switch sortKey {
	case SortByTokens:
		return "total_tokens DESC"
	case SortBySessions:
		return "total_sessions DESC"
	case SortByStreak:
		return "streak DESC"
	case SortByEfficiency:
		return "CASE WHEN total_tokens > 0 THEN total_spend / (total_tokens / 1000.0) END ASC NULLS LAST"
	default:
		return "total_spend DESC"
	}
}
