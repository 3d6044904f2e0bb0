package public

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"clawpulse/internal/config"
	"clawpulse/internal/store"
	"clawpulse/internal/testutil"
)

func newTestService(t *testing.T) (*Service, store.DataStore, *time.Time) {
	t.Helper()
	st := testutil.OpenTestStore(t)
	svc := NewService(st, config.ServerConfig{LeaderboardMaxLimit: 100})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	return svc, st, clock
}

func seedAgent(t *testing.T, st store.DataStore, name string, now time.Time, tokens int64, cost float64) string {
	t.Helper()
	ctx := context.Background()
	id, err := st.CreateAgentWithKey(ctx, store.CreateAgentParams{
		Name: name, KeyDigest: "digest-" + name, KeyPrefix: "cpk_abcd", Now: now,
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if tokens > 0 || cost > 0 {
		if err := st.IngestMetrics(ctx, store.IngestParams{
			AgentID: id, Timestamp: now, Period: "daily",
			InputTokens: tokens, Cost: cost, Provider: "p-" + name, Model: "m-" + name,
		}); err != nil {
			t.Fatalf("ingest for %s: %v", name, err)
		}
	}
	return id
}

func TestLeaderboardComputesCostPer1K(t *testing.T) {
	svc, st, clock := newTestService(t)
	seedAgent(t, st, "Spender", *clock, 2000, 1.0)
	seedAgent(t, st, "Idle", *clock, 0, 0)

	resp, err := svc.Leaderboard(context.Background(), "spend", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if resp.SortBy != "spend" {
		t.Errorf("sort_by = %s", resp.SortBy)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(resp.Entries))
	}
	top := resp.Entries[0]
	if top.Name != "Spender" || top.Rank != 1 {
		t.Fatalf("top = %+v", top)
	}
	if top.CostPer1KTokens == nil || *top.CostPer1KTokens != 0.5 {
		t.Errorf("cost_per_1k = %v, want 0.5", top.CostPer1KTokens)
	}
	if resp.Entries[1].CostPer1KTokens != nil {
		t.Error("zero-token agent should have nil cost_per_1k")
	}
}

func TestLeaderboardLimitClamp(t *testing.T) {
	svc, st, clock := newTestService(t)
	for i := 0; i < 3; i++ {
		seedAgent(t, st, fmt.Sprintf("Agent%c", 'A'+i), *clock, 100, 0.1)
	}

	resp, err := svc.Leaderboard(context.Background(), "tokens", 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(resp.Entries))
	}

	// Unknown sort keys fall back to spend; oversized limits clamp.
	resp, err = svc.Leaderboard(context.Background(), "bogus", 5000)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if resp.SortBy != "spend" {
		t.Errorf("sort_by = %s, want spend", resp.SortBy)
	}
}

func TestHealth(t *testing.T) {
	svc, st, clock := newTestService(t)
	seedAgent(t, st, "Healthy", *clock, 0, 0)
	if err := st.UpsertGlobalStats(context.Background(), store.GlobalStats{
		Date: "2026-02-28", TotalAgents: 1,
	}); err != nil {
		t.Fatalf("upsert global: %v", err)
	}

	h := svc.Health(context.Background())
	if h.Status != "ok" || !h.DBOk {
		t.Fatalf("health = %+v", h)
	}
	if h.AgentCount != 1 {
		t.Errorf("agent count = %d, want 1", h.AgentCount)
	}
	if h.LatestDate != "2026-02-28" {
		t.Errorf("latest date = %q", h.LatestDate)
	}
	if !h.Timestamp.Equal(*clock) {
		t.Errorf("timestamp = %v", h.Timestamp)
	}
}

func TestAgentProfile(t *testing.T) {
	svc, st, clock := newTestService(t)
	id := seedAgent(t, st, "Profiled", *clock, 500, 0.2)

	p, err := svc.Agent(context.Background(), id)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Name != "Profiled" || p.Tokens.Total != 500 || p.Tokens.Input != 500 {
		t.Fatalf("profile = %+v", p)
	}

	_, err = svc.Agent(context.Background(), "missing")
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("want ErrAgentNotFound, got %v", err)
	}
}

func TestGlobalStats(t *testing.T) {
	svc, st, clock := newTestService(t)
	seedAgent(t, st, "Alpha", clock.Add(-48*time.Hour), 100, 0.1)
	seedAgent(t, st, "Beta", *clock, 200, 0.2)

	g, err := svc.GlobalStats(context.Background())
	if err != nil {
		t.Fatalf("global stats: %v", err)
	}
	if g.TotalAgents != 2 {
		t.Errorf("total agents = %d", g.TotalAgents)
	}
	if g.ActiveAgents24h != 1 {
		t.Errorf("active 24h = %d, want 1", g.ActiveAgents24h)
	}
	if g.TotalTokens != 300 {
		t.Errorf("total tokens = %d", g.TotalTokens)
	}
	if len(g.ProviderSpend) != 2 || len(g.ModelCounts) != 2 {
		t.Errorf("breakdowns = %v / %v", g.ProviderSpend, g.ModelCounts)
	}
}

func TestProviderStatsOrdering(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()
	seedAgent(t, st, "Cheap", *clock, 10000, 0.01)
	seedAgent(t, st, "Costly", *clock, 1000, 1.0)

	// A provider with cost but no token volume.
	id := seedAgent(t, st, "Weird", *clock, 0, 0)
	if err := st.IngestMetrics(ctx, store.IngestParams{
		AgentID: id, Timestamp: *clock, Period: "daily", Cost: 0.5, Provider: "p-Weird",
	}); err != nil {
		t.Fatal(err)
	}

	rows, err := svc.ProviderStats(ctx)
	if err != nil {
		t.Fatalf("provider stats: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].Provider != "p-Cheap" || rows[1].Provider != "p-Costly" {
		t.Errorf("order = %s, %s", rows[0].Provider, rows[1].Provider)
	}
	if rows[2].Provider != "p-Weird" || rows[2].CostPer1KTokens != nil {
		t.Errorf("zero-token provider should sort last with nil efficiency, got %+v", rows[2])
	}
}
