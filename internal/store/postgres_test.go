package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clawpulse/internal/store"
	"clawpulse/internal/testutil"
)

// Exercises the Postgres backend end to end. Needs TEST_POSTGRES_DSN.
func TestPostgresSmoke(t *testing.T) {
	st := testutil.OpenTestPostgres(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	agentID, err := st.CreateAgentWithKey(ctx, store.CreateAgentParams{
		Name: "PgSmoke", KeyDigest: "pg-digest", KeyPrefix: "cpk_abcd", Now: now,
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	_, err = st.CreateAgentWithKey(ctx, store.CreateAgentParams{
		Name: "pgsmoke", KeyDigest: "pg-digest-2", KeyPrefix: "cpk_efgh", Now: now,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("want ErrConflict on duplicate name, got %v", err)
	}

	if err := st.IngestMetrics(ctx, store.IngestParams{
		AgentID: agentID, Timestamp: now, Period: "daily",
		InputTokens: 1000, OutputTokens: 200, Cost: 0.05, SessionCount: 1,
	}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	a, err := st.GetAgentByID(ctx, agentID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if a.TotalTokens != 1200 {
		t.Errorf("total tokens = %d, want 1200", a.TotalTokens)
	}

	chID, err := st.CreateChallenge(ctx, store.CreateChallengeParams{
		Nonce: "aabb", ExpectedDigest: "ccdd", Now: now, ExpiresAt: now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if ok, err := st.ConsumeChallenge(ctx, chID); err != nil || !ok {
		t.Fatalf("consume: ok=%v err=%v", ok, err)
	}
	if ok, _ := st.ConsumeChallenge(ctx, chID); ok {
		t.Fatal("challenge consumed twice")
	}

	rows, err := st.ListLeaderboard(ctx, store.SortBySpend, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("leaderboard rows = %d, want 1", len(rows))
	}
}
