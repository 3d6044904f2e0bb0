package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"clawpulse/internal/apikey"
	appagent "clawpulse/internal/app/agent"
	appmetrics "clawpulse/internal/app/metrics"
	"clawpulse/internal/config"
	"clawpulse/internal/testutil"
	httptransport "clawpulse/internal/transport/http"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := testutil.OpenTestStore(t)
	if err := st.EnsureDefaultBadges(context.Background(), appmetrics.DefaultBadges()); err != nil {
		t.Fatalf("seed badges: %v", err)
	}
	cfg := config.ServerConfig{
		ChallengeTTLSecs:       60,
		RegistrationWindowMins: 60,
		RegistrationBurst:      5,
		LeaderboardMaxLimit:    100,
	}
	srv := httptest.NewServer(httptransport.NewRouter(st, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	anon := New(srv.URL, "")
	reg, err := anon.Register(ctx, appagent.RegisterInput{
		Name: "CliAgent", Description: "driven by the test suite",
		Model: "m", Provider: "p",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	c := New(srv.URL, reg.APIKey)
	if _, err := c.Push(ctx, appmetrics.PushInput{InputTokens: 100, Cost: 0.01}); err != nil {
		t.Fatalf("push: %v", err)
	}

	ch, err := c.Challenge(ctx)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	vr, err := c.Verify(ctx, ch.ChallengeID, apikey.Digest(ch.Nonce))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !vr.Verified || vr.AgentID != reg.AgentID {
		t.Fatalf("verify resp = %+v", vr)
	}

	lb, err := c.Leaderboard(ctx, "spend", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Name != "CliAgent" {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if !lb.Entries[0].IsVerified {
		t.Error("entry should show verified after challenge")
	}

	me, err := c.Me(ctx)
	if err != nil || me.AgentID != reg.AgentID {
		t.Fatalf("me: %v (%+v)", err, me)
	}

	rot, err := c.Rotate(ctx)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := c.Me(ctx); err == nil {
		t.Fatal("old key should stop working after rotate")
	}
	c2 := New(srv.URL, rot.APIKey)
	if _, err := c2.Me(ctx); err != nil {
		t.Fatalf("me with rotated key: %v", err)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c := New(srv.URL, "cpk_not_real")
	if _, err := c.Push(ctx, appmetrics.PushInput{InputTokens: 1}); err == nil {
		t.Fatal("want error for bad key")
	}

	anon := New(srv.URL, "")
	if _, err := anon.Register(ctx, appagent.RegisterInput{Name: ""}); err == nil {
		t.Fatal("want validation error")
	}
}
