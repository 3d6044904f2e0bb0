package challenge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"clawpulse/internal/apikey"
	"clawpulse/internal/config"
	"clawpulse/internal/store"
	"clawpulse/internal/testutil"
)

func newTestService(t *testing.T) (*Service, store.DataStore, *time.Time) {
	t.Helper()
	st := testutil.OpenTestStore(t)
	svc := NewService(st, config.ServerConfig{ChallengeTTLSecs: 60})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	return svc, st, clock
}

func makeAgent(t *testing.T, st store.DataStore, now time.Time) *store.Agent {
	t.Helper()
	id, err := st.CreateAgentWithKey(context.Background(), store.CreateAgentParams{
		Name: "Verifier", KeyDigest: "digest", KeyPrefix: "cpk_abcd", Now: now,
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	ag, err := st.GetAgentByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	return ag
}

func TestIssueAndVerify(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()
	ag := makeAgent(t, st, *clock)

	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(ch.Nonce) != 32 {
		t.Errorf("nonce length = %d, want 32", len(ch.Nonce))
	}
	if !ch.ExpiresAt.Equal(clock.Add(60 * time.Second)) {
		t.Errorf("expires at %v, want +60s", ch.ExpiresAt)
	}

	resp, err := svc.Verify(ctx, ag, ch.ChallengeID, apikey.Digest(ch.Nonce))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !resp.Verified || resp.AgentID != ag.ID {
		t.Fatalf("resp = %+v", resp)
	}

	got, err := st.GetAgentByID(ctx, ag.ID)
	if err != nil {
		t.Fatalf("reload agent: %v", err)
	}
	if !got.IsVerified {
		t.Error("agent should be verified")
	}
}

func TestVerifyAnswerCaseInsensitive(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()
	ag := makeAgent(t, st, *clock)

	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	answer := "  " + strings.ToUpper(apikey.Digest(ch.Nonce)) + " "
	if _, err := svc.Verify(ctx, ag, ch.ChallengeID, answer); err != nil {
		t.Fatalf("verify with uppercase answer: %v", err)
	}
}

func TestVerifyRejectsReuse(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()
	ag := makeAgent(t, st, *clock)

	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	answer := apikey.Digest(ch.Nonce)
	if _, err := svc.Verify(ctx, ag, ch.ChallengeID, answer); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if _, err := svc.Verify(ctx, ag, ch.ChallengeID, answer); !errors.Is(err, ErrChallengeUsed) {
		t.Fatalf("want ErrChallengeUsed, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()
	ag := makeAgent(t, st, *clock)

	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	*clock = clock.Add(61 * time.Second)
	_, err = svc.Verify(ctx, ag, ch.ChallengeID, apikey.Digest(ch.Nonce))
	if !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("want ErrChallengeExpired even with correct answer, got %v", err)
	}
}

func TestVerifyWrongAnswerDoesNotConsume(t *testing.T) {
	svc, st, clock := newTestService(t)
	ctx := context.Background()
	ag := makeAgent(t, st, *clock)

	ch, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Verify(ctx, ag, ch.ChallengeID, "deadbeef"); !errors.Is(err, ErrWrongAnswer) {
		t.Fatalf("want ErrWrongAnswer, got %v", err)
	}
	// Still answerable within the TTL.
	if _, err := svc.Verify(ctx, ag, ch.ChallengeID, apikey.Digest(ch.Nonce)); err != nil {
		t.Fatalf("verify after wrong answer: %v", err)
	}
}

func TestVerifyUnknownChallenge(t *testing.T) {
	svc, st, clock := newTestService(t)
	ag := makeAgent(t, st, *clock)

	_, err := svc.Verify(context.Background(), ag, "nope", "answer")
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("want ErrChallengeNotFound, got %v", err)
	}
}
