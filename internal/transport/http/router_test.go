package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"clawpulse/internal/apikey"
	appmetrics "clawpulse/internal/app/metrics"
	"clawpulse/internal/config"
	"clawpulse/internal/testutil"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) *chi.Mux {
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
	return NewRouter(st, cfg)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func registerAgent(t *testing.T, r http.Handler, name string) (agentID, key string) {
	t.Helper()
	rec, out := doJSON(t, r, http.MethodPost, "/api/register", map[string]string{
		"name": name, "description": "a test agent", "model": "m", "provider": "p",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	return out["agent_id"].(string), out["api_key"].(string)
}

func TestRegisterRoutes(t *testing.T) {
	r := newTestRouter(t)

	_, key := registerAgent(t, r, "Crabby")
	if len(key) == 0 {
		t.Fatal("empty api key")
	}

	rec, out := doJSON(t, r, http.MethodPost, "/api/register", map[string]string{
		"name": "crabby", "description": "dup",
	}, nil)
	if rec.Code != http.StatusConflict || out["error"] != "name_taken" {
		t.Fatalf("duplicate: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/register", map[string]string{
		"name": "", "description": "d",
	}, nil)
	if rec.Code != http.StatusBadRequest || out["error"] != "validation_error" || out["field"] != "name" {
		t.Fatalf("validation: status %d body %v", rec.Code, out)
	}
}

func TestRegisterRateLimitStatus(t *testing.T) {
	r := newTestRouter(t)

	for i := 1; i <= 5; i++ {
		registerAgent(t, r, fmt.Sprintf("Limit%d", i))
	}
	rec, out := doJSON(t, r, http.MethodPost, "/api/register", map[string]string{
		"name": "Limit6", "description": "d",
	}, nil)
	if rec.Code != http.StatusTooManyRequests || out["error"] != "rate_limited" {
		t.Fatalf("status %d body %v", rec.Code, out)
	}
}

func TestMetricsPushRoutes(t *testing.T) {
	r := newTestRouter(t)
	agentID, key := registerAgent(t, r, "Pusher")

	rec, out := doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{
		"input_tokens": 100, "output_tokens": 20, "cost": 0.01, "provider": "p", "model": "m",
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusOK || out["ok"] != true || out["agent_id"] != agentID {
		t.Fatalf("push: status %d body %v", rec.Code, out)
	}

	// Bearer form works too.
	rec, _ = doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{
		"input_tokens": 1, "output_tokens": 0, "cost": 0, "provider": "p", "model": "m",
	}, map[string]string{"Authorization": "Bearer " + key})
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer push: status %d", rec.Code)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{
		"input_tokens": 1, "output_tokens": 0, "cost": 0, "provider": "p", "model": "m",
	}, map[string]string{"X-API-Key": "cpk_bogus"})
	if rec.Code != http.StatusUnauthorized || out["error"] != "invalid_api_key" {
		t.Fatalf("bad key: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{
		"input_tokens": -5, "output_tokens": 0, "cost": 0, "provider": "p", "model": "m",
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusBadRequest || out["field"] != "input_tokens" {
		t.Fatalf("negative: status %d body %v", rec.Code, out)
	}

	// Neither the bad-key nor the rejected push touched the agent.
	rec, out = doJSON(t, r, http.MethodGet, "/api/agents/"+agentID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: status %d", rec.Code)
	}
	if out["total_tokens"] != float64(121) || out["total_spend"] != 0.01 {
		t.Fatalf("totals changed: tokens %v spend %v", out["total_tokens"], out["total_spend"])
	}
}

func TestMetricsPushMissingFields(t *testing.T) {
	r := newTestRouter(t)
	agentID, key := registerAgent(t, r, "Sparse")

	rec, out := doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{},
		map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusBadRequest || out["error"] != "validation_error" || out["field"] != "input_tokens" {
		t.Fatalf("empty body: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{
		"input_tokens": 10, "output_tokens": 5, "provider": "p", "model": "m",
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusBadRequest || out["field"] != "cost" {
		t.Fatalf("no cost: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{
		"input_tokens": 10, "output_tokens": 5, "cost": 0.1, "model": "m",
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusBadRequest || out["field"] != "provider" {
		t.Fatalf("no provider: status %d body %v", rec.Code, out)
	}

	// None of the rejects committed a record.
	rec, out = doJSON(t, r, http.MethodGet, "/api/agents/"+agentID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: status %d", rec.Code)
	}
	if out["total_tokens"] != float64(0) || out["total_sessions"] != float64(0) {
		t.Fatalf("zero push committed: tokens %v sessions %v", out["total_tokens"], out["total_sessions"])
	}
}

func TestChallengeVerifyRoutes(t *testing.T) {
	r := newTestRouter(t)
	agentID, key := registerAgent(t, r, "Verifier")

	rec, out := doJSON(t, r, http.MethodPost, "/api/challenge", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("challenge: status %d", rec.Code)
	}
	challengeID := out["challenge_id"].(string)
	nonce := out["nonce"].(string)

	rec, out = doJSON(t, r, http.MethodPost, "/api/verify", map[string]string{
		"challenge_id": challengeID, "answer": "wrong",
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusBadRequest || out["error"] != "wrong_answer" {
		t.Fatalf("wrong answer: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/verify", map[string]string{
		"challenge_id": challengeID, "answer": apikey.Digest(nonce),
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusOK || out["verified"] != true || out["agent_id"] != agentID {
		t.Fatalf("verify: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/verify", map[string]string{
		"challenge_id": challengeID, "answer": apikey.Digest(nonce),
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusBadRequest || out["error"] != "challenge_used" {
		t.Fatalf("reuse: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/verify", map[string]string{
		"challenge_id": "missing", "answer": "x",
	}, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusBadRequest || out["error"] != "challenge_not_found" {
		t.Fatalf("unknown: status %d body %v", rec.Code, out)
	}
}

func TestPublicRoutes(t *testing.T) {
	r := newTestRouter(t)
	agentID, key := registerAgent(t, r, "Public")

	doJSON(t, r, http.MethodPost, "/api/metrics", map[string]any{
		"input_tokens": 1000, "cost": 0.5,
	}, map[string]string{"X-API-Key": key})

	rec, out := doJSON(t, r, http.MethodGet, "/api/leaderboard?sort_by=spend&limit=10", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: status %d", rec.Code)
	}
	entries := out["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}

	rec, out = doJSON(t, r, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK || out["status"] != "ok" || out["db_ok"] != true {
		t.Fatalf("health: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodGet, "/api/agents/"+agentID, nil, nil)
	if rec.Code != http.StatusOK || out["name"] != "Public" {
		t.Fatalf("profile: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodGet, "/api/agents/01UNKNOWNID", nil, nil)
	if rec.Code != http.StatusNotFound || out["error"] != "agent_not_found" {
		t.Fatalf("missing profile: status %d body %v", rec.Code, out)
	}

	for _, path := range []string{"/api/stats/global", "/api/stats/tokens", "/api/stats/providers", "/api/badges", "/api/debug/vars"} {
		rec, _ := doJSON(t, r, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", path, rec.Code)
		}
	}
}

func TestAgentMeAndRotateRoutes(t *testing.T) {
	r := newTestRouter(t)
	agentID, key := registerAgent(t, r, "Keyed")

	rec, out := doJSON(t, r, http.MethodGet, "/api/agents/me", nil, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusOK || out["agent_id"] != agentID {
		t.Fatalf("me: status %d body %v", rec.Code, out)
	}

	rec, out = doJSON(t, r, http.MethodPost, "/api/agents/rotate", nil, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusOK {
		t.Fatalf("rotate: status %d", rec.Code)
	}
	newKey := out["api_key"].(string)

	rec, _ = doJSON(t, r, http.MethodGet, "/api/agents/me", nil, map[string]string{"X-API-Key": key})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old key after rotate: status %d", rec.Code)
	}
	rec, _ = doJSON(t, r, http.MethodGet, "/api/agents/me", nil, map[string]string{"X-API-Key": newKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("new key after rotate: status %d", rec.Code)
	}
}
