// Package client is a minimal HTTP client for the ClawPulse API, used by the
// clawpulse CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appagent "clawpulse/internal/app/agent"
	appchallenge "clawpulse/internal/app/challenge"
	appmetrics "clawpulse/internal/app/metrics"
	apppublic "clawpulse/internal/app/public"
)

const defaultBaseURL = "http://localhost:8080"

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a client for baseURL authenticated with apiKey. Both may be
// empty; baseURL falls back to localhost and unauthenticated calls still
// work for the public endpoints.
func New(baseURL, apiKey string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL: base,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Register(ctx context.Context, in appagent.RegisterInput) (*appagent.RegisterResponse, error) {
	var out appagent.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/register", in, &out); err != nil {
		return nil, err
	}
	if out.APIKey == "" {
		return nil, fmt.Errorf("server returned no api_key")
	}
	return &out, nil
}

func (c *Client) Push(ctx context.Context, in appmetrics.PushInput) (*appmetrics.PushResponse, error) {
	var out appmetrics.PushResponse
	if err := c.do(ctx, http.MethodPost, "/api/metrics", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Challenge(ctx context.Context) (*appchallenge.IssueResponse, error) {
	var out appchallenge.IssueResponse
	if err := c.do(ctx, http.MethodPost, "/api/challenge", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, challengeID, answer string) (*appchallenge.VerifyResponse, error) {
	in := map[string]string{"challenge_id": challengeID, "answer": answer}
	var out appchallenge.VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/api/verify", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Leaderboard(ctx context.Context, sortBy string, limit int) (*apppublic.LeaderboardResponse, error) {
	path := fmt.Sprintf("/api/leaderboard?sort_by=%s&limit=%d", sortBy, limit)
	var out apppublic.LeaderboardResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Rotate(ctx context.Context) (*appagent.RotateResponse, error) {
	var out appagent.RotateResponse
	if err := c.do(ctx, http.MethodPost, "/api/agents/rotate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*appagent.MeResponse, error) {
	var out appagent.MeResponse
	if err := c.do(ctx, http.MethodGet, "/api/agents/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL+path, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		if jsonErr := json.Unmarshal(b, &apiErr); jsonErr == nil && apiErr.Error != "" {
			if apiErr.Field != "" {
				return fmt.Errorf("server error (%d): %s (%s)", res.StatusCode, apiErr.Error, apiErr.Field)
			}
			return fmt.Errorf("server error (%d): %s", res.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", res.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
