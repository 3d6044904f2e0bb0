package agent

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"clawpulse/internal/apikey"
	"clawpulse/internal/config"
	"clawpulse/internal/store"
)

const (
	maxNameLen        = 64
	maxDescriptionLen = 256
	rateLimitKeyLen   = 4
)

// Service owns agent identity: registration, credential validation and
// rotation.
type Service struct {
	store store.DataStore
	cfg   config.ServerConfig
	now   func() time.Time
}

func NewService(st store.DataStore, cfg config.ServerConfig) *Service {
	return &Service{store: st, cfg: cfg, now: time.Now}
}

// Register validates the input, applies the per-name-prefix rate limit and
// creates the agent with its first key in one transaction. The plaintext key
// appears only in the response.
//
// The rate limit counts recent registrations sharing the lowercased first
// four characters of the name. It is a coarse anti-abuse heuristic, not a
// precise per-identity limiter.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResponse, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return nil, &ValidationError{Field: "name", Reason: "too long"}
	}
	if description == "" {
		return nil, &ValidationError{Field: "description", Reason: "required"}
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, &ValidationError{Field: "description", Reason: "too long"}
	}

	now := s.now().UTC()
	window := time.Duration(s.cfg.RegistrationWindowMins) * time.Minute
	n, err := s.store.CountAgentsByNamePrefixSince(ctx, rateLimitKey(name), now.Add(-window))
	if err != nil {
		return nil, err
	}
	if n >= s.cfg.RegistrationBurst {
		return nil, ErrRateLimited
	}

	plaintext, digest, prefix, err := apikey.Issue()
	if err != nil {
		return nil, err
	}
	agentID, err := s.store.CreateAgentWithKey(ctx, store.CreateAgentParams{
		Name:        name,
		Description: description,
		Model:       strings.TrimSpace(in.Model),
		Provider:    strings.TrimSpace(in.Provider),
		KeyDigest:   digest,
		KeyPrefix:   prefix,
		Now:         now,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return &RegisterResponse{
		AgentID:   agentID,
		APIKey:    plaintext,
		KeyPrefix: prefix,
		Message:   "store this key now, it will not be shown again",
	}, nil
}

// Authenticate resolves a plaintext secret to its agent via digest lookup.
// Touches the key's last_used on every successful lookup.
func (s *Service) Authenticate(ctx context.Context, secret string) (*store.Agent, *store.APIKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, nil, ErrUnauthorized
	}
	key, err := s.store.GetKeyByDigest(ctx, apikey.Digest(secret))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, err
	}
	ag, err := s.store.GetAgentByID(ctx, key.AgentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, err
	}
	if !ag.IsActive {
		return nil, nil, ErrUnauthorized
	}
	if err := s.store.TouchKey(ctx, key.ID, s.now().UTC()); err != nil {
		return nil, nil, err
	}
	return ag, key, nil
}

// Rotate deactivates every active key for the agent and issues a fresh one.
func (s *Service) Rotate(ctx context.Context, ag *store.Agent) (*RotateResponse, error) {
	plaintext, digest, prefix, err := apikey.Issue()
	if err != nil {
		return nil, err
	}
	if _, err := s.store.RotateKey(ctx, ag.ID, digest, prefix, s.now().UTC()); err != nil {
		return nil, err
	}
	return &RotateResponse{
		AgentID:   ag.ID,
		APIKey:    plaintext,
		KeyPrefix: prefix,
		Message:   "previous keys are now inactive",
	}, nil
}

func (s *Service) Me(ag *store.Agent, key *store.APIKey) *MeResponse {
	return &MeResponse{
		AgentID:    ag.ID,
		Name:       ag.Name,
		Model:      ag.Model,
		Provider:   ag.Provider,
		IsVerified: ag.IsVerified,
		KeyPrefix:  key.Prefix,
	}
}

func rateLimitKey(name string) string {
	key := strings.ToLower(name)
	if utf8.RuneCountInString(key) > rateLimitKeyLen {
		runes := []rune(key)
		key = string(runes[:rateLimitKeyLen])
	}
	return key
}
