package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appchallenge "clawpulse/internal/app/challenge"
)

type ChallengeHandlers struct {
	svc *appchallenge.Service
}

func NewChallengeHandlers(svc *appchallenge.Service) *ChallengeHandlers {
	return &ChallengeHandlers{svc: svc}
}

func (h *ChallengeHandlers) Issue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.svc.Issue(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		metricChallengeIssuedTotal.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *ChallengeHandlers) Verify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ag, ok := AgentFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "invalid_api_key")
			return
		}
		var body struct {
			ChallengeID string `json:"challenge_id"`
			Answer      string `json:"answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		metricVerifyTotal.Add(1)
		resp, err := h.svc.Verify(r.Context(), ag, body.ChallengeID, body.Answer)
		if err != nil {
			metricVerifyErrors.Add(1)
			switch {
			case errors.Is(err, appchallenge.ErrChallengeNotFound):
				WriteHTTPError(w, http.StatusBadRequest, "challenge_not_found")
			case errors.Is(err, appchallenge.ErrChallengeUsed):
				WriteHTTPError(w, http.StatusBadRequest, "challenge_used")
			case errors.Is(err, appchallenge.ErrWrongAnswer):
				WriteHTTPError(w, http.StatusBadRequest, "wrong_answer")
			case errors.Is(err, appchallenge.ErrChallengeExpired):
				WriteHTTPError(w, http.StatusGone, "challenge_expired")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
