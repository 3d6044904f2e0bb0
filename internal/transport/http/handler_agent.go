package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appagent "clawpulse/internal/app/agent"
)

type AgentHandlers struct {
	svc *appagent.Service
}

func NewAgentHandlers(svc *appagent.Service) *AgentHandlers {
	return &AgentHandlers{svc: svc}
}

func (h *AgentHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body appagent.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		metricRegisterTotal.Add(1)
		resp, err := h.svc.Register(r.Context(), body)
		if err != nil {
			metricRegisterErrors.Add(1)
			var verr *appagent.ValidationError
			switch {
			case errors.As(err, &verr):
				writeValidationError(w, verr.Field)
			case errors.Is(err, appagent.ErrRateLimited):
				WriteHTTPError(w, http.StatusTooManyRequests, "rate_limited")
			case errors.Is(err, appagent.ErrNameTaken):
				WriteHTTPError(w, http.StatusConflict, "name_taken")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *AgentHandlers) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ag, ok := AgentFromContext(r.Context())
		key, okKey := KeyFromContext(r.Context())
		if !ok || !okKey {
			WriteHTTPError(w, http.StatusUnauthorized, "invalid_api_key")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h.svc.Me(ag, key))
	}
}

func (h *AgentHandlers) Rotate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ag, ok := AgentFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "invalid_api_key")
			return
		}
		resp, err := h.svc.Rotate(r.Context(), ag)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
