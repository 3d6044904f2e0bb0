package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	appmetrics "clawpulse/internal/app/metrics"
)

type MetricsHandlers struct {
	svc *appmetrics.Service
}

func NewMetricsHandlers(svc *appmetrics.Service) *MetricsHandlers {
	return &MetricsHandlers{svc: svc}
}

// pushRequest decodes the wire body with pointers on the mandatory fields so
// an absent field is distinguishable from an explicit zero.
type pushRequest struct {
	InputTokens     *int64   `json:"input_tokens"`
	OutputTokens    *int64   `json:"output_tokens"`
	CacheReadTokens int64    `json:"cache_read_tokens"`
	Cost            *float64 `json:"cost"`
	Provider        *string  `json:"provider"`
	Model           *string  `json:"model"`
	Period          string   `json:"period"`
	SessionCount    int64    `json:"session_count"`
	RequestCount    int64    `json:"request_count"`
}

func (b *pushRequest) missingField() string {
	switch {
	case b.InputTokens == nil:
		return "input_tokens"
	case b.OutputTokens == nil:
		return "output_tokens"
	case b.Cost == nil:
		return "cost"
	case b.Provider == nil:
		return "provider"
	case b.Model == nil:
		return "model"
	}
	return ""
}

func (b *pushRequest) toInput() appmetrics.PushInput {
	return appmetrics.PushInput{
		InputTokens:     *b.InputTokens,
		OutputTokens:    *b.OutputTokens,
		CacheReadTokens: b.CacheReadTokens,
		Cost:            *b.Cost,
		Provider:        *b.Provider,
		Model:           *b.Model,
		Period:          b.Period,
		SessionCount:    b.SessionCount,
		RequestCount:    b.RequestCount,
	}
}

func (h *MetricsHandlers) Push() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ag, ok := AgentFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "invalid_api_key")
			return
		}
		var body pushRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if field := body.missingField(); field != "" {
			writeValidationError(w, field)
			return
		}
		metricIngestTotal.Add(1)
		resp, err := h.svc.Push(r.Context(), ag, body.toInput())
		if err != nil {
			metricIngestErrors.Add(1)
			var verr *appmetrics.ValidationError
			if errors.As(err, &verr) {
				writeValidationError(w, verr.Field)
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
