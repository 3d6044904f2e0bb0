package httptransport

import (
	"expvar"
	"net/http"
	"sort"

	appagent "clawpulse/internal/app/agent"
	appchallenge "clawpulse/internal/app/challenge"
	appmetrics "clawpulse/internal/app/metrics"
	apppublic "clawpulse/internal/app/public"
	"clawpulse/internal/config"
	"clawpulse/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func NewRouter(st store.DataStore, cfg config.ServerConfig) *chi.Mux {
	agentSvc := appagent.NewService(st, cfg)
	challengeSvc := appchallenge.NewService(st, cfg)
	metricsSvc := appmetrics.NewService(st, cfg)
	publicSvc := apppublic.NewService(st, cfg)

	agentHandlers := NewAgentHandlers(agentSvc)
	challengeHandlers := NewChallengeHandlers(challengeSvc)
	metricsHandlers := NewMetricsHandlers(metricsSvc)
	publicHandlers := NewPublicHandlers(publicSvc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Post("/register", agentHandlers.Register())
		r.Post("/challenge", challengeHandlers.Issue())

		r.Get("/leaderboard", publicHandlers.Leaderboard())
		r.Get("/health", publicHandlers.Health())
		r.Get("/agents/{agent_id}", publicHandlers.Agent())
		r.Get("/stats/global", publicHandlers.GlobalStats())
		r.Get("/stats/tokens", publicHandlers.TokenStats())
		r.Get("/stats/providers", publicHandlers.Providers())
		r.Get("/badges", publicHandlers.Badges())

		r.Group(func(r chi.Router) {
			r.Use(AgentAuthMiddleware(agentSvc))
			r.Post("/metrics", metricsHandlers.Push())
			r.Post("/verify", challengeHandlers.Verify())
			r.Get("/agents/me", agentHandlers.Me())
			r.Post("/agents/rotate", agentHandlers.Rotate())
		})

		r.Get("/debug/vars", expvar.Handler().ServeHTTP)
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	for _, rt := range routes {
		log.Info().Str("method", rt.Method).Str("path", rt.Path).Msg("route")
	}
}
