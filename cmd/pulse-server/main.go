package main

import (
	"context"
	"net/http"
	"time"

	appmetrics "clawpulse/internal/app/metrics"
	"clawpulse/internal/config"
	"clawpulse/internal/logging"
	"clawpulse/internal/rollup"
	"clawpulse/internal/store"
	httptransport "clawpulse/internal/transport/http"

	"github.com/rs/zerolog/log"
)

func main() {
	appCfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(appCfg.Log)
	cfg := appCfg.Server

	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.EnsureDefaultBadges(context.Background(), appmetrics.DefaultBadges()); err != nil {
		log.Fatal().Err(err).Msg("ensure default badges failed")
	}

	worker := rollup.NewWorker(st, cfg)
	if err := worker.Start(); err != nil {
		log.Fatal().Err(err).Msg("rollup schedule failed")
	}
	if cfg.RollupOnStart {
		if err := worker.RunOnce(context.Background()); err != nil {
			log.Error().Err(err).Msg("startup rollup failed")
		}
	}

	r := httptransport.NewRouter(st, cfg)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Str("driver", cfg.StoreDriver).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
