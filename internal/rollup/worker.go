// Package rollup snapshots the previous UTC day of raw metrics into the
// daily_stats and global_stats tables on a cron schedule.
package rollup

import (
	"context"
	"time"

	"clawpulse/internal/config"
	"clawpulse/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const upsertConcurrency = 8

type Worker struct {
	store store.DataStore
	cfg   config.ServerConfig
	cron  *cron.Cron
	now   func() time.Time
}

func NewWorker(st store.DataStore, cfg config.ServerConfig) *Worker {
	return &Worker{store: st, cfg: cfg, now: time.Now}
}

// Start schedules the nightly rollup. Returns without scheduling when
// rollup is disabled.
func (w *Worker) Start() error {
	if !w.cfg.RollupEnabled {
		return nil
	}
	w.cron = cron.New()
	_, err := w.cron.AddFunc(w.cfg.RollupCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := w.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("rollup failed")
		}
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	log.Info().Str("schedule", w.cfg.RollupCron).Msg("rollup scheduled")
	return nil
}

func (w *Worker) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
}

// RunOnce rolls up the previous UTC day. Safe to run repeatedly for the
// same day; both tables are upserted.
func (w *Worker) RunOnce(ctx context.Context) error {
	dayEnd := w.now().UTC().Truncate(24 * time.Hour)
	dayStart := dayEnd.Add(-24 * time.Hour)
	date := dayStart.Format("2006-01-02")

	totals, err := w.store.DailyAgentTotals(ctx, dayStart, dayEnd)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertConcurrency)
	for _, t := range totals {
		t := t
		g.Go(func() error {
			return w.store.UpsertDailyStats(gctx, store.DailyStats{
				AgentID:         t.AgentID,
				Date:            date,
				TotalCost:       t.TotalCost,
				TotalTokens:     t.TotalTokens,
				SessionCount:    t.SessionCount,
				PrimaryModel:    t.LastModel,
				PrimaryProvider: t.LastProvider,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	totalAgents, err := w.store.CountAgents(ctx)
	if err != nil {
		return err
	}
	var cost float64
	var tokens int64
	for _, t := range totals {
		cost += t.TotalCost
		tokens += t.TotalTokens
	}
	if err := w.store.UpsertGlobalStats(ctx, store.GlobalStats{
		Date:         date,
		TotalAgents:  totalAgents,
		TotalCost:    cost,
		TotalTokens:  tokens,
		ActiveAgents: int64(len(totals)),
	}); err != nil {
		return err
	}
	log.Info().Str("date", date).Int("agents", len(totals)).Msg("rollup complete")
	return nil
}
