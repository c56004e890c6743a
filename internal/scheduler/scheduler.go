// Package scheduler runs the periodic data-refresh jobs: trailing bar
// history on weeknights and company overviews on weekends.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"stocklab/internal/config"
	"stocklab/internal/marketdata"
	"stocklab/internal/util"
)

// Scheduler owns the cron runner and the refresh jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	market  *marketdata.Service
	symbols []string
	cfg     config.SchedulerConfig
	log     *slog.Logger
}

// New creates a Scheduler for the configured symbols. Jobs are not started
// until Start is called.
func New(market *marketdata.Service, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		market:  market,
		symbols: cfg.Symbols,
		cfg:     cfg,
		log:     slog.Default().With("component", "scheduler"),
	}
}

// Register adds the bar and overview refresh jobs using the configured cron
// expressions.
func (s *Scheduler) Register(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.BarsCron, func() { s.refreshBars(ctx) }); err != nil {
		return fmt.Errorf("registering bars refresh %q: %w", s.cfg.BarsCron, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.OverviewCron, func() { s.refreshOverviews(ctx) }); err != nil {
		return fmt.Errorf("registering overview refresh %q: %w", s.cfg.OverviewCron, err)
	}
	return nil
}

// Start begins executing registered jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("started",
		"symbols", len(s.symbols),
		"bars_cron", s.cfg.BarsCron,
		"overview_cron", s.cfg.OverviewCron,
	)
}

// Stop halts the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("stopped")
}

// RefreshBarsNow runs the bar refresh immediately, outside the schedule.
func (s *Scheduler) RefreshBarsNow(ctx context.Context) {
	s.refreshBars(ctx)
}

func (s *Scheduler) refreshBars(ctx context.Context) {
	s.log.Info("refreshing bars", "symbols", len(s.symbols), "lookback_days", s.cfg.LookbackDays)

	for _, symbol := range s.symbols {
		if ctx.Err() != nil {
			return
		}
		err := util.Retry(ctx, 3, 5*time.Second, func() error {
			return s.market.RefreshBars(ctx, symbol, s.cfg.LookbackDays)
		})
		if err != nil {
			s.log.Error("bar refresh failed", "symbol", symbol, "error", err)
		}
	}
}

func (s *Scheduler) refreshOverviews(ctx context.Context) {
	s.log.Info("refreshing overviews", "symbols", len(s.symbols))

	for _, symbol := range s.symbols {
		if ctx.Err() != nil {
			return
		}
		err := util.Retry(ctx, 3, 5*time.Second, func() error {
			return s.market.RefreshOverview(ctx, symbol)
		})
		if err != nil {
			s.log.Error("overview refresh failed", "symbol", symbol, "error", err)
		}
	}
}
