package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocklab/internal/api"
	"stocklab/internal/backtest"
	"stocklab/internal/config"
	"stocklab/internal/marketdata"
	"stocklab/internal/predict"
	"stocklab/internal/report"
	"stocklab/internal/scheduler"
	"stocklab/internal/store"
	"stocklab/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/stocklab.yaml"
	if p := os.Getenv("STOCKLAB_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Stores. SQLite carries everything; bars additionally land in Parquet
	// archives when a data dir is configured.
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer db.Close()

	var bars store.BarStore = db
	if cfg.Storage.DataDir != "" {
		bars = store.NewTeeBarStore(db, store.NewParquetStore(cfg.Storage.DataDir))
	}

	// Upstream provider.
	var provider marketdata.Provider
	switch cfg.Provider.Name {
	case "alpaca":
		provider = marketdata.NewAlpacaClient(
			cfg.Provider.Alpaca.APIKey,
			cfg.Provider.Alpaca.APISecret,
			cfg.Provider.Alpaca.DataURL,
		)
	case "alphavantage":
		provider = marketdata.NewAlphaVantageClient(
			cfg.Provider.AlphaVantage.APIKey,
			cfg.Provider.AlphaVantage.BaseURL,
			cfg.Provider.RateLimitPerMin,
			cfg.Provider.RetryAttempts,
		)
	default:
		log.Fatalf("unknown provider %q", cfg.Provider.Name)
	}

	// Services.
	market := marketdata.NewService(provider, bars, db)
	runner := backtest.NewRunner(bars, db)
	predictor := predict.NewPredictor(bars, db)
	reports := report.NewGenerator(bars, db, db)

	srv := api.NewServer(runner, market, predictor, reports, bars, db,
		cfg.Backtest.ShortWindow, cfg.Backtest.LongWindow)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Scheduler.
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(market, cfg.Scheduler)
		if err := sched.Register(ctx); err != nil {
			log.Fatalf("registering scheduler jobs: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// HTTP server.
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("stocklab-server listening", "addr", httpServer.Addr, "provider", provider.Name())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
