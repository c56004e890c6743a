package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stocklab/internal/domain"
	"stocklab/internal/store"
)

// Default strategy windows, applied when a request leaves them unset.
const (
	DefaultShortWindow = 50
	DefaultLongWindow  = 200
)

// Params are the inputs to a single backtest invocation.
type Params struct {
	Symbol            string
	StartDate         time.Time
	EndDate           time.Time
	InitialInvestment float64
	ShortWindow       int
	LongWindow        int
}

// Runner loads price history from a BarStore, evaluates the crossover
// strategy, and persists the outcome through a ResultStore. It holds no
// per-run state; a single Runner may serve concurrent backtests.
type Runner struct {
	bars    store.BarStore
	results store.ResultStore
	log     *slog.Logger
}

// NewRunner creates a Runner that reads bars and writes results through the
// given stores.
func NewRunner(bars store.BarStore, results store.ResultStore) *Runner {
	return &Runner{
		bars:    bars,
		results: results,
		log:     slog.Default().With("component", "backtest"),
	}
}

// validate fails fast on precondition violations, before any data access.
func (p *Params) validate() error {
	if p.InitialInvestment <= 0 {
		return &InvalidParameterError{Param: "initial_investment", Reason: "must be positive"}
	}
	if p.ShortWindow <= 0 {
		return &InvalidParameterError{Param: "short_window", Reason: "must be positive"}
	}
	if p.LongWindow <= 0 {
		return &InvalidParameterError{Param: "long_window", Reason: "must be positive"}
	}
	if p.StartDate.After(p.EndDate) {
		return &InvalidParameterError{Param: "start_date", Reason: "must not be after end_date"}
	}
	return nil
}

// Run executes one backtest: load closes, compute the two moving averages,
// replay the crossover transitions against a cash/position account, and
// summarize. The assembled result is persisted via the ResultStore, which
// assigns its identifier. A run either completes fully or fails with a typed
// error; partial results are never returned.
//
// A series shorter than the long window is not an error: no signal is ever
// defined, so the run completes with zero trades and the initial investment
// intact.
func (r *Runner) Run(ctx context.Context, p Params) (*domain.BacktestResult, error) {
	if p.ShortWindow == 0 {
		p.ShortWindow = DefaultShortWindow
	}
	if p.LongWindow == 0 {
		p.LongWindow = DefaultLongWindow
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	bars, err := r.bars.ReadBars(ctx, p.Symbol, p.StartDate, p.EndDate)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", p.Symbol, err)
	}
	if len(bars) == 0 {
		return nil, &NoDataError{Symbol: p.Symbol, Start: p.StartDate, End: p.EndDate}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	smaShort := SMA(closes, p.ShortWindow)
	smaLong := SMA(closes, p.LongWindow)

	trades, finalValue := Replay(bars, smaShort, smaLong, p.InitialInvestment)

	result := &domain.BacktestResult{
		Symbol:            p.Symbol,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		InitialInvestment: p.InitialInvestment,
		FinalValue:        finalValue,
		TotalReturnPct:    TotalReturnPct(p.InitialInvestment, finalValue),
		MaxDrawdownPct:    MaxDrawdownPct(closes),
		NumTrades:         len(trades),
		Trades:            trades,
	}

	id, err := r.results.SaveResult(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("saving backtest result: %w", err)
	}

	r.log.Info("backtest complete",
		"id", id,
		"symbol", p.Symbol,
		"bars", len(bars),
		"trades", result.NumTrades,
		"finalValue", result.FinalValue,
	)
	return result, nil
}
