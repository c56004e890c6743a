// Package store defines storage interfaces for persisting and retrieving
// domain objects such as price bars, backtest results, predictions, and
// company overviews.
package store

import (
	"context"
	"errors"
	"time"

	"stocklab/internal/domain"
)

// ErrNotFound is returned by lookups for records that do not exist.
var ErrNotFound = errors.New("store: not found")

// BarStore persists and retrieves daily price bars.
type BarStore interface {
	// WriteBars persists a batch of bars, ignoring duplicates per (symbol, date).
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the symbol within [start, end], ordered
	// ascending by date. Both bounds are inclusive.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// HasBars reports whether any bar exists for the symbol within [start, end].
	HasBars(ctx context.Context, symbol string, start, end time.Time) (bool, error)

	// ListSymbols returns all distinct symbols with stored bars, sorted.
	ListSymbols(ctx context.Context) ([]string, error)
}

// ResultStore persists and retrieves backtest results.
type ResultStore interface {
	// SaveResult persists a new result and returns the identifier it was
	// assigned. The stored record is immutable.
	SaveResult(ctx context.Context, result *domain.BacktestResult) (string, error)

	// GetResult retrieves a result (including its trade log) by ID.
	// Returns ErrNotFound if no such result exists.
	GetResult(ctx context.Context, id string) (*domain.BacktestResult, error)

	// ListResults returns the most recently created results, up to limit.
	ListResults(ctx context.Context, limit int) ([]domain.BacktestResult, error)
}

// PredictionStore persists and retrieves model price predictions.
type PredictionStore interface {
	// ReplacePredictions deletes any stored predictions for the symbol within
	// [start, end] and inserts the given batch in their place.
	ReplacePredictions(ctx context.Context, symbol string, start, end time.Time, preds []domain.Prediction) error

	// ReadPredictions returns predictions for the symbol within [start, end],
	// ordered ascending by date.
	ReadPredictions(ctx context.Context, symbol string, start, end time.Time) ([]domain.Prediction, error)
}

// OverviewStore persists and retrieves company reference data.
type OverviewStore interface {
	// SaveOverview inserts or updates the overview for its symbol.
	SaveOverview(ctx context.Context, overview *domain.CompanyOverview) error

	// GetOverview retrieves the overview for a symbol.
	// Returns ErrNotFound if none is stored.
	GetOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error)
}
