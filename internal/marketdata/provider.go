// Package marketdata fetches daily price bars and company reference data
// from upstream providers and keeps the local stores populated.
package marketdata

import (
	"context"
	"errors"
	"time"

	"stocklab/internal/domain"
)

// ErrRateLimited is returned when the upstream provider has refused further
// requests for the day. Callers should serve whatever local data they have.
var ErrRateLimited = errors.New("marketdata: provider rate limit reached")

// Provider fetches daily bars from an upstream market-data API.
type Provider interface {
	// Name identifies the provider ("alphavantage", "alpaca").
	Name() string

	// FetchDailyBars returns daily bars for symbol with dates in
	// [start, end], ordered by date ascending. An empty slice with a nil
	// error means the provider has no data for the symbol.
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// OverviewProvider is implemented by providers that also expose company
// fundamental data.
type OverviewProvider interface {
	FetchOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error)
}
