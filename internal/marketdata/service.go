package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stocklab/internal/domain"
	"stocklab/internal/store"
)

// Service sits between the HTTP handlers and the upstream provider. It
// serves bars from the local store, fetching from the provider on a miss,
// and exposes the refresh operations the scheduler runs on a cadence.
type Service struct {
	provider  Provider
	bars      store.BarStore
	overviews store.OverviewStore
	log       *slog.Logger
}

// NewService creates a Service backed by the given provider and stores.
func NewService(provider Provider, bars store.BarStore, overviews store.OverviewStore) *Service {
	return &Service{
		provider:  provider,
		bars:      bars,
		overviews: overviews,
		log:       slog.Default().With("component", "marketdata"),
	}
}

// EnsureBars guarantees the local store holds bars for symbol covering
// [start, end], fetching from the provider when the range is missing. A
// rate-limited provider is not an error if local data already exists.
func (s *Service) EnsureBars(ctx context.Context, symbol string, start, end time.Time) error {
	has, err := s.bars.HasBars(ctx, symbol, start, end)
	if err != nil {
		return fmt.Errorf("checking local bars for %s: %w", symbol, err)
	}
	if has {
		return nil
	}

	s.log.Info("local miss, fetching from provider",
		"symbol", symbol,
		"provider", s.provider.Name(),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
	)

	fetched, err := s.provider.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.log.Warn("provider rate limited, serving local data only", "symbol", symbol)
			return nil
		}
		return fmt.Errorf("fetching bars for %s: %w", symbol, err)
	}
	if len(fetched) == 0 {
		return nil
	}

	if err := s.bars.WriteBars(ctx, fetched); err != nil {
		return fmt.Errorf("storing bars for %s: %w", symbol, err)
	}
	s.log.Info("stored fetched bars", "symbol", symbol, "count", len(fetched))
	return nil
}

// RefreshBars fetches the trailing lookbackDays of bars for symbol and merges
// them into the store. Existing (symbol, date) rows are kept as-is.
func (s *Service) RefreshBars(ctx context.Context, symbol string, lookbackDays int) error {
	end := domain.Day(time.Now())
	start := end.AddDate(0, 0, -lookbackDays)

	fetched, err := s.provider.FetchDailyBars(ctx, symbol, start, end)
	if err != nil {
		return fmt.Errorf("refreshing bars for %s: %w", symbol, err)
	}
	if len(fetched) == 0 {
		s.log.Warn("provider returned no bars on refresh", "symbol", symbol)
		return nil
	}

	if err := s.bars.WriteBars(ctx, fetched); err != nil {
		return fmt.Errorf("storing refreshed bars for %s: %w", symbol, err)
	}
	s.log.Info("refreshed bars", "symbol", symbol, "count", len(fetched))
	return nil
}

// RefreshOverview fetches the latest company overview for symbol and upserts
// it. It is a no-op when the configured provider has no overview endpoint.
func (s *Service) RefreshOverview(ctx context.Context, symbol string) error {
	op, ok := s.provider.(OverviewProvider)
	if !ok {
		return nil
	}

	overview, err := op.FetchOverview(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetching overview for %s: %w", symbol, err)
	}

	if err := s.overviews.SaveOverview(ctx, overview); err != nil {
		return fmt.Errorf("storing overview for %s: %w", symbol, err)
	}
	s.log.Info("refreshed overview", "symbol", symbol)
	return nil
}

// GetOverview returns the stored overview for symbol, fetching it from the
// provider on a local miss.
func (s *Service) GetOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error) {
	overview, err := s.overviews.GetOverview(ctx, symbol)
	if err == nil {
		return overview, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	op, ok := s.provider.(OverviewProvider)
	if !ok {
		return nil, store.ErrNotFound
	}

	fetched, ferr := op.FetchOverview(ctx, symbol)
	if ferr != nil {
		return nil, ferr
	}
	if serr := s.overviews.SaveOverview(ctx, fetched); serr != nil {
		return nil, serr
	}
	return fetched, nil
}
