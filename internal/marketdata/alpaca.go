package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stocklab/internal/domain"
)

var _ Provider = (*AlpacaClient)(nil)

// AlpacaClient fetches daily bars from the Alpaca market-data API. Alpaca has
// no company-overview endpoint, so it implements Provider only.
type AlpacaClient struct {
	client *marketdata.Client
	log    *slog.Logger
}

// NewAlpacaClient creates a client for the given Alpaca credentials. dataURL
// overrides the default market-data endpoint when non-empty.
func NewAlpacaClient(apiKey, apiSecret, dataURL string) *AlpacaClient {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaClient{
		client: marketdata.NewClient(opts),
		log:    slog.Default().With("provider", "alpaca"),
	}
}

// Name returns the provider identifier.
func (c *AlpacaClient) Name() string { return "alpaca" }

// FetchDailyBars fetches daily bars for symbol in [start, end].
func (c *AlpacaClient) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	symbol = strings.ToUpper(symbol)

	alpacaBars, err := c.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol: symbol,
			Date:   domain.Day(ab.Timestamp),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: int64(ab.Volume),
		})
	}
	return bars, nil
}
