package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"stocklab/internal/domain"
	"stocklab/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ Provider = (*AlphaVantageClient)(nil)
var _ OverviewProvider = (*AlphaVantageClient)(nil)

// AlphaVantageClient fetches daily bars and company overviews from the Alpha
// Vantage REST API. The free tier allows a handful of requests per minute and
// a small daily quota; the client paces itself with a token bucket and backs
// off for a day once the quota message appears.
type AlphaVantageClient struct {
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	limiter       *util.RateLimiter
	retryAttempts int
	log           *slog.Logger

	mu           sync.Mutex
	limitedUntil time.Time
}

// NewAlphaVantageClient creates a client for the given API key and endpoint.
// rateLimitPerMin and retryAttempts control request pacing.
func NewAlphaVantageClient(apiKey, baseURL string, rateLimitPerMin, retryAttempts int) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:        apiKey,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		limiter:       util.NewRateLimiter(rateLimitPerMin),
		retryAttempts: retryAttempts,
		log:           slog.Default().With("provider", "alphavantage"),
	}
}

// Name returns the provider identifier.
func (c *AlphaVantageClient) Name() string { return "alphavantage" }

// rateLimited reports whether the daily quota flag is still in effect.
func (c *AlphaVantageClient) rateLimited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.limitedUntil)
}

// markRateLimited records that the daily quota is exhausted. The flag clears
// itself after 24 hours, when the quota resets.
func (c *AlphaVantageClient) markRateLimited() {
	c.mu.Lock()
	c.limitedUntil = time.Now().Add(24 * time.Hour)
	c.mu.Unlock()
	c.log.Warn("daily quota exhausted, backing off", "until", c.limitedUntil.Format(time.RFC3339))
}

// FetchDailyBars fetches the full daily series for symbol and filters it to
// [start, end].
func (c *AlphaVantageClient) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)

	body, err := c.query(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {"full"},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Series map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding daily series for %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(payload.Series))
	for dateStr, fields := range payload.Series {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q for %s: %w", dateStr, symbol, err)
		}
		date = domain.Day(date)
		if date.Before(start) || date.After(end) {
			continue
		}

		bar := domain.Bar{Symbol: symbol, Date: date}
		if bar.Open, err = strconv.ParseFloat(fields["1. open"], 64); err != nil {
			return nil, fmt.Errorf("parsing open for %s %s: %w", symbol, dateStr, err)
		}
		if bar.High, err = strconv.ParseFloat(fields["2. high"], 64); err != nil {
			return nil, fmt.Errorf("parsing high for %s %s: %w", symbol, dateStr, err)
		}
		if bar.Low, err = strconv.ParseFloat(fields["3. low"], 64); err != nil {
			return nil, fmt.Errorf("parsing low for %s %s: %w", symbol, dateStr, err)
		}
		if bar.Close, err = strconv.ParseFloat(fields["4. close"], 64); err != nil {
			return nil, fmt.Errorf("parsing close for %s %s: %w", symbol, dateStr, err)
		}
		if bar.Volume, err = strconv.ParseInt(fields["5. volume"], 10, 64); err != nil {
			return nil, fmt.Errorf("parsing volume for %s %s: %w", symbol, dateStr, err)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// FetchOverview fetches company fundamental data for symbol. Alpha Vantage
// returns an empty object for unknown symbols, which surfaces here as a nil
// overview with a descriptive error.
func (c *AlphaVantageClient) FetchOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error) {
	symbol = strings.ToUpper(symbol)

	body, err := c.query(ctx, url.Values{
		"function": {"OVERVIEW"},
		"symbol":   {symbol},
	})
	if err != nil {
		return nil, err
	}

	var fields map[string]string
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decoding overview for %s: %w", symbol, err)
	}
	if fields["Symbol"] == "" {
		return nil, fmt.Errorf("no overview data for symbol %s", symbol)
	}

	return &domain.CompanyOverview{
		Symbol:        fields["Symbol"],
		Name:          fields["Name"],
		Description:   fields["Description"],
		Exchange:      fields["Exchange"],
		Currency:      fields["Currency"],
		Country:       fields["Country"],
		Sector:        fields["Sector"],
		Industry:      fields["Industry"],
		MarketCap:     avInt(fields["MarketCapitalization"]),
		PERatio:       avFloat(fields["PERatio"]),
		DividendYield: avFloat(fields["DividendYield"]),
		Beta:          avFloat(fields["Beta"]),
		High52Week:    avFloat(fields["52WeekHigh"]),
		Low52Week:     avFloat(fields["52WeekLow"]),
	}, nil
}

// query performs a rate-limited, retried GET against the API and returns the
// raw response body after checking for the provider's in-band error shapes.
func (c *AlphaVantageClient) query(ctx context.Context, params url.Values) ([]byte, error) {
	if c.rateLimited() {
		return nil, ErrRateLimited
	}

	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	var body []byte
	err := util.Retry(ctx, c.retryAttempts, time.Second, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &util.Permanent{Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return &util.Permanent{Err: err}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("alphavantage: unexpected status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		// The API reports problems as 200 responses with special keys:
		// "Information" for quota exhaustion, "Error Message" for bad input.
		var probe struct {
			Information  string `json:"Information"`
			Note         string `json:"Note"`
			ErrorMessage string `json:"Error Message"`
		}
		if err := json.Unmarshal(body, &probe); err == nil {
			if probe.Information != "" || probe.Note != "" {
				c.markRateLimited()
				return &util.Permanent{Err: ErrRateLimited}
			}
			if probe.ErrorMessage != "" {
				return &util.Permanent{Err: fmt.Errorf("alphavantage: %s", probe.ErrorMessage)}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// avFloat parses an Alpha Vantage numeric field, treating the provider's
// "None" and "-" placeholders as zero.
func avFloat(s string) float64 {
	if s == "" || s == "None" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func avInt(s string) int64 {
	if s == "" || s == "None" || s == "-" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
