// Package stocklab provides a Go SDK for the stocklab-server API.
package stocklab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stocklab/internal/domain"
	"stocklab/internal/predict"
)

// Client calls the stocklab-server REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// apiError is the JSON error body the server returns on non-2xx statuses.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// BacktestRequest holds the parameters for RunBacktest. Dates are
// "2006-01-02". ShortWindow and LongWindow are optional; zero means the
// server's configured defaults.
type BacktestRequest struct {
	Symbol            string  `json:"symbol"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	InitialInvestment float64 `json:"initial_investment"`
	ShortWindow       int     `json:"short_window,omitempty"`
	LongWindow        int     `json:"long_window,omitempty"`
}

// RunBacktest runs a crossover backtest and returns the stored result.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*domain.BacktestResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var result domain.BacktestResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/backtest", bytes.NewReader(payload), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBacktest retrieves a stored backtest result, trade log included.
func (c *Client) GetBacktest(ctx context.Context, id string) (*domain.BacktestResult, error) {
	var result domain.BacktestResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/backtest/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBacktests retrieves recent backtest results, newest first. limit 0
// means the server default.
func (c *Client) ListBacktests(ctx context.Context, limit int) ([]domain.BacktestResult, error) {
	path := "/api/v1/backtests"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var body struct {
		Results []domain.BacktestResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// Predict requests a price forecast for the next days trading days.
func (c *Client) Predict(ctx context.Context, symbol string, days int) ([]domain.Prediction, error) {
	path := "/api/v1/predict?symbol=" + url.QueryEscape(symbol)
	if days > 0 {
		path += "&days=" + strconv.Itoa(days)
	}
	var body struct {
		Predictions []domain.Prediction `json:"predictions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body.Predictions, nil
}

// ComparePredictions evaluates the forecast model against held-out history.
func (c *Client) ComparePredictions(ctx context.Context, symbol string) (*predict.Comparison, error) {
	var cmp predict.Comparison
	path := "/api/v1/predict/compare?symbol=" + url.QueryEscape(symbol)
	if err := c.do(ctx, http.MethodGet, path, nil, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}

// GetReport downloads a rendered report for a stored backtest. format is
// "pdf" or "png"; empty means pdf.
func (c *Client) GetReport(ctx context.Context, backtestID, format string) ([]byte, error) {
	path := "/api/v1/report?backtest_id=" + url.QueryEscape(backtestID)
	if format != "" {
		path += "&format=" + url.QueryEscape(format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("GET report: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("GET report: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GetOverview retrieves company reference data for a symbol.
func (c *Client) GetOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error) {
	var ov domain.CompanyOverview
	if err := c.do(ctx, http.MethodGet, "/api/v1/overview/"+url.PathEscape(symbol), nil, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// ListSymbols retrieves all symbols with stored bars.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	var body struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/symbols", nil, &body); err != nil {
		return nil, err
	}
	return body.Symbols, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}
