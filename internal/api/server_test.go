package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"stocklab/internal/backtest"
	"stocklab/internal/domain"
	"stocklab/internal/marketdata"
	"stocklab/internal/predict"
	"stocklab/internal/report"
	"stocklab/internal/store"
)

// ---------------------------------------------------------------------------
// In-memory fixtures
// ---------------------------------------------------------------------------

type memBars struct {
	bars []domain.Bar
}

func (m *memBars) WriteBars(_ context.Context, bars []domain.Bar) error {
	m.bars = append(m.bars, bars...)
	return nil
}

func (m *memBars) ReadBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range m.bars {
		if b.Symbol == symbol && !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBars) HasBars(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	bars, err := m.ReadBars(ctx, symbol, start, end)
	return len(bars) > 0, err
}

func (m *memBars) ListSymbols(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, b := range m.bars {
		if !seen[b.Symbol] {
			seen[b.Symbol] = true
			out = append(out, b.Symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memResults struct {
	results map[string]*domain.BacktestResult
	nextID  int
}

func (m *memResults) SaveResult(_ context.Context, r *domain.BacktestResult) (string, error) {
	if m.results == nil {
		m.results = map[string]*domain.BacktestResult{}
	}
	m.nextID++
	r.ID = fmt.Sprintf("bt-%d", m.nextID)
	r.CreatedAt = time.Now().UTC()
	m.results[r.ID] = r
	return r.ID, nil
}

func (m *memResults) GetResult(_ context.Context, id string) (*domain.BacktestResult, error) {
	if r, ok := m.results[id]; ok {
		return r, nil
	}
	return nil, store.ErrNotFound
}

func (m *memResults) ListResults(_ context.Context, limit int) ([]domain.BacktestResult, error) {
	var out []domain.BacktestResult
	for _, r := range m.results {
		out = append(out, *r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memPreds struct {
	preds []domain.Prediction
}

func (m *memPreds) ReplacePredictions(_ context.Context, symbol string, start, end time.Time, preds []domain.Prediction) error {
	m.preds = append(m.preds[:0], preds...)
	return nil
}

func (m *memPreds) ReadPredictions(_ context.Context, symbol string, start, end time.Time) ([]domain.Prediction, error) {
	return nil, nil
}

type memOverviews struct {
	overviews map[string]*domain.CompanyOverview
}

func (m *memOverviews) SaveOverview(_ context.Context, ov *domain.CompanyOverview) error {
	if m.overviews == nil {
		m.overviews = map[string]*domain.CompanyOverview{}
	}
	m.overviews[ov.Symbol] = ov
	return nil
}

func (m *memOverviews) GetOverview(_ context.Context, symbol string) (*domain.CompanyOverview, error) {
	if ov, ok := m.overviews[symbol]; ok {
		return ov, nil
	}
	return nil, store.ErrNotFound
}

// emptyProvider has no upstream data, so every fetch-on-miss comes back empty.
type emptyProvider struct{}

func (emptyProvider) Name() string { return "empty" }
func (emptyProvider) FetchDailyBars(context.Context, string, time.Time, time.Time) ([]domain.Bar, error) {
	return nil, nil
}

var apiStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *memBars, *memResults, *memOverviews) {
	t.Helper()

	bars := &memBars{}
	for i := 0; i < 300; i++ {
		bars.bars = append(bars.bars, domain.Bar{
			Symbol: "AAPL",
			Date:   apiStart.AddDate(0, 0, i),
			Close:  float64(100 + i),
		})
	}

	results := &memResults{}
	preds := &memPreds{}
	overviews := &memOverviews{}

	market := marketdata.NewService(emptyProvider{}, bars, overviews)
	runner := backtest.NewRunner(bars, results)
	predictor := predict.NewPredictor(bars, preds)
	reports := report.NewGenerator(bars, results, preds)

	s := NewServer(runner, market, predictor, reports, bars, results, 50, 200)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, bars, results, overviews
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

// ---------------------------------------------------------------------------
// Backtest endpoints
// ---------------------------------------------------------------------------

func TestBacktestEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/backtest", `{
		"symbol": "aapl",
		"start_date": "2020-01-01",
		"end_date": "2020-10-26",
		"initial_investment": 10000
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	result := decode[domain.BacktestResult](t, resp)
	if result.ID == "" {
		t.Error("response has no backtest_id")
	}
	if result.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", result.Symbol)
	}
	if result.NumTrades != len(result.Trades) {
		t.Errorf("num_trades = %d but %d trades in log", result.NumTrades, len(result.Trades))
	}
	if result.FinalValue <= 0 {
		t.Errorf("final_value = %v", result.FinalValue)
	}
}

func TestBacktestEndpointBadRequest(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing symbol", `{"start_date": "2020-01-01", "end_date": "2020-06-01", "initial_investment": 100}`},
		{"bad date", `{"symbol": "AAPL", "start_date": "01/01/2020", "end_date": "2020-06-01", "initial_investment": 100}`},
		{"zero investment", `{"symbol": "AAPL", "start_date": "2020-01-01", "end_date": "2020-06-01", "initial_investment": 0}`},
		{"start after end", `{"symbol": "AAPL", "start_date": "2020-06-01", "end_date": "2020-01-01", "initial_investment": 100}`},
		{"not json", `hello`},
	}
	for _, tc := range cases {
		resp := postJSON(t, srv.URL+"/api/v1/backtest", tc.body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestBacktestEndpointNoData(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/backtest", `{
		"symbol": "ZZZZ",
		"start_date": "2020-01-01",
		"end_date": "2020-06-01",
		"initial_investment": 10000
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	body := decode[map[string]string](t, resp)
	if !strings.Contains(body["error"], "ZZZZ") {
		t.Errorf("error message %q does not name the symbol", body["error"])
	}
}

func TestGetBacktestEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/backtest", `{
		"symbol": "AAPL",
		"start_date": "2020-01-01",
		"end_date": "2020-10-26",
		"initial_investment": 10000
	}`)
	created := decode[domain.BacktestResult](t, resp)

	getResp, err := http.Get(srv.URL + "/api/v1/backtest/" + created.ID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", getResp.StatusCode)
	}
	fetched := decode[domain.BacktestResult](t, getResp)
	if fetched.ID != created.ID || fetched.FinalValue != created.FinalValue {
		t.Errorf("fetched %+v, created %+v", fetched, created)
	}

	missing, err := http.Get(srv.URL + "/api/v1/backtest/nope")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", missing.StatusCode)
	}
}

func TestListBacktestsEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	postJSON(t, srv.URL+"/api/v1/backtest", `{
		"symbol": "AAPL",
		"start_date": "2020-01-01",
		"end_date": "2020-10-26",
		"initial_investment": 10000
	}`).Body.Close()

	resp, err := http.Get(srv.URL + "/api/v1/backtests")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string][]domain.BacktestResult](t, resp)
	if len(body["results"]) != 1 {
		t.Errorf("got %d results, want 1", len(body["results"]))
	}
}

// ---------------------------------------------------------------------------
// Prediction endpoints
// ---------------------------------------------------------------------------

func TestPredictEndpointRequiresSymbol(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/predict")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPredictEndpointBadDays(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/predict?symbol=AAPL&days=99")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// ---------------------------------------------------------------------------
// Reports, overviews, symbols, health
// ---------------------------------------------------------------------------

func TestReportEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/backtest", `{
		"symbol": "AAPL",
		"start_date": "2020-01-01",
		"end_date": "2020-10-26",
		"initial_investment": 10000
	}`)
	created := decode[domain.BacktestResult](t, resp)

	pngResp, err := http.Get(srv.URL + "/api/v1/report?backtest_id=" + created.ID + "&format=png")
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	defer pngResp.Body.Close()
	if pngResp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d, want 200", pngResp.StatusCode)
	}
	if ct := pngResp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}

	missing, err := http.Get(srv.URL + "/api/v1/report?backtest_id=nope")
	if err != nil {
		t.Fatalf("GET missing report: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing report status = %d, want 404", missing.StatusCode)
	}

	badFormat, err := http.Get(srv.URL + "/api/v1/report?backtest_id=" + created.ID + "&format=docx")
	if err != nil {
		t.Fatalf("GET bad format: %v", err)
	}
	badFormat.Body.Close()
	if badFormat.StatusCode != http.StatusBadRequest {
		t.Errorf("bad format status = %d, want 400", badFormat.StatusCode)
	}
}

func TestOverviewEndpoint(t *testing.T) {
	srv, _, _, overviews := newTestServer(t)
	overviews.SaveOverview(context.Background(), &domain.CompanyOverview{Symbol: "AAPL", Name: "Apple Inc"})

	resp, err := http.Get(srv.URL + "/api/v1/overview/aapl")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	ov := decode[domain.CompanyOverview](t, resp)
	if ov.Name != "Apple Inc" {
		t.Errorf("overview = %+v", ov)
	}

	missing, err := http.Get(srv.URL + "/api/v1/overview/ZZZZ")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing overview status = %d, want 404", missing.StatusCode)
	}
}

func TestSymbolsEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/symbols")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string][]string](t, resp)
	if len(body["symbols"]) != 1 || body["symbols"][0] != "AAPL" {
		t.Errorf("symbols = %v, want [AAPL]", body["symbols"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}
