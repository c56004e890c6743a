// Package api exposes the platform's REST endpoints: backtests, forecasts,
// reports, company overviews, and the symbol inventory.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stocklab/internal/backtest"
	"stocklab/internal/marketdata"
	"stocklab/internal/predict"
	"stocklab/internal/report"
	"stocklab/internal/store"
)

// Server serves the REST API.
type Server struct {
	runner    *backtest.Runner
	market    *marketdata.Service
	predictor *predict.Predictor
	reports   *report.Generator
	bars      store.BarStore
	results   store.ResultStore

	// Default windows applied when a request omits them.
	shortWindow int
	longWindow  int

	log *slog.Logger
}

// NewServer wires the API server to its backing services. shortWindow and
// longWindow are the configured defaults for requests that omit them.
func NewServer(
	runner *backtest.Runner,
	market *marketdata.Service,
	predictor *predict.Predictor,
	reports *report.Generator,
	bars store.BarStore,
	results store.ResultStore,
	shortWindow, longWindow int,
) *Server {
	return &Server{
		runner:      runner,
		market:      market,
		predictor:   predictor,
		reports:     reports,
		bars:        bars,
		results:     results,
		shortWindow: shortWindow,
		longWindow:  longWindow,
		log:         slog.Default().With("component", "api"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/backtest", s.handleRunBacktest)
	mux.HandleFunc("GET /api/v1/backtest/{id}", s.handleGetBacktest)
	mux.HandleFunc("GET /api/v1/backtests", s.handleListBacktests)
	mux.HandleFunc("GET /api/v1/predict", s.handlePredict)
	mux.HandleFunc("GET /api/v1/predict/compare", s.handleCompare)
	mux.HandleFunc("GET /api/v1/report", s.handleReport)
	mux.HandleFunc("GET /api/v1/overview/{symbol}", s.handleOverview)
	mux.HandleFunc("GET /api/v1/symbols", s.handleSymbols)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Backtest
// ---------------------------------------------------------------------------

// BacktestRequest is the POST /api/v1/backtest body. Dates are "2006-01-02".
type BacktestRequest struct {
	Symbol            string  `json:"symbol"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	InitialInvestment float64 `json:"initial_investment"`
	ShortWindow       int     `json:"short_window"`
	LongWindow        int     `json:"long_window"`
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date: "+req.StartDate)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date: "+req.EndDate)
		return
	}

	params := backtest.Params{
		Symbol:            strings.ToUpper(req.Symbol),
		StartDate:         start,
		EndDate:           end,
		InitialInvestment: req.InitialInvestment,
		ShortWindow:       req.ShortWindow,
		LongWindow:        req.LongWindow,
	}
	if params.ShortWindow == 0 {
		params.ShortWindow = s.shortWindow
	}
	if params.LongWindow == 0 {
		params.LongWindow = s.longWindow
	}

	// Pull missing history from the provider before running.
	if err := s.market.EnsureBars(r.Context(), params.Symbol, start, end); err != nil {
		s.log.Error("ensuring bars", "symbol", params.Symbol, "error", err)
		writeError(w, http.StatusBadGateway, "fetching market data: "+err.Error())
		return
	}

	result, err := s.runner.Run(r.Context(), params)
	if err != nil {
		var invalid *backtest.InvalidParameterError
		var noData *backtest.NoDataError
		switch {
		case errors.As(err, &invalid):
			writeError(w, http.StatusBadRequest, invalid.Error())
		case errors.As(err, &noData):
			writeError(w, http.StatusNotFound, noData.Error())
		default:
			s.log.Error("running backtest", "symbol", params.Symbol, "error", err)
			writeError(w, http.StatusInternalServerError, "backtest failed")
		}
		return
	}

	writeJSON(w, result)
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := s.results.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no backtest with id "+id)
			return
		}
		s.log.Error("loading backtest", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "loading backtest failed")
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	results, err := s.results.ListResults(r.Context(), limit)
	if err != nil {
		s.log.Error("listing backtests", "error", err)
		writeError(w, http.StatusInternalServerError, "listing backtests failed")
		return
	}
	writeJSON(w, map[string]any{"results": results})
}

// ---------------------------------------------------------------------------
// Predictions
// ---------------------------------------------------------------------------

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	horizon := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 30 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 30")
			return
		}
		horizon = n
	}

	preds, err := s.predictor.Forecast(r.Context(), symbol, horizon)
	if err != nil {
		s.log.Error("forecasting", "symbol", symbol, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, map[string]any{"symbol": strings.ToUpper(symbol), "predictions": preds})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	cmp, err := s.predictor.Compare(r.Context(), symbol)
	if err != nil {
		s.log.Error("comparing predictions", "symbol", symbol, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, cmp)
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("backtest_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "backtest_id query parameter is required")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case "pdf":
		body, err = s.reports.PDF(r.Context(), id)
		contentType = "application/pdf"
	case "png":
		body, err = s.reports.Chart(r.Context(), id)
		contentType = "image/png"
	default:
		writeError(w, http.StatusBadRequest, "format must be pdf or png")
		return
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no backtest with id "+id)
			return
		}
		s.log.Error("generating report", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "generating report failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=backtest-%s.%s", id, format))
	w.Write(body)
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	overview, err := s.market.GetOverview(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no overview for symbol "+symbol)
			return
		}
		s.log.Error("loading overview", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, "loading overview failed")
		return
	}
	writeJSON(w, overview)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.bars.ListSymbols(r.Context())
	if err != nil {
		s.log.Error("listing symbols", "error", err)
		writeError(w, http.StatusInternalServerError, "listing symbols failed")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, map[string]any{"symbols": symbols})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
