package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-pdf/fpdf"

	"stocklab/internal/domain"
	"stocklab/internal/store"
)

// Generator produces charts and PDF reports for stored backtest results.
type Generator struct {
	bars    store.BarStore
	results store.ResultStore
	preds   store.PredictionStore
	log     *slog.Logger
}

// NewGenerator creates a Generator backed by the given stores.
func NewGenerator(bars store.BarStore, results store.ResultStore, preds store.PredictionStore) *Generator {
	return &Generator{
		bars:    bars,
		results: results,
		preds:   preds,
		log:     slog.Default().With("component", "report"),
	}
}

// load gathers everything a report needs: the result, the bars it was run
// over, and any stored predictions inside the same window.
func (g *Generator) load(ctx context.Context, backtestID string) (*domain.BacktestResult, []domain.Bar, []domain.Prediction, error) {
	result, err := g.results.GetResult(ctx, backtestID)
	if err != nil {
		return nil, nil, nil, err
	}

	bars, err := g.bars.ReadBars(ctx, result.Symbol, result.StartDate, result.EndDate)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading bars for report %s: %w", backtestID, err)
	}

	preds, err := g.preds.ReadPredictions(ctx, result.Symbol, result.StartDate, result.EndDate)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading predictions for report %s: %w", backtestID, err)
	}

	return result, bars, preds, nil
}

// Chart renders the PNG price chart for a stored backtest.
func (g *Generator) Chart(ctx context.Context, backtestID string) ([]byte, error) {
	result, bars, preds, err := g.load(ctx, backtestID)
	if err != nil {
		return nil, err
	}
	return renderChart(result.Symbol, bars, result.Trades, preds)
}

// PDF renders a one-page PDF report: headline metrics, the price chart, and
// the trade log.
func (g *Generator) PDF(ctx context.Context, backtestID string) ([]byte, error) {
	result, bars, preds, err := g.load(ctx, backtestID)
	if err != nil {
		return nil, err
	}

	png, err := renderChart(result.Symbol, bars, result.Trades, preds)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Backtest %s", result.Symbol), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("Backtest Report: %s", result.Symbol), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s to %s",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Metrics table.
	rows := [][2]string{
		{"Initial investment", fmt.Sprintf("%.2f", result.InitialInvestment)},
		{"Final value", fmt.Sprintf("%.2f", result.FinalValue)},
		{"Total return", fmt.Sprintf("%.2f%%", result.TotalReturnPct)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", result.MaxDrawdownPct)},
		{"Trades", fmt.Sprintf("%d", result.NumTrades)},
	}
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.CellFormat(60, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, row[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("chart", opts, bytes.NewReader(png))
	pdf.ImageOptions("chart", 10, pdf.GetY(), 190, 0, false, opts, 0, "")

	// Trade log under the chart. The chart is 190mm wide at a 2:1 aspect,
	// so advance past it before writing.
	pdf.SetY(pdf.GetY() + 100)
	if len(result.Trades) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, "Trades", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, tr := range result.Trades {
			pdf.CellFormat(30, 6, string(tr.Side), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, tr.Date.Format("2006-01-02"), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", tr.Price), "1", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf for %s: %w", backtestID, err)
	}

	g.log.Info("report generated", "backtest_id", backtestID, "symbol", result.Symbol, "bytes", buf.Len())
	return buf.Bytes(), nil
}
