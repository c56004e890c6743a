// Package report renders backtest results as price charts and PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"stocklab/internal/domain"
)

// renderChart draws the close series with buy/sell markers and an optional
// predicted-price overlay, returning the encoded PNG.
func renderChart(symbol string, bars []domain.Bar, trades []domain.Trade, preds []domain.Prediction) ([]byte, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("report: no bars to chart for %s", symbol)
	}

	closeSeries := chart.TimeSeries{
		Name:    symbol + " close",
		XValues: make([]time.Time, len(bars)),
		YValues: make([]float64, len(bars)),
		Style: chart.Style{
			StrokeColor: drawing.ColorBlue,
			StrokeWidth: 1.5,
		},
	}
	for i, b := range bars {
		closeSeries.XValues[i] = b.Date
		closeSeries.YValues[i] = b.Close
	}

	series := []chart.Series{closeSeries}

	if len(preds) > 0 {
		predSeries := chart.TimeSeries{
			Name:    "predicted",
			XValues: make([]time.Time, len(preds)),
			YValues: make([]float64, len(preds)),
			Style: chart.Style{
				StrokeColor:     drawing.ColorFromHex("e67e22"),
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5, 5},
			},
		}
		for i, p := range preds {
			predSeries.XValues[i] = p.Date
			predSeries.YValues[i] = p.PredictedPrice
		}
		series = append(series, predSeries)
	}

	// Trades show up as point markers on their execution dates.
	for _, side := range []domain.TradeSide{domain.TradeSideBuy, domain.TradeSideSell} {
		marker := chart.TimeSeries{
			Name: string(side),
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    drawing.ColorGreen,
			},
		}
		if side == domain.TradeSideSell {
			marker.Style.DotColor = drawing.ColorRed
		}
		for _, tr := range trades {
			if tr.Side != side {
				continue
			}
			marker.XValues = append(marker.XValues, tr.Date)
			marker.YValues = append(marker.YValues, tr.Price)
		}
		if len(marker.XValues) > 0 {
			series = append(series, marker)
		}
	}

	graph := chart.Chart{
		Title:  symbol,
		Width:  900,
		Height: 450,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("rendering chart for %s: %w", symbol, err)
	}
	return buf.Bytes(), nil
}
