package predict

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"stocklab/internal/domain"
	"stocklab/internal/store"
)

// DefaultTrainingDays is how much close history the predictor trains on when
// the caller does not say otherwise.
const DefaultTrainingDays = 365

// Predictor trains a lagged regression per symbol on demand and persists its
// forecasts. Models are fitted fresh for every call; nothing is cached
// between requests.
type Predictor struct {
	bars  store.BarStore
	preds store.PredictionStore
	log   *slog.Logger
}

// NewPredictor creates a Predictor backed by the given stores.
func NewPredictor(bars store.BarStore, preds store.PredictionStore) *Predictor {
	return &Predictor{
		bars:  bars,
		preds: preds,
		log:   slog.Default().With("component", "predict"),
	}
}

// Forecast trains on the trailing DefaultTrainingDays of closes for symbol
// and predicts the next horizon trading days. The forecasts replace any
// previously stored predictions for those dates.
func (p *Predictor) Forecast(ctx context.Context, symbol string, horizon int) ([]domain.Prediction, error) {
	symbol = strings.ToUpper(symbol)
	if horizon <= 0 {
		horizon = 7
	}

	end := domain.Day(time.Now())
	start := end.AddDate(0, 0, -DefaultTrainingDays)
	bars, err := p.bars.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading training bars for %s: %w", symbol, err)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	model, err := Fit(closes)
	if err != nil {
		return nil, err
	}
	values := model.Forecast(closes, horizon)

	lastDate := bars[len(bars)-1].Date
	preds := make([]domain.Prediction, horizon)
	date := lastDate
	for i, v := range values {
		date = nextTradingDay(date)
		preds[i] = domain.Prediction{Symbol: symbol, Date: date, PredictedPrice: v}
	}

	if err := p.preds.ReplacePredictions(ctx, symbol, preds[0].Date, preds[len(preds)-1].Date, preds); err != nil {
		return nil, fmt.Errorf("storing predictions for %s: %w", symbol, err)
	}

	p.log.Info("forecast stored", "symbol", symbol, "horizon", horizon, "from", preds[0].Date.Format("2006-01-02"))
	return preds, nil
}

// Comparison summarizes how the model's one-step-ahead predictions track the
// actual closes over a held-out evaluation window.
type Comparison struct {
	Symbol  string            `json:"symbol"`
	Samples int               `json:"samples"`
	MSE     float64           `json:"mse"`
	MAE     float64           `json:"mae"`
	Points  []ComparisonPoint `json:"points"`
}

// ComparisonPoint is one evaluated date: the close the model predicted from
// the preceding history against the close that actually printed.
type ComparisonPoint struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Actual    float64   `json:"actual"`
}

// Compare trains on the first 80% of the trailing year of closes and walks
// the model one step at a time through the remaining 20%, always predicting
// from actual history.
func (p *Predictor) Compare(ctx context.Context, symbol string) (*Comparison, error) {
	symbol = strings.ToUpper(symbol)

	end := domain.Day(time.Now())
	start := end.AddDate(0, 0, -DefaultTrainingDays)
	bars, err := p.bars.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	split := len(closes) * 8 / 10
	if split < 2*NumLags+1 || split >= len(closes) {
		return nil, fmt.Errorf("predict: %d closes is too few to evaluate %s", len(closes), symbol)
	}

	model, err := Fit(closes[:split])
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{Symbol: symbol}
	var sumSq, sumAbs float64
	for t := split; t < len(closes); t++ {
		predicted := model.Next(closes[:t])
		actual := closes[t]
		diff := predicted - actual
		sumSq += diff * diff
		sumAbs += math.Abs(diff)
		cmp.Points = append(cmp.Points, ComparisonPoint{
			Date:      bars[t].Date,
			Predicted: predicted,
			Actual:    actual,
		})
	}

	cmp.Samples = len(cmp.Points)
	cmp.MSE = sumSq / float64(cmp.Samples)
	cmp.MAE = sumAbs / float64(cmp.Samples)
	return cmp, nil
}

// nextTradingDay returns the next weekday after d. Market holidays are not
// modeled; a forecast dated on a holiday simply never gets an actual close.
func nextTradingDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
