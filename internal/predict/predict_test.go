package predict

import (
	"context"
	"math"
	"testing"
	"time"

	"stocklab/internal/domain"
)

func TestOLSFitRecoversCoefficients(t *testing.T) {
	// y = 2 + 3a - 0.5b, exactly.
	inputs := [][2]float64{
		{1, 2}, {2, 1}, {3, 5}, {4, 3}, {5, 8}, {6, 2}, {7, 9}, {8, 4},
	}
	x := make([][]float64, len(inputs))
	y := make([]float64, len(inputs))
	for i, in := range inputs {
		x[i] = []float64{1, in[0], in[1]}
		y[i] = 2 + 3*in[0] - 0.5*in[1]
	}

	beta, err := olsFit(x, y)
	if err != nil {
		t.Fatalf("olsFit: %v", err)
	}
	want := []float64{2, 3, -0.5}
	for i, w := range want {
		if math.Abs(beta[i]-w) > 1e-9 {
			t.Errorf("beta[%d] = %v, want %v", i, beta[i], w)
		}
	}
}

func TestOLSFitSingular(t *testing.T) {
	// Second feature is a copy of the first; the normal equations cannot be
	// solved.
	x := [][]float64{
		{1, 1, 1}, {1, 2, 2}, {1, 3, 3}, {1, 4, 4},
	}
	y := []float64{1, 2, 3, 4}
	if _, err := olsFit(x, y); err == nil {
		t.Fatal("expected singular-matrix error")
	}
}

// syntheticCloses produces a deterministic but irregular positive series so
// the lag columns are not collinear.
func syntheticCloses(n int) []float64 {
	closes := make([]float64, n)
	seed := uint64(42)
	price := 100.0
	for i := range closes {
		seed = seed*6364136223846793005 + 1442695040888963407
		step := float64(seed>>33%200)/100.0 - 1 // in [-1, 1)
		price += step
		closes[i] = price
	}
	return closes
}

func TestFitTooFewObservations(t *testing.T) {
	if _, err := Fit(syntheticCloses(NumLags + 2)); err == nil {
		t.Fatal("expected error for short series")
	}
}

func TestFitAndForecast(t *testing.T) {
	closes := syntheticCloses(250)

	model, err := Fit(closes)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// In-sample one-step predictions should track a series whose steps are
	// bounded by 1.
	for _, tt := range []int{NumLags, 100, 249} {
		got := model.Next(closes[:tt])
		if math.Abs(got-closes[tt]) > 25 {
			t.Errorf("prediction at %d = %v, actual %v, off by %v", tt, got, closes[tt], got-closes[tt])
		}
	}

	forecast := model.Forecast(closes, 7)
	if len(forecast) != 7 {
		t.Fatalf("forecast length = %d, want 7", len(forecast))
	}
	for i, v := range forecast {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("forecast[%d] = %v, want finite", i, v)
		}
	}
}

// ---------------------------------------------------------------------------
// Predictor against in-memory stores
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

func (m *memBars) ListSymbols(_ context.Context) ([]string, error) { return nil, nil }

type memPreds struct {
	preds []domain.Prediction
}

func (m *memPreds) ReplacePredictions(_ context.Context, symbol string, start, end time.Time, preds []domain.Prediction) error {
	var kept []domain.Prediction
	for _, p := range m.preds {
		if p.Symbol == symbol && !p.Date.Before(start) && !p.Date.After(end) {
			continue
		}
		kept = append(kept, p)
	}
	m.preds = append(kept, preds...)
	return nil
}

func (m *memPreds) ReadPredictions(_ context.Context, symbol string, start, end time.Time) ([]domain.Prediction, error) {
	var out []domain.Prediction
	for _, p := range m.preds {
		if p.Symbol == symbol && !p.Date.Before(start) && !p.Date.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func recentBars(symbol string, n int) []domain.Bar {
	closes := syntheticCloses(n)
	end := domain.Day(time.Now())
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{
			Symbol: symbol,
			Date:   end.AddDate(0, 0, i-n+1),
			Close:  closes[i],
		}
	}
	return bars
}

func TestForecastStoresPredictions(t *testing.T) {
	bs := &memBars{bars: recentBars("AAPL", 200)}
	ps := &memPreds{}
	p := NewPredictor(bs, ps)

	preds, err := p.Forecast(context.Background(), "aapl", 5)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(preds) != 5 {
		t.Fatalf("got %d predictions, want 5", len(preds))
	}
	if len(ps.preds) != 5 {
		t.Fatalf("store holds %d predictions, want 5", len(ps.preds))
	}
	for i, pr := range preds {
		if pr.Symbol != "AAPL" {
			t.Errorf("prediction %d symbol = %q, want AAPL", i, pr.Symbol)
		}
		if wd := pr.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("prediction %d dated on a weekend: %v", i, pr.Date)
		}
		if i > 0 && !preds[i-1].Date.Before(pr.Date) {
			t.Errorf("prediction dates not strictly increasing at %d", i)
		}
	}
}

func TestForecastRerunsReplace(t *testing.T) {
	bs := &memBars{bars: recentBars("AAPL", 200)}
	ps := &memPreds{}
	p := NewPredictor(bs, ps)

	if _, err := p.Forecast(context.Background(), "AAPL", 5); err != nil {
		t.Fatalf("first Forecast: %v", err)
	}
	if _, err := p.Forecast(context.Background(), "AAPL", 5); err != nil {
		t.Fatalf("second Forecast: %v", err)
	}
	if len(ps.preds) != 5 {
		t.Errorf("store holds %d predictions after rerun, want 5 (replaced, not appended)", len(ps.preds))
	}
}

func TestCompare(t *testing.T) {
	bs := &memBars{bars: recentBars("AAPL", 200)}
	p := NewPredictor(bs, &memPreds{})

	cmp, err := p.Compare(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.Samples == 0 || cmp.Samples != len(cmp.Points) {
		t.Fatalf("Samples = %d with %d points", cmp.Samples, len(cmp.Points))
	}
	if cmp.MSE < 0 || math.IsNaN(cmp.MSE) {
		t.Errorf("MSE = %v", cmp.MSE)
	}
	if cmp.MAE < 0 || cmp.MAE*cmp.MAE > cmp.MSE+1e-9 {
		// For any sample, MAE^2 <= MSE by Jensen's inequality.
		t.Errorf("MAE = %v inconsistent with MSE = %v", cmp.MAE, cmp.MSE)
	}
}

func TestCompareTooFewBars(t *testing.T) {
	bs := &memBars{bars: recentBars("AAPL", 10)}
	p := NewPredictor(bs, &memPreds{})
	if _, err := p.Compare(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error for short history")
	}
}
