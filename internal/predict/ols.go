// Package predict fits a lagged linear-regression model to a symbol's close
// history and produces short-horizon price forecasts.
package predict

import (
	"fmt"
	"math"
)

// NumLags is the number of trailing closes used as regression features.
const NumLags = 5

// olsFit solves the least-squares problem y ~ X*beta for a design matrix X
// that already includes an intercept column, using the normal equations.
func olsFit(x [][]float64, y []float64) ([]float64, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("ols: %d rows against %d targets", len(x), len(y))
	}
	cols := len(x[0])
	if len(x) < cols {
		return nil, fmt.Errorf("ols: %d rows is too few for %d coefficients", len(x), cols)
	}

	// Build X'X and X'y.
	xtx := make([][]float64, cols)
	xty := make([]float64, cols)
	for i := range xtx {
		xtx[i] = make([]float64, cols)
	}
	for r := range x {
		for i := 0; i < cols; i++ {
			xty[i] += x[r][i] * y[r]
			for j := 0; j < cols; j++ {
				xtx[i][j] += x[r][i] * x[r][j]
			}
		}
	}

	return solveLinear(xtx, xty)
}

// solveLinear solves a*beta = b by Gaussian elimination with partial
// pivoting. a and b are modified in place.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)

	for col := 0; col < n; col++ {
		// Pivot on the largest remaining magnitude in this column.
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("ols: singular design matrix at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	// Back substitution.
	beta := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * beta[c]
		}
		beta[r] = sum / a[r][r]
	}
	return beta, nil
}

// Model is a fitted lagged regression: the next close is predicted as
// intercept + sum(coef[i] * close[t-1-i]) over the last NumLags closes.
type Model struct {
	Intercept float64
	Coef      [NumLags]float64
}

// Fit trains a Model on the given close series. It needs at least
// NumLags + NumLags + 1 observations to produce enough training rows.
func Fit(closes []float64) (*Model, error) {
	rows := len(closes) - NumLags
	if rows < NumLags+1 {
		return nil, fmt.Errorf("predict: %d closes is too few to fit a %d-lag model", len(closes), NumLags)
	}

	x := make([][]float64, rows)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := r + NumLags
		row := make([]float64, NumLags+1)
		row[0] = 1 // intercept
		for lag := 1; lag <= NumLags; lag++ {
			row[lag] = closes[t-lag]
		}
		x[r] = row
		y[r] = closes[t]
	}

	beta, err := olsFit(x, y)
	if err != nil {
		return nil, err
	}

	m := &Model{Intercept: beta[0]}
	copy(m.Coef[:], beta[1:])
	return m, nil
}

// Next predicts the close following the given history. The last NumLags
// entries of closes are the features.
func (m *Model) Next(closes []float64) float64 {
	n := len(closes)
	v := m.Intercept
	for lag := 1; lag <= NumLags; lag++ {
		v += m.Coef[lag-1] * closes[n-lag]
	}
	return v
}

// Forecast predicts horizon closes past the end of the history, feeding each
// prediction back in as a lag for the next step.
func (m *Model) Forecast(closes []float64, horizon int) []float64 {
	work := append([]float64(nil), closes...)
	out := make([]float64, 0, horizon)
	for i := 0; i < horizon; i++ {
		next := m.Next(work)
		out = append(out, next)
		work = append(work, next)
	}
	return out
}
