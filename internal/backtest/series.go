// Package backtest implements the moving-average-crossover backtesting
// engine: trailing moving averages over a daily close series, crossover
// signal generation, a sequential cash/position replay, and performance
// summary metrics. The engine is deterministic and stateless between
// invocations; concurrent runs share no mutable state.
package backtest

import "math"

// SMA computes the trailing simple moving average of values over the given
// window. The result is aligned with the input: position t holds the
// arithmetic mean of values[t-window+1 .. t]. Positions with fewer than
// window observations hold NaN: insufficient history is undefined, never
// zero, and NaN compares false downstream.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
