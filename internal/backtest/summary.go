package backtest

// TotalReturnPct is the percentage gain or loss of finalValue relative to
// initialInvestment.
func TotalReturnPct(initialInvestment, finalValue float64) float64 {
	return (finalValue - initialInvestment) / initialInvestment * 100
}

// MaxDrawdownPct is the deepest percentage decline of the close series from
// its running peak, as a non-positive percentage (0 for a monotonically
// non-decreasing series, 0 for an empty one).
//
// This is the drawdown of the raw price series over the window, not of the
// strategy's equity curve; positions held at the time are irrelevant.
func MaxDrawdownPct(closes []float64) float64 {
	if len(closes) == 0 {
		return 0
	}

	peak := closes[0]
	minDrawdown := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		dd := (c - peak) / peak
		if dd < minDrawdown {
			minDrawdown = dd
		}
	}
	return minDrawdown * 100
}
