package backtest

import (
	"stocklab/internal/domain"
)

// signalAt derives the binary trend signal for one date: 1 when the short
// average is strictly above the long average, else 0. NaN comparisons are
// false, so dates where either average is undefined yield 0.
func signalAt(smaShort, smaLong float64) int {
	if smaShort > smaLong {
		return 1
	}
	return 0
}

// Replay runs the signal-and-position state machine over the date-ordered
// bars and their aligned moving-average series. It returns the trade log and
// the ending account value, with any position still open at the final date
// marked to market at the last close rather than closed out.
//
// The account is all-or-nothing: a +1 transition converts all cash to units
// at that date's close, a -1 transition liquidates all units. Transitions
// that would re-enter an existing state (buy while invested, sell while
// flat) are no-ops, as is the first date, which has no prior signal.
func Replay(bars []domain.Bar, smaShort, smaLong []float64, initialInvestment float64) ([]domain.Trade, float64) {
	cash := initialInvestment
	var positionUnits float64
	trades := []domain.Trade{}

	prevSignal := 0
	for i, bar := range bars {
		signal := signalAt(smaShort[i], smaLong[i])
		if i == 0 {
			prevSignal = signal
			continue
		}

		transition := signal - prevSignal
		prevSignal = signal

		switch {
		case transition == 1 && cash > 0:
			positionUnits = cash / bar.Close
			cash = 0
			trades = append(trades, domain.Trade{
				Side:  domain.TradeSideBuy,
				Date:  bar.Date,
				Price: bar.Close,
			})
		case transition == -1 && positionUnits > 0:
			cash = positionUnits * bar.Close
			positionUnits = 0
			trades = append(trades, domain.Trade{
				Side:  domain.TradeSideSell,
				Date:  bar.Date,
				Price: bar.Close,
			})
		}
	}

	finalValue := cash
	if positionUnits > 0 && len(bars) > 0 {
		finalValue += positionUnits * bars[len(bars)-1].Close
	}
	return trades, finalValue
}
