package backtest

import (
	"fmt"
	"time"
)

// NoDataError indicates that no price bars exist for the requested symbol and
// date range. It is surfaced to the caller unmodified and is not retryable:
// fetching missing history is the data layer's concern, not the engine's.
type NoDataError struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data found for symbol %s between %s and %s",
		e.Symbol, e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"))
}

// InvalidParameterError indicates a precondition violation in the backtest
// parameters. The engine fails fast before any computation.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}
