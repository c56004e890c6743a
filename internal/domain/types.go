// Package domain defines the core value types shared across the stocklab
// platform: daily price bars, simulated trades, backtest results, price
// predictions, and company reference data.
package domain

import "time"

// Bar is a single daily OHLCV bar for a symbol. Bars are unique per
// (symbol, date) and immutable once recorded. Date is midnight UTC.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TradeSide is the direction of a simulated trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is one executed entry in a backtest's trade log, ordered by
// occurrence. The log is append-only during the replay and read-only after.
type Trade struct {
	Side  TradeSide `json:"side"`
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// BacktestResult holds the outputs of a single backtest invocation. It is
// created once per run, persisted by a ResultStore which assigns ID, and
// never mutated afterwards.
type BacktestResult struct {
	ID                string    `json:"backtest_id"`
	Symbol            string    `json:"symbol"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	InitialInvestment float64   `json:"initial_investment"`
	FinalValue        float64   `json:"final_value"`
	TotalReturnPct    float64   `json:"total_return"`
	MaxDrawdownPct    float64   `json:"max_drawdown"`
	NumTrades         int       `json:"num_trades"`
	Trades            []Trade   `json:"trades,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
}

// Prediction is a model-predicted closing price for a symbol on a date,
// unique per (symbol, date).
type Prediction struct {
	Symbol         string    `json:"symbol"`
	Date           time.Time `json:"date"`
	PredictedPrice float64   `json:"predicted_price"`
}

// CompanyOverview holds fundamental reference data for a symbol as reported
// by the upstream market-data provider.
type CompanyOverview struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Exchange      string  `json:"exchange"`
	Currency      string  `json:"currency"`
	Country       string  `json:"country"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	MarketCap     int64   `json:"market_capitalization"`
	PERatio       float64 `json:"pe_ratio"`
	DividendYield float64 `json:"dividend_yield"`
	Beta          float64 `json:"beta"`
	High52Week    float64 `json:"fifty_two_week_high"`
	Low52Week     float64 `json:"fifty_two_week_low"`
}

// Day truncates t to midnight UTC, the canonical representation for bar and
// prediction dates throughout the platform.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
