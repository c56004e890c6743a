package domain

import (
	"testing"
	"time"
)

func TestDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	in := time.Date(2024, 6, 15, 18, 45, 12, 999, loc)
	got := Day(in)

	want := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Day(%v) = %v, want %v", in, got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("Day should return UTC, got %v", got.Location())
	}
}

func TestTradeSideConstants(t *testing.T) {
	if TradeSideBuy != "buy" {
		t.Errorf("TradeSideBuy = %q, want %q", TradeSideBuy, "buy")
	}
	if TradeSideSell != "sell" {
		t.Errorf("TradeSideSell = %q, want %q", TradeSideSell, "sell")
	}
}

func TestZeroValues(t *testing.T) {
	// Verify Bar can be instantiated with zero values.
	bar := Bar{}
	if bar.Symbol != "" {
		t.Error("expected empty Symbol for zero-value Bar")
	}
	if !bar.Date.IsZero() {
		t.Error("expected zero Date for zero-value Bar")
	}
	if bar.Open != 0 || bar.High != 0 || bar.Low != 0 || bar.Close != 0 {
		t.Error("expected zero OHLC values for zero-value Bar")
	}

	// Verify BacktestResult can be instantiated with zero values.
	res := BacktestResult{}
	if res.ID != "" {
		t.Error("expected empty ID for zero-value BacktestResult")
	}
	if res.NumTrades != 0 || len(res.Trades) != 0 {
		t.Error("expected empty trade log for zero-value BacktestResult")
	}
}
