package store

import (
	"context"
	"log/slog"
	"time"

	"stocklab/internal/domain"
)

var _ BarStore = (*TeeBarStore)(nil)

// TeeBarStore writes bars to a primary store and an archive store, and reads
// from the primary. Archive write failures are logged, not surfaced; the
// archive is a secondary copy.
type TeeBarStore struct {
	primary BarStore
	archive BarStore
	log     *slog.Logger
}

// NewTeeBarStore creates a TeeBarStore over the given primary and archive.
func NewTeeBarStore(primary, archive BarStore) *TeeBarStore {
	return &TeeBarStore{
		primary: primary,
		archive: archive,
		log:     slog.Default().With("component", "store"),
	}
}

func (t *TeeBarStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if err := t.primary.WriteBars(ctx, bars); err != nil {
		return err
	}
	if err := t.archive.WriteBars(ctx, bars); err != nil {
		t.log.Warn("archive write failed", "error", err, "bars", len(bars))
	}
	return nil
}

func (t *TeeBarStore) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	return t.primary.ReadBars(ctx, symbol, start, end)
}

func (t *TeeBarStore) HasBars(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	return t.primary.HasBars(ctx, symbol, start, end)
}

func (t *TeeBarStore) ListSymbols(ctx context.Context) ([]string, error) {
	return t.primary.ListSymbols(ctx)
}
