package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"stocklab/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*SQLiteStore)(nil)
var _ ResultStore = (*SQLiteStore)(nil)
var _ PredictionStore = (*SQLiteStore)(nil)
var _ OverviewStore = (*SQLiteStore)(nil)

const dateLayout = "2006-01-02"

// SQLiteStore implements BarStore, ResultStore, PredictionStore, and
// OverviewStore backed by a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs
// migrations, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT NOT NULL,
			date   TEXT NOT NULL,
			open   REAL NOT NULL,
			high   REAL NOT NULL,
			low    REAL NOT NULL,
			close  REAL NOT NULL,
			volume INTEGER NOT NULL,
			UNIQUE(symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol_date ON bars(symbol, date)`,

		`CREATE TABLE IF NOT EXISTS backtest_results (
			id                 TEXT PRIMARY KEY,
			symbol             TEXT NOT NULL,
			start_date         TEXT NOT NULL,
			end_date           TEXT NOT NULL,
			initial_investment REAL NOT NULL,
			final_value        REAL NOT NULL,
			total_return       REAL NOT NULL,
			max_drawdown       REAL NOT NULL,
			num_trades         INTEGER NOT NULL,
			created_at         INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_created ON backtest_results(created_at)`,

		`CREATE TABLE IF NOT EXISTS backtest_trades (
			result_id TEXT NOT NULL,
			seq       INTEGER NOT NULL,
			side      TEXT NOT NULL,
			date      TEXT NOT NULL,
			price     REAL NOT NULL,
			PRIMARY KEY(result_id, seq)
		)`,

		`CREATE TABLE IF NOT EXISTS predictions (
			symbol          TEXT NOT NULL,
			date            TEXT NOT NULL,
			predicted_price REAL NOT NULL,
			UNIQUE(symbol, date)
		)`,

		`CREATE TABLE IF NOT EXISTS company_overviews (
			symbol         TEXT PRIMARY KEY,
			name           TEXT,
			description    TEXT,
			exchange       TEXT,
			currency       TEXT,
			country        TEXT,
			sector         TEXT,
			industry       TEXT,
			market_cap     INTEGER,
			pe_ratio       REAL,
			dividend_yield REAL,
			beta           REAL,
			high_52w       REAL,
			low_52w        REAL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars inserts bars in a single transaction, skipping rows that already
// exist for the same (symbol, date).
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO bars
		(symbol, date, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx,
			strings.ToUpper(b.Symbol), b.Date.Format(dateLayout),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("inserting bar %s/%s: %w", b.Symbol, b.Date.Format(dateLayout), err)
		}
	}

	return tx.Commit()
}

// ReadBars returns bars for the symbol within [start, end] ordered by date.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, date, open, high, low, close, volume
		FROM bars WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date ASC`,
		strings.ToUpper(symbol), start.Format(dateLayout), end.Format(dateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var date string
		if err := rows.Scan(&b.Symbol, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parsing bar date %q: %w", date, err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// HasBars reports whether any bar exists for the symbol within [start, end].
func (s *SQLiteStore) HasBars(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM bars
		WHERE symbol = ? AND date >= ? AND date <= ? LIMIT 1`,
		strings.ToUpper(symbol), start.Format(dateLayout), end.Format(dateLayout),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListSymbols returns all distinct symbols with stored bars, sorted.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// ---------------------------------------------------------------------------
// ResultStore implementation
// ---------------------------------------------------------------------------

// SaveResult assigns the result a UUID, persists it together with its trade
// log in one transaction, and returns the new identifier.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *domain.BacktestResult) (string, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO backtest_results
		(id, symbol, start_date, end_date, initial_investment, final_value,
		 total_return, max_drawdown, num_trades, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		id, strings.ToUpper(result.Symbol),
		result.StartDate.Format(dateLayout), result.EndDate.Format(dateLayout),
		result.InitialInvestment, result.FinalValue,
		result.TotalReturnPct, result.MaxDrawdownPct,
		result.NumTrades, createdAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting result: %w", err)
	}

	for i, tr := range result.Trades {
		_, err = tx.ExecContext(ctx, `INSERT INTO backtest_trades
			(result_id, seq, side, date, price) VALUES (?,?,?,?,?)`,
			id, i, string(tr.Side), tr.Date.Format(dateLayout), tr.Price,
		)
		if err != nil {
			return "", fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	result.ID = id
	result.CreatedAt = createdAt
	return id, nil
}

// GetResult retrieves a result and its trade log by ID.
func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*domain.BacktestResult, error) {
	var (
		res                domain.BacktestResult
		startDate, endDate string
		createdAt          int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, symbol, start_date, end_date,
		initial_investment, final_value, total_return, max_drawdown, num_trades, created_at
		FROM backtest_results WHERE id = ?`, id,
	).Scan(&res.ID, &res.Symbol, &startDate, &endDate,
		&res.InitialInvestment, &res.FinalValue,
		&res.TotalReturnPct, &res.MaxDrawdownPct, &res.NumTrades, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if res.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return nil, fmt.Errorf("parsing start date %q: %w", startDate, err)
	}
	if res.EndDate, err = time.Parse(dateLayout, endDate); err != nil {
		return nil, fmt.Errorf("parsing end date %q: %w", endDate, err)
	}
	res.CreatedAt = time.Unix(createdAt, 0).UTC()

	rows, err := s.db.QueryContext(ctx, `SELECT side, date, price
		FROM backtest_trades WHERE result_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			side, date string
			price      float64
		)
		if err := rows.Scan(&side, &date, &price); err != nil {
			return nil, err
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parsing trade date %q: %w", date, err)
		}
		res.Trades = append(res.Trades, domain.Trade{
			Side:  domain.TradeSide(side),
			Date:  d,
			Price: price,
		})
	}
	return &res, rows.Err()
}

// ListResults returns the most recently created results (without trade logs).
func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]domain.BacktestResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, symbol, start_date, end_date,
		initial_investment, final_value, total_return, max_drawdown, num_trades, created_at
		FROM backtest_results ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.BacktestResult
	for rows.Next() {
		var (
			res                domain.BacktestResult
			startDate, endDate string
			createdAt          int64
		)
		if err := rows.Scan(&res.ID, &res.Symbol, &startDate, &endDate,
			&res.InitialInvestment, &res.FinalValue,
			&res.TotalReturnPct, &res.MaxDrawdownPct, &res.NumTrades, &createdAt); err != nil {
			return nil, err
		}
		if res.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
			return nil, err
		}
		if res.EndDate, err = time.Parse(dateLayout, endDate); err != nil {
			return nil, err
		}
		res.CreatedAt = time.Unix(createdAt, 0).UTC()
		results = append(results, res)
	}
	return results, rows.Err()
}

// ---------------------------------------------------------------------------
// PredictionStore implementation
// ---------------------------------------------------------------------------

// ReplacePredictions swaps out all stored predictions for the symbol within
// [start, end] in a single transaction.
func (s *SQLiteStore) ReplacePredictions(ctx context.Context, symbol string, start, end time.Time, preds []domain.Prediction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM predictions
		WHERE symbol = ? AND date >= ? AND date <= ?`,
		strings.ToUpper(symbol), start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("deleting predictions: %w", err)
	}

	for _, p := range preds {
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO predictions
			(symbol, date, predicted_price) VALUES (?,?,?)`,
			strings.ToUpper(p.Symbol), p.Date.Format(dateLayout), p.PredictedPrice)
		if err != nil {
			return fmt.Errorf("inserting prediction %s/%s: %w", p.Symbol, p.Date.Format(dateLayout), err)
		}
	}

	return tx.Commit()
}

// ReadPredictions returns predictions for the symbol within [start, end].
func (s *SQLiteStore) ReadPredictions(ctx context.Context, symbol string, start, end time.Time) ([]domain.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, date, predicted_price
		FROM predictions WHERE symbol = ? AND date >= ? AND date <= ? ORDER BY date ASC`,
		strings.ToUpper(symbol), start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		var (
			p    domain.Prediction
			date string
		)
		if err := rows.Scan(&p.Symbol, &date, &p.PredictedPrice); err != nil {
			return nil, err
		}
		if p.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parsing prediction date %q: %w", date, err)
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// ---------------------------------------------------------------------------
// OverviewStore implementation
// ---------------------------------------------------------------------------

// SaveOverview inserts or updates the overview for its symbol.
func (s *SQLiteStore) SaveOverview(ctx context.Context, o *domain.CompanyOverview) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO company_overviews
		(symbol, name, description, exchange, currency, country, sector, industry,
		 market_cap, pe_ratio, dividend_yield, beta, high_52w, low_52w)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		strings.ToUpper(o.Symbol), o.Name, o.Description, o.Exchange, o.Currency,
		o.Country, o.Sector, o.Industry, o.MarketCap, o.PERatio,
		o.DividendYield, o.Beta, o.High52Week, o.Low52Week,
	)
	return err
}

// GetOverview retrieves the overview for a symbol.
func (s *SQLiteStore) GetOverview(ctx context.Context, symbol string) (*domain.CompanyOverview, error) {
	var o domain.CompanyOverview
	err := s.db.QueryRowContext(ctx, `SELECT symbol, name, description, exchange,
		currency, country, sector, industry, market_cap, pe_ratio, dividend_yield,
		beta, high_52w, low_52w
		FROM company_overviews WHERE symbol = ?`, strings.ToUpper(symbol),
	).Scan(&o.Symbol, &o.Name, &o.Description, &o.Exchange, &o.Currency,
		&o.Country, &o.Sector, &o.Industry, &o.MarketCap, &o.PERatio,
		&o.DividendYield, &o.Beta, &o.High52Week, &o.Low52Week)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
