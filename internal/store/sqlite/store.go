// Package sqlite persists positions and the trade journal in SQLite.
//
// This is the storage collaborator that owns all position mutation:
// weighted-average cost on BUY, proportional reduction with realized P&L
// on SELL, and the high-water-mark ratchet. The decision engine only ever
// reads the snapshots this package hands out.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"tradingbotv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the store.
type Config struct {
	DBPath string // path to the SQLite file, e.g. "data/tradingbot.db"

	// Close-out thresholds: after a SELL, a remainder below either bound
	// is flushed so dust never lingers as a ghost position.
	MinPositionQuantity float64
	MinPositionValue    float64
}

// Store implements model.PositionStore and model.TradeJournal over SQLite.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	cfg Config
}

// New opens (or creates) the database with WAL mode and the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps SQLite happy under WAL.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened store at %s", cfg.DBPath)
	return &Store{db: db, cfg: cfg}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			symbol          TEXT PRIMARY KEY,
			qty             REAL NOT NULL,
			avg_price       REAL NOT NULL,
			high_water_mark REAL NOT NULL,
			last_updated    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id     TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			side         TEXT NOT NULL,
			qty          REAL NOT NULL,
			price        REAL NOT NULL,
			realized_pnl REAL DEFAULT 0,
			reason       TEXT,
			filled_at    INTEGER NOT NULL,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, filled_at);
	`)
	return err
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// ── PositionStore ──

// GetPosition returns the current position for symbol, or nil when flat.
func (s *Store) GetPosition(ctx context.Context, symbol string) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPositionLocked(ctx, symbol)
}

func (s *Store) getPositionLocked(ctx context.Context, symbol string) (*model.Position, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT symbol, qty, avg_price, high_water_mark, last_updated FROM positions WHERE symbol = ?`, symbol)

	var pos model.Position
	var updated int64
	err := row.Scan(&pos.Symbol, &pos.Qty, &pos.AvgPrice, &pos.HighWaterMark, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get position: %w", err)
	}
	pos.LastUpdated = time.Unix(updated, 0).UTC()
	return &pos, nil
}

// ApplyFill folds a fill into the position. BUYs blend the entry price by
// weighted average and reset the high-water mark no lower than the fill;
// SELLs reduce quantity, realize P&L against the average price, and close
// the row outright when the remainder is dust.
func (s *Store) ApplyFill(ctx context.Context, symbol, side string, qty, price float64) (*model.Position, float64, error) {
	if qty <= 0 || price <= 0 {
		return nil, 0, fmt.Errorf("sqlite apply fill: qty and price must be positive (qty=%.6f price=%.4f)", qty, price)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, err := s.getPositionLocked(ctx, symbol)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now().UTC()

	switch side {
	case "BUY":
		if pos == nil {
			pos = &model.Position{
				Symbol:        symbol,
				Qty:           qty,
				AvgPrice:      price,
				HighWaterMark: price,
			}
		} else {
			totalCost := pos.AvgPrice*pos.Qty + price*qty
			pos.Qty += qty
			pos.AvgPrice = totalCost / pos.Qty
			if price > pos.HighWaterMark {
				pos.HighWaterMark = price
			}
		}
		pos.LastUpdated = now

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO positions (symbol, qty, avg_price, high_water_mark, last_updated)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(symbol) DO UPDATE SET
				qty = excluded.qty,
				avg_price = excluded.avg_price,
				high_water_mark = excluded.high_water_mark,
				last_updated = excluded.last_updated`,
			pos.Symbol, pos.Qty, pos.AvgPrice, pos.HighWaterMark, now.Unix())
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite upsert position: %w", err)
		}
		return pos, 0, nil

	case "SELL":
		if pos == nil {
			return nil, 0, fmt.Errorf("sqlite apply fill: no position to sell for %s", symbol)
		}
		sellQty := qty
		if sellQty > pos.Qty {
			sellQty = pos.Qty
		}
		realized := (price - pos.AvgPrice) * sellQty
		pos.Qty -= sellQty
		pos.LastUpdated = now

		// Flush dust remainders so a closed trade never leaves a ghost.
		if pos.Qty < s.cfg.MinPositionQuantity || pos.Qty*price < s.cfg.MinPositionValue {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, symbol); err != nil {
				return nil, 0, fmt.Errorf("sqlite close position: %w", err)
			}
			return nil, realized, nil
		}

		_, err = s.db.ExecContext(ctx,
			`UPDATE positions SET qty = ?, last_updated = ? WHERE symbol = ?`,
			pos.Qty, now.Unix(), symbol)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite reduce position: %w", err)
		}
		return pos, realized, nil

	default:
		return nil, 0, fmt.Errorf("sqlite apply fill: unknown side %q", side)
	}
}

// UpdateHighWaterMark ratchets the stored high-water mark up to price.
// No-op when flat or when price does not exceed the current mark.
func (s *Store) UpdateHighWaterMark(ctx context.Context, symbol string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE positions SET high_water_mark = ?, last_updated = ? WHERE symbol = ? AND high_water_mark < ?`,
		price, time.Now().UTC().Unix(), symbol, price)
	if err != nil {
		return fmt.Errorf("sqlite update high water mark: %w", err)
	}
	return nil
}

// ── TradeJournal ──

// RecordTrade appends a filled trade to the journal.
func (s *Store) RecordTrade(ctx context.Context, trade model.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (order_id, symbol, side, qty, price, realized_pnl, reason, filled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.OrderID, trade.Symbol, trade.Side, trade.Qty, trade.Price,
		trade.RealizedPnL, trade.Reason, trade.FilledAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("sqlite record trade: %w", err)
	}
	return nil
}

// LastTrade returns the most recent trade for symbol, or nil.
func (s *Store) LastTrade(ctx context.Context, symbol string) (*model.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, symbol, side, qty, price, realized_pnl, reason, filled_at
		FROM trades WHERE symbol = ? ORDER BY id DESC LIMIT 1`, symbol)

	trade, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite last trade: %w", err)
	}
	return trade, nil
}

// TradesSince counts trades for symbol filled at or after since.
func (s *Store) TradesSince(ctx context.Context, symbol string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE symbol = ? AND filled_at >= ?`,
		symbol, since.UTC().Unix()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite trades since: %w", err)
	}
	return n, nil
}

// ConsecutiveLosses counts the losing SELLs at the tail of the journal,
// stopping at the first non-losing close.
func (s *Store) ConsecutiveLosses(ctx context.Context, symbol string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT realized_pnl FROM trades
		WHERE symbol = ? AND side = 'SELL' ORDER BY id DESC LIMIT 50`, symbol)
	if err != nil {
		return 0, fmt.Errorf("sqlite loss streak: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var pnl float64
		if err := rows.Scan(&pnl); err != nil {
			return 0, fmt.Errorf("sqlite loss streak scan: %w", err)
		}
		if pnl >= 0 {
			break
		}
		n++
	}
	return n, rows.Err()
}

// RecentTrades returns the last limit trades, newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, symbol, side, qty, price, realized_pnl, reason, filled_at
		FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite recent trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite recent trades scan: %w", err)
		}
		trades = append(trades, *trade)
	}
	return trades, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(row scanner) (*model.TradeRecord, error) {
	var t model.TradeRecord
	var filledAt int64
	err := row.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Side, &t.Qty, &t.Price,
		&t.RealizedPnL, &t.Reason, &filledAt)
	if err != nil {
		return nil, err
	}
	t.FilledAt = time.Unix(filledAt, 0).UTC()
	return &t, nil
}
