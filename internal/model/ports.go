package model

import (
	"context"
	"time"
)

// ── Collaborator Port Interfaces ──
// These interfaces decouple the decision pipeline from concrete adapters
// (broker REST client, Redis cache, SQLite store). Each implementation
// satisfies one or more of these ports.

// BarProvider supplies the daily bar history for a symbol, date-ascending
// and deduplicated.
type BarProvider interface {
	// DailyBars returns up to limit most recent daily bars, oldest first.
	DailyBars(ctx context.Context, symbol string, limit int) ([]PriceBar, error)
}

// QuoteProvider supplies the most recent live quote for a symbol.
type QuoteProvider interface {
	LatestQuote(ctx context.Context, symbol string) (*Quote, error)
}

// PositionStore reads and mutates persisted positions. Mutation happens
// only through ApplyFill and UpdateHighWaterMark; the decision engine
// never writes positions.
type PositionStore interface {
	// GetPosition returns the current position, or nil if flat.
	GetPosition(ctx context.Context, symbol string) (*Position, error)

	// ApplyFill folds a fill into the position: weighted-average cost on
	// BUY, proportional reduction on SELL. Returns the updated position
	// (nil when the position closed) and the realized P&L for sells.
	ApplyFill(ctx context.Context, symbol, side string, qty, price float64) (*Position, float64, error)

	// UpdateHighWaterMark ratchets the high-water mark up to price if it
	// exceeds the stored value. No-op when flat.
	UpdateHighWaterMark(ctx context.Context, symbol string, price float64) error
}

// TradeJournal persists filled trades and answers the history queries the
// risk gates need.
type TradeJournal interface {
	RecordTrade(ctx context.Context, trade TradeRecord) error
	LastTrade(ctx context.Context, symbol string) (*TradeRecord, error)
	TradesSince(ctx context.Context, symbol string, since time.Time) (int, error)
	ConsecutiveLosses(ctx context.Context, symbol string) (int, error)
}

// OrderPlacer submits orders to the broker (or a paper simulator).
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order Order) (*Order, error)
}
