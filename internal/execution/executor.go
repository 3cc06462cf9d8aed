// Package execution turns BUY/SELL decisions into fills, either simulated
// (paper) or through the broker API. The executor owns nothing downstream:
// the bot applies fills to the position store and journal.
package execution

import (
	"context"
	"time"

	"tradingbotv1/internal/strategy"
)

// Fill is the outcome of one executed decision.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	Slippage float64   `json:"slippage"` // absolute price concession
	FilledAt time.Time `json:"filled_at"`
}

// Executor executes a BUY or SELL decision at (or near) refPrice.
// HOLD decisions never reach an executor.
type Executor interface {
	Execute(ctx context.Context, symbol string, d strategy.Decision, refPrice float64) (*Fill, error)
}
