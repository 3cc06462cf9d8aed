package model

import "time"

// Position represents a tracked trading position for one symbol.
//
// The position store owns all mutation (weighted-average cost on BUY,
// proportional reduction on SELL, high-water-mark ratchet). Everything
// else treats a Position as a read-only snapshot.
type Position struct {
	Symbol        string    `json:"symbol"`
	Qty           float64   `json:"qty"`             // fractional units, >= 0
	AvgPrice      float64   `json:"avg_price"`       // weighted-average entry price
	HighWaterMark float64   `json:"high_water_mark"` // highest price seen since entry
	LastUpdated   time.Time `json:"last_updated"`
}

// Value returns the position's market value at the given price.
func (p *Position) Value(price float64) float64 {
	return p.Qty * price
}

// UnrealizedPnLPercent returns the signed unrealized P&L as a percentage
// of the average entry price (negative = loss). Returns 0 when the
// position has no valid entry price.
func (p *Position) UnrealizedPnLPercent(price float64) float64 {
	if p.AvgPrice <= 0 {
		return 0
	}
	return (price - p.AvgPrice) / p.AvgPrice * 100
}

// IsGhost reports whether the position is economically meaningless at the
// given price: quantity under minQty or market value under minValue.
// Ghost positions are treated as flat by the decision engine.
func (p *Position) IsGhost(price, minQty, minValue float64) bool {
	if p == nil {
		return true
	}
	return p.Qty < minQty || p.Value(price) < minValue
}
