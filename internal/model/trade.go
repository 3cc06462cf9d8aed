package model

import "time"

// TradeRecord represents a completed (filled) trade persisted in the journal.
type TradeRecord struct {
	ID          int64     `json:"id"`
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"` // BUY or SELL
	Qty         float64   `json:"qty"`
	Price       float64   `json:"price"`
	RealizedPnL float64   `json:"realized_pnl"` // nonzero only on SELL
	Reason      string    `json:"reason"`
	FilledAt    time.Time `json:"filled_at"`
}

// IsLoss reports whether this trade closed at a realized loss.
func (t *TradeRecord) IsLoss() bool {
	return t.Side == "SELL" && t.RealizedPnL < 0
}

// AccountInfo is a snapshot of broker account state used for risk gating.
type AccountInfo struct {
	Equity      float64   `json:"equity"`
	Cash        float64   `json:"cash"`
	PeakEquity  float64   `json:"peak_equity"`
	BuyingPower float64   `json:"buying_power"`
	AsOf        time.Time `json:"as_of"`
}

// DrawdownPercent returns the current drawdown from peak equity (0-100).
func (a *AccountInfo) DrawdownPercent() float64 {
	if a == nil || a.PeakEquity <= 0 {
		return 0
	}
	dd := (a.PeakEquity - a.Equity) / a.PeakEquity * 100
	if dd < 0 {
		return 0
	}
	return dd
}
