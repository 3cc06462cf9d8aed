package model

import (
	"encoding/json"
	"time"
)

// PriceBar represents one daily OHLCV bar for a single instrument.
// Bars are immutable and ordered chronologically (oldest first).
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"` // trading day (UTC, midnight-aligned)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Key returns a unique key for this bar: "symbol:YYYY-MM-DD".
func (b *PriceBar) Key() string {
	return b.Symbol + ":" + b.Date.Format("2006-01-02")
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *PriceBar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}
