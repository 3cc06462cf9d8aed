package model

import "time"

// Quote is a live market quote for a single instrument.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Volume int64     `json:"volume"` // cumulative session volume
	TS     time.Time `json:"ts"`
}
