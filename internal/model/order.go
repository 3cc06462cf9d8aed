package model

import "time"

// Order represents a broker order request/state.
type Order struct {
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`          // BUY, SELL
	OrderType   string    `json:"order_type"`    // MARKET, LIMIT
	TimeInForce string    `json:"time_in_force"` // DAY, GTC, IOC
	Qty         float64   `json:"qty"`
	LimitPrice  float64   `json:"limit_price"` // 0 for market orders
	Status      string    `json:"status"`      // PLACED, FILLED, REJECTED, CANCELLED
	FilledQty   float64   `json:"filled_qty"`
	FillPrice   float64   `json:"fill_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
