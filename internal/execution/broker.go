package execution

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradingbotv1/internal/model"
	"tradingbotv1/internal/strategy"
)

// BrokerExecutor places real market orders through the broker API.
type BrokerExecutor struct {
	placer model.OrderPlacer
}

// NewBrokerExecutor creates an executor over the broker order endpoint.
func NewBrokerExecutor(placer model.OrderPlacer) *BrokerExecutor {
	return &BrokerExecutor{placer: placer}
}

// Execute submits a day market order. The broker may report a fill price on
// the order response; when it doesn't, refPrice stands in until the next
// account sync.
func (b *BrokerExecutor) Execute(ctx context.Context, symbol string, d strategy.Decision, refPrice float64) (*Fill, error) {
	if d.Action == strategy.ActionHold {
		return nil, fmt.Errorf("broker: nothing to execute for HOLD")
	}
	if d.Qty <= 0 {
		return nil, fmt.Errorf("broker: invalid order qty=%.6f", d.Qty)
	}

	order := model.Order{
		Symbol:      symbol,
		Side:        string(d.Action),
		OrderType:   "MARKET",
		TimeInForce: "DAY",
		Qty:         d.Qty,
	}
	placed, err := b.placer.PlaceOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("broker: place order: %w", err)
	}

	fillPrice := placed.FillPrice
	if fillPrice <= 0 {
		fillPrice = refPrice
	}
	fill := &Fill{
		OrderID:  placed.OrderID,
		Symbol:   symbol,
		Side:     string(d.Action),
		Qty:      d.Qty,
		Price:    fillPrice,
		FilledAt: time.Now().UTC(),
	}

	log.Printf("[broker] %s %s qty=%.4f order=%s status=%s",
		d.Action, symbol, d.Qty, placed.OrderID, placed.Status)
	return fill, nil
}
