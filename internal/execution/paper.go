package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tradingbotv1/internal/strategy"
)

// PaperExecutor simulates order execution without real broker calls.
// Useful for dry runs and strategy shakedown before going live.
type PaperExecutor struct {
	mu       sync.RWMutex
	fills    []Fill
	orderSeq int64

	// Simulation parameters
	slippageBps float64 // basis points of slippage (e.g., 5 = 0.05%)
}

// NewPaperExecutor creates a paper trading executor.
// slippageBps controls simulated slippage in basis points.
func NewPaperExecutor(slippageBps float64) *PaperExecutor {
	return &PaperExecutor{
		fills:       make([]Fill, 0, 1000),
		slippageBps: slippageBps,
	}
}

// Fills returns a snapshot of all simulated fills.
func (p *PaperExecutor) Fills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// Execute fills the decision immediately at refPrice adjusted for slippage:
// buys fill higher, sells fill lower.
func (p *PaperExecutor) Execute(ctx context.Context, symbol string, d strategy.Decision, refPrice float64) (*Fill, error) {
	if d.Action == strategy.ActionHold {
		return nil, fmt.Errorf("paper: nothing to execute for HOLD")
	}
	if d.Qty <= 0 || refPrice <= 0 {
		return nil, fmt.Errorf("paper: invalid order qty=%.6f price=%.4f", d.Qty, refPrice)
	}

	slippage := refPrice * p.slippageBps / 10000
	fillPrice := refPrice
	if d.Action == strategy.ActionBuy {
		fillPrice += slippage // buy higher
	} else {
		fillPrice -= slippage // sell lower
	}

	p.mu.Lock()
	p.orderSeq++
	fill := Fill{
		OrderID:  fmt.Sprintf("PAPER-%d", p.orderSeq),
		Symbol:   symbol,
		Side:     string(d.Action),
		Qty:      d.Qty,
		Price:    fillPrice,
		Slippage: slippage,
		FilledAt: time.Now().UTC(),
	}
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	log.Printf("[paper] %s %s qty=%.4f price=%.4f (slip=%.4f) order=%s",
		d.Action, symbol, fill.Qty, fill.Price, slippage, fill.OrderID)
	return &fill, nil
}
