// Package risk builds the trade context the decision engine reads and
// enforces the caller-side gates the engine is deliberately agnostic to:
// the post-trade cooldown and equity peak tracking.
//
// The split keeps strategy.Decide a pure function — everything time- or
// history-dependent is resolved here first and handed in as plain values.
package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradingbotv1/internal/model"
	"tradingbotv1/internal/strategy"
)

// Evaluator answers the history questions the strategy's risk-pause gates
// and the cooldown need, reading from the trade journal.
type Evaluator struct {
	journal model.TradeJournal
	cfg     strategy.Config

	mu         sync.Mutex
	peakEquity float64
}

// NewEvaluator creates an evaluator over the given journal.
func NewEvaluator(journal model.TradeJournal, cfg strategy.Config) *Evaluator {
	return &Evaluator{journal: journal, cfg: cfg}
}

// BuildContext assembles the TradeContext for one Decide call: last trade,
// today's trade count, and the running loss streak for the symbol.
func (e *Evaluator) BuildContext(ctx context.Context, symbol string, account *model.AccountInfo, now time.Time) (strategy.TradeContext, error) {
	last, err := e.journal.LastTrade(ctx, symbol)
	if err != nil {
		return strategy.TradeContext{}, fmt.Errorf("risk: last trade: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tradesToday, err := e.journal.TradesSince(ctx, symbol, dayStart)
	if err != nil {
		return strategy.TradeContext{}, fmt.Errorf("risk: trades today: %w", err)
	}

	losses, err := e.journal.ConsecutiveLosses(ctx, symbol)
	if err != nil {
		return strategy.TradeContext{}, fmt.Errorf("risk: loss streak: %w", err)
	}

	if account != nil && account.PeakEquity <= 0 {
		account.PeakEquity = e.TrackEquity(account.Equity)
	} else if account != nil {
		e.TrackEquity(account.PeakEquity)
	}

	return strategy.TradeContext{
		LastTrade:         last,
		Account:           account,
		ConsecutiveLosses: losses,
		TradesToday:       tradesToday,
	}, nil
}

// CooldownActive reports whether the configured cooldown since the last
// trade is still running, and how much of it remains.
func (e *Evaluator) CooldownActive(now time.Time, last *model.TradeRecord) (time.Duration, bool) {
	if last == nil || e.cfg.CooldownMinutes <= 0 {
		return 0, false
	}
	cooldown := time.Duration(e.cfg.CooldownMinutes) * time.Minute
	elapsed := now.Sub(last.FilledAt)
	if elapsed >= cooldown {
		return 0, false
	}
	return cooldown - elapsed, true
}

// TrackEquity ratchets the in-memory equity peak and returns it. Used when
// the broker account snapshot carries no peak of its own.
func (e *Evaluator) TrackEquity(equity float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if equity > e.peakEquity {
		e.peakEquity = equity
	}
	return e.peakEquity
}
