// Package strategy provides the rule-based decision engine.
//
// The engine turns an indicator snapshot, the live quote, the current
// position, and recent trade context into a single Decision: action,
// quantity, confidence, urgency, and an ordered reasoning list. Decide is
// a pure function — no hidden state, no I/O, no logging — so identical
// inputs always yield identical decisions and everything a human needs to
// audit the call is in the returned reasoning.
package strategy

import (
	"fmt"

	"tradingbotv1/internal/model"
)

// Engine evaluates the entry/exit rule set against a market snapshot.
type Engine struct {
	cfg Config
}

// NewEngine creates a decision engine. cfg must already be validated.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's threshold configuration.
func (e *Engine) Config() Config { return e.cfg }

// Decide runs the two-mode state machine: FLAT entry scoring when no valid
// position exists, priority-ordered exit checks while holding. A position
// that fails ghost validation is treated as flat, not as an error.
func (e *Engine) Decide(snap MarketSnapshot, pos *model.Position, tctx TradeContext) Decision {
	if pos != nil && !pos.IsGhost(snap.CurrentPrice, e.cfg.MinPositionQuantity, e.cfg.MinPositionValue) {
		return e.decideHolding(snap, pos)
	}

	var preface []string
	if pos != nil {
		preface = append(preface, fmt.Sprintf(
			"position qty=%.6f value=%.2f below minimums (qty %.4f, value %.2f), treating as flat",
			pos.Qty, pos.Value(snap.CurrentPrice), e.cfg.MinPositionQuantity, e.cfg.MinPositionValue))
	}
	return e.decideFlat(snap, tctx, preface)
}

// decideFlat handles the entry path: gating pre-checks first, then the
// weighted buy score against the entry threshold.
func (e *Engine) decideFlat(snap MarketSnapshot, tctx TradeContext, preface []string) Decision {
	// Volume gate: thin tape means no entry regardless of score.
	if snap.Volume < e.cfg.MinVolumeThreshold {
		return Decision{
			Action:  ActionHold,
			Urgency: UrgencyLow,
			Reasoning: append(preface, fmt.Sprintf(
				"volume %d below minimum threshold %d", snap.Volume, e.cfg.MinVolumeThreshold)),
		}
	}

	// Risk-pause gates from the trade context.
	if reason, paused := e.riskPause(tctx); paused {
		return Decision{
			Action:    ActionHold,
			Urgency:   UrgencyCritical,
			Reasoning: append(preface, reason),
		}
	}

	score, reasons := buyScore(snap, e.cfg)
	if score >= e.cfg.EntryScoreThreshold {
		confidence := score / maxScore
		if confidence > 0.95 {
			confidence = 0.95
		}
		urgency := UrgencyMedium
		if score >= 9 {
			urgency = UrgencyHigh
		}
		reasoning := append(preface, fmt.Sprintf("buy score %.1f/10 at or above entry threshold %.1f", score, e.cfg.EntryScoreThreshold))
		reasoning = append(reasoning, reasons...)
		return Decision{
			Action:     ActionBuy,
			Qty:        positionSize(snap.CurrentPrice, snap.Volatility, e.cfg),
			Confidence: confidence,
			Urgency:    urgency,
			Reasoning:  reasoning,
		}
	}

	reasoning := append(preface, fmt.Sprintf("buy score %.1f/10 below entry threshold %.1f", score, e.cfg.EntryScoreThreshold))
	reasoning = append(reasoning, reasons...)
	return Decision{
		Action:     ActionHold,
		Confidence: 0.3,
		Urgency:    UrgencyLow,
		Reasoning:  reasoning,
	}
}

// riskPause evaluates the consecutive-loss, daily-trade, and drawdown
// gates. First tripped gate wins.
func (e *Engine) riskPause(tctx TradeContext) (string, bool) {
	if tctx.ConsecutiveLosses >= e.cfg.MaxConsecutiveLosses {
		return fmt.Sprintf("risk pause: %d consecutive losses at limit %d",
			tctx.ConsecutiveLosses, e.cfg.MaxConsecutiveLosses), true
	}
	if tctx.TradesToday >= e.cfg.MaxDailyTrades {
		return fmt.Sprintf("risk pause: %d trades today at limit %d",
			tctx.TradesToday, e.cfg.MaxDailyTrades), true
	}
	if dd := tctx.Account.DrawdownPercent(); dd >= e.cfg.MaxDrawdownPercent {
		return fmt.Sprintf("risk pause: drawdown %.1f%% at limit %.1f%%",
			dd, e.cfg.MaxDrawdownPercent), true
	}
	return "", false
}

// decideHolding walks the priority-ordered exits; first match wins.
func (e *Engine) decideHolding(snap MarketSnapshot, pos *model.Position) Decision {
	price := snap.CurrentPrice
	pnl := pos.UnrealizedPnLPercent(price)

	// 1. Stop loss.
	if pnl <= -e.cfg.StopLossPercent {
		return Decision{
			Action:     ActionSell,
			Qty:        pos.Qty,
			Confidence: 0.98,
			Urgency:    UrgencyImmediate,
			Reasoning: []string{fmt.Sprintf(
				"stop loss: P&L %.2f%% at or below -%.2f%% (entry %.2f, price %.2f)",
				pnl, e.cfg.StopLossPercent, pos.AvgPrice, price)},
		}
	}

	// 2. Take profit.
	if pnl >= e.cfg.ProfitTargetPercent {
		return Decision{
			Action:     ActionSell,
			Qty:        pos.Qty,
			Confidence: 0.95,
			Urgency:    UrgencyHigh,
			Reasoning: []string{fmt.Sprintf(
				"take profit: P&L %.2f%% at or above %.2f%% (entry %.2f, price %.2f)",
				pnl, e.cfg.ProfitTargetPercent, pos.AvgPrice, price)},
		}
	}

	// 3. Trailing stop: only once the position has been profitable, and
	// only when the trail level itself sits above breakeven — a trailing
	// exit must not realize a loss the stop-loss band owns.
	if pos.HighWaterMark > pos.AvgPrice {
		trailLevel := pos.HighWaterMark * (1 - e.cfg.TrailingStopPercent/100)
		if price <= trailLevel && trailLevel > pos.AvgPrice {
			return Decision{
				Action:     ActionSell,
				Qty:        pos.Qty,
				Confidence: 0.9,
				Urgency:    UrgencyHigh,
				Reasoning: []string{fmt.Sprintf(
					"trailing stop: price %.2f at or below %.2f (high water %.2f, trail %.2f%%)",
					price, trailLevel, pos.HighWaterMark, e.cfg.TrailingStopPercent)},
			}
		}
	}

	// 4. Technical sell: a strong bearish score, but never inside the
	// small-loss band next to the stop — that region belongs to rule 1.
	score, reasons := sellScore(snap, e.cfg)
	inSmallLossBand := pnl < 0 && pnl <= -e.cfg.StopLossPercent/2
	if score >= e.cfg.ExitScoreThreshold && !inSmallLossBand {
		confidence := score / maxScore
		if confidence > 0.9 {
			confidence = 0.9
		}
		reasoning := []string{fmt.Sprintf(
			"technical sell: score %.1f/10 at or above exit threshold %.1f (P&L %.2f%%)",
			score, e.cfg.ExitScoreThreshold, pnl)}
		reasoning = append(reasoning, reasons...)
		return Decision{
			Action:     ActionSell,
			Qty:        pos.Qty,
			Confidence: confidence,
			Urgency:    UrgencyMedium,
			Reasoning:  reasoning,
		}
	}

	// 5. Default: hold, reporting the distance to every exit.
	return Decision{
		Action:     ActionHold,
		Confidence: 0.6,
		Urgency:    UrgencyLow,
		Reasoning: []string{
			fmt.Sprintf("holding: P&L %.2f%%", pnl),
			fmt.Sprintf("%.2f%% above stop loss at -%.2f%%", pnl+e.cfg.StopLossPercent, e.cfg.StopLossPercent),
			fmt.Sprintf("%.2f%% below profit target at %.2f%%", e.cfg.ProfitTargetPercent-pnl, e.cfg.ProfitTargetPercent),
			fmt.Sprintf("sell score %.1f/10 below exit threshold %.1f", score, e.cfg.ExitScoreThreshold),
		},
	}
}
