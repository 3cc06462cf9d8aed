package strategy

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"tradingbotv1/internal/indicator"
	"tradingbotv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func fp(v float64) *float64 { return &v }

func assertAction(t *testing.T, d Decision, want Action) {
	t.Helper()
	if d.Action != want {
		t.Fatalf("action = %s, want %s (reasoning: %v)", d.Action, want, d.Reasoning)
	}
}

func assertConfidence(t *testing.T, d Decision, want, tol float64) {
	t.Helper()
	if math.Abs(d.Confidence-want) > tol {
		t.Errorf("confidence = %.3f, want %.3f", d.Confidence, want)
	}
}

// neutralSnapshot is a market with nothing going on: RSI mid-band, price
// pinned to the SMA, no signals, adequate volume.
func neutralSnapshot(cfg Config) MarketSnapshot {
	return MarketSnapshot{
		Snapshot: indicator.Snapshot{
			SMA20:      fp(100),
			SMA50:      fp(100),
			RSI14:      fp(55),
			Trend:      indicator.TrendNeutral,
			Volatility: 0.02,
		},
		CurrentPrice: 100,
		Volume:       cfg.MinVolumeThreshold,
	}
}

// strongBuySnapshot maxes out every entry sub-score.
func strongBuySnapshot(cfg Config) MarketSnapshot {
	return MarketSnapshot{
		Snapshot: indicator.Snapshot{
			SMA20: fp(100),
			SMA50: fp(98),
			RSI14: fp(18),
			MACD:  &indicator.MACDValue{Line: 1.2, Signal: 0.8, Histogram: 0.4},
			Trend: indicator.TrendUp,
			Signals: []indicator.Signal{
				indicator.SignalRSIOversold,
				indicator.SignalSMABullish,
				indicator.SignalMACDBullish,
			},
			Volatility: 0.02,
		},
		CurrentPrice: 95,
		Volume:       cfg.MinVolumeThreshold*2 + 1,
	}
}

// strongSellSnapshot maxes out the bearish sub-scores.
func strongSellSnapshot(cfg Config) MarketSnapshot {
	return MarketSnapshot{
		Snapshot: indicator.Snapshot{
			SMA20: fp(100),
			SMA50: fp(103),
			RSI14: fp(85),
			MACD:  &indicator.MACDValue{Line: -1.1, Signal: -0.6, Histogram: -0.5},
			Trend: indicator.TrendDown,
			Signals: []indicator.Signal{
				indicator.SignalRSIOverbought,
				indicator.SignalSMABearish,
				indicator.SignalMACDBearish,
			},
			Volatility: 0.02,
		},
		CurrentPrice: 103,
		Volume:       cfg.MinVolumeThreshold * 3,
	}
}

// ────────────────────────────────────────────────────────────
// HOLDING state: priority-ordered exits
// ────────────────────────────────────────────────────────────

func TestDecide_StopLoss(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopLossPercent = 2.5
	eng := NewEngine(cfg)

	pos := &model.Position{Symbol: "AAPL", Qty: 1, AvgPrice: 100, HighWaterMark: 100}
	snap := neutralSnapshot(cfg)
	snap.CurrentPrice = 97.5 // P&L = -2.5%

	d := eng.Decide(snap, pos, TradeContext{})
	assertAction(t, d, ActionSell)
	if d.Qty != 1 {
		t.Errorf("qty = %.4f, want full position 1", d.Qty)
	}
	if d.Urgency != UrgencyImmediate {
		t.Errorf("urgency = %s, want IMMEDIATE", d.Urgency)
	}
	assertConfidence(t, d, 0.98, 0.001)
}

func TestDecide_TakeProfit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProfitTargetPercent = 4.0
	eng := NewEngine(cfg)

	pos := &model.Position{Symbol: "AAPL", Qty: 1, AvgPrice: 100, HighWaterMark: 104}
	snap := neutralSnapshot(cfg)
	snap.CurrentPrice = 104 // P&L = +4%

	d := eng.Decide(snap, pos, TradeContext{})
	assertAction(t, d, ActionSell)
	if d.Urgency != UrgencyHigh {
		t.Errorf("urgency = %s, want HIGH", d.Urgency)
	}
	assertConfidence(t, d, 0.95, 0.001)
}

func TestDecide_TrailingStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrailingStopPercent = 1.5
	cfg.ProfitTargetPercent = 20 // keep take-profit out of the way
	eng := NewEngine(cfg)

	// HWM 110 → trail level 108.35, well above breakeven at 100.
	pos := &model.Position{Symbol: "AAPL", Qty: 2, AvgPrice: 100, HighWaterMark: 110}
	snap := neutralSnapshot(cfg)
	snap.CurrentPrice = 108

	d := eng.Decide(snap, pos, TradeContext{})
	assertAction(t, d, ActionSell)
	if d.Qty != 2 {
		t.Errorf("qty = %.4f, want full position 2", d.Qty)
	}
	if d.Urgency != UrgencyHigh {
		t.Errorf("urgency = %s, want HIGH", d.Urgency)
	}
}

func TestDecide_TrailingStop_BreakevenGuard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrailingStopPercent = 1.5
	eng := NewEngine(cfg)

	// Barely profitable at the high: trail level 100.5*(1-0.015) = 98.99
	// sits below breakeven, so the trailing stop must not fire.
	pos := &model.Position{Symbol: "AAPL", Qty: 1, AvgPrice: 100, HighWaterMark: 100.5}
	snap := neutralSnapshot(cfg)
	snap.CurrentPrice = 98.99 // P&L -1.01%, above the -2.5% stop

	d := eng.Decide(snap, pos, TradeContext{})
	assertAction(t, d, ActionHold)
}

func TestDecide_TechnicalSell(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	pos := &model.Position{Symbol: "AAPL", Qty: 1, AvgPrice: 102, HighWaterMark: 102}
	snap := strongSellSnapshot(cfg) // price 103 → P&L ≈ +0.98%

	d := eng.Decide(snap, pos, TradeContext{})
	assertAction(t, d, ActionSell)
	if d.Urgency != UrgencyMedium {
		t.Errorf("urgency = %s, want MEDIUM", d.Urgency)
	}
}

func TestDecide_TechnicalSell_SmallLossBandDefers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopLossPercent = 2.5
	eng := NewEngine(cfg)

	// P&L = -1.5%: inside the small-loss band (beyond half the stop) but
	// not yet at the stop. Technical sell must stand down.
	pos := &model.Position{Symbol: "AAPL", Qty: 1, AvgPrice: 104.57, HighWaterMark: 104.57}
	snap := strongSellSnapshot(cfg)
	snap.CurrentPrice = 103

	d := eng.Decide(snap, pos, TradeContext{})
	assertAction(t, d, ActionHold)
	assertConfidence(t, d, 0.6, 0.001)
}

func TestDecide_Holding_DefaultReportsDistances(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	pos := &model.Position{Symbol: "AAPL", Qty: 1, AvgPrice: 100, HighWaterMark: 100}
	snap := neutralSnapshot(cfg)
	snap.CurrentPrice = 101

	d := eng.Decide(snap, pos, TradeContext{})
	assertAction(t, d, ActionHold)
	assertConfidence(t, d, 0.6, 0.001)
	joined := strings.Join(d.Reasoning, " | ")
	for _, want := range []string{"stop loss", "profit target", "sell score"} {
		if !strings.Contains(joined, want) {
			t.Errorf("reasoning missing %q: %s", want, joined)
		}
	}
}

// ────────────────────────────────────────────────────────────
// FLAT state: gates and entry scoring
// ────────────────────────────────────────────────────────────

func TestDecide_Flat_LowScoreHolds(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	d := eng.Decide(neutralSnapshot(cfg), nil, TradeContext{})
	assertAction(t, d, ActionHold)
	assertConfidence(t, d, 0.3, 0.001)
	if !strings.Contains(strings.Join(d.Reasoning, " "), "below entry threshold") {
		t.Errorf("reasoning should explain the shortfall: %v", d.Reasoning)
	}
}

func TestDecide_Flat_StrongScoreBuys(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	d := eng.Decide(strongBuySnapshot(cfg), nil, TradeContext{})
	assertAction(t, d, ActionBuy)
	if d.Qty <= 0 {
		t.Errorf("qty = %.4f, want positive", d.Qty)
	}
	if d.Urgency != UrgencyHigh {
		t.Errorf("urgency = %s, want HIGH for score >= 9", d.Urgency)
	}
	if d.Confidence > 0.95 {
		t.Errorf("confidence = %.3f, must be capped at 0.95", d.Confidence)
	}
}

func TestDecide_Flat_VolumeGate(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	snap := strongBuySnapshot(cfg)
	snap.Volume = cfg.MinVolumeThreshold - 1

	d := eng.Decide(snap, nil, TradeContext{})
	assertAction(t, d, ActionHold)
	assertConfidence(t, d, 0, 0.001)
}

func TestDecide_Flat_RiskPause(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)
	snap := strongBuySnapshot(cfg)

	tests := []struct {
		name string
		tctx TradeContext
	}{
		{"consecutive losses", TradeContext{ConsecutiveLosses: cfg.MaxConsecutiveLosses}},
		{"daily trade limit", TradeContext{TradesToday: cfg.MaxDailyTrades}},
		{"drawdown", TradeContext{Account: &model.AccountInfo{Equity: 85000, PeakEquity: 100000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := eng.Decide(snap, nil, tt.tctx)
			assertAction(t, d, ActionHold)
			assertConfidence(t, d, 0, 0.001)
			if d.Urgency != UrgencyCritical {
				t.Errorf("urgency = %s, want CRITICAL", d.Urgency)
			}
		})
	}
}

func TestDecide_GhostPositionTreatedAsFlat(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	// qty 0.0001 at $50 → value $0.005, far under the $10 minimum.
	ghost := &model.Position{Symbol: "AAPL", Qty: 0.0001, AvgPrice: 50, HighWaterMark: 50}
	snap := neutralSnapshot(cfg)
	snap.CurrentPrice = 50

	d := eng.Decide(snap, ghost, TradeContext{})
	assertAction(t, d, ActionHold)
	// Flat-path confidence, not the holding default 0.6.
	assertConfidence(t, d, 0.3, 0.001)
	if !strings.Contains(strings.Join(d.Reasoning, " "), "treating as flat") {
		t.Errorf("reasoning should flag the ghost position: %v", d.Reasoning)
	}
}

func TestDecide_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	pos := &model.Position{Symbol: "AAPL", Qty: 1.5, AvgPrice: 100, HighWaterMark: 103}
	snap := neutralSnapshot(cfg)
	snap.CurrentPrice = 101.7
	tctx := TradeContext{TradesToday: 1}

	first := eng.Decide(snap, pos, tctx)
	second := eng.Decide(snap, pos, tctx)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("decisions differ across identical calls:\n  first:  %+v\n  second: %+v", first, second)
	}
}

func TestDecide_NilIndicatorsSkipSubScores(t *testing.T) {
	cfg := DefaultConfig()
	eng := NewEngine(cfg)

	// Only 15 bars of history: SMA20/MACD absent. The engine must score
	// what it has, never fabricate the rest.
	snap := MarketSnapshot{
		Snapshot: indicator.Snapshot{
			RSI14:      fp(22),
			Trend:      indicator.TrendNeutral,
			Volatility: 0.02,
		},
		CurrentPrice: 100,
		Volume:       cfg.MinVolumeThreshold * 3,
	}

	d := eng.Decide(snap, nil, TradeContext{})
	// RSI depth 2 + trend 1 + volume 1 = 4 → hold.
	assertAction(t, d, ActionHold)
	assertConfidence(t, d, 0.3, 0.001)
}
