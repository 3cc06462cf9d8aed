package strategy

import (
	"fmt"
	"strings"

	"tradingbotv1/internal/indicator"
	"tradingbotv1/internal/model"
)

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Urgency ranks how quickly the caller should act on a decision.
type Urgency string

const (
	UrgencyLow       Urgency = "LOW"
	UrgencyMedium    Urgency = "MEDIUM"
	UrgencyHigh      Urgency = "HIGH"
	UrgencyImmediate Urgency = "IMMEDIATE"
	UrgencyCritical  Urgency = "CRITICAL"
)

// Decision is the engine's output: what to do, how much, how sure, how
// fast, and why. It is a pure value — nothing persists it here.
type Decision struct {
	Action     Action   `json:"action"`
	Qty        float64  `json:"qty"`
	Confidence float64  `json:"confidence"` // [0,1]
	Urgency    Urgency  `json:"urgency"`
	Reasoning  []string `json:"reasoning"` // ordered justification strings
}

// String renders a one-line summary for logs.
func (d Decision) String() string {
	return fmt.Sprintf("%s qty=%.4f conf=%.2f urgency=%s: %s",
		d.Action, d.Qty, d.Confidence, d.Urgency, strings.Join(d.Reasoning, "; "))
}

// MarketSnapshot merges the indicator snapshot with the live quote state
// the caller fetched for this evaluation.
type MarketSnapshot struct {
	indicator.Snapshot

	CurrentPrice float64 `json:"current_price"`
	Volume       int64   `json:"volume"`
}

// TradeContext carries the recent-history aggregates the FLAT-state risk
// pre-checks read. The caller (internal/risk) builds it from the trade
// journal and broker account; nil fields mean "unknown" and the related
// gate is skipped.
type TradeContext struct {
	LastTrade         *model.TradeRecord `json:"last_trade,omitempty"`
	Account           *model.AccountInfo `json:"account,omitempty"`
	ConsecutiveLosses int                `json:"consecutive_losses"`
	TradesToday       int                `json:"trades_today"`
}
