// Package notification delivers trading-event alerts to external channels
// (Telegram, webhooks) and the log.
package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradingbotv1/internal/execution"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Symbol  string     `json:"symbol,omitempty"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s %s: %s", alert.Level, alert.Symbol, alert.Title, alert.Message)
	return nil
}

// MultiNotifier fans one alert out to several backends. Delivery failures
// are logged, not returned; a dead Telegram token never stops trading.
type MultiNotifier struct {
	backends []Notifier
}

// NewMultiNotifier creates a fan-out notifier.
func NewMultiNotifier(backends ...Notifier) *MultiNotifier {
	return &MultiNotifier{backends: backends}
}

func (m *MultiNotifier) Send(ctx context.Context, alert Alert) error {
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			log.Printf("[notify] delivery failed: %v", err)
		}
	}
	return nil
}

// ── alert builders ──

// TradeExecuted builds the alert for a completed fill.
func TradeExecuted(fill execution.Fill, realizedPnL float64, reason string) Alert {
	level := AlertInfo
	msg := fmt.Sprintf("%s %.4f @ %.4f (order %s)", fill.Side, fill.Qty, fill.Price, fill.OrderID)
	if fill.Side == "SELL" {
		msg += fmt.Sprintf(", realized P&L %.2f", realizedPnL)
		if realizedPnL < 0 {
			level = AlertWarning
		}
	}
	if reason != "" {
		msg += " (" + reason + ")"
	}
	return Alert{Level: level, Symbol: fill.Symbol, Title: "Trade executed", Message: msg}
}

// RiskPaused builds the alert raised when a risk gate halts new entries.
func RiskPaused(symbol, gate string) Alert {
	return Alert{
		Level:   AlertCritical,
		Symbol:  symbol,
		Title:   "Trading paused",
		Message: "risk gate tripped: " + gate,
	}
}

// CycleError builds the alert for a failed evaluation cycle.
func CycleError(symbol string, err error) Alert {
	return Alert{
		Level:   AlertWarning,
		Symbol:  symbol,
		Title:   "Evaluation cycle failed",
		Message: err.Error() + " at " + time.Now().UTC().Format(time.RFC3339),
	}
}
