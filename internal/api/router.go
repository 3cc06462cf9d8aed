// Package api exposes the bot's read-only status over HTTP: health, current
// position, recent trades, and the latest decision. JSON only, no mutation
// endpoints — orders flow exclusively through the evaluation loop.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"tradingbotv1/internal/markethours"
	"tradingbotv1/internal/model"
	"tradingbotv1/internal/strategy"
)

// PositionReader reads the current position (the SQLite store).
type PositionReader interface {
	GetPosition(ctx context.Context, symbol string) (*model.Position, error)
}

// TradeReader reads recent journal entries (the SQLite store).
type TradeReader interface {
	RecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error)
}

// DecisionSource reports the most recent decision (the bot).
type DecisionSource interface {
	LastDecision() (strategy.Decision, time.Time, bool)
}

// Deps wires the router to its data sources. Any nil reader disables its
// endpoint with a 503.
type Deps struct {
	Symbol    string
	Positions PositionReader
	Trades    TradeReader
	Decisions DecisionSource
	StartedAt time.Time
}

// NewRouter sets up the status API routes.
func NewRouter(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		writeJSON(w, http.StatusOK, map[string]any{
			"symbol":      deps.Symbol,
			"market":      markethours.StatusString(now),
			"market_open": markethours.IsMarketOpen(now),
			"uptime":      time.Since(deps.StartedAt).Round(time.Second).String(),
		})
	})

	mux.HandleFunc("/api/v1/position", func(w http.ResponseWriter, r *http.Request) {
		if deps.Positions == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "position store unavailable"})
			return
		}
		pos, err := deps.Positions.GetPosition(r.Context(), deps.Symbol)
		if err != nil {
			log.Printf("[api] position read failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "position read failed"})
			return
		}
		if pos == nil {
			writeJSON(w, http.StatusOK, map[string]any{"symbol": deps.Symbol, "flat": true})
			return
		}
		writeJSON(w, http.StatusOK, pos)
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		if deps.Trades == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "trade journal unavailable"})
			return
		}
		limit := 50
		if q := r.URL.Query().Get("limit"); q != "" {
			if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		trades, err := deps.Trades.RecentTrades(r.Context(), limit)
		if err != nil {
			log.Printf("[api] trades read failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "trades read failed"})
			return
		}
		if trades == nil {
			trades = []model.TradeRecord{}
		}
		writeJSON(w, http.StatusOK, trades)
	})

	mux.HandleFunc("/api/v1/decision", func(w http.ResponseWriter, r *http.Request) {
		if deps.Decisions == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "decision source unavailable"})
			return
		}
		d, at, ok := deps.Decisions.LastDecision()
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"symbol": deps.Symbol, "decided": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"symbol":     deps.Symbol,
			"decided":    true,
			"decided_at": at.UTC().Format(time.RFC3339),
			"action":     d.Action,
			"qty":        d.Qty,
			"confidence": d.Confidence,
			"urgency":    d.Urgency,
			"reasoning":  d.Reasoning,
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
