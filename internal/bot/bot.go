// Package bot runs the evaluation loop: every interval during market hours
// it assembles the market snapshot, asks the strategy for a decision, and
// carries the decision through execution, persistence, and notification.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tradingbotv1/internal/execution"
	"tradingbotv1/internal/indicator"
	"tradingbotv1/internal/markethours"
	"tradingbotv1/internal/metrics"
	"tradingbotv1/internal/model"
	"tradingbotv1/internal/notification"
	"tradingbotv1/internal/risk"
	"tradingbotv1/internal/strategy"
)

// AccountProvider fetches the broker account snapshot (brokerapi.Client).
type AccountProvider interface {
	GetAccount(ctx context.Context) (*model.AccountInfo, error)
}

// DecisionPublisher fans decisions out to subscribers (the Redis cache).
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, symbol string, payload any)
}

// Config configures the bot loop.
type Config struct {
	Symbol       string
	Interval     time.Duration // evaluation cadence, e.g. 1m
	BarLimit     int           // daily bars to request, e.g. 250
	IgnoreHours  bool          // evaluate even when the market is closed (dry runs)
	CycleTimeout time.Duration // per-cycle deadline, default 30s
}

// Bot owns one symbol's trading loop.
type Bot struct {
	cfg    Config
	indCfg indicator.Config

	bars     model.BarProvider
	quotes   model.QuoteProvider
	store    model.PositionStore
	journal  model.TradeJournal
	engine   *strategy.Engine
	riskEval *risk.Evaluator
	exec     execution.Executor

	// Optional collaborators; nil disables the concern.
	accounts  AccountProvider
	notifier  notification.Notifier
	metrics   *metrics.Metrics
	publisher DecisionPublisher

	logger *slog.Logger

	mu             sync.RWMutex
	lastDecision   strategy.Decision
	lastDecisionAt time.Time
	hasDecision    bool
	riskPaused     bool
}

// Deps bundles the bot's collaborators.
type Deps struct {
	Bars      model.BarProvider
	Quotes    model.QuoteProvider
	Store     model.PositionStore
	Journal   model.TradeJournal
	Engine    *strategy.Engine
	Risk      *risk.Evaluator
	Executor  execution.Executor
	Accounts  AccountProvider
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Publisher DecisionPublisher
	Logger    *slog.Logger
}

// New creates a bot. Required deps: Bars, Quotes, Store, Journal, Engine,
// Risk, Executor, Logger.
func New(cfg Config, indCfg indicator.Config, deps Deps) (*Bot, error) {
	if cfg.Symbol == "" {
		return nil, errors.New("bot: symbol is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BarLimit <= 0 {
		cfg.BarLimit = 250
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 30 * time.Second
	}
	if deps.Bars == nil || deps.Quotes == nil || deps.Store == nil || deps.Journal == nil ||
		deps.Engine == nil || deps.Risk == nil || deps.Executor == nil || deps.Logger == nil {
		return nil, errors.New("bot: missing required dependency")
	}

	return &Bot{
		cfg:       cfg,
		indCfg:    indCfg,
		bars:      deps.Bars,
		quotes:    deps.Quotes,
		store:     deps.Store,
		journal:   deps.Journal,
		engine:    deps.Engine,
		riskEval:  deps.Risk,
		exec:      deps.Executor,
		accounts:  deps.Accounts,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}, nil
}

// LastDecision returns the most recent decision and when it was made.
func (b *Bot) LastDecision() (strategy.Decision, time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastDecision, b.lastDecisionAt, b.hasDecision
}

// Run drives the evaluation loop until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	b.logger.Info("bot started",
		slog.String("symbol", b.cfg.Symbol),
		slog.Duration("interval", b.cfg.Interval))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopped", slog.String("symbol", b.cfg.Symbol))
			return ctx.Err()
		case now := <-ticker.C:
			if !b.cfg.IgnoreHours && !markethours.IsMarketOpen(now) {
				if b.metrics != nil {
					b.metrics.MarketState.Set(0)
				}
				continue
			}
			if b.metrics != nil {
				b.metrics.MarketState.Set(1)
			}

			cycleCtx, cancel := context.WithTimeout(ctx, b.cfg.CycleTimeout)
			if err := b.Cycle(cycleCtx, now); err != nil {
				b.logger.Error("cycle failed",
					slog.String("symbol", b.cfg.Symbol),
					slog.String("error", err.Error()))
				if b.metrics != nil {
					b.metrics.CycleErrors.Inc()
				}
				if b.notifier != nil {
					b.notifier.Send(cycleCtx, notification.CycleError(b.cfg.Symbol, err))
				}
			}
			cancel()
		}
	}
}

// Cycle runs one evaluation pass: snapshot, decide, act.
func (b *Bot) Cycle(ctx context.Context, now time.Time) error {
	symbol := b.cfg.Symbol

	barStart := time.Now()
	bars, err := b.bars.DailyBars(ctx, symbol, b.cfg.BarLimit)
	if err != nil {
		return fmt.Errorf("bars: %w", err)
	}
	if b.metrics != nil {
		b.metrics.BarFetchDur.Observe(time.Since(barStart).Seconds())
	}

	computeStart := time.Now()
	snap, err := indicator.Compute(bars, b.indCfg)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientData) {
			b.logger.Warn("not enough history to evaluate",
				slog.String("symbol", symbol),
				slog.Int("bars", len(bars)))
			return nil
		}
		return fmt.Errorf("indicators: %w", err)
	}
	if b.metrics != nil {
		b.metrics.ComputeDur.Observe(time.Since(computeStart).Seconds())
	}

	quote, err := b.quotes.LatestQuote(ctx, symbol)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	pos, err := b.store.GetPosition(ctx, symbol)
	if err != nil {
		return fmt.Errorf("position: %w", err)
	}

	// Ratchet the trailing-stop reference before deciding so this cycle's
	// exit checks see the newest high.
	if pos != nil && quote.Price > pos.HighWaterMark {
		if err := b.store.UpdateHighWaterMark(ctx, symbol, quote.Price); err != nil {
			return fmt.Errorf("high water mark: %w", err)
		}
		pos.HighWaterMark = quote.Price
	}

	var account *model.AccountInfo
	if b.accounts != nil {
		account, err = b.accounts.GetAccount(ctx)
		if err != nil {
			// Degraded but not fatal: the drawdown gate is simply skipped.
			b.logger.Warn("account fetch failed", slog.String("error", err.Error()))
			account = nil
		}
	}
	if account != nil {
		account.PeakEquity = b.riskEval.TrackEquity(account.Equity)
		if b.metrics != nil {
			b.metrics.Equity.Set(account.Equity)
		}
	}

	tctx, err := b.riskEval.BuildContext(ctx, symbol, account, now)
	if err != nil {
		return fmt.Errorf("trade context: %w", err)
	}

	msnap := strategy.MarketSnapshot{
		Snapshot:     *snap,
		CurrentPrice: quote.Price,
		Volume:       quote.Volume,
	}

	decideStart := time.Now()
	decision := b.engine.Decide(msnap, pos, tctx)
	if b.metrics != nil {
		b.metrics.DecideDur.Observe(time.Since(decideStart).Seconds())
	}

	// Cooldown is enforced here, not in the engine: fresh entries wait out
	// the window, exits are never delayed.
	if decision.Action == strategy.ActionBuy {
		if remaining, active := b.riskEval.CooldownActive(now, tctx.LastTrade); active {
			decision = strategy.Decision{
				Action:  strategy.ActionHold,
				Urgency: strategy.UrgencyLow,
				Reasoning: append(
					[]string{fmt.Sprintf("entry suppressed: cooldown active for another %s", remaining.Round(time.Second))},
					decision.Reasoning...),
			}
		}
	}

	b.trackRiskPause(ctx, decision)
	b.recordDecision(ctx, decision, pos, quote)

	if decision.Action == strategy.ActionHold {
		return nil
	}
	return b.execute(ctx, decision, quote.Price)
}

// trackRiskPause counts tripped gates and alerts on the closed-to-paused
// transition so a stuck gate doesn't page every cycle.
func (b *Bot) trackRiskPause(ctx context.Context, d strategy.Decision) {
	reason, paused := riskPauseReason(d)

	b.mu.Lock()
	wasPaused := b.riskPaused
	b.riskPaused = paused
	b.mu.Unlock()

	if !paused {
		return
	}
	if b.metrics != nil {
		b.metrics.RiskPauses.WithLabelValues(riskPauseGate(reason)).Inc()
	}
	if !wasPaused && b.notifier != nil {
		b.notifier.Send(ctx, notification.RiskPaused(b.cfg.Symbol, reason))
	}
}

func riskPauseReason(d strategy.Decision) (string, bool) {
	if d.Action != strategy.ActionHold {
		return "", false
	}
	for _, r := range d.Reasoning {
		if strings.HasPrefix(r, "risk pause:") {
			return r, true
		}
	}
	return "", false
}

func riskPauseGate(reason string) string {
	switch {
	case strings.Contains(reason, "consecutive losses"):
		return "consecutive_losses"
	case strings.Contains(reason, "trades today"):
		return "daily_trades"
	case strings.Contains(reason, "drawdown"):
		return "drawdown"
	}
	return "other"
}

func (b *Bot) recordDecision(ctx context.Context, d strategy.Decision, pos *model.Position, quote *model.Quote) {
	b.mu.Lock()
	b.lastDecision = d
	b.lastDecisionAt = time.Now().UTC()
	b.hasDecision = true
	b.mu.Unlock()

	b.logger.Info("decision",
		slog.String("symbol", b.cfg.Symbol),
		slog.String("action", string(d.Action)),
		slog.Float64("qty", d.Qty),
		slog.Float64("confidence", d.Confidence),
		slog.String("urgency", string(d.Urgency)),
		slog.String("reasoning", strings.Join(d.Reasoning, "; ")))

	if b.metrics != nil {
		b.metrics.CyclesTotal.Inc()
		b.metrics.DecisionsTotal.WithLabelValues(string(d.Action)).Inc()
		if pos != nil {
			b.metrics.PositionQty.Set(pos.Qty)
			b.metrics.UnrealizedPnL.Set(pos.UnrealizedPnLPercent(quote.Price))
		} else {
			b.metrics.PositionQty.Set(0)
			b.metrics.UnrealizedPnL.Set(0)
		}
	}

	if b.publisher != nil {
		b.publisher.PublishDecision(ctx, b.cfg.Symbol, map[string]any{
			"symbol":     b.cfg.Symbol,
			"action":     d.Action,
			"qty":        d.Qty,
			"confidence": d.Confidence,
			"urgency":    d.Urgency,
			"reasoning":  d.Reasoning,
			"price":      quote.Price,
			"ts":         time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (b *Bot) execute(ctx context.Context, d strategy.Decision, refPrice float64) error {
	symbol := b.cfg.Symbol

	fill, err := b.exec.Execute(ctx, symbol, d, refPrice)
	if err != nil {
		if b.metrics != nil {
			b.metrics.OrdersTotal.WithLabelValues(string(d.Action), "error").Inc()
		}
		return fmt.Errorf("execute: %w", err)
	}
	if b.metrics != nil {
		b.metrics.OrdersTotal.WithLabelValues(string(d.Action), "filled").Inc()
	}

	_, realized, err := b.store.ApplyFill(ctx, symbol, fill.Side, fill.Qty, fill.Price)
	if err != nil {
		return fmt.Errorf("apply fill: %w", err)
	}
	if b.metrics != nil && fill.Side == "SELL" {
		b.metrics.RealizedPnL.Add(realized)
	}

	reason := ""
	if len(d.Reasoning) > 0 {
		reason = d.Reasoning[0]
	}
	trade := model.TradeRecord{
		OrderID:     fill.OrderID,
		Symbol:      symbol,
		Side:        fill.Side,
		Qty:         fill.Qty,
		Price:       fill.Price,
		RealizedPnL: realized,
		Reason:      reason,
		FilledAt:    fill.FilledAt,
	}
	if err := b.journal.RecordTrade(ctx, trade); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}

	b.logger.Info("trade executed",
		slog.String("symbol", symbol),
		slog.String("side", fill.Side),
		slog.Float64("qty", fill.Qty),
		slog.Float64("price", fill.Price),
		slog.Float64("realized_pnl", realized),
		slog.String("order_id", fill.OrderID))

	if b.notifier != nil {
		b.notifier.Send(ctx, notification.TradeExecuted(*fill, realized, reason))
	}
	return nil
}
