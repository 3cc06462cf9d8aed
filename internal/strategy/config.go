package strategy

import "fmt"

// Config holds every threshold the decision engine reads. All values are
// configuration, not constants — load them from the strategy YAML file and
// validate once at startup so malformed thresholds never reach a per-call
// evaluation.
type Config struct {
	// Exit thresholds, in signed percent (stop loss compares against
	// negative P&L, so the configured value is the positive magnitude).
	StopLossPercent     float64 `mapstructure:"stop_loss_percent"`
	ProfitTargetPercent float64 `mapstructure:"profit_target_percent"`
	TrailingStopPercent float64 `mapstructure:"trailing_stop_percent"`

	// RSI bands for the entry/exit scoring.
	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`

	// Score cutoffs on the 0-10 scale.
	EntryScoreThreshold float64 `mapstructure:"entry_score_threshold"`
	ExitScoreThreshold  float64 `mapstructure:"exit_score_threshold"`

	// Volume gate: below this the engine holds regardless of score.
	MinVolumeThreshold int64 `mapstructure:"min_volume_threshold"`

	// Position sizing, in instrument units.
	BasePositionSize float64 `mapstructure:"base_position_size"`
	MinPositionSize  float64 `mapstructure:"min_position_size"`
	MaxPositionSize  float64 `mapstructure:"max_position_size"`

	// Ghost-position validation.
	MinPositionQuantity float64 `mapstructure:"min_position_quantity"`
	MinPositionValue    float64 `mapstructure:"min_position_value"`

	// Risk-pause gates evaluated from TradeContext.
	MaxConsecutiveLosses int     `mapstructure:"max_consecutive_losses"`
	MaxDailyTrades       int     `mapstructure:"max_daily_trades"`
	MaxDrawdownPercent   float64 `mapstructure:"max_drawdown_percent"`

	// CooldownMinutes is enforced by the caller (internal/risk), not by
	// Decide — the engine stays a pure function of its inputs.
	CooldownMinutes int `mapstructure:"cooldown_minutes"`
}

// DefaultConfig returns conservative defaults for all thresholds.
func DefaultConfig() Config {
	return Config{
		StopLossPercent:     2.5,
		ProfitTargetPercent: 4.0,
		TrailingStopPercent: 1.5,
		RSIOversold:         30,
		RSIOverbought:       70,
		EntryScoreThreshold: 7.0,
		ExitScoreThreshold:  8.0,
		MinVolumeThreshold:  100000,
		BasePositionSize:    1.0,
		MinPositionSize:     0.01,
		MaxPositionSize:     10.0,
		MinPositionQuantity: 0.001,
		MinPositionValue:    10.0,
		MaxConsecutiveLosses: 3,
		MaxDailyTrades:       5,
		MaxDrawdownPercent:   10.0,
		CooldownMinutes:      30,
	}
}

// Validate rejects malformed thresholds. Call once at startup; a non-nil
// error is fatal.
func (c Config) Validate() error {
	if c.StopLossPercent <= 0 {
		return fmt.Errorf("strategy config: stop_loss_percent must be positive, got %.2f", c.StopLossPercent)
	}
	if c.ProfitTargetPercent <= 0 {
		return fmt.Errorf("strategy config: profit_target_percent must be positive, got %.2f", c.ProfitTargetPercent)
	}
	if c.TrailingStopPercent <= 0 {
		return fmt.Errorf("strategy config: trailing_stop_percent must be positive, got %.2f", c.TrailingStopPercent)
	}
	if c.RSIOversold <= 0 || c.RSIOversold >= 100 {
		return fmt.Errorf("strategy config: rsi_oversold must be in (0,100), got %.2f", c.RSIOversold)
	}
	if c.RSIOverbought <= 0 || c.RSIOverbought >= 100 {
		return fmt.Errorf("strategy config: rsi_overbought must be in (0,100), got %.2f", c.RSIOverbought)
	}
	if c.RSIOversold >= c.RSIOverbought {
		return fmt.Errorf("strategy config: rsi_oversold %.2f must be below rsi_overbought %.2f", c.RSIOversold, c.RSIOverbought)
	}
	if c.EntryScoreThreshold < 0 || c.EntryScoreThreshold > 10 {
		return fmt.Errorf("strategy config: entry_score_threshold must be in [0,10], got %.2f", c.EntryScoreThreshold)
	}
	if c.ExitScoreThreshold < 0 || c.ExitScoreThreshold > 10 {
		return fmt.Errorf("strategy config: exit_score_threshold must be in [0,10], got %.2f", c.ExitScoreThreshold)
	}
	if c.MinVolumeThreshold < 0 {
		return fmt.Errorf("strategy config: min_volume_threshold must not be negative, got %d", c.MinVolumeThreshold)
	}
	if c.BasePositionSize <= 0 {
		return fmt.Errorf("strategy config: base_position_size must be positive, got %.4f", c.BasePositionSize)
	}
	if c.MinPositionSize <= 0 || c.MaxPositionSize <= 0 || c.MinPositionSize > c.MaxPositionSize {
		return fmt.Errorf("strategy config: position size bounds invalid: min=%.4f max=%.4f", c.MinPositionSize, c.MaxPositionSize)
	}
	if c.MinPositionQuantity <= 0 {
		return fmt.Errorf("strategy config: min_position_quantity must be positive, got %.6f", c.MinPositionQuantity)
	}
	if c.MinPositionValue <= 0 {
		return fmt.Errorf("strategy config: min_position_value must be positive, got %.2f", c.MinPositionValue)
	}
	if c.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("strategy config: max_consecutive_losses must be at least 1, got %d", c.MaxConsecutiveLosses)
	}
	if c.MaxDailyTrades < 1 {
		return fmt.Errorf("strategy config: max_daily_trades must be at least 1, got %d", c.MaxDailyTrades)
	}
	if c.MaxDrawdownPercent <= 0 || c.MaxDrawdownPercent > 100 {
		return fmt.Errorf("strategy config: max_drawdown_percent must be in (0,100], got %.2f", c.MaxDrawdownPercent)
	}
	if c.CooldownMinutes < 0 {
		return fmt.Errorf("strategy config: cooldown_minutes must not be negative, got %d", c.CooldownMinutes)
	}
	return nil
}
