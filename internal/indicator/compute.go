package indicator

import (
	"errors"
	"fmt"
	"math"

	"tradingbotv1/internal/model"
)

// ErrInsufficientData is returned when the bar history is too short for the
// shortest-window indicator (RSI needs period+1 closes for its first delta).
// Callers recover by holding, not by treating it as fatal.
var ErrInsufficientData = errors.New("insufficient bar history")

const (
	// defaultVolatility is the conservative fallback used as a position
	// sizing damper when fewer than minVolatilityReturns returns exist.
	defaultVolatility       = 0.02
	minVolatilityReturns    = 10
	sidewaysBandPct         = 1.0 // price within ±1% of SMA20 counts as sideways
)

// Config specifies the indicator windows. Zero fields fall back to the
// conventional defaults (20/50/200 SMA, RSI 14, MACD 12/26/9).
type Config struct {
	SMAShort   int `mapstructure:"sma_short"`
	SMAMid     int `mapstructure:"sma_mid"`
	SMALong    int `mapstructure:"sma_long"`
	RSIPeriod  int `mapstructure:"rsi_period"`
	MACDFast   int `mapstructure:"macd_fast"`
	MACDSlow   int `mapstructure:"macd_slow"`
	MACDSignal int `mapstructure:"macd_signal"`

	MomentumPeriod   int `mapstructure:"momentum_period"`
	VolatilityWindow int `mapstructure:"volatility_window"`
	VolumeWindow     int `mapstructure:"volume_window"`
	SlopeLookback    int `mapstructure:"slope_lookback"`

	RSIOversold   float64 `mapstructure:"rsi_oversold"`
	RSIOverbought float64 `mapstructure:"rsi_overbought"`
}

// DefaultConfig returns the conventional indicator windows.
func DefaultConfig() Config {
	return Config{
		SMAShort:         20,
		SMAMid:           50,
		SMALong:          200,
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		MomentumPeriod:   10,
		VolatilityWindow: 20,
		VolumeWindow:     20,
		SlopeLookback:    3,
		RSIOversold:      30,
		RSIOverbought:    70,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SMAShort <= 0 {
		c.SMAShort = d.SMAShort
	}
	if c.SMAMid <= 0 {
		c.SMAMid = d.SMAMid
	}
	if c.SMALong <= 0 {
		c.SMALong = d.SMALong
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.MACDFast <= 0 {
		c.MACDFast = d.MACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = d.MACDSlow
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = d.MACDSignal
	}
	if c.MomentumPeriod <= 0 {
		c.MomentumPeriod = d.MomentumPeriod
	}
	if c.VolatilityWindow <= 0 {
		c.VolatilityWindow = d.VolatilityWindow
	}
	if c.VolumeWindow <= 0 {
		c.VolumeWindow = d.VolumeWindow
	}
	if c.SlopeLookback <= 0 {
		c.SlopeLookback = d.SlopeLookback
	}
	if c.RSIOversold <= 0 {
		c.RSIOversold = d.RSIOversold
	}
	if c.RSIOverbought <= 0 {
		c.RSIOverbought = d.RSIOverbought
	}
	return c
}

// MinBars returns the minimum history length Compute accepts.
func (c Config) MinBars() int {
	p := c.RSIPeriod
	if p <= 0 {
		p = DefaultConfig().RSIPeriod
	}
	return p + 1
}

// Compute derives a full indicator Snapshot from the bar history.
//
// It is a pure function: fresh indicator instances are created per call and
// fed the entire history, so identical bars always yield an identical
// snapshot. Indicators whose window exceeds the history length come back
// nil rather than fabricated.
func Compute(bars []model.PriceBar, cfg Config) (*Snapshot, error) {
	cfg = cfg.withDefaults()

	if len(bars) < cfg.MinBars() {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), cfg.MinBars())
	}

	smaShort := NewSMA(cfg.SMAShort)
	smaMid := NewSMA(cfg.SMAMid)
	smaLong := NewSMA(cfg.SMALong)
	rsi := NewRSI(cfg.RSIPeriod)
	macd := NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)

	// Short-SMA history for slope classification.
	smaHist := make([]float64, 0, len(bars))

	for _, bar := range bars {
		price := bar.Close
		smaShort.Update(price)
		smaMid.Update(price)
		smaLong.Update(price)
		rsi.Update(price)
		macd.Update(price)
		if smaShort.Ready() {
			smaHist = append(smaHist, smaShort.Value())
		}
	}

	snap := &Snapshot{
		Momentum10:  momentum(bars, cfg.MomentumPeriod),
		Volatility:  returnVolatility(bars, cfg.VolatilityWindow),
		VolumeRatio: volumeRatio(bars, cfg.VolumeWindow),
	}
	if smaShort.Ready() {
		snap.SMA20 = ptr(smaShort.Value())
	}
	if smaMid.Ready() {
		snap.SMA50 = ptr(smaMid.Value())
	}
	if smaLong.Ready() {
		snap.SMA200 = ptr(smaLong.Value())
	}
	if rsi.Ready() {
		snap.RSI14 = ptr(rsi.Value())
	}
	if macd.Ready() {
		snap.MACD = &MACDValue{
			Line:      macd.Line(),
			Signal:    macd.Signal(),
			Histogram: macd.Histogram(),
		}
	}

	lastClose := bars[len(bars)-1].Close
	snap.Trend = classifyTrend(lastClose, snap.SMA20, snap.SMA50, smaHist, cfg.SlopeLookback)
	snap.Signals = tagSignals(snap, cfg)

	return snap, nil
}

// momentum returns close[t] - close[t-period], or 0 when the history is
// shorter than the lookback.
func momentum(bars []model.PriceBar, period int) float64 {
	n := len(bars)
	if n <= period {
		return 0
	}
	return bars[n-1].Close - bars[n-1-period].Close
}

// returnVolatility is the standard deviation of day-over-day percentage
// returns over the trailing window. Falls back to a conservative constant
// when fewer than minVolatilityReturns returns are available.
func returnVolatility(bars []model.PriceBar, window int) float64 {
	returns := make([]float64, 0, window)
	start := len(bars) - window - 1
	if start < 0 {
		start = 0
	}
	for i := start + 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		returns = append(returns, (bars[i].Close-prev)/prev)
	}
	if len(returns) < minVolatilityReturns {
		return defaultVolatility
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}

// volumeRatio compares the latest bar's volume to the trailing average.
// Returns 1.0 when no meaningful average exists.
func volumeRatio(bars []model.PriceBar, window int) float64 {
	n := len(bars)
	start := n - window
	if start < 0 {
		start = 0
	}
	var sum int64
	count := 0
	for i := start; i < n; i++ {
		sum += bars[i].Volume
		count++
	}
	if count == 0 || sum <= 0 {
		return 1.0
	}
	avg := float64(sum) / float64(count)
	return float64(bars[n-1].Volume) / avg
}

// classifyTrend compares price to the short and mid SMAs and checks the
// short-SMA slope over the trailing lookback. Equal consecutive SMA values
// break the streak, so flat sequences classify as NEUTRAL.
func classifyTrend(price float64, smaShort, smaMid *float64, smaHist []float64, lookback int) Trend {
	if smaShort == nil {
		return TrendNeutral
	}

	slopeUp, slopeDown := smaSlope(smaHist, lookback)

	above := price > *smaShort
	below := price < *smaShort
	if smaMid != nil {
		above = above && price > *smaMid
		below = below && price < *smaMid
	}

	switch {
	case slopeUp && above:
		return TrendUp
	case slopeDown && below:
		return TrendDown
	case !slopeUp && !slopeDown && math.Abs(price-*smaShort) <= *smaShort*sidewaysBandPct/100:
		return TrendSideways
	default:
		return TrendNeutral
	}
}

// smaSlope reports whether the trailing lookback values are strictly
// increasing or strictly decreasing. Needs lookback values to judge.
func smaSlope(hist []float64, lookback int) (up, down bool) {
	if len(hist) < lookback || lookback < 2 {
		return false, false
	}
	tail := hist[len(hist)-lookback:]
	up, down = true, true
	for i := 1; i < len(tail); i++ {
		if tail[i] <= tail[i-1] {
			up = false
		}
		if tail[i] >= tail[i-1] {
			down = false
		}
	}
	return up, down
}

// tagSignals emits categorical flags in a fixed order: RSI, SMA, MACD.
func tagSignals(snap *Snapshot, cfg Config) []Signal {
	signals := make([]Signal, 0, 3)

	if snap.RSI14 != nil {
		if *snap.RSI14 < cfg.RSIOversold {
			signals = append(signals, SignalRSIOversold)
		} else if *snap.RSI14 > cfg.RSIOverbought {
			signals = append(signals, SignalRSIOverbought)
		}
	}

	if snap.SMA20 != nil && snap.SMA50 != nil {
		if *snap.SMA20 > *snap.SMA50 {
			signals = append(signals, SignalSMABullish)
		} else if *snap.SMA20 < *snap.SMA50 {
			signals = append(signals, SignalSMABearish)
		}
	}

	if snap.MACD != nil {
		if snap.MACD.Line > snap.MACD.Signal {
			signals = append(signals, SignalMACDBullish)
		} else if snap.MACD.Line < snap.MACD.Signal {
			signals = append(signals, SignalMACDBearish)
		}
	}

	return signals
}

func ptr(v float64) *float64 { return &v }
