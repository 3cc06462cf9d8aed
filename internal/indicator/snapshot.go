package indicator

// Trend classifies the prevailing price direction.
type Trend string

const (
	TrendUp       Trend = "UPTREND"
	TrendDown     Trend = "DOWNTREND"
	TrendNeutral  Trend = "NEUTRAL"
	TrendSideways Trend = "SIDEWAYS"
)

// Signal is a categorical indicator tag. Signals are independent flags:
// RSI, SMA, and MACD tags can all be present at once.
type Signal string

const (
	SignalRSIOversold   Signal = "RSI_OVERSOLD"
	SignalRSIOverbought Signal = "RSI_OVERBOUGHT"
	SignalSMABullish    Signal = "SMA_BULLISH"
	SignalSMABearish    Signal = "SMA_BEARISH"
	SignalMACDBullish   Signal = "MACD_BULLISH"
	SignalMACDBearish   Signal = "MACD_BEARISH"
)

// MACDValue holds the MACD triple.
type MACDValue struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Snapshot is the full set of indicator values derived from a bar history.
//
// Indicators that need more bars than the history provides are nil —
// absence is representable and distinct from a computed neutral reading.
// SMA200 in particular stays nil permanently on short histories; consumers
// must tolerate that.
type Snapshot struct {
	SMA20  *float64   `json:"sma20,omitempty"`
	SMA50  *float64   `json:"sma50,omitempty"`
	SMA200 *float64   `json:"sma200,omitempty"`
	RSI14  *float64   `json:"rsi14,omitempty"`
	MACD   *MACDValue `json:"macd,omitempty"`

	Momentum10  float64 `json:"momentum10"`
	Volatility  float64 `json:"volatility"`
	VolumeRatio float64 `json:"volume_ratio"`

	Trend   Trend    `json:"trend"`
	Signals []Signal `json:"signals"`
}

// HasSignal reports whether the snapshot carries the given tag.
func (s *Snapshot) HasSignal(sig Signal) bool {
	for _, have := range s.Signals {
		if have == sig {
			return true
		}
	}
	return false
}
