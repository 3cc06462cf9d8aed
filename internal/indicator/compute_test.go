package indicator

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"tradingbotv1/internal/model"
)

// mkBars builds a date-ascending daily history from closes, one bar per
// weekday-agnostic calendar day, constant volume unless overridden.
func mkBars(closes []float64, volumes ...int64) []model.PriceBar {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		vol := int64(500000)
		if len(volumes) == len(closes) {
			vol = volumes[i]
		}
		bars[i] = model.PriceBar{
			Symbol: "AAPL",
			Date:   start.AddDate(0, 0, i),
			Open:   c, High: c + 0.5, Low: c - 0.5, Close: c,
			Volume: vol,
		}
	}
	return bars
}

func rampUp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func rampDown(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 300 - float64(i)
	}
	return out
}

func TestCompute_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1, 5, 14} {
		_, err := Compute(mkBars(rampUp(n)), DefaultConfig())
		if !errors.Is(err, ErrInsufficientData) {
			t.Errorf("%d bars: err = %v, want ErrInsufficientData", n, err)
		}
	}

	// Exactly RSI period + 1 bars is the floor.
	if _, err := Compute(mkBars(rampUp(15)), DefaultConfig()); err != nil {
		t.Fatalf("15 bars: unexpected error: %v", err)
	}
}

func TestCompute_ShortHistoryLeavesIndicatorsAbsent(t *testing.T) {
	snap, err := Compute(mkBars(rampUp(15)), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if snap.RSI14 == nil {
		t.Error("RSI14 must be present with 15 bars")
	}
	if snap.SMA20 != nil {
		t.Error("SMA20 must be absent with 15 bars, not fabricated")
	}
	if snap.SMA200 != nil {
		t.Error("SMA200 must be absent with 15 bars")
	}
	if snap.MACD != nil {
		t.Error("MACD must be absent before the slow EMA stabilizes")
	}
}

func TestCompute_SMA200StaysAbsentOnMediumHistory(t *testing.T) {
	snap, err := Compute(mkBars(rampUp(100)), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if snap.SMA20 == nil || snap.SMA50 == nil {
		t.Fatal("SMA20/SMA50 must be present with 100 bars")
	}
	if snap.SMA200 != nil {
		t.Error("SMA200 must stay absent with 100 bars")
	}
}

func TestCompute_UptrendClassification(t *testing.T) {
	snap, err := Compute(mkBars(rampUp(60)), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if snap.Trend != TrendUp {
		t.Errorf("trend = %s, want UPTREND", snap.Trend)
	}
	if *snap.RSI14 < 99 {
		t.Errorf("RSI = %.2f, want ~100 for a strictly rising series", *snap.RSI14)
	}
	if !snap.HasSignal(SignalSMABullish) {
		t.Errorf("signals %v missing SMA_BULLISH", snap.Signals)
	}
	if !snap.HasSignal(SignalMACDBullish) {
		t.Errorf("signals %v missing MACD_BULLISH", snap.Signals)
	}
	if !snap.HasSignal(SignalRSIOverbought) {
		t.Errorf("signals %v missing RSI_OVERBOUGHT", snap.Signals)
	}
}

func TestCompute_DowntrendClassification(t *testing.T) {
	snap, err := Compute(mkBars(rampDown(60)), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if snap.Trend != TrendDown {
		t.Errorf("trend = %s, want DOWNTREND", snap.Trend)
	}
	if *snap.RSI14 > 1 {
		t.Errorf("RSI = %.2f, want ~0 for a strictly falling series", *snap.RSI14)
	}
	if !snap.HasSignal(SignalSMABearish) {
		t.Errorf("signals %v missing SMA_BEARISH", snap.Signals)
	}
	if !snap.HasSignal(SignalMACDBearish) {
		t.Errorf("signals %v missing MACD_BEARISH", snap.Signals)
	}
	if !snap.HasSignal(SignalRSIOversold) {
		t.Errorf("signals %v missing RSI_OVERSOLD", snap.Signals)
	}
}

func TestCompute_FlatSeriesIsNotTrending(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	snap, err := Compute(mkBars(closes), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	// Equal SMA values break both slope streaks; price sits on the SMA.
	if snap.Trend != TrendSideways {
		t.Errorf("trend = %s, want SIDEWAYS for a flat series", snap.Trend)
	}
}

func TestCompute_Momentum(t *testing.T) {
	snap, err := Compute(mkBars(rampUp(60)), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	// close[t] - close[t-10] on a +1/day ramp = 10.
	if math.Abs(snap.Momentum10-10) > 0.0001 {
		t.Errorf("momentum = %.4f, want 10", snap.Momentum10)
	}
}

func TestCompute_VolumeRatio(t *testing.T) {
	closes := rampUp(40)
	volumes := make([]int64, len(closes))
	for i := range volumes {
		volumes[i] = 100
	}
	volumes[len(volumes)-1] = 200 // spike on the last bar

	snap, err := Compute(mkBars(closes, volumes...), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	// Window of 20: avg = (19*100 + 200)/20 = 105 → ratio = 200/105.
	want := 200.0 / 105.0
	if math.Abs(snap.VolumeRatio-want) > 0.0001 {
		t.Errorf("volume ratio = %.4f, want %.4f", snap.VolumeRatio, want)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	bars := mkBars(rampUp(60))
	first, err := Compute(bars, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compute(bars, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("snapshots differ across identical calls:\n  first:  %+v\n  second: %+v", first, second)
	}
}

func TestReturnVolatility_DefaultOnShortWindow(t *testing.T) {
	// Fewer than 10 returns → conservative constant, never a fabricated
	// statistic.
	got := returnVolatility(mkBars(rampUp(8)), 20)
	if got != defaultVolatility {
		t.Errorf("volatility = %.4f, want default %.4f", got, defaultVolatility)
	}
}

func TestReturnVolatility_ConstantSeriesIsZero(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	got := returnVolatility(mkBars(closes), 20)
	if got != 0 {
		t.Errorf("volatility of constant series = %.6f, want 0", got)
	}
}
