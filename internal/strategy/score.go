package strategy

import (
	"fmt"

	"tradingbotv1/internal/indicator"
)

// Scores are bounded to [0,10]: RSI depth 0-3, price-vs-SMA 0-2, trend
// alignment 0-2, signal count 0-2, volume confirmation 0-1.
const maxScore = 10.0

// buyScore computes the weighted entry score for a flat book. Returns the
// total and one reason string per contributing sub-score.
func buyScore(snap MarketSnapshot, cfg Config) (float64, []string) {
	score := 0.0
	reasons := make([]string, 0, 5)

	// RSI oversold depth: steeper for deeper oversold.
	if snap.RSI14 != nil {
		rsi := *snap.RSI14
		pts := 0.0
		switch {
		case rsi < cfg.RSIOversold-10:
			pts = 3
		case rsi < cfg.RSIOversold-5:
			pts = 2
		case rsi < cfg.RSIOversold:
			pts = 1
		}
		if pts > 0 {
			score += pts
			reasons = append(reasons, fmt.Sprintf("RSI %.1f below oversold band %.0f (+%.0f)", rsi, cfg.RSIOversold, pts))
		}
	}

	// Price position relative to the short SMA: discounted entries score.
	if snap.SMA20 != nil {
		sma := *snap.SMA20
		pts := 0.0
		switch {
		case snap.CurrentPrice < sma*0.98:
			pts = 2
		case snap.CurrentPrice < sma:
			pts = 1
		}
		if pts > 0 {
			score += pts
			reasons = append(reasons, fmt.Sprintf("price %.2f below SMA20 %.2f (+%.0f)", snap.CurrentPrice, sma, pts))
		}
	}

	// Trend alignment: UPTREND > NEUTRAL/SIDEWAYS > DOWNTREND.
	switch snap.Trend {
	case indicator.TrendUp:
		score += 2
		reasons = append(reasons, "uptrend (+2)")
	case indicator.TrendNeutral, indicator.TrendSideways:
		score += 1
		reasons = append(reasons, fmt.Sprintf("%s trend (+1)", snap.Trend))
	}

	// Bullish signal count, capped at 2.
	bullish := 0.0
	if snap.HasSignal(indicator.SignalSMABullish) {
		bullish++
	}
	if snap.HasSignal(indicator.SignalMACDBullish) {
		bullish++
	}
	if bullish > 2 {
		bullish = 2
	}
	if bullish > 0 {
		score += bullish
		reasons = append(reasons, fmt.Sprintf("%.0f bullish signals (+%.0f)", bullish, bullish))
	}

	// Volume confirmation.
	if snap.Volume > 2*cfg.MinVolumeThreshold {
		score += 1
		reasons = append(reasons, fmt.Sprintf("volume %d above 2x threshold (+1)", snap.Volume))
	}

	if score > maxScore {
		score = maxScore
	}
	return score, reasons
}

// sellScore is the bearish mirror of buyScore, used for technical exits
// while holding.
func sellScore(snap MarketSnapshot, cfg Config) (float64, []string) {
	score := 0.0
	reasons := make([]string, 0, 5)

	// RSI overbought depth.
	if snap.RSI14 != nil {
		rsi := *snap.RSI14
		pts := 0.0
		switch {
		case rsi > cfg.RSIOverbought+10:
			pts = 3
		case rsi > cfg.RSIOverbought+5:
			pts = 2
		case rsi > cfg.RSIOverbought:
			pts = 1
		}
		if pts > 0 {
			score += pts
			reasons = append(reasons, fmt.Sprintf("RSI %.1f above overbought band %.0f (+%.0f)", rsi, cfg.RSIOverbought, pts))
		}
	}

	// Price stretched above the short SMA.
	if snap.SMA20 != nil {
		sma := *snap.SMA20
		pts := 0.0
		switch {
		case snap.CurrentPrice > sma*1.02:
			pts = 2
		case snap.CurrentPrice > sma:
			pts = 1
		}
		if pts > 0 {
			score += pts
			reasons = append(reasons, fmt.Sprintf("price %.2f above SMA20 %.2f (+%.0f)", snap.CurrentPrice, sma, pts))
		}
	}

	// Trend alignment: DOWNTREND weighs heaviest.
	switch snap.Trend {
	case indicator.TrendDown:
		score += 2
		reasons = append(reasons, "downtrend (+2)")
	case indicator.TrendNeutral, indicator.TrendSideways:
		score += 1
		reasons = append(reasons, fmt.Sprintf("%s trend (+1)", snap.Trend))
	}

	// Bearish signal count, capped at 2.
	bearish := 0.0
	if snap.HasSignal(indicator.SignalSMABearish) {
		bearish++
	}
	if snap.HasSignal(indicator.SignalMACDBearish) {
		bearish++
	}
	if bearish > 2 {
		bearish = 2
	}
	if bearish > 0 {
		score += bearish
		reasons = append(reasons, fmt.Sprintf("%.0f bearish signals (+%.0f)", bearish, bearish))
	}

	// Volume confirmation.
	if snap.Volume > 2*cfg.MinVolumeThreshold {
		score += 1
		reasons = append(reasons, fmt.Sprintf("volume %d above 2x threshold (+1)", snap.Volume))
	}

	if score > maxScore {
		score = maxScore
	}
	return score, reasons
}
