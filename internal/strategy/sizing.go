package strategy

// Volatility damper band: position size shrinks as volatility rises above
// the target, grows when it falls below, clamped to [0.5x, 1.5x].
const (
	targetVolatility = 0.02
	volMultiplierMin = 0.5
	volMultiplierMax = 1.5
)

// positionSize returns the entry quantity in instrument units.
//
// Base size is damped inversely by volatility, reduced at higher absolute
// price tiers, and clamped to the configured [min, max] per-trade band.
func positionSize(price, volatility float64, cfg Config) float64 {
	size := cfg.BasePositionSize

	// Inverse volatility scaling, clamped.
	if volatility > 0 {
		mult := targetVolatility / volatility
		if mult < volMultiplierMin {
			mult = volMultiplierMin
		}
		if mult > volMultiplierMax {
			mult = volMultiplierMax
		}
		size *= mult
	}

	// Discrete price tiers: fewer units as absolute price climbs.
	switch {
	case price >= 1000:
		size *= 0.25
	case price >= 500:
		size *= 0.5
	case price >= 100:
		size *= 0.75
	}

	if size < cfg.MinPositionSize {
		size = cfg.MinPositionSize
	}
	if size > cfg.MaxPositionSize {
		size = cfg.MaxPositionSize
	}
	return size
}
