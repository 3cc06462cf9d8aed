package strategy

import (
	"math"
	"testing"
)

func TestPositionSize_VolatilityDamper(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasePositionSize = 2.0
	cfg.MaxPositionSize = 10.0

	tests := []struct {
		name       string
		volatility float64
		want       float64
	}{
		{"at target vol", 0.02, 2.0},
		{"double vol halves size", 0.04, 1.0},
		{"extreme vol clamps at 0.5x", 0.20, 1.0},
		{"calm market clamps at 1.5x", 0.005, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := positionSize(50, tt.volatility, cfg)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("positionSize(50, %.3f) = %.4f, want %.4f", tt.volatility, got, tt.want)
			}
		})
	}
}

func TestPositionSize_PriceTiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasePositionSize = 4.0
	cfg.MaxPositionSize = 10.0

	tests := []struct {
		price float64
		want  float64
	}{
		{50, 4.0},     // no tier
		{100, 3.0},    // 0.75x
		{500, 2.0},    // 0.5x
		{1000, 1.0},   // 0.25x
		{2500, 1.0},   // still 0.25x
	}

	for _, tt := range tests {
		got := positionSize(tt.price, targetVolatility, cfg)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("positionSize(%.0f) = %.4f, want %.4f", tt.price, got, tt.want)
		}
	}
}

func TestPositionSize_Clamps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasePositionSize = 100
	cfg.MinPositionSize = 0.5
	cfg.MaxPositionSize = 5

	if got := positionSize(50, targetVolatility, cfg); got != 5 {
		t.Errorf("oversized result = %.4f, want clamp to max 5", got)
	}

	cfg.BasePositionSize = 0.001
	if got := positionSize(50, targetVolatility, cfg); got != 0.5 {
		t.Errorf("undersized result = %.4f, want clamp to min 0.5", got)
	}
}
