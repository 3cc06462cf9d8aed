// Package marketdata feeds the decision engine: validated daily bar history
// over a cache-through provider, and live quotes fanned in from the broker
// stream through a lock-free ring.
package marketdata

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"tradingbotv1/internal/model"
)

// CandleFetcher fetches daily history from the broker (brokerapi.Client).
type CandleFetcher interface {
	GetCandles(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error)
}

// BarCache is the optional Redis-backed cache in front of the fetcher.
type BarCache interface {
	GetDailyBars(ctx context.Context, symbol string) ([]model.PriceBar, error)
	SetDailyBars(ctx context.Context, symbol string, bars []model.PriceBar)
}

// BarProvider implements model.BarProvider: cache first, broker on a miss,
// history validated before anyone computes on it.
type BarProvider struct {
	fetcher CandleFetcher
	cache   BarCache // nil disables caching
}

// NewBarProvider creates a provider. cache may be nil.
func NewBarProvider(fetcher CandleFetcher, cache BarCache) *BarProvider {
	return &BarProvider{fetcher: fetcher, cache: cache}
}

// DailyBars returns up to limit validated daily bars, oldest first.
func (p *BarProvider) DailyBars(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error) {
	if p.cache != nil {
		cached, err := p.cache.GetDailyBars(ctx, symbol)
		if err != nil {
			log.Printf("[marketdata] bar cache read failed for %s: %v", symbol, err)
		} else if len(cached) >= limit {
			return tail(cached, limit), nil
		}
	}

	bars, err := p.fetcher.GetCandles(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("marketdata: fetch bars %s: %w", symbol, err)
	}
	bars, err = ValidateBars(bars)
	if err != nil {
		return nil, fmt.Errorf("marketdata: %s: %w", symbol, err)
	}

	if p.cache != nil {
		p.cache.SetDailyBars(ctx, symbol, bars)
	}
	return tail(bars, limit), nil
}

// ValidateBars sorts the history date-ascending, drops duplicate dates
// (keeping the later entry), and rejects bars with non-positive prices or
// negative volume.
func ValidateBars(bars []model.PriceBar) ([]model.PriceBar, error) {
	for i := range bars {
		b := &bars[i]
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return nil, fmt.Errorf("invalid bar on %s: non-positive price", b.Date.Format("2006-01-02"))
		}
		if b.Volume < 0 {
			return nil, fmt.Errorf("invalid bar on %s: negative volume", b.Date.Format("2006-01-02"))
		}
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	// Dedup by calendar date, later entry wins (stable sort keeps arrival order).
	out := bars[:0]
	var prev time.Time
	for _, b := range bars {
		day := b.Date.Truncate(24 * time.Hour)
		if !prev.IsZero() && day.Equal(prev) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
		prev = day
	}
	return out, nil
}

func tail(bars []model.PriceBar, limit int) []model.PriceBar {
	if limit > 0 && len(bars) > limit {
		return bars[len(bars)-limit:]
	}
	return bars
}
