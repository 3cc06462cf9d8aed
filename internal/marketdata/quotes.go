package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradingbotv1/internal/model"
	"tradingbotv1/internal/ringbuf"
)

const staleQuoteAfter = 2 * time.Minute

// QuoteFetcher polls the latest quote over REST (brokerapi.Client).
type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) (*model.Quote, error)
}

// QuoteCache is the optional Redis-backed quote cache.
type QuoteCache interface {
	SetQuote(ctx context.Context, q model.Quote)
}

// QuoteSource implements model.QuoteProvider. Live stream ticks land in the
// ring via Push (the stream callback); LatestQuote drains the ring and falls
// back to a REST poll when the stream has gone quiet.
type QuoteSource struct {
	symbol  string
	fetcher QuoteFetcher
	cache   QuoteCache // nil disables caching
	ring    *ringbuf.Ring

	last model.Quote
	ok   bool
}

// NewQuoteSource creates a source with a ring sized for a burst of ticks.
func NewQuoteSource(symbol string, fetcher QuoteFetcher, cache QuoteCache) *QuoteSource {
	return &QuoteSource{
		symbol:  symbol,
		fetcher: fetcher,
		cache:   cache,
		ring:    ringbuf.New(1024),
	}
}

// Push is the stream callback. Producer side of the ring; never blocks.
func (s *QuoteSource) Push(q model.Quote) {
	if !s.ring.Push(q) {
		// Ring full means the consumer stalled; the drop is counted.
		return
	}
}

// Overflow reports ticks dropped on a full ring, for metrics.
func (s *QuoteSource) Overflow() uint64 { return s.ring.Overflow() }

// LatestQuote returns the freshest quote available. Only the evaluation
// loop calls this (single consumer).
func (s *QuoteSource) LatestQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	if symbol != s.symbol {
		return nil, fmt.Errorf("marketdata: quote source bound to %s, asked for %s", s.symbol, symbol)
	}

	if q, ok := s.ring.Drain(); ok {
		s.last, s.ok = q, true
	}

	if s.ok && time.Since(s.last.TS) < staleQuoteAfter {
		q := s.last
		return &q, nil
	}

	// Stream quiet or never connected: poll REST.
	q, err := s.fetcher.GetQuote(ctx, symbol)
	if err != nil {
		if s.ok {
			log.Printf("[marketdata] quote poll failed for %s, using last stream tick: %v", symbol, err)
			stale := s.last
			return &stale, nil
		}
		return nil, fmt.Errorf("marketdata: quote %s: %w", symbol, err)
	}
	s.last, s.ok = *q, true

	if s.cache != nil {
		s.cache.SetQuote(ctx, *q)
	}
	return q, nil
}
