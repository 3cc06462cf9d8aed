// Package redis caches market data and fans decisions out to subscribers.
//
// The cache is strictly best-effort: the bot runs fine without Redis, it
// just refetches bars on every cycle and nobody gets live decision pushes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tradingbotv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultQuoteTTL = 30 * time.Second
	defaultBarTTL   = 15 * time.Minute

	// Decision stream trimming: a few days of one-per-minute decisions.
	decisionStreamMaxLen = 5000
)

// Config configures the Redis cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Cache wraps a Redis client for quote/bar caching and decision pub/sub.
type Cache struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates a new Cache and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{client: client}, nil
}

// SetQuote caches the latest quote for its symbol with a short TTL and
// publishes it for live subscribers.
func (c *Cache) SetQuote(ctx context.Context, q model.Quote) {
	data, err := json.Marshal(q)
	if err != nil {
		log.Printf("[redis] quote marshal error for %s: %v", q.Symbol, err)
		return
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, "quote:latest:"+q.Symbol, data, defaultQuoteTTL)
	pipe.Publish(ctx, "pub:quote:"+q.Symbol, data)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] quote pipeline error for %s: %v", q.Symbol, err)
	}
}

// GetQuote returns the cached quote for symbol, or nil on a miss.
func (c *Cache) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	data, err := c.client.Get(ctx, "quote:latest:"+symbol).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get quote: %w", err)
	}

	var q model.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("redis quote unmarshal: %w", err)
	}
	return &q, nil
}

// SetDailyBars caches a daily history so intraday cycles skip the REST
// round trip until the TTL rolls over.
func (c *Cache) SetDailyBars(ctx context.Context, symbol string, bars []model.PriceBar) {
	data, err := json.Marshal(bars)
	if err != nil {
		log.Printf("[redis] bar marshal error for %s: %v", symbol, err)
		return
	}
	if err := c.client.Set(ctx, "bars:daily:"+symbol, data, defaultBarTTL).Err(); err != nil {
		log.Printf("[redis] bar cache error for %s: %v", symbol, err)
	}
}

// GetDailyBars returns the cached daily history, or nil on a miss.
func (c *Cache) GetDailyBars(ctx context.Context, symbol string) ([]model.PriceBar, error) {
	data, err := c.client.Get(ctx, "bars:daily:"+symbol).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get bars: %w", err)
	}

	var bars []model.PriceBar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("redis bar unmarshal: %w", err)
	}
	return bars, nil
}

// PublishDecision records a decision on the trimmed stream, caches the
// latest one, and publishes it for dashboards in a single pipeline.
func (c *Cache) PublishDecision(ctx context.Context, symbol string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[redis] decision marshal error for %s: %v", symbol, err)
		return
	}

	pipe := c.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: "decisions:" + symbol,
		MaxLen: decisionStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Set(ctx, "decision:latest:"+symbol, data, 0)
	pipe.Publish(ctx, "pub:decision:"+symbol, data)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] decision pipeline error for %s: %v", symbol, err)
	}
}

// SubscribeDecisions subscribes to the decision channel for symbol and
// returns the raw payload channel. Callers must call Close on the
// returned PubSub when done.
func (c *Cache) SubscribeDecisions(ctx context.Context, symbol string) (*goredis.PubSub, <-chan *goredis.Message) {
	sub := c.client.Subscribe(ctx, "pub:decision:"+symbol)
	return sub, sub.Channel()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
