// Package brokerapi is a typed client for the broker's REST and streaming
// APIs: session login with TOTP, daily candles, quotes, account state, and
// order placement.
package brokerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"tradingbotv1/internal/model"

	"github.com/pquerna/otp/totp"
)

const (
	defaultBaseURL = "https://api.broker.example.com"
	defaultTimeout = 10 * time.Second
)

var routes = map[string]string{
	"auth.login":    "/v1/auth/login",
	"auth.refresh":  "/v1/auth/refresh",
	"market.bars":   "/v1/market/bars",
	"market.quote":  "/v1/market/quote",
	"account.state": "/v1/account",
	"order.place":   "/v1/orders",
	"order.get":     "/v1/orders/",
}

// Config configures the broker client. APIKey, ClientID, Password and
// TOTPSecret come from the environment; BaseURL defaults to production.
type Config struct {
	BaseURL    string
	APIKey     string
	ClientID   string
	Password   string
	TOTPSecret string // base32 seed, TOTP code generated at login time
	Timeout    time.Duration
	Debug      bool
}

// Client talks to the broker REST API. Safe for concurrent use; the access
// token is guarded for mid-flight refresh.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
	feedToken   string
}

// NewClient creates a client without logging in. Call Login before the
// first authenticated request.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type loginResponse struct {
	Status      bool   `json:"status"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	FeedToken   string `json:"feed_token"`
}

// Login generates the current TOTP code from the configured seed and
// exchanges credentials for access and feed tokens.
func (c *Client) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("brokerapi: totp generate: %w", err)
	}

	var resp loginResponse
	err = c.do(ctx, http.MethodPost, "auth.login", map[string]any{
		"client_id": c.cfg.ClientID,
		"password":  c.cfg.Password,
		"totp":      code,
	}, &resp)
	if err != nil {
		return fmt.Errorf("brokerapi: login: %w", err)
	}
	if !resp.Status {
		return fmt.Errorf("brokerapi: login rejected: %s", resp.Message)
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.feedToken = resp.FeedToken
	c.mu.Unlock()

	log.Printf("[brokerapi] session established for %s", c.cfg.ClientID)
	return nil
}

// FeedToken returns the streaming token obtained at login.
func (c *Client) FeedToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feedToken
}

type barPayload struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type barsResponse struct {
	Status  bool         `json:"status"`
	Message string       `json:"message"`
	Bars    []barPayload `json:"bars"`
}

// GetCandles fetches up to limit daily bars for symbol, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol string, limit int) ([]model.PriceBar, error) {
	var resp barsResponse
	err := c.doGet(ctx, "market.bars", url.Values{
		"symbol":    {symbol},
		"timeframe": {"1D"},
		"limit":     {strconv.Itoa(limit)},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("brokerapi: get candles %s: %w", symbol, err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("brokerapi: get candles %s: %s", symbol, resp.Message)
	}

	bars := make([]model.PriceBar, 0, len(resp.Bars))
	for _, b := range resp.Bars {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, fmt.Errorf("brokerapi: bad bar date %q for %s: %w", b.Date, symbol, err)
		}
		bars = append(bars, model.PriceBar{
			Symbol: symbol,
			Date:   date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return bars, nil
}

type quoteResponse struct {
	Status  bool    `json:"status"`
	Message string  `json:"message"`
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Volume  int64   `json:"volume"`
	TS      int64   `json:"ts"` // unix seconds
}

// GetQuote fetches the latest traded price and cumulative day volume.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	var resp quoteResponse
	err := c.doGet(ctx, "market.quote", url.Values{"symbol": {symbol}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("brokerapi: get quote %s: %w", symbol, err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("brokerapi: get quote %s: %s", symbol, resp.Message)
	}
	return &model.Quote{
		Symbol: resp.Symbol,
		Price:  resp.Price,
		Volume: resp.Volume,
		TS:     time.Unix(resp.TS, 0).UTC(),
	}, nil
}

type accountResponse struct {
	Status      bool    `json:"status"`
	Message     string  `json:"message"`
	Equity      float64 `json:"equity"`
	Cash        float64 `json:"cash"`
	BuyingPower float64 `json:"buying_power"`
}

// GetAccount fetches the current account snapshot. PeakEquity is left zero;
// the risk layer tracks the peak itself.
func (c *Client) GetAccount(ctx context.Context) (*model.AccountInfo, error) {
	var resp accountResponse
	err := c.doGet(ctx, "account.state", nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("brokerapi: get account: %w", err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("brokerapi: get account: %s", resp.Message)
	}
	return &model.AccountInfo{
		Equity:      resp.Equity,
		Cash:        resp.Cash,
		BuyingPower: resp.BuyingPower,
		AsOf:        time.Now().UTC(),
	}, nil
}

type orderResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// PlaceOrder submits the order and returns it with the broker order ID and
// status stamped on.
func (c *Client) PlaceOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	var resp orderResponse
	err := c.do(ctx, http.MethodPost, "order.place", map[string]any{
		"symbol":        order.Symbol,
		"side":          order.Side,
		"type":          order.OrderType,
		"time_in_force": order.TimeInForce,
		"qty":           order.Qty,
		"limit_price":   order.LimitPrice,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("brokerapi: place order: %w", err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("brokerapi: place order rejected: %s", resp.Message)
	}

	order.OrderID = resp.OrderID
	order.Status = "SUBMITTED"
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	return &order, nil
}

// ── transport ──

func (c *Client) doGet(ctx context.Context, route string, query url.Values, out any) error {
	path, ok := routes[route]
	if !ok {
		return fmt.Errorf("unknown route: %s", route)
	}
	reqURL := c.cfg.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	return c.roundTrip(ctx, http.MethodGet, reqURL, nil, out)
}

func (c *Client) do(ctx context.Context, method, route string, params map[string]any, out any) error {
	path, ok := routes[route]
	if !ok {
		return fmt.Errorf("unknown route: %s", route)
	}
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, method, c.cfg.BaseURL+path, body, out)
}

func (c *Client) roundTrip(ctx context.Context, method, reqURL string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.cfg.Debug {
		log.Printf("[brokerapi] %s %s body=%s", method, reqURL, body)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if c.cfg.Debug {
		log.Printf("[brokerapi] response code=%d body=%s", resp.StatusCode, raw)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("auth failure (HTTP %d): %s", resp.StatusCode, raw)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("bad JSON response (HTTP %d): %w", resp.StatusCode, err)
	}
	return nil
}
