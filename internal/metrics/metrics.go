package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading bot.
type Metrics struct {
	DecisionsTotal *prometheus.CounterVec // labels: action
	OrdersTotal    *prometheus.CounterVec // labels: side, status
	CyclesTotal    prometheus.Counter
	CycleErrors    prometheus.Counter

	BarFetchDur prometheus.Histogram
	ComputeDur  prometheus.Histogram
	DecideDur   prometheus.Histogram

	StreamReconnects prometheus.Counter
	DroppedTicks     prometheus.Counter

	Equity        prometheus.Gauge
	PositionQty   prometheus.Gauge
	UnrealizedPnL prometheus.Gauge
	RealizedPnL   prometheus.Gauge // cumulative, goes down on losses

	RiskPauses  *prometheus.CounterVec // labels: gate
	MarketState prometheus.Gauge       // 0=closed, 1=open
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_decisions_total",
			Help: "Decisions produced by the strategy engine (by action)",
		}, []string{"action"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_orders_total",
			Help: "Orders executed (by side and status)",
		}, []string{"side", "status"}),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_cycles_total",
			Help: "Evaluation cycles completed",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_cycle_errors_total",
			Help: "Evaluation cycles aborted by an error",
		}),

		BarFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradingbot_bar_fetch_duration_seconds",
			Help:    "Daily bar fetch latency (cache or broker)",
			Buckets: prometheus.DefBuckets,
		}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradingbot_indicator_compute_duration_seconds",
			Help:    "Indicator snapshot compute latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		DecideDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradingbot_decide_duration_seconds",
			Help:    "Strategy decision latency",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),

		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_stream_reconnects_total",
			Help: "Quote stream reconnection attempts",
		}),
		DroppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradingbot_dropped_ticks_total",
			Help: "Quote ticks dropped on a full ring buffer",
		}),

		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradingbot_equity",
			Help: "Current account equity",
		}),
		PositionQty: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradingbot_position_qty",
			Help: "Current position quantity (0 when flat)",
		}),
		UnrealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradingbot_unrealized_pnl_percent",
			Help: "Unrealized P&L percent of the open position",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradingbot_realized_pnl",
			Help: "Cumulative realized P&L from closed trades",
		}),

		RiskPauses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradingbot_risk_pauses_total",
			Help: "Entries blocked by a risk gate (by gate)",
		}, []string{"gate"}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradingbot_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
	}

	prometheus.MustRegister(
		m.DecisionsTotal,
		m.OrdersTotal,
		m.CyclesTotal,
		m.CycleErrors,
		m.BarFetchDur,
		m.ComputeDur,
		m.DecideDur,
		m.StreamReconnects,
		m.DroppedTicks,
		m.Equity,
		m.PositionQty,
		m.UnrealizedPnL,
		m.RealizedPnL,
		m.RiskPauses,
		m.MarketState,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	StreamConnected bool      `json:"stream_connected"`
	LastQuoteTime   time.Time `json:"last_quote_time"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	BrokerSessionOK bool      `json:"broker_session_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastQuoteTime(t time.Time) {
	h.mu.Lock()
	h.LastQuoteTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetBrokerSessionOK(v bool) {
	h.mu.Lock()
	h.BrokerSessionOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Determine overall status
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.SQLiteOK || !h.BrokerSessionOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.SQLiteOK && !h.BrokerSessionOK {
		overallStatus = "unhealthy"
	}

	// Quote age
	quoteAge := ""
	if !h.LastQuoteTime.IsZero() {
		quoteAge = time.Since(h.LastQuoteTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		StreamConnected bool    `json:"stream_connected"`
		LastQuoteTime   string  `json:"last_quote_time"`
		QuoteAge        string  `json:"quote_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		BrokerSessionOK bool    `json:"broker_session_ok"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		StreamConnected: h.StreamConnected,
		LastQuoteTime:   h.LastQuoteTime.Format(time.RFC3339),
		QuoteAge:        quoteAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		BrokerSessionOK: h.BrokerSessionOK,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
