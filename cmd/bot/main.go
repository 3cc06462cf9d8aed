package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tradingbotv1/config"
	"tradingbotv1/internal/api"
	"tradingbotv1/internal/bot"
	"tradingbotv1/internal/execution"
	"tradingbotv1/internal/logger"
	"tradingbotv1/internal/marketdata"
	"tradingbotv1/internal/metrics"
	"tradingbotv1/internal/model"
	"tradingbotv1/internal/notification"
	"tradingbotv1/internal/risk"
	redisstore "tradingbotv1/internal/store/redis"
	sqlitestore "tradingbotv1/internal/store/sqlite"
	"tradingbotv1/internal/strategy"
	"tradingbotv1/pkg/brokerapi"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	slg := logger.Init("tradingbot", slog.LevelInfo)

	// ---- Load config ----
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[bot] config: %v", err)
	}
	slg.Info("starting",
		slog.String("symbol", cfg.Symbol),
		slog.String("mode", cfg.Mode),
		slog.Duration("interval", cfg.Interval))

	// ---- Graceful shutdown ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Broker client ----
	broker := brokerapi.NewClient(brokerapi.Config{
		BaseURL:    cfg.BrokerBaseURL,
		APIKey:     cfg.BrokerAPIKey,
		ClientID:   cfg.BrokerClientID,
		Password:   cfg.BrokerPassword,
		TOTPSecret: cfg.BrokerTOTPSecret,
	})
	sessionOK := false
	if cfg.BrokerAPIKey != "" {
		if err := broker.Login(ctx); err != nil {
			if cfg.Mode == "live" {
				log.Fatalf("[bot] broker login failed: %v", err)
			}
			log.Printf("[bot] WARNING: broker login failed: %v (paper mode continues)", err)
		} else {
			sessionOK = true
		}
	}

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetBrokerSessionOK(sessionOK || cfg.Mode == "paper")
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- SQLite store (positions + journal) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{
		DBPath:              cfg.SQLitePath,
		MinPositionQuantity: cfg.Strategy.MinPositionQuantity,
		MinPositionValue:    cfg.Strategy.MinPositionValue,
	})
	if err != nil {
		log.Fatalf("[bot] sqlite init failed: %v", err)
	}
	defer store.Close()
	health.SetSQLiteOK(true)

	// ---- Redis cache (optional) ----
	var cache *redisstore.Cache
	if cfg.RedisAddr != "" {
		cache, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[bot] WARNING: redis init failed: %v (continuing without cache)", err)
			cache = nil
		}
	}
	if cache != nil {
		defer cache.Close()
		health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	// ---- Market data ----
	var barCache marketdata.BarCache
	var quoteCache marketdata.QuoteCache
	if cache != nil {
		barCache = cache
		quoteCache = cache
	}
	bars := marketdata.NewBarProvider(broker, barCache)
	quotes := marketdata.NewQuoteSource(cfg.Symbol, broker, quoteCache)

	// ---- Live quote stream (needs a broker session) ----
	if sessionOK && cfg.BrokerStreamURL != "" {
		stream := brokerapi.NewStream(brokerapi.StreamConfig{
			URL:       cfg.BrokerStreamURL,
			APIKey:    cfg.BrokerAPIKey,
			FeedToken: broker.FeedToken(),
			Symbol:    cfg.Symbol,
		})
		stream.OnQuote = func(q model.Quote) {
			quotes.Push(q)
			health.SetLastQuoteTime(q.TS)
		}
		stream.OnConnect = func() { health.SetStreamConnected(true) }
		stream.OnDisconnect = func() {
			health.SetStreamConnected(false)
			prom.StreamReconnects.Inc()
		}
		go stream.Run(ctx)

		// Fold ring overflow into the dropped-ticks counter.
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			var seen uint64
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := quotes.Overflow(); n > seen {
						prom.DroppedTicks.Add(float64(n - seen))
						seen = n
					}
				}
			}
		}()
	}

	// ---- Strategy, risk, execution ----
	engine := strategy.NewEngine(cfg.Strategy)
	riskEval := risk.NewEvaluator(store, cfg.Strategy)

	var exec execution.Executor
	if cfg.Mode == "live" {
		exec = execution.NewBrokerExecutor(broker)
	} else {
		exec = execution.NewPaperExecutor(cfg.SlippageBps)
	}

	// ---- Notifications ----
	backends := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	notifier := notification.NewMultiNotifier(backends...)

	// ---- Bot ----
	var accounts bot.AccountProvider
	if sessionOK {
		accounts = broker
	}
	var publisher bot.DecisionPublisher
	if cache != nil {
		publisher = cache
	}

	trader, err := bot.New(
		bot.Config{
			Symbol:      cfg.Symbol,
			Interval:    cfg.Interval,
			BarLimit:    cfg.BarLimit,
			IgnoreHours: cfg.IgnoreHours,
		},
		cfg.Indicator,
		bot.Deps{
			Bars:      bars,
			Quotes:    quotes,
			Store:     store,
			Journal:   store,
			Engine:    engine,
			Risk:      riskEval,
			Executor:  exec,
			Accounts:  accounts,
			Notifier:  notifier,
			Metrics:   prom,
			Publisher: publisher,
			Logger:    slg,
		},
	)
	if err != nil {
		log.Fatalf("[bot] init failed: %v", err)
	}

	// ---- Status API ----
	apiSrv := &http.Server{
		Addr: cfg.APIAddr,
		Handler: api.NewRouter(api.Deps{
			Symbol:    cfg.Symbol,
			Positions: store,
			Trades:    store,
			Decisions: trader,
			StartedAt: time.Now(),
		}),
	}
	go func() {
		log.Printf("[api] listening on %s", cfg.APIAddr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()

	// ---- Run until signalled ----
	if err := trader.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("[bot] loop exited: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	slg.Info("stopped")
}
