// Package config loads runtime configuration: credentials and infrastructure
// addresses from environment variables, strategy and indicator thresholds
// from a YAML file via viper.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"tradingbotv1/internal/indicator"
	"tradingbotv1/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	// Broker credentials
	BrokerAPIKey     string
	BrokerClientID   string
	BrokerPassword   string
	BrokerTOTPSecret string
	BrokerBaseURL    string
	BrokerStreamURL  string

	// Trading
	Symbol       string
	Mode         string // "paper" or "live"
	Interval     time.Duration
	BarLimit     int
	SlippageBps  float64
	IgnoreHours  bool

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	APIAddr       string

	// Notifications (empty disables the backend)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Thresholds from YAML
	Strategy  strategy.Config
	Indicator indicator.Config
}

// Load reads env vars and the strategy YAML (path from STRATEGY_CONFIG,
// default config/strategy.yaml). Live mode requires broker credentials;
// paper mode runs without them.
func Load() (*Config, error) {
	cfg := &Config{
		Mode:        getEnv("TRADING_MODE", "paper"),
		Symbol:      getEnv("TRADING_SYMBOL", "AAPL"),
		BarLimit:    getEnvInt("BAR_LIMIT", 250),
		SlippageBps: float64(getEnvInt("PAPER_SLIPPAGE_BPS", 5)),
		IgnoreHours: getEnv("IGNORE_MARKET_HOURS", "") == "1",

		BrokerBaseURL:   getEnv("BROKER_BASE_URL", ""),
		BrokerStreamURL: getEnv("BROKER_STREAM_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/tradingbot.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("ALERT_WEBHOOK_URL", ""),
	}

	interval, err := time.ParseDuration(getEnv("EVAL_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("config: bad EVAL_INTERVAL: %w", err)
	}
	cfg.Interval = interval

	switch cfg.Mode {
	case "paper":
		// Credentials optional: quotes still need the broker, but a missing
		// key fails at login, not here.
		cfg.BrokerAPIKey = getEnv("BROKER_API_KEY", "")
		cfg.BrokerClientID = getEnv("BROKER_CLIENT_ID", "")
		cfg.BrokerPassword = getEnv("BROKER_PASSWORD", "")
		cfg.BrokerTOTPSecret = getEnv("BROKER_TOTP_SECRET", "")
	case "live":
		cfg.BrokerAPIKey = mustEnv("BROKER_API_KEY")
		cfg.BrokerClientID = mustEnv("BROKER_CLIENT_ID")
		cfg.BrokerPassword = mustEnv("BROKER_PASSWORD")
		cfg.BrokerTOTPSecret = mustEnv("BROKER_TOTP_SECRET")
	default:
		return nil, fmt.Errorf("config: unknown TRADING_MODE %q (want paper or live)", cfg.Mode)
	}

	if err := cfg.loadThresholds(getEnv("STRATEGY_CONFIG", "config/strategy.yaml")); err != nil {
		return nil, err
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, fmt.Errorf("config: strategy: %w", err)
	}
	return cfg, nil
}

// loadThresholds reads the strategy and indicator sections from YAML.
// A missing file keeps the defaults; a malformed one is an error.
func (c *Config) loadThresholds(path string) error {
	c.Strategy = strategy.DefaultConfig()
	c.Indicator = indicator.DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Printf("[config] no strategy file at %s, using defaults", path)
			return nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("[config] no strategy file at %s, using defaults", path)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := v.UnmarshalKey("strategy", &c.Strategy); err != nil {
		return fmt.Errorf("config: strategy section: %w", err)
	}
	if err := v.UnmarshalKey("indicators", &c.Indicator); err != nil {
		return fmt.Errorf("config: indicators section: %w", err)
	}
	log.Printf("[config] loaded thresholds from %s", path)
	return nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
