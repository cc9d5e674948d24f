// Package config loads the engine's configuration: an optional JSON
// file (config.json) followed by environment-variable overrides, the
// overrides always taking precedence. Adapted directly from the
// reference stack's config/config.go loader and getEnvXOrDefault idiom.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"signalforge/internal/fuser"
	"signalforge/internal/market"
)

// Config is the top-level engine configuration, covering the ingress,
// fusion/suppression, store, cache, vault, notifier, metrics, and
// logging concerns named in SPEC_FULL.md §6/§12.
type Config struct {
	Symbols    []string
	Timeframes []string

	Fuser fuser.Config

	Stream StreamConfig
	Rest   RestConfig

	Store    StoreConfig
	Redis    RedisConfig
	Vault    VaultConfig
	Notifier NotifierConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

type StreamConfig struct {
	BaseURL        string
	ReconnectDelay time.Duration
	MaxRetries     int // -1 = infinite
}

type RestConfig struct {
	BaseURL              string
	RateLimitPerMinute   int
	MaxCandlesPerRequest int
}

type StoreConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type RedisConfig struct {
	Enabled bool
	Addr    string
}

type VaultConfig struct {
	Enabled   bool
	Address   string
	Token     string
	MountPath string
	BasePath  string
}

type NotifierConfig struct {
	TelegramBotToken  string
	TelegramChatID    string
	DiscordWebhookURL string
}

type MetricsConfig struct {
	Port int // 0 disables the /healthz + /metrics HTTP listener
}

type LoggingConfig struct {
	Level  string
	Format string // json|text
}

// Load builds a Config from config.json (if present) followed by
// environment overrides, which always win.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = defaultConfig()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	fc := fuser.DefaultConfig()
	return &Config{
		Symbols:    []string{"BTCUSDT"},
		Timeframes: []string{"1h"},
		Fuser:      fc,
		Stream: StreamConfig{
			BaseURL:        "wss://stream.binance.com:9443",
			ReconnectDelay: 5 * time.Second,
			MaxRetries:     -1,
		},
		Rest: RestConfig{
			BaseURL:              "https://api.binance.com",
			RateLimitPerMinute:   1200,
			MaxCandlesPerRequest: 1500,
		},
		Store: StoreConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "signalforge",
			Database: "signalforge",
			SSLMode:  "disable",
		},
		Logging: LoggingConfig{Level: "INFO", Format: "json"},
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := defaultConfig()
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies the named environment effects of spec §6/§12.
// These always take precedence over config.json and the built-in defaults.
func applyEnvOverrides(cfg *Config) {
	cfg.Symbols = getEnvListOrDefault("SYMBOLS", cfg.Symbols)
	cfg.Timeframes = getEnvListOrDefault("TIMEFRAMES", cfg.Timeframes)

	cfg.Fuser.MinConfidence = getEnvFloatOrDefault("MIN_CONFIDENCE", cfg.Fuser.MinConfidence)
	cfg.Fuser.SignalCooldown = getEnvDurationSecondsOrDefault("SIGNAL_COOLDOWN", cfg.Fuser.SignalCooldown)
	cfg.Fuser.EnableWyckoff = getEnvBoolOrDefault("ENABLE_WYCKOFF", cfg.Fuser.EnableWyckoff)
	cfg.Fuser.EnableElliott = getEnvBoolOrDefault("ENABLE_ELLIOTT", cfg.Fuser.EnableElliott)

	cfg.Stream.ReconnectDelay = getEnvDurationSecondsOrDefault("WS_RECONNECT_DELAY", cfg.Stream.ReconnectDelay)
	cfg.Stream.MaxRetries = getEnvIntOrDefault("WS_MAX_RETRIES", cfg.Stream.MaxRetries)

	cfg.Rest.RateLimitPerMinute = getEnvIntOrDefault("BINANCE_RATE_LIMIT_PER_MINUTE", cfg.Rest.RateLimitPerMinute)
	cfg.Rest.MaxCandlesPerRequest = getEnvIntOrDefault("MAX_CANDLES_PER_REQUEST", cfg.Rest.MaxCandlesPerRequest)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)

	cfg.Store.Host = getEnvOrDefault("STORE_HOST", cfg.Store.Host)
	cfg.Store.Port = getEnvIntOrDefault("STORE_PORT", cfg.Store.Port)
	cfg.Store.User = getEnvOrDefault("STORE_USER", cfg.Store.User)
	cfg.Store.Password = getEnvOrDefault("STORE_PASSWORD", cfg.Store.Password)
	cfg.Store.Database = getEnvOrDefault("STORE_DATABASE", cfg.Store.Database)
	cfg.Store.SSLMode = getEnvOrDefault("STORE_SSLMODE", cfg.Store.SSLMode)

	cfg.Redis.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)

	cfg.Vault.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.Vault.Enabled)
	cfg.Vault.Address = getEnvOrDefault("VAULT_ADDR", cfg.Vault.Address)
	cfg.Vault.Token = getEnvOrDefault("VAULT_TOKEN", cfg.Vault.Token)
	if cfg.Vault.MountPath == "" {
		cfg.Vault.MountPath = "secret"
	}
	if cfg.Vault.BasePath == "" {
		cfg.Vault.BasePath = "signalforge"
	}

	cfg.Metrics.Port = getEnvIntOrDefault("METRICS_PORT", cfg.Metrics.Port)

	cfg.Notifier.TelegramBotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.Notifier.TelegramBotToken)
	cfg.Notifier.TelegramChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.Notifier.TelegramChatID)
	cfg.Notifier.DiscordWebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.Notifier.DiscordWebhookURL)
}

// StreamKeys expands Symbols x Timeframes into the (symbol, interval)
// subscription set the ingress stream client multiplexes over one
// connection.
func (c *Config) StreamKeys() []market.Key {
	keys := make([]market.Key, 0, len(c.Symbols)*len(c.Timeframes))
	for _, sym := range c.Symbols {
		for _, tf := range c.Timeframes {
			keys = append(keys, market.Key{Symbol: sym, Interval: tf})
		}
	}
	return keys
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDurationSecondsOrDefault reads an integer-seconds env var (the
// named effects in spec §6 express durations as bare seconds, e.g.
// SIGNAL_COOLDOWN=300) rather than Go duration syntax.
func getEnvDurationSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// GenerateSampleConfig returns a pretty-printed JSON skeleton matching
// defaultConfig, for operators bootstrapping a config.json.
func GenerateSampleConfig() (string, error) {
	data, err := json.MarshalIndent(defaultConfig(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
