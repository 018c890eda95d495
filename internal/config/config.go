// Package config loads process configuration from .env, an optional TOML file and the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// ConfigPathEnv names the variable holding the optional TOML file path
const ConfigPathEnv = "COINFOLIO_CONFIG"

// ErrConfigMissing marks required configuration that is absent.
// The process must not start when it is returned.
var ErrConfigMissing = errors.New("required configuration missing")

// Config holds all configuration for the bot
type Config struct {
	BotToken    string         `toml:"bot_token"`
	DatabaseURL string         `toml:"database_url"`
	Bot         BotConfig      `toml:"bot"`
	Database    DatabaseConfig `toml:"database"`
	Exchange    ExchangeConfig `toml:"exchange"`
	Snapshot    SnapshotConfig `toml:"snapshot"`
	Ops         OpsConfig      `toml:"ops"`
	Logging     LoggingConfig  `toml:"logging"`
}

// BotConfig tunes update handling
type BotConfig struct {
	Workers    int    `toml:"workers"`
	SessionTTL string `toml:"session_ttl"` // how long a pending add waits for input
}

// DatabaseConfig controls the startup connection retry
type DatabaseConfig struct {
	ConnectAttempts int    `toml:"connect_attempts"`
	ConnectBackoff  string `toml:"connect_backoff"` // initial delay, doubled per attempt
}

// ExchangeConfig holds the price API client configuration
type ExchangeConfig struct {
	BaseURL    string `toml:"base_url"`
	QuoteAsset string `toml:"quote_asset"`
	Timeout    string `toml:"timeout"`
	RateLimit  int    `toml:"rate_limit"` // requests per second
}

// SnapshotConfig holds the periodic snapshot job configuration
type SnapshotConfig struct {
	Interval string `toml:"interval"`
}

// OpsConfig holds the gRPC health endpoint configuration
// An empty Addr disables the endpoint
type OpsConfig struct {
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns a configuration with every optional field set
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			Workers:    8,
			SessionTTL: "15m",
		},
		Database: DatabaseConfig{
			ConnectAttempts: 10,
			ConnectBackoff:  "2s",
		},
		Exchange: ExchangeConfig{
			BaseURL:    "https://api.binance.com/api/v3",
			QuoteAsset: "USDT",
			Timeout:    "10s",
			RateLimit:  10,
		},
		Snapshot: SnapshotConfig{
			Interval: "6h",
		},
		Ops: OpsConfig{
			Addr: ":8081",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads .env (if present), the TOML file named by COINFOLIO_CONFIG
// (if set) and environment overrides, then validates the result
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(os.Getenv(ConfigPathEnv))
}

// LoadFrom builds the configuration from defaults, an optional TOML file and the environment
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.BotToken, "BOT_TOKEN")
	setString(&c.DatabaseURL, "RAILWAY_POSTGRESQL_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Database.ConnectBackoff, "DB_CONNECT_BACKOFF")
	setString(&c.Exchange.BaseURL, "BINANCE_BASE_URL")
	setString(&c.Exchange.QuoteAsset, "QUOTE_ASSET")
	setString(&c.Exchange.Timeout, "HTTP_TIMEOUT")
	setString(&c.Snapshot.Interval, "SNAPSHOT_INTERVAL")
	setString(&c.Ops.Addr, "OPS_ADDR")
	setString(&c.Ops.Token, "OPS_TOKEN")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Bot.SessionTTL, "SESSION_TTL")

	if err := setInt(&c.Bot.Workers, "BOT_WORKERS"); err != nil {
		return err
	}

	if err := setInt(&c.Database.ConnectAttempts, "DB_CONNECT_ATTEMPTS"); err != nil {
		return err
	}
	return setInt(&c.Exchange.RateLimit, "BINANCE_RATE_LIMIT")
}

// Validate checks required fields and duration syntax
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("%w: BOT_TOKEN is not set", ErrConfigMissing)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: neither DATABASE_URL nor RAILWAY_POSTGRESQL_URL is set", ErrConfigMissing)
	}
	if c.Exchange.QuoteAsset == "" {
		return errors.New("exchange quote asset cannot be empty")
	}
	if c.Database.ConnectAttempts < 1 {
		return errors.New("database connect attempts must be at least 1")
	}
	if c.Bot.Workers < 1 {
		return errors.New("bot workers must be at least 1")
	}
	if c.Exchange.RateLimit < 1 {
		return errors.New("exchange rate limit must be at least 1")
	}

	for name, value := range map[string]string{
		"database.connect_backoff": c.Database.ConnectBackoff,
		"exchange.timeout":        c.Exchange.Timeout,
		"snapshot.interval":       c.Snapshot.Interval,
		"bot.session_ttl":         c.Bot.SessionTTL,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// ExchangeTimeout returns the per-request timeout of the price API client
func (c *Config) ExchangeTimeout() time.Duration {
	return mustDuration(c.Exchange.Timeout)
}

// SnapshotInterval returns the period of the snapshot job
func (c *Config) SnapshotInterval() time.Duration {
	return mustDuration(c.Snapshot.Interval)
}

// ConnectBackoff returns the initial delay between database connect attempts
func (c *Config) ConnectBackoff() time.Duration {
	return mustDuration(c.Database.ConnectBackoff)
}

// SessionTTL returns how long a pending dialogue is kept
func (c *Config) SessionTTL() time.Duration {
	return mustDuration(c.Bot.SessionTTL)
}

// mustDuration is only called on values that passed Validate
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	*dst = n
	return nil
}
