// Package config loads runtime configuration from environment variables
// (and an optional .env file) and derives the reconciler reference data.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"lotkeeper/internal/app"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

// Config holds all runtime configuration. Every field maps 1:1 to an env var.
type Config struct {
	// Server
	Env      string `mapstructure:"APP_ENV"` // development | production
	Port     int    `mapstructure:"APP_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database; empty selects the in-memory store
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`

	// Redis; empty selects the in-process locker and a log-only relay
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Product locks
	LockTTL  time.Duration `mapstructure:"LOCK_TTL"`
	LockWait time.Duration `mapstructure:"LOCK_WAIT"`

	// Reconciler reference data
	DeferredTermDays     int    `mapstructure:"DEFERRED_TERM_DAYS"`
	AllowNegativeStock   bool   `mapstructure:"ALLOW_NEGATIVE_STOCK"`
	DefaultMarginPercent string `mapstructure:"DEFAULT_MARGIN_PERCENT"`
	PurchaseTermDays     int    `mapstructure:"PURCHASE_TERM_DAYS"`
	InstallmentDays      int    `mapstructure:"INSTALLMENT_INTERVAL_DAYS"`

	// Outbox relay
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	OutboxChannel      string        `mapstructure:"OUTBOX_CHANNEL"`
	OutboxRetention    time.Duration `mapstructure:"OUTBOX_RETENTION"`

	// Storage extras
	AuditCompressThreshold int           `mapstructure:"AUDIT_COMPRESS_THRESHOLD"`
	IdempotencyTTL         time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
}

var defaults = map[string]any{
	"APP_ENV":                   "development",
	"APP_PORT":                  8080,
	"LOG_LEVEL":                 "info",
	"DATABASE_URL":              "",
	"DB_MAX_CONNS":              10,
	"REDIS_ADDR":                "",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"LOCK_TTL":                  "30s",
	"LOCK_WAIT":                 "5s",
	"DEFERRED_TERM_DAYS":        30,
	"ALLOW_NEGATIVE_STOCK":      false,
	"DEFAULT_MARGIN_PERCENT":    "0",
	"PURCHASE_TERM_DAYS":        30,
	"INSTALLMENT_INTERVAL_DAYS": 30,
	"OUTBOX_POLL_INTERVAL":      "2s",
	"OUTBOX_BATCH_SIZE":         100,
	"OUTBOX_CHANNEL":            "lotkeeper.events",
	"OUTBOX_RETENTION":          "168h",
	"AUDIT_COMPRESS_THRESHOLD":  postgres.DefaultCompressThreshold,
	"IDEMPOTENCY_TTL":           "24h",
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Defaults also register every key, so Unmarshal sees env-only values.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Optional .env file for local development; does not fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.Port)
	}
	if c.DeferredTermDays < 0 || c.PurchaseTermDays < 0 || c.InstallmentDays < 0 {
		return fmt.Errorf("term days cannot be negative")
	}
	if _, err := c.margin(); err != nil {
		return err
	}
	if c.LockWait < 0 || c.LockTTL < 0 {
		return fmt.Errorf("lock durations cannot be negative")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// UsesPostgres reports whether DATABASE_URL selects the Postgres store.
func (c *Config) UsesPostgres() bool { return c.DatabaseURL != "" }

// UsesRedis reports whether REDIS_ADDR is set.
func (c *Config) UsesRedis() bool { return c.RedisAddr != "" }

// Engine builds the reconciler reference data.
func (c *Config) Engine() app.Config {
	cfg := app.DefaultConfig()
	cfg.Sale.DeferredTermDays = c.DeferredTermDays
	cfg.Sale.AllowNegativeStock = c.AllowNegativeStock
	cfg.Purchase.DefaultTermDays = c.PurchaseTermDays
	cfg.Purchase.DefaultIntervalDays = c.InstallmentDays
	if m, err := c.margin(); err == nil {
		cfg.Purchase.DefaultMarginPercent = m
	}
	return cfg
}

// Pool returns the Postgres pool configuration.
func (c *Config) Pool() postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(c.DatabaseURL)
	if c.DBMaxConns > 0 {
		pc.MaxConns = c.DBMaxConns
		if pc.MinConns > pc.MaxConns {
			pc.MinConns = pc.MaxConns
		}
	}
	return pc
}

func (c *Config) margin() (decimal.Decimal, error) {
	if c.DefaultMarginPercent == "" {
		return decimal.Zero, nil
	}
	m, err := decimal.NewFromString(c.DefaultMarginPercent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("DEFAULT_MARGIN_PERCENT: %w", err)
	}
	if m.IsNegative() {
		return decimal.Zero, fmt.Errorf("DEFAULT_MARGIN_PERCENT cannot be negative")
	}
	return m, nil
}
