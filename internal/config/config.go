// Package config defines the service configuration and its validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration. Fields come from an optional TOML file
// and are then overridden by HIRAM_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Yahoo    YahooConfig    `toml:"yahoo"`
	Pricing  PricingConfig  `toml:"pricing"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port               int      `toml:"port"`
	CORSOrigins        []string `toml:"cors_origins"`
	APIKey             string   `toml:"api_key"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	RequestTimeout     duration `toml:"request_timeout"`
	ShutdownTimeout    duration `toml:"shutdown_timeout"`
}

// PostgresConfig holds the reference database connection. It is optional:
// leave both dsn and host empty to run without reference data.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// Enabled reports whether a database is configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.DSN) != "" || p.Host != ""
}

// RedisConfig holds the cache connection. Empty addr disables caching, rate
// limiting and fetch locks.
type RedisConfig struct {
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	KeyPrefix    string   `toml:"key_prefix"`
	HistoryTTL   duration `toml:"history_ttl"`
	ReferenceTTL duration `toml:"reference_ttl"`
	LockTTL      duration `toml:"lock_ttl"`
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// S3Config holds the history archive bucket. Empty bucket disables it.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
	KeepSnapshots  int    `toml:"keep_snapshots"`
}

// Enabled reports whether an archive bucket is configured.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

// YahooConfig holds the market-data source settings.
type YahooConfig struct {
	BaseURL   string   `toml:"base_url"`
	Range     string   `toml:"range"`
	Interval  string   `toml:"interval"`
	Timeout   duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

// PricingConfig tunes the pricing engines and sweeps.
type PricingConfig struct {
	MCPaths        int    `toml:"mc_paths"`
	MCSeed         uint64 `toml:"mc_seed"`
	MCSteps        int    `toml:"mc_steps"`
	BinomialSteps  int    `toml:"binomial_steps"`
	MaxSweepPoints int    `toml:"max_sweep_points"`
	SweepWorkers   int    `toml:"sweep_workers"`
}

// duration is a time.Duration that decodes from TOML strings like "15m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config that runs the pricer and Yahoo-backed analytics
// with no external stores.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:               8000,
			CORSOrigins:        []string{"http://localhost:5173", "http://localhost:3000"},
			RateLimitPerMinute: 120,
			RequestTimeout:     duration{30 * time.Second},
			ShutdownTimeout:    duration{10 * time.Second},
		},
		Postgres: PostgresConfig{
			Port:         5432,
			Database:     "postgres",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			PoolSize:     20,
			MaxRetries:   3,
			KeyPrefix:    "hiram:",
			HistoryTTL:   duration{15 * time.Minute},
			ReferenceTTL: duration{time.Hour},
			LockTTL:      duration{30 * time.Second},
		},
		S3: S3Config{
			Region:        "us-east-1",
			UseSSL:        true,
			Prefix:        "hiram/",
			KeepSnapshots: 30,
		},
		Yahoo: YahooConfig{
			BaseURL:   "https://query1.finance.yahoo.com",
			Range:     "5y",
			Interval:  "1d",
			Timeout:   duration{15 * time.Second},
			UserAgent: "Mozilla/5.0 (compatible; hiram/1.0)",
		},
		Pricing: PricingConfig{
			MCPaths:        20000,
			MCSeed:         42,
			MCSteps:        50,
			BinomialSteps:  200,
			MaxSweepPoints: 1000,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"check": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validRanges = map[string]bool{
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// Validate checks Config for invalid or missing values and returns one error
// listing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, check)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, "server: rate_limit_per_minute must be >= 0")
	}
	if c.Server.RequestTimeout.Duration < 0 {
		errs = append(errs, "server: request_timeout must be >= 0")
	}

	// Postgres
	if c.Postgres.Enabled() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled() {
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.HistoryTTL.Duration <= 0 {
			errs = append(errs, "redis: history_ttl must be > 0")
		}
		if c.Redis.ReferenceTTL.Duration <= 0 {
			errs = append(errs, "redis: reference_ttl must be > 0")
		}
	}

	// S3
	if c.S3.Enabled() {
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
			errs = append(errs, "s3: access_key and secret_key must be set together")
		}
		if c.S3.KeepSnapshots < 0 {
			errs = append(errs, "s3: keep_snapshots must be >= 0")
		}
	}

	// Yahoo
	if u, err := url.Parse(c.Yahoo.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("yahoo: base_url must be an absolute URL, got %q", c.Yahoo.BaseURL))
	}
	if !validRanges[c.Yahoo.Range] {
		errs = append(errs, fmt.Sprintf("yahoo: unsupported range %q (valid: 1y, 2y, 5y, 10y, ytd, max)", c.Yahoo.Range))
	}
	if c.Yahoo.Interval != "1d" {
		errs = append(errs, fmt.Sprintf("yahoo: interval must be 1d, got %q", c.Yahoo.Interval))
	}

	// Pricing
	if c.Pricing.MCPaths < 100 {
		errs = append(errs, fmt.Sprintf("pricing: mc_paths must be >= 100, got %d", c.Pricing.MCPaths))
	}
	if c.Pricing.MCSteps < 1 {
		errs = append(errs, "pricing: mc_steps must be >= 1")
	}
	if c.Pricing.BinomialSteps < 3 {
		errs = append(errs, "pricing: binomial_steps must be >= 3")
	}
	if c.Pricing.MaxSweepPoints < 2 {
		errs = append(errs, "pricing: max_sweep_points must be >= 2")
	}
	if c.Pricing.SweepWorkers < 0 {
		errs = append(errs, "pricing: sweep_workers must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
