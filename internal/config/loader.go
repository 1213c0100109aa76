package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load decodes the TOML file at path over Defaults(), loads .env if present
// and applies HIRAM_* overrides. A missing file, or an empty path, leaves the
// defaults in place. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose HIRAM_* variable is set and
// non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "HIRAM_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "HIRAM_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "HIRAM_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "HIRAM_SERVER_RATE_LIMIT_PER_MINUTE")
	setDuration(&cfg.Server.RequestTimeout, "HIRAM_SERVER_REQUEST_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "HIRAM_SERVER_SHUTDOWN_TIMEOUT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "HIRAM_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "HIRAM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "HIRAM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "HIRAM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "HIRAM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "HIRAM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "HIRAM_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "HIRAM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "HIRAM_POSTGRES_POOL_MIN_CONNS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HIRAM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HIRAM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HIRAM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "HIRAM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "HIRAM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "HIRAM_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "HIRAM_REDIS_KEY_PREFIX")
	setDuration(&cfg.Redis.HistoryTTL, "HIRAM_REDIS_HISTORY_TTL")
	setDuration(&cfg.Redis.ReferenceTTL, "HIRAM_REDIS_REFERENCE_TTL")
	setDuration(&cfg.Redis.LockTTL, "HIRAM_REDIS_LOCK_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "HIRAM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "HIRAM_S3_REGION")
	setStr(&cfg.S3.Bucket, "HIRAM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "HIRAM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "HIRAM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "HIRAM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "HIRAM_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "HIRAM_S3_PREFIX")
	setInt(&cfg.S3.KeepSnapshots, "HIRAM_S3_KEEP_SNAPSHOTS")

	// ── Yahoo ──
	setStr(&cfg.Yahoo.BaseURL, "HIRAM_YAHOO_BASE_URL")
	setStr(&cfg.Yahoo.Range, "HIRAM_YAHOO_RANGE")
	setDuration(&cfg.Yahoo.Timeout, "HIRAM_YAHOO_TIMEOUT")
	setStr(&cfg.Yahoo.UserAgent, "HIRAM_YAHOO_USER_AGENT")

	// ── Pricing ──
	setInt(&cfg.Pricing.MCPaths, "HIRAM_PRICING_MC_PATHS")
	setUint64(&cfg.Pricing.MCSeed, "HIRAM_PRICING_MC_SEED")
	setInt(&cfg.Pricing.MCSteps, "HIRAM_PRICING_MC_STEPS")
	setInt(&cfg.Pricing.BinomialSteps, "HIRAM_PRICING_BINOMIAL_STEPS")
	setInt(&cfg.Pricing.MaxSweepPoints, "HIRAM_PRICING_MAX_SWEEP_POINTS")
	setInt(&cfg.Pricing.SweepWorkers, "HIRAM_PRICING_SWEEP_WORKERS")

	// ── Top-level ──
	setStr(&cfg.Mode, "HIRAM_MODE")
	setStr(&cfg.LogLevel, "HIRAM_LOG_LEVEL")
}

// Typed env helpers. Each only touches dst when the variable is set,
// non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
