package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.S3.Enabled())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Server.Port = 0
	cfg.Pricing.MCPaths = 10
	cfg.Yahoo.BaseURL = "query1.finance.yahoo.com"
	cfg.Pricing.BinomialSteps = 2

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"mode", "log_level", "server: port", "mc_paths", "base_url", "binomial_steps must be >= 3"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateOptionalSections(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.HistoryTTL = duration{0}
	cfg.S3.Bucket = "archive"
	cfg.S3.AccessKey = "AKIA"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_ttl")
	assert.Contains(t, err.Error(), "access_key and secret_key")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Pricing, cfg.Pricing)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hiram.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[server]
port = 9000
request_timeout = "5s"

[redis]
addr = "cache:6379"
history_ttl = "1m"

[pricing]
mc_paths = 5000
`), 0o600))

	t.Setenv("HIRAM_PRICING_MC_SEED", "7")
	t.Setenv("HIRAM_SERVER_CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("HIRAM_REDIS_PASSWORD", "hunter2")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout.Duration)
	assert.Equal(t, time.Minute, cfg.Redis.HistoryTTL.Duration)
	assert.Equal(t, time.Hour, cfg.Redis.ReferenceTTL.Duration)
	assert.Equal(t, 5000, cfg.Pricing.MCPaths)
	assert.Equal(t, uint64(7), cfg.Pricing.MCSeed)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "hunter2", cfg.Redis.Password)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrideIgnoresUnparsable(t *testing.T) {
	t.Setenv("HIRAM_SERVER_PORT", "eighty")
	t.Setenv("HIRAM_REDIS_LOCK_TTL", "soon")

	cfg := Defaults()
	applyEnvOverrides(&cfg)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL.Duration)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "key"
	cfg.Postgres.DSN = "postgres://u:p@db/ref"
	cfg.S3.SecretKey = "secret"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Empty(t, out.Redis.Password)
	assert.Equal(t, "key", cfg.Server.APIKey)

	out.Server.CORSOrigins[0] = "changed"
	assert.Equal(t, "http://localhost:5173", cfg.Server.CORSOrigins[0])
}
