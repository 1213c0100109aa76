package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hiram/internal/config"
	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/server/handler"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestWireDefaultsNeedNoBackends(t *testing.T) {
	cfg := config.Defaults()
	deps, cleanup, err := Wire(context.Background(), &cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, deps.Provider)
	assert.Len(t, deps.Engines, 2)
	assert.Nil(t, deps.InstrumentStore)
	assert.Nil(t, deps.HistoryCache)
	assert.Nil(t, deps.RateLimiter)
	assert.Nil(t, deps.HistoryArchive)
	assert.Empty(t, deps.Backends)

	svcs := NewServices(&cfg, deps, discard())
	assert.Nil(t, svcs.Reference)
	assert.NotNil(t, svcs.Stocks)
}

type failingPinger struct{}

func (failingPinger) Health(context.Context) error { return errors.New("connection refused") }

func TestCheckMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Pricing.MCPaths = 2000
	deps, cleanup, err := Wire(context.Background(), &cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	a := New(&cfg, discard())
	require.NoError(t, a.CheckMode(context.Background(), deps))

	deps.Backends["redis"] = failingPinger{}
	err = a.CheckMode(context.Background(), deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestEnginesFollowConfig(t *testing.T) {
	engines := Engines(config.Defaults().Pricing)
	assert.Equal(t, "black_scholes", engines[domain.BlackScholes].Name())
	assert.Equal(t, "monte_carlo", engines[domain.MonteCarlo].Name())
}

func TestRunRejectsUnknownMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "trade"
	a := New(&cfg, discard())
	defer a.Close()
	assert.ErrorContains(t, a.Run(context.Background()), "unsupported mode")
}

var _ handler.Pinger = failingPinger{}
