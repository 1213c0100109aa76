package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/hiram/internal/blob/s3"
	"github.com/alanyoungcy/hiram/internal/cache/redis"
	"github.com/alanyoungcy/hiram/internal/config"
	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/platform/yahoo"
	"github.com/alanyoungcy/hiram/internal/quant"
	"github.com/alanyoungcy/hiram/internal/server/handler"
	"github.com/alanyoungcy/hiram/internal/service"
	"github.com/alanyoungcy/hiram/internal/store/postgres"
)

// Dependencies bundles the backends the modes need. Optional backends are nil
// interfaces when not configured.
type Dependencies struct {
	// Always present.
	Provider domain.HistoryProvider
	Engines  map[domain.ModelType]quant.Engine

	// Postgres.
	InstrumentStore domain.InstrumentStore

	// Redis.
	HistoryCache    domain.HistoryCache
	InstrumentCache domain.InstrumentCache
	RateLimiter     domain.RateLimiter
	LockManager     domain.LockManager

	// S3.
	HistoryArchive domain.HistoryArchive

	// Backends answers health checks, keyed by backend name.
	Backends map[string]handler.Pinger
}

// Services are the request-facing services built over Dependencies.
type Services struct {
	Pricing   *service.PricingService
	Sweep     *service.SweepService
	History   *service.HistoryService
	Stocks    *service.StockService
	Reference *service.ReferenceService // nil without Postgres
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources. Postgres, Redis and S3 are only
// connected when configured.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Provider: yahoo.NewClient(yahoo.Config{
			BaseURL:   cfg.Yahoo.BaseURL,
			Range:     cfg.Yahoo.Range,
			Interval:  cfg.Yahoo.Interval,
			Timeout:   cfg.Yahoo.Timeout.Duration,
			UserAgent: cfg.Yahoo.UserAgent,
		}),
		Engines:  Engines(cfg.Pricing),
		Backends: make(map[string]handler.Pinger),
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		deps.InstrumentStore = postgres.NewInstrumentStore(pgClient.Pool())
		deps.Backends["postgres"] = pgClient
		logger.InfoContext(ctx, "wire: postgres connected")
	}

	// --- Redis ---
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.HistoryCache = redis.NewHistoryCache(redisClient)
		deps.InstrumentCache = redis.NewInstrumentCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Backends["redis"] = redisClient
		logger.InfoContext(ctx, "wire: redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// --- S3 history archive ---
	if cfg.S3.Enabled() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		bucket := s3blob.NewBucket(s3Client)
		deps.HistoryArchive = s3blob.NewHistoryArchive(bucket, bucket, bucket, cfg.S3.Prefix, cfg.S3.KeepSnapshots)
		deps.Backends["s3"] = s3Client
		logger.InfoContext(ctx, "wire: s3 archive enabled", slog.String("bucket", cfg.S3.Bucket))
	}

	return deps, cleanup, nil
}

// Engines builds the pricing engine for each model.
func Engines(cfg config.PricingConfig) map[domain.ModelType]quant.Engine {
	return map[domain.ModelType]quant.Engine{
		domain.BlackScholes: quant.NewBlackScholes(cfg.BinomialSteps),
		domain.MonteCarlo: quant.NewMonteCarlo(quant.MonteCarloConfig{
			Paths: cfg.MCPaths,
			Steps: cfg.MCSteps,
			Seed:  cfg.MCSeed,
		}),
	}
}

// NewServices builds the services over deps.
func NewServices(cfg *config.Config, deps *Dependencies, logger *slog.Logger) *Services {
	pricing := service.NewPricingService(deps.Engines, logger.With(slog.String("component", "pricing")))
	history := service.NewHistoryService(
		deps.Provider,
		deps.HistoryCache,
		deps.LockManager,
		deps.HistoryArchive,
		service.HistoryConfig{
			TTL:      cfg.Redis.HistoryTTL.Duration,
			LockTTL:  cfg.Redis.LockTTL.Duration,
			LockWait: 2 * time.Second,
		},
		logger.With(slog.String("component", "history")),
	)

	svcs := &Services{
		Pricing: pricing,
		Sweep: service.NewSweepService(pricing, cfg.Pricing.SweepWorkers, cfg.Pricing.MaxSweepPoints,
			logger.With(slog.String("component", "sweep"))),
		History: history,
		Stocks:  service.NewStockService(history, logger.With(slog.String("component", "stocks"))),
	}
	if deps.InstrumentStore != nil {
		svcs.Reference = service.NewReferenceService(deps.InstrumentStore, deps.InstrumentCache,
			cfg.Redis.ReferenceTTL.Duration, logger.With(slog.String("component", "reference")))
	}
	return svcs
}
