package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/server"
	"github.com/alanyoungcy/hiram/internal/server/handler"
)

// ServeMode runs the HTTP API until ctx is cancelled, then drains in-flight
// requests within server.shutdown_timeout.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	svcs := NewServices(a.cfg, deps, a.logger)

	var ref handler.InstrumentLister
	if svcs.Reference != nil {
		ref = svcs.Reference
	}

	srv := server.New(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
		RequestTimeout:     a.cfg.Server.RequestTimeout.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(deps.Backends, a.logger),
		Pricer:    handler.NewPricerHandler(svcs.Pricing, svcs.Sweep, a.logger),
		Stocks:    handler.NewStockHandler(svcs.Stocks, a.logger),
		Reference: handler.NewReferenceHandler(ref, a.logger),
	}, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// CheckMode pings every configured backend and prices one reference option
// on each engine, then exits. It returns an error naming every failed check.
func (a *App) CheckMode(ctx context.Context, deps *Dependencies) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error

	names := make([]string, 0, len(deps.Backends))
	for name := range deps.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := deps.Backends[name].Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("check: %s: %w", name, err))
			continue
		}
		a.logger.InfoContext(ctx, "check: backend ok", slog.String("backend", name))
	}

	svcs := NewServices(a.cfg, deps, a.logger)
	for _, model := range []domain.ModelType{domain.BlackScholes, domain.MonteCarlo} {
		res, err := svcs.Pricing.Price(ctx, domain.OptionPricingRequest{
			Spot:         100,
			Volatility:   0.2,
			RiskFreeRate: 0.05,
			Strike:       100,
			Maturity:     1,
			Family:       domain.European,
			Type:         domain.Call,
			Model:        model,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("check: price %s: %w", model, err))
			continue
		}
		a.logger.InfoContext(ctx, "check: engine ok",
			slog.String("model", string(model)),
			slog.Float64("value", res.Value),
		)
	}

	return errors.Join(errs...)
}
