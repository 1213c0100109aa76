// Package server exposes the pricing and analytics services over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/server/handler"
	"github.com/alanyoungcy/hiram/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port               int
	CORSOrigins        []string
	APIKey             string // if empty, authentication is disabled
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Pricer    *handler.PricerHandler
	Stocks    *handler.StockHandler
	Reference *handler.ReferenceHandler
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered. limiter may be nil, which
// disables rate limiting.
func New(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))

	writeTimeout := 60 * time.Second
	if cfg.RequestTimeout > 0 {
		writeTimeout = cfg.RequestTimeout + 5*time.Second
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           Routes(cfg, handlers, limiter, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// Routes builds the mux and wraps it in the middleware chain. Every API
// route is registered at its bare path and under the /api/pricer (or
// /api/v1/pricer) and /api prefixes.
func Routes(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handler.Root)
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	for _, prefix := range []string{"", "/api/pricer", "/api/v1/pricer"} {
		mux.HandleFunc("POST "+prefix+"/options/price", handlers.Pricer.Price)
		mux.HandleFunc("POST "+prefix+"/options/plot-data", handlers.Pricer.PlotData)
	}

	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("GET "+prefix+"/stocks/{symbol}/data", handlers.Stocks.Data)
		mux.HandleFunc("GET "+prefix+"/stocks/{symbol}/volatility", handlers.Stocks.Volatility)
		mux.HandleFunc("GET "+prefix+"/stocks/{symbol}/price", handlers.Stocks.Price)

		mux.HandleFunc("GET "+prefix+"/stocks/data", handlers.Reference.List)
		mux.HandleFunc("GET "+prefix+"/stocks/data/symbols", handlers.Reference.List)
		mux.HandleFunc("GET "+prefix+"/stocks/reference/data/symbols", handlers.Reference.List)
		mux.HandleFunc("GET "+prefix+"/stocks/reference/data/symbols/{symbol}", handlers.Reference.Get)
	}

	// Applied innermost first: the request passes RequestID, Logging, CORS,
	// RateLimit, Auth and Timeout in that order.
	var h http.Handler = mux
	h = middleware.Timeout(cfg.RequestTimeout)(h)
	h = middleware.Auth(cfg.APIKey, "/", "/api/health")(h)
	h = middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute, logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID()(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server: starting", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
