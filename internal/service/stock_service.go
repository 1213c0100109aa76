package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/hiram/internal/analytics"
	"github.com/alanyoungcy/hiram/internal/domain"
)

// HistorySource is where StockService gets raw bars.
type HistorySource interface {
	History(ctx context.Context, symbol string) (domain.InstrumentHistory, error)
}

// StockData is a history with derived returns and its trailing performance.
type StockData struct {
	History     domain.InstrumentHistory
	Performance domain.PerformanceWindows
}

// VolatilityEstimate is an annualised volatility over recent daily returns.
type VolatilityEstimate struct {
	Symbol       string  `json:"symbol"`
	Window       int     `json:"window"`
	Volatility   float64 `json:"volatility"`
	Observations int     `json:"observations"`
}

// StockService turns raw instrument histories into analytics.
type StockService struct {
	history HistorySource
	logger  *slog.Logger
}

// NewStockService creates a StockService.
func NewStockService(history HistorySource, logger *slog.Logger) *StockService {
	return &StockService{
		history: history,
		logger:  logger,
	}
}

// Data returns the history of symbol with daily and cumulative returns and
// the performance windows computed from them.
func (s *StockService) Data(ctx context.Context, symbol string) (StockData, error) {
	h, err := s.history.History(ctx, symbol)
	if err != nil {
		return StockData{}, err
	}
	h.Bars = analytics.DeriveReturns(h.Bars)
	if h.LastPrice == nil {
		if p, ok := analytics.LastPrice(h.Bars); ok {
			h.LastPrice = &p
		}
	}
	return StockData{
		History:     h,
		Performance: analytics.Performance(h.Bars),
	}, nil
}

// Volatility estimates annualised volatility over the last window daily
// returns of symbol.
func (s *StockService) Volatility(ctx context.Context, symbol string, window int) (VolatilityEstimate, error) {
	if window < 2 || window > 5000 {
		return VolatilityEstimate{}, domain.Invalid("window", "must be between 2 and 5000, got %d", window)
	}
	h, err := s.history.History(ctx, symbol)
	if err != nil {
		return VolatilityEstimate{}, err
	}
	bars := analytics.DeriveReturns(h.Bars)
	vol, n, err := analytics.Volatility(bars, window)
	if err != nil {
		if errors.Is(err, analytics.ErrInsufficientData) {
			return VolatilityEstimate{}, &domain.DataUnavailableError{
				Symbol: h.Symbol,
				Reason: fmt.Sprintf("need at least 2 daily returns, have %d", n),
				Err:    err,
			}
		}
		return VolatilityEstimate{}, fmt.Errorf("stock_service: volatility %s: %w", h.Symbol, err)
	}
	return VolatilityEstimate{
		Symbol:       h.Symbol,
		Window:       window,
		Volatility:   vol,
		Observations: n,
	}, nil
}

// LastPrice returns the latest price of symbol: the source's quoted price if
// it reported one, else the last finite close.
func (s *StockService) LastPrice(ctx context.Context, symbol string) (string, float64, error) {
	h, err := s.history.History(ctx, symbol)
	if err != nil {
		return "", 0, err
	}
	if h.LastPrice != nil {
		return h.Symbol, *h.LastPrice, nil
	}
	if p, ok := analytics.LastPrice(h.Bars); ok {
		return h.Symbol, p, nil
	}
	return "", 0, &domain.DataUnavailableError{Symbol: h.Symbol, Reason: "no finite close", Err: domain.ErrNoHistory}
}
