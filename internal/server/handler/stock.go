package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/hiram/internal/analytics"
	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/service"
)

// StockReader serves derived instrument data.
type StockReader interface {
	Data(ctx context.Context, symbol string) (service.StockData, error)
	Volatility(ctx context.Context, symbol string, window int) (service.VolatilityEstimate, error)
	LastPrice(ctx context.Context, symbol string) (string, float64, error)
}

// StockHandler serves the instrument analytics endpoints.
type StockHandler struct {
	stocks StockReader
	asm    service.Assembler
	logger *slog.Logger
}

// NewStockHandler creates a StockHandler.
func NewStockHandler(stocks StockReader, logger *slog.Logger) *StockHandler {
	return &StockHandler{stocks: stocks, logger: logHandler(logger, "stocks")}
}

// Data returns the history, derived returns and performance windows.
// GET /stocks/{symbol}/data
func (h *StockHandler) Data(w http.ResponseWriter, r *http.Request) {
	data, err := h.stocks.Data(r.Context(), pathParam(r, "symbol"))
	if err != nil {
		status := statusFor(err)
		logFailure(r, h.logger, status, err)
		writeJSON(w, status, h.asm.StockError(err))
		return
	}
	writeJSON(w, http.StatusOK, h.asm.StockData(data.History, data.Performance))
}

// Volatility returns the annualised volatility over the trailing window.
// GET /stocks/{symbol}/volatility?window=252
func (h *StockHandler) Volatility(w http.ResponseWriter, r *http.Request) {
	window := analytics.TradingDays
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.fail(w, r, domain.Invalid("window", "must be an integer, got %q", v))
			return
		}
		window = n
	}

	est, err := h.stocks.Volatility(r.Context(), pathParam(r, "symbol"), window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// Price returns the last traded price.
// GET /stocks/{symbol}/price
func (h *StockHandler) Price(w http.ResponseWriter, r *http.Request) {
	sym, price, err := h.stocks.LastPrice(r.Context(), pathParam(r, "symbol"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": sym, "price": price})
}

func (h *StockHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logFailure(r, h.logger, status, err)
	writeJSON(w, status, h.asm.Error(err))
}
