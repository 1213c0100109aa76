package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/service"
)

// Quoter prices a single option request.
type Quoter interface {
	Price(ctx context.Context, req domain.OptionPricingRequest) (domain.PricingResult, error)
}

// Sweeper computes a sensitivity curve around a base request.
type Sweeper interface {
	Sweep(ctx context.Context, base domain.OptionPricingRequest, param domain.SweepParam) (domain.SensitivityCurve, error)
}

// PricerHandler serves the option pricing endpoints.
//
// Single-quote Greeks are nullable: null means the model did not compute
// that Greek. Curve Greeks (greeks_plot, and greeks on plot-data) are dense
// arrays where a Greek the model does not compute is reported as 0.
type PricerHandler struct {
	quotes Quoter
	sweeps Sweeper
	asm    service.Assembler
	logger *slog.Logger
}

// NewPricerHandler creates a PricerHandler.
func NewPricerHandler(quotes Quoter, sweeps Sweeper, logger *slog.Logger) *PricerHandler {
	return &PricerHandler{
		quotes: quotes,
		sweeps: sweeps,
		logger: logHandler(logger, "pricer"),
	}
}

// Price quotes one option, plus its sensitivity curve when sweep bounds are
// supplied.
// POST /options/price
func (h *PricerHandler) Price(w http.ResponseWriter, r *http.Request) {
	var body optionBody
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	req, param, err := body.quoteRequest()
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	quoteReq := req
	quoteReq.Sweep = nil
	result, err := h.quotes.Price(r.Context(), quoteReq)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Sweep == nil {
		writeJSON(w, http.StatusOK, h.asm.Quote(result))
		return
	}

	curve, err := h.sweeps.Sweep(r.Context(), req, param)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.asm.QuoteWithCurve(result, curve))
}

// PlotData returns a sensitivity curve. Every field is optional.
// POST /options/plot-data
func (h *PricerHandler) PlotData(w http.ResponseWriter, r *http.Request) {
	var body optionBody
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	req, param, err := body.plotRequest()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	curve, err := h.sweeps.Sweep(r.Context(), req, param)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.asm.Curve(curve))
}

func (h *PricerHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logFailure(r, h.logger, status, err)
	writeJSON(w, status, h.asm.Error(err))
}
