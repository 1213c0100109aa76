package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/service"
)

// InstrumentLister reads the reference instrument table.
type InstrumentLister interface {
	Instruments(ctx context.Context) ([]domain.Instrument, error)
	Instrument(ctx context.Context, symbol string) (domain.Instrument, error)
}

// ReferenceHandler serves reference instrument data.
type ReferenceHandler struct {
	ref    InstrumentLister
	asm    service.Assembler
	logger *slog.Logger
}

// NewReferenceHandler creates a ReferenceHandler. A nil lister makes every
// request answer 503.
func NewReferenceHandler(ref InstrumentLister, logger *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{ref: ref, logger: logHandler(logger, "reference")}
}

// List returns every reference instrument ordered by symbol.
// GET /stocks/reference/data/symbols
func (h *ReferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.ref == nil {
		writeError(w, http.StatusServiceUnavailable, "reference data is not configured")
		return
	}
	list, err := h.ref.Instruments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get returns one reference instrument.
// GET /stocks/reference/data/symbols/{symbol}
func (h *ReferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.ref == nil {
		writeError(w, http.StatusServiceUnavailable, "reference data is not configured")
		return
	}
	inst, err := h.ref.Instrument(r.Context(), pathParam(r, "symbol"))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error(), "kind": "not_found"})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *ReferenceHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logFailure(r, h.logger, status, err)
	writeJSON(w, status, h.asm.Error(err))
}
