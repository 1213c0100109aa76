package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// ReferenceService serves the reference instrument list from the store,
// fronted by an optional cache.
type ReferenceService struct {
	store  domain.InstrumentStore
	cache  domain.InstrumentCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewReferenceService creates a ReferenceService. cache may be nil.
func NewReferenceService(store domain.InstrumentStore, cache domain.InstrumentCache, ttl time.Duration, logger *slog.Logger) *ReferenceService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReferenceService{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Instruments lists every reference instrument ordered by symbol.
func (s *ReferenceService) Instruments(ctx context.Context) ([]domain.Instrument, error) {
	if s.cache != nil {
		list, err := s.cache.GetAll(ctx)
		if err == nil {
			return list, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "reference_service: cache get failed",
				slog.String("error", err.Error()),
			)
		}
	}

	list, err := s.store.ListInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("reference_service: list instruments: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetAll(ctx, list, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "reference_service: cache set failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return list, nil
}

// Instrument returns one reference instrument.
func (s *ReferenceService) Instrument(ctx context.Context, symbol string) (domain.Instrument, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return domain.Instrument{}, err
	}
	inst, err := s.store.GetInstrument(ctx, sym)
	if err != nil {
		return domain.Instrument{}, fmt.Errorf("reference_service: get instrument %s: %w", sym, err)
	}
	return inst, nil
}
