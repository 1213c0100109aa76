package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/alanyoungcy/hiram/internal/domain"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.^=-]{1,15}$`)

// NormalizeSymbol upper-cases s and checks it looks like a ticker.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if !symbolPattern.MatchString(sym) {
		return "", domain.Invalid("symbol", "invalid symbol %q", s)
	}
	return sym, nil
}

// HistoryConfig tunes the read-through layers of HistoryService.
type HistoryConfig struct {
	TTL      time.Duration
	LockTTL  time.Duration
	LockWait time.Duration
}

// HistoryService fetches instrument history through a cache, a fetch lock
// and a cold archive. Cache, lock and archive are optional.
type HistoryService struct {
	provider domain.HistoryProvider
	cache    domain.HistoryCache
	locks    domain.LockManager
	archive  domain.HistoryArchive
	cfg      HistoryConfig
	logger   *slog.Logger
}

// NewHistoryService creates a HistoryService. Any of cache, locks and
// archive may be nil.
func NewHistoryService(
	provider domain.HistoryProvider,
	cache domain.HistoryCache,
	locks domain.LockManager,
	archive domain.HistoryArchive,
	cfg HistoryConfig,
	logger *slog.Logger,
) *HistoryService {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 2 * time.Second
	}
	return &HistoryService{
		provider: provider,
		cache:    cache,
		locks:    locks,
		archive:  archive,
		cfg:      cfg,
		logger:   logger,
	}
}

// History returns the bar history for symbol. Failures that leave no usable
// history are returned as *domain.DataUnavailableError.
func (s *HistoryService) History(ctx context.Context, symbol string) (domain.InstrumentHistory, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return domain.InstrumentHistory{}, err
	}

	if h, ok := s.cached(ctx, sym); ok {
		return h, nil
	}

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "history:"+sym, s.cfg.LockTTL)
		switch {
		case err == nil:
			defer unlock()
		case errors.Is(err, domain.ErrLockHeld):
			// Another request is fetching; give it a moment to fill the cache.
			if h, ok := s.waitForCache(ctx, sym); ok {
				return h, nil
			}
		default:
			s.logger.WarnContext(ctx, "history_service: acquire lock failed",
				slog.String("symbol", sym),
				slog.String("error", err.Error()),
			)
		}
	}

	h, err := s.provider.History(ctx, sym)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.InstrumentHistory{}, ctxErr
		}
		return s.fallback(ctx, sym, err)
	}
	if len(h.Bars) == 0 {
		return s.fallback(ctx, sym, domain.ErrNoHistory)
	}
	h.Symbol = sym

	if s.cache != nil {
		if err := s.cache.Set(ctx, h, s.cfg.TTL); err != nil {
			s.logger.WarnContext(ctx, "history_service: cache set failed",
				slog.String("symbol", sym),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, h); err != nil {
			s.logger.WarnContext(ctx, "history_service: archive save failed",
				slog.String("symbol", sym),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.DebugContext(ctx, "history_service: fetched",
		slog.String("symbol", sym),
		slog.Int("bars", len(h.Bars)),
	)
	return h, nil
}

func (s *HistoryService) cached(ctx context.Context, sym string) (domain.InstrumentHistory, bool) {
	if s.cache == nil {
		return domain.InstrumentHistory{}, false
	}
	h, err := s.cache.Get(ctx, sym)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "history_service: cache get failed",
				slog.String("symbol", sym),
				slog.String("error", err.Error()),
			)
		}
		return domain.InstrumentHistory{}, false
	}
	if len(h.Bars) == 0 {
		// Empty entries are never written; drop whatever put this one there.
		if err := s.cache.Invalidate(ctx, sym); err != nil {
			s.logger.WarnContext(ctx, "history_service: cache invalidate failed",
				slog.String("symbol", sym),
				slog.String("error", err.Error()),
			)
		}
		return domain.InstrumentHistory{}, false
	}
	return h, true
}

func (s *HistoryService) waitForCache(ctx context.Context, sym string) (domain.InstrumentHistory, bool) {
	const polls = 4
	tick := time.NewTicker(s.cfg.LockWait / polls)
	defer tick.Stop()
	for i := 0; i < polls; i++ {
		select {
		case <-ctx.Done():
			return domain.InstrumentHistory{}, false
		case <-tick.C:
		}
		if h, ok := s.cached(ctx, sym); ok {
			return h, true
		}
	}
	return domain.InstrumentHistory{}, false
}

// fallback serves the latest archived snapshot when the provider failed.
func (s *HistoryService) fallback(ctx context.Context, sym string, cause error) (domain.InstrumentHistory, error) {
	unavailable := &domain.DataUnavailableError{Symbol: sym, Reason: "history fetch failed", Err: cause}
	if errors.Is(cause, domain.ErrNotFound) || errors.Is(cause, domain.ErrNoHistory) {
		unavailable.Reason = "no history for symbol"
	}
	if s.archive == nil {
		return domain.InstrumentHistory{}, unavailable
	}

	h, err := s.archive.Latest(ctx, sym)
	if err != nil || len(h.Bars) == 0 {
		return domain.InstrumentHistory{}, unavailable
	}
	s.logger.WarnContext(ctx, "history_service: serving archived history",
		slog.String("symbol", sym),
		slog.Time("fetched_at", h.FetchedAt),
		slog.String("cause", cause.Error()),
	)
	return h, nil
}
