package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// HistoryCache implements domain.HistoryCache as one JSON string per symbol.
//
// Key schema:
//
//	history:{SYMBOL} - JSON InstrumentHistory, expires after the caller's TTL
type HistoryCache struct {
	client *Client
}

// NewHistoryCache creates a HistoryCache backed by the given Client.
func NewHistoryCache(c *Client) *HistoryCache {
	return &HistoryCache{client: c}
}

func historyKey(symbol string) string { return "history:" + symbol }

// Set stores h under its symbol for ttl.
func (hc *HistoryCache) Set(ctx context.Context, h domain.InstrumentHistory, ttl time.Duration) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("redis: marshal history %s: %w", h.Symbol, err)
	}
	if err := hc.client.Underlying().Set(ctx, hc.client.Key(historyKey(h.Symbol)), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set history %s: %w", h.Symbol, err)
	}
	return nil
}

// Get returns the cached history of symbol, or domain.ErrNotFound.
func (hc *HistoryCache) Get(ctx context.Context, symbol string) (domain.InstrumentHistory, error) {
	data, err := hc.client.Underlying().Get(ctx, hc.client.Key(historyKey(symbol))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.InstrumentHistory{}, domain.ErrNotFound
		}
		return domain.InstrumentHistory{}, fmt.Errorf("redis: get history %s: %w", symbol, err)
	}

	var h domain.InstrumentHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return domain.InstrumentHistory{}, fmt.Errorf("redis: unmarshal history %s: %w", symbol, err)
	}
	return h, nil
}

// Invalidate drops the cached history of symbol.
func (hc *HistoryCache) Invalidate(ctx context.Context, symbol string) error {
	if err := hc.client.Underlying().Del(ctx, hc.client.Key(historyKey(symbol))).Err(); err != nil {
		return fmt.Errorf("redis: invalidate history %s: %w", symbol, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HistoryCache = (*HistoryCache)(nil)
