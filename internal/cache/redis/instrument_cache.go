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

const instrumentsKey = "reference:instruments"

// InstrumentCache implements domain.InstrumentCache as a single JSON list.
type InstrumentCache struct {
	client *Client
}

// NewInstrumentCache creates an InstrumentCache backed by the given Client.
func NewInstrumentCache(c *Client) *InstrumentCache {
	return &InstrumentCache{client: c}
}

// SetAll replaces the cached list.
func (ic *InstrumentCache) SetAll(ctx context.Context, instruments []domain.Instrument, ttl time.Duration) error {
	if instruments == nil {
		instruments = []domain.Instrument{}
	}
	data, err := json.Marshal(instruments)
	if err != nil {
		return fmt.Errorf("redis: marshal instruments: %w", err)
	}
	if err := ic.client.Underlying().Set(ctx, ic.client.Key(instrumentsKey), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set instruments: %w", err)
	}
	return nil
}

// GetAll returns the cached list, or domain.ErrNotFound.
func (ic *InstrumentCache) GetAll(ctx context.Context) ([]domain.Instrument, error) {
	data, err := ic.client.Underlying().Get(ctx, ic.client.Key(instrumentsKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get instruments: %w", err)
	}

	var out []domain.Instrument
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("redis: unmarshal instruments: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.InstrumentCache = (*InstrumentCache)(nil)
