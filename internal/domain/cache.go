package domain

import (
	"context"
	"time"
)

// HistoryCache keeps recently fetched instrument histories.
type HistoryCache interface {
	Set(ctx context.Context, h InstrumentHistory, ttl time.Duration) error
	Get(ctx context.Context, symbol string) (InstrumentHistory, error)
	Invalidate(ctx context.Context, symbol string) error
}

// InstrumentCache keeps the reference instrument list.
type InstrumentCache interface {
	SetAll(ctx context.Context, instruments []Instrument, ttl time.Duration) error
	GetAll(ctx context.Context) ([]Instrument, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
