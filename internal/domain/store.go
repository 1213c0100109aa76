package domain

import "context"

// InstrumentStore reads reference instrument data.
type InstrumentStore interface {
	ListInstruments(ctx context.Context) ([]Instrument, error)
	GetInstrument(ctx context.Context, symbol string) (Instrument, error)
}
