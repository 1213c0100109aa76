package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// InstrumentStore implements domain.InstrumentStore over reference_stocks.
type InstrumentStore struct {
	pool *pgxpool.Pool
}

// NewInstrumentStore creates an InstrumentStore backed by the given pool.
func NewInstrumentStore(pool *pgxpool.Pool) *InstrumentStore {
	return &InstrumentStore{pool: pool}
}

// Text columns may be NULL in the reference load.
const instrumentCols = `symbol,
	COALESCE(security_name, ''), COALESCE(gics_sector, ''),
	COALESCE(gics_sub_sector, ''), COALESCE(market_index, '')`

func scanInstrument(row pgx.Row) (domain.Instrument, error) {
	var i domain.Instrument
	err := row.Scan(&i.Symbol, &i.SecurityName, &i.GICSSector, &i.GICSSubSector, &i.MarketIndex)
	return i, err
}

// ListInstruments returns every instrument ordered by symbol.
func (s *InstrumentStore) ListInstruments(ctx context.Context) ([]domain.Instrument, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+instrumentCols+` FROM reference_stocks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list instruments: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Instrument, error) {
		return scanInstrument(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan instruments: %w", err)
	}
	if out == nil {
		out = []domain.Instrument{}
	}
	return out, nil
}

// GetInstrument returns the instrument with the given symbol.
func (s *InstrumentStore) GetInstrument(ctx context.Context, symbol string) (domain.Instrument, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+instrumentCols+` FROM reference_stocks WHERE symbol = $1`, symbol)
	i, err := scanInstrument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Instrument{}, domain.ErrNotFound
		}
		return domain.Instrument{}, fmt.Errorf("postgres: get instrument %s: %w", symbol, err)
	}
	return i, nil
}

// Compile-time interface check.
var _ domain.InstrumentStore = (*InstrumentStore)(nil)
