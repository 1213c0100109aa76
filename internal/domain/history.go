package domain

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// PriceBar is one daily observation of an instrument. Close is NaN when the
// source reported no close for the day. DailyReturn and CumulativeReturn are
// derived and nil where undefined.
type PriceBar struct {
	Date             time.Time `json:"date"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Close            float64   `json:"close"`
	Volume           int64     `json:"volume"`
	Dividends        float64   `json:"dividends"`
	DailyReturn      *float64  `json:"daily_return"`
	CumulativeReturn *float64  `json:"cumulative_return"`
}

// barJSON is the wire form of PriceBar. Prices are nullable so a missing
// close survives a round trip through encoding/json, which rejects NaN.
type barJSON struct {
	Date             time.Time `json:"date"`
	Open             *float64  `json:"open"`
	High             *float64  `json:"high"`
	Low              *float64  `json:"low"`
	Close            *float64  `json:"close"`
	Volume           int64     `json:"volume"`
	Dividends        float64   `json:"dividends"`
	DailyReturn      *float64  `json:"daily_return"`
	CumulativeReturn *float64  `json:"cumulative_return"`
}

func (b PriceBar) MarshalJSON() ([]byte, error) {
	return json.Marshal(barJSON{
		Date:             b.Date,
		Open:             nullable(b.Open),
		High:             nullable(b.High),
		Low:              nullable(b.Low),
		Close:            nullable(b.Close),
		Volume:           b.Volume,
		Dividends:        b.Dividends,
		DailyReturn:      b.DailyReturn,
		CumulativeReturn: b.CumulativeReturn,
	})
}

func (b *PriceBar) UnmarshalJSON(data []byte) error {
	var w barJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = PriceBar{
		Date:             w.Date,
		Open:             orNaN(w.Open),
		High:             orNaN(w.High),
		Low:              orNaN(w.Low),
		Close:            orNaN(w.Close),
		Volume:           w.Volume,
		Dividends:        w.Dividends,
		DailyReturn:      w.DailyReturn,
		CumulativeReturn: w.CumulativeReturn,
	}
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// InstrumentHistory is an ascending bar series plus the latest known price.
type InstrumentHistory struct {
	Symbol    string     `json:"symbol"`
	Currency  string     `json:"currency,omitempty"`
	LastPrice *float64   `json:"last_price"`
	Bars      []PriceBar `json:"bars"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// PerformanceWindows maps a window name to a percentage. Windows that could
// not be computed are absent.
type PerformanceWindows map[string]float64

// HistoryProvider fetches raw daily history for a symbol from an external
// market-data source.
type HistoryProvider interface {
	History(ctx context.Context, symbol string) (InstrumentHistory, error)
}
