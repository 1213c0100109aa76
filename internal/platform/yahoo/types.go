package yahoo

import (
	"math"
	"sort"
	"time"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// chartResponse is the body of /v8/finance/chart/{symbol}.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Events     struct {
		Dividends map[string]dividendEvent `json:"dividends"`
	} `json:"events"`
	Indicators struct {
		Quote []quoteArrays `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Symbol             string   `json:"symbol"`
	Currency           string   `json:"currency"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	GMTOffset          int64    `json:"gmtoffset"`
	ExchangeTimezone   string   `json:"exchangeTimezoneName"`
}

type dividendEvent struct {
	Amount float64 `json:"amount"`
	Date   int64   `json:"date"`
}

// quoteArrays holds the OHLCV columns. Yahoo reports null for days without
// a print.
type quoteArrays struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// localDate converts a unix timestamp to the exchange-local calendar day as
// midnight UTC.
func localDate(ts, gmtOffset int64) time.Time {
	t := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func at(col []*float64, i int) float64 {
	if i >= len(col) || col[i] == nil {
		return math.NaN()
	}
	return *col[i]
}

// toHistory flattens a chart result into ascending daily bars.
func (r chartResult) toHistory(symbol string, fetched time.Time) domain.InstrumentHistory {
	h := domain.InstrumentHistory{
		Symbol:    symbol,
		Currency:  r.Meta.Currency,
		FetchedAt: fetched,
	}
	if p := r.Meta.RegularMarketPrice; p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0) {
		price := *p
		h.LastPrice = &price
	}
	if len(r.Indicators.Quote) == 0 {
		return h
	}
	q := r.Indicators.Quote[0]

	divs := make(map[time.Time]float64, len(r.Events.Dividends))
	for _, d := range r.Events.Dividends {
		divs[localDate(d.Date, r.Meta.GMTOffset)] += d.Amount
	}

	byDate := make(map[time.Time]int, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		bar := domain.PriceBar{
			Date:  localDate(ts, r.Meta.GMTOffset),
			Open:  at(q.Open, i),
			High:  at(q.High, i),
			Low:   at(q.Low, i),
			Close: at(q.Close, i),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bar.Dividends = divs[bar.Date]

		// Intraday refreshes can repeat the last day; keep the newest row.
		if j, dup := byDate[bar.Date]; dup {
			h.Bars[j] = bar
			continue
		}
		byDate[bar.Date] = len(h.Bars)
		h.Bars = append(h.Bars, bar)
	}
	sort.SliceStable(h.Bars, func(i, j int) bool { return h.Bars[i].Date.Before(h.Bars[j].Date) })
	return h
}
