package service

import (
	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/normalize"
)

// dateLayout renders the timezone-naive bar dates.
const dateLayout = "2006-01-02"

// Assembler builds the JSON response shapes. Every shape is passed through
// normalize.Value, so the results are always safe to encode.
type Assembler struct{}

// Quote is {value, greeks}.
func (Assembler) Quote(r domain.PricingResult) any {
	return normalize.Value(map[string]any{
		"value":  r.Value,
		"greeks": greeks(r.Greeks),
	})
}

// QuoteWithCurve is a quote plus the curve under x_values, price and
// greeks_plot.
func (Assembler) QuoteWithCurve(r domain.PricingResult, c domain.SensitivityCurve) any {
	return normalize.Value(map[string]any{
		"value":       r.Value,
		"greeks":      greeks(r.Greeks),
		"x_values":    c.XValues,
		"price":       c.Values,
		"greeks_plot": curveGreeks(c),
	})
}

// Curve is {x_values, price, greeks}. Curve Greeks are dense.
func (Assembler) Curve(c domain.SensitivityCurve) any {
	return normalize.Value(map[string]any{
		"x_values": c.XValues,
		"price":    c.Values,
		"greeks":   curveGreeks(c),
	})
}

// StockData is {price, performance, hist}.
func (Assembler) StockData(h domain.InstrumentHistory, perf domain.PerformanceWindows) any {
	hist := make([]map[string]any, len(h.Bars))
	for i, b := range h.Bars {
		hist[i] = map[string]any{
			"date":              b.Date.Format(dateLayout),
			"open":              b.Open,
			"high":              b.High,
			"low":               b.Low,
			"close":             b.Close,
			"volume":            b.Volume,
			"dividends":         b.Dividends,
			"daily_return":      b.DailyReturn,
			"cumulative_return": b.CumulativeReturn,
		}
	}
	return normalize.Value(map[string]any{
		"price":       h.LastPrice,
		"performance": map[string]float64(perf),
		"hist":        hist,
	})
}

// StockError is {price: null, error, kind}.
func (Assembler) StockError(err error) any {
	return normalize.Value(map[string]any{
		"price": nil,
		"error": err.Error(),
		"kind":  string(domain.KindOf(err)),
	})
}

// Error is {error, kind} plus field when the failure names one.
func (Assembler) Error(err error) any {
	body := map[string]any{
		"error": err.Error(),
		"kind":  string(domain.KindOf(err)),
	}
	if f := domain.FieldOf(err); f != "" {
		body["field"] = f
	}
	return normalize.Value(body)
}

func greeks(g domain.Greeks) map[string]any {
	out := make(map[string]any, len(domain.GreekNames))
	for _, name := range domain.GreekNames {
		out[name] = g.Lookup(name)
	}
	return out
}

func curveGreeks(c domain.SensitivityCurve) map[string][]float64 {
	out := make(map[string][]float64, len(domain.GreekNames))
	for _, name := range domain.GreekNames {
		vals := c.Greeks[name]
		if vals == nil {
			vals = make([]float64, c.Len())
		}
		out[name] = vals
	}
	return out
}
