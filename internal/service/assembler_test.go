package service

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hiram/internal/domain"
)

func TestAssemblerQuoteKeepsNilGreeks(t *testing.T) {
	d := 0.5
	body := Assembler{}.Quote(domain.PricingResult{Value: 4.2, Greeks: domain.Greeks{Delta: &d}})

	b, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":4.2,"greeks":{"delta":0.5,"gamma":null,"vega":null,"theta":null,"rho":null}}`, string(b))
}

func TestAssemblerQuoteWithCurve(t *testing.T) {
	curve := domain.SensitivityCurve{
		Param:   domain.SweepSpot,
		XValues: []float64{1, 2},
		Values:  []float64{0.1, math.NaN()},
		Greeks:  map[string][]float64{"delta": {0.2, 0.3}},
	}
	body := Assembler{}.QuoteWithCurve(domain.PricingResult{Value: 1}, curve)

	m, ok := body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{1.0, 2.0}, m["x_values"])
	assert.Equal(t, []any{0.1, nil}, m["price"])
	plot := m["greeks_plot"].(map[string]any)
	assert.Equal(t, []any{0.2, 0.3}, plot["delta"])
	assert.Equal(t, []any{0.0, 0.0}, plot["rho"])

	_, err := json.Marshal(body)
	assert.NoError(t, err)
}

func TestAssemblerCurve(t *testing.T) {
	body := Assembler{}.Curve(domain.SensitivityCurve{XValues: []float64{1}, Values: []float64{2}})
	m := body.(map[string]any)
	assert.ElementsMatch(t, []string{"x_values", "price", "greeks"}, keys(m))
	assert.Len(t, m["greeks"].(map[string]any), 5)
}

func TestAssemblerStockData(t *testing.T) {
	p := 101.0
	r := 0.01
	h := domain.InstrumentHistory{
		Symbol:    "AAPL",
		LastPrice: &p,
		Bars: []domain.PriceBar{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
			{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: math.NaN(), DailyReturn: &r, CumulativeReturn: &r},
		},
	}
	body := Assembler{}.StockData(h, domain.PerformanceWindows{"oneMonth": 1.5})

	b, err := json.Marshal(body)
	require.NoError(t, err)
	var got struct {
		Price       float64            `json:"price"`
		Performance map[string]float64 `json:"performance"`
		Hist        []map[string]any   `json:"hist"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 101.0, got.Price)
	assert.Equal(t, 1.5, got.Performance["oneMonth"])
	require.Len(t, got.Hist, 2)
	assert.Equal(t, "2024-01-02", got.Hist[0]["date"])
	assert.Nil(t, got.Hist[0]["daily_return"])
	assert.Nil(t, got.Hist[1]["close"])
	assert.Equal(t, 0.01, got.Hist[1]["cumulative_return"])
}

func TestAssemblerStockError(t *testing.T) {
	err := &domain.DataUnavailableError{Symbol: "X", Reason: "no history for symbol"}
	b, mErr := json.Marshal(Assembler{}.StockError(err))
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"price":null,"error":"data unavailable for X: no history for symbol","kind":"data_unavailable"}`, string(b))
}

func TestAssemblerError(t *testing.T) {
	m := Assembler{}.Error(domain.Invalid("spot", "must be a finite number")).(map[string]any)
	assert.Equal(t, "validation", m["kind"])
	assert.Equal(t, "spot", m["field"])

	m = Assembler{}.Error(&domain.PricingError{Reason: "bad"}).(map[string]any)
	assert.NotContains(t, m, "field")
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
