package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/quant"
	"github.com/alanyoungcy/hiram/internal/service"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func pricer() *PricerHandler {
	engines := map[domain.ModelType]quant.Engine{
		domain.BlackScholes: quant.NewBlackScholes(200),
		domain.MonteCarlo:   quant.NewMonteCarlo(quant.MonteCarloConfig{Paths: 4000, Steps: 20, Seed: 42}),
	}
	quotes := service.NewPricingService(engines, discard())
	return NewPricerHandler(quotes, service.NewSweepService(quotes, 4, 1000, discard()), discard())
}

func post(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/options/price", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec, decode(t, rec)
}

func get(t *testing.T, pattern string, h http.HandlerFunc, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec, decode(t, rec)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return out
}

const callBody = `{
	"spot": 100, "volatility": 0.2, "riskFreeRate": 0.05, "dividendYield": 0,
	"strike": 100, "maturity": 1,
	"optionFamily": "EUROPEAN", "optionType": "CALL", "modelType": "BLACK_SCHOLES"
}`

func TestPriceQuote(t *testing.T) {
	rec, body := post(t, pricer().Price, callBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	assert.InDelta(t, 10.4506, body["value"], 1e-3)
	greeks := body["greeks"].(map[string]any)
	delta := greeks["delta"].(float64)
	assert.Greater(t, delta, 0.0)
	assert.Less(t, delta, 1.0)
	assert.NotContains(t, body, "x_values")
}

func TestPriceLegacyFieldNames(t *testing.T) {
	rec, body := post(t, pricer().Price, `{
		"underlyingPrice": 100, "volatility": 0.2, "riskFreeRate": 0.05, "dividendYield": 0,
		"strikePrice": 100, "maturity": 1, "optionType": "put", "modelType": "Black Scholes"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 5.5735, body["value"], 1e-3)
}

func TestPriceAmericanGreeksAreNull(t *testing.T) {
	rec, body := post(t, pricer().Price, `{
		"spot": 100, "volatility": 0.2, "riskFreeRate": 0.05, "strike": 100, "maturity": 1,
		"optionFamily": "AMERICAN", "optionType": "PUT", "modelType": "BLACK_SCHOLES"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	greeks := body["greeks"].(map[string]any)
	assert.Nil(t, greeks["vega"])
	assert.Nil(t, greeks["rho"])
	assert.NotNil(t, greeks["delta"])
}

func TestPriceWithSweep(t *testing.T) {
	rec, body := post(t, pricer().Price, `{
		"spot": 100, "volatility": 0.2, "riskFreeRate": 0.05, "strike": 100, "maturity": 1,
		"optionType": "CALL", "modelType": "BLACK_SCHOLES",
		"min_value": 50, "max_value": 150, "num_points": 11, "param_to_vary": "spot"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	xs := body["x_values"].([]any)
	prices := body["price"].([]any)
	require.Len(t, xs, 11)
	require.Len(t, prices, 11)
	assert.Equal(t, 50.0, xs[0])
	assert.Equal(t, 150.0, xs[10])

	plot := body["greeks_plot"].(map[string]any)
	for _, name := range domain.GreekNames {
		assert.Len(t, plot[name], 11, name)
	}
	assert.InDelta(t, 10.4506, body["value"], 1e-3)
}

func TestPriceRejections(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"equal bounds", `{"spot":100,"volatility":0.2,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"CALL","modelType":"BLACK_SCHOLES","min_value":100,"max_value":100,"num_points":10}`, "min_value"},
		{"partial bounds", `{"spot":100,"volatility":0.2,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"CALL","modelType":"BLACK_SCHOLES","min_value":50}`, "max_value"},
		{"missing volatility", `{"spot":100,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"CALL","modelType":"BLACK_SCHOLES"}`, "volatility"},
		{"missing model", `{"spot":100,"volatility":0.2,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"CALL"}`, "modelType"},
		{"negative spot", `{"spot":-1,"volatility":0.2,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"CALL","modelType":"BLACK_SCHOLES"}`, "spot"},
		{"unknown option type", `{"spot":100,"volatility":0.2,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"STRADDLE","modelType":"BLACK_SCHOLES"}`, "optionType"},
		{"string spot", `{"spot":"abc"}`, "spot"},
		{"fractional points", `{"spot":100,"volatility":0.2,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"CALL","modelType":"BLACK_SCHOLES","min_value":50,"max_value":150,"num_points":2.5}`, "num_points"},
		{"unknown sweep param", `{"spot":100,"volatility":0.2,"riskFreeRate":0.05,"strike":100,"maturity":1,
			"optionType":"CALL","modelType":"BLACK_SCHOLES","min_value":50,"max_value":150,"num_points":5,
			"param_to_vary":"colour"}`, "param_to_vary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := post(t, pricer().Price, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "validation", body["kind"])
			assert.Equal(t, tt.field, body["field"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPriceMalformedJSON(t *testing.T) {
	for _, raw := range []string{"", "{", `{"spot": 1} {"spot": 2}`, "[1,2]"} {
		rec, body := post(t, pricer().Price, raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
		assert.Equal(t, "validation", body["kind"], raw)
	}
}

type fakeQuoter struct{ err error }

func (f fakeQuoter) Price(context.Context, domain.OptionPricingRequest) (domain.PricingResult, error) {
	return domain.PricingResult{}, f.err
}

func (f fakeQuoter) Sweep(context.Context, domain.OptionPricingRequest, domain.SweepParam) (domain.SensitivityCurve, error) {
	return domain.SensitivityCurve{}, f.err
}

func TestPriceErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&domain.PricingError{Reason: "engine rejected input", Field: "volatility"}, http.StatusUnprocessableEntity, "pricing"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
		{context.DeadlineExceeded, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		f := fakeQuoter{err: tt.err}
		rec, body := post(t, NewPricerHandler(f, f, discard()).Price, callBody)
		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, tt.kind, body["kind"])
	}
}

func TestPlotDataDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/options/plot-data", nil)
	rec := httptest.NewRecorder()
	pricer().PlotData(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)

	xs := body["x_values"].([]any)
	require.Len(t, xs, 100)
	assert.Equal(t, 50.0, xs[0])
	assert.Equal(t, 150.0, xs[99])

	prices := body["price"].([]any)
	for i := 1; i < len(prices); i++ {
		assert.Greater(t, prices[i].(float64), prices[i-1].(float64))
	}
	greeks := body["greeks"].(map[string]any)
	assert.Len(t, greeks, 5)
}

func TestPlotDataDenseGreeks(t *testing.T) {
	rec, body := post(t, pricer().PlotData, `{
		"optionFamily": "AMERICAN", "optionType": "PUT",
		"param_to_vary": "volatility", "min_value": 0.1, "max_value": 0.5, "num_points": 5
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	greeks := body["greeks"].(map[string]any)
	assert.Equal(t, []any{0.0, 0.0, 0.0, 0.0, 0.0}, greeks["vega"])
	for _, d := range greeks["delta"].([]any) {
		assert.Less(t, d.(float64), 0.0)
	}
}

func TestPlotDataValidation(t *testing.T) {
	rec, body := post(t, pricer().PlotData, `{"num_points": 1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "num_points", body["field"])

	rec, body = post(t, pricer().PlotData, `{"num_points": 5000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "num_points", body["field"])

	rec, body = post(t, pricer().PlotData, `{"num_points": 2.5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "must be an integer")

	rec, body = post(t, pricer().PlotData, `{"num_points": 1e12}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "num_points", body["field"])
	assert.Contains(t, body["error"], "out of range")
	assert.NotContains(t, body["error"], "integer")
}

type mockStocks struct{ mock.Mock }

func (m *mockStocks) Data(ctx context.Context, symbol string) (service.StockData, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(service.StockData), args.Error(1)
}

func (m *mockStocks) Volatility(ctx context.Context, symbol string, window int) (service.VolatilityEstimate, error) {
	args := m.Called(ctx, symbol, window)
	return args.Get(0).(service.VolatilityEstimate), args.Error(1)
}

func (m *mockStocks) LastPrice(ctx context.Context, symbol string) (string, float64, error) {
	args := m.Called(ctx, symbol)
	return args.String(0), args.Get(1).(float64), args.Error(2)
}

func TestStockData(t *testing.T) {
	price := 101.5
	ret := 0.015
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	data := service.StockData{
		History: domain.InstrumentHistory{
			Symbol:    "AAPL",
			LastPrice: &price,
			Bars: []domain.PriceBar{
				{Date: day, Close: 100},
				{Date: day.AddDate(0, 0, 1), Close: math.NaN()},
				{Date: day.AddDate(0, 0, 2), Close: 101.5, DailyReturn: &ret, CumulativeReturn: &ret},
			},
		},
		Performance: domain.PerformanceWindows{"oneMonth": 1.5},
	}
	stocks := &mockStocks{}
	stocks.On("Data", mock.Anything, "aapl").Return(data, nil)

	rec, body := get(t, "/stocks/{symbol}/data", NewStockHandler(stocks, discard()).Data, "/stocks/aapl/data")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 101.5, body["price"])
	assert.Equal(t, map[string]any{"oneMonth": 1.5}, body["performance"])

	hist := body["hist"].([]any)
	require.Len(t, hist, 3)
	assert.Equal(t, "2024-03-01", hist[0].(map[string]any)["date"])
	assert.Nil(t, hist[1].(map[string]any)["close"])
	assert.Equal(t, 0.015, hist[2].(map[string]any)["daily_return"])
	stocks.AssertExpectations(t)
}

func TestStockDataUnavailable(t *testing.T) {
	stocks := &mockStocks{}
	stocks.On("Data", mock.Anything, "ZZZZ").Return(service.StockData{},
		&domain.DataUnavailableError{Symbol: "ZZZZ", Reason: "no history for symbol", Err: domain.ErrNotFound})

	rec, body := get(t, "/stocks/{symbol}/data", NewStockHandler(stocks, discard()).Data, "/stocks/ZZZZ/data")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body, "price")
	assert.Nil(t, body["price"])
	assert.Equal(t, "data_unavailable", body["kind"])
	assert.Contains(t, body["error"], "ZZZZ")
}

func TestStockVolatility(t *testing.T) {
	stocks := &mockStocks{}
	stocks.On("Volatility", mock.Anything, "MSFT", 252).
		Return(service.VolatilityEstimate{Symbol: "MSFT", Window: 252, Volatility: 0.21, Observations: 252}, nil)
	stocks.On("Volatility", mock.Anything, "MSFT", 30).
		Return(service.VolatilityEstimate{Symbol: "MSFT", Window: 30, Volatility: 0.18, Observations: 30}, nil)
	h := NewStockHandler(stocks, discard())

	rec, body := get(t, "/stocks/{symbol}/volatility", h.Volatility, "/stocks/MSFT/volatility")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.21, body["volatility"])
	assert.Equal(t, 252.0, body["window"])

	rec, body = get(t, "/stocks/{symbol}/volatility", h.Volatility, "/stocks/MSFT/volatility?window=30")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, body["observations"])

	rec, body = get(t, "/stocks/{symbol}/volatility", h.Volatility, "/stocks/MSFT/volatility?window=month")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "window", body["field"])
	stocks.AssertExpectations(t)
}

func TestStockPrice(t *testing.T) {
	stocks := &mockStocks{}
	stocks.On("LastPrice", mock.Anything, "spy").Return("SPY", 512.25, nil)

	rec, body := get(t, "/stocks/{symbol}/price", NewStockHandler(stocks, discard()).Price, "/stocks/spy/price")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"symbol": "SPY", "price": 512.25}, body)
}

type fakeReference struct {
	list []domain.Instrument
	err  error
}

func (f fakeReference) Instruments(context.Context) ([]domain.Instrument, error) { return f.list, f.err }

func (f fakeReference) Instrument(_ context.Context, symbol string) (domain.Instrument, error) {
	for _, inst := range f.list {
		if inst.Symbol == symbol {
			return inst, nil
		}
	}
	return domain.Instrument{}, domain.ErrNotFound
}

func TestReferenceList(t *testing.T) {
	ref := fakeReference{list: []domain.Instrument{
		{Symbol: "AAPL", SecurityName: "Apple Inc."},
		{Symbol: "MSFT", SecurityName: "Microsoft Corp."},
	}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stocks/data", NewReferenceHandler(ref, discard()).List)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stocks/data", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"symbol":"AAPL","security_name":"Apple Inc."},{"symbol":"MSFT","security_name":"Microsoft Corp."}]`, rec.Body.String())
}

func TestReferenceGet(t *testing.T) {
	h := NewReferenceHandler(fakeReference{list: []domain.Instrument{{Symbol: "AAPL", SecurityName: "Apple Inc."}}}, discard())

	rec, body := get(t, "/symbols/{symbol}", h.Get, "/symbols/AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Apple Inc.", body["security_name"])

	rec, body = get(t, "/symbols/{symbol}", h.Get, "/symbols/NOPE")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", body["kind"])
}

func TestReferenceUnconfigured(t *testing.T) {
	rec, _ := get(t, "/stocks/data", NewReferenceHandler(nil, discard()).List, "/stocks/data")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type pinger struct{ err error }

func (p pinger) Health(context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	rec, body := get(t, "/api/health", NewHealthHandler(map[string]Pinger{"redis": pinger{}}, discard()).HealthCheck, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	h := NewHealthHandler(map[string]Pinger{"redis": pinger{}, "postgres": pinger{err: errors.New("refused")}}, discard())
	rec, body = get(t, "/api/health", h.HealthCheck, "/api/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"redis": "ok", "postgres": "refused"}, body["backends"])
}

func TestRoot(t *testing.T) {
	rec, body := get(t, "/{$}", Root, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"Hello": "World"}, body)
}
