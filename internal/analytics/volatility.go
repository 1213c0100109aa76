package analytics

import (
	"errors"
	"math"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// TradingDays annualises daily statistics.
const TradingDays = 252

// ErrInsufficientData is returned when too few returns exist for a statistic.
var ErrInsufficientData = errors.New("analytics: insufficient data")

// Volatility is the annualised sample standard deviation of the last window
// defined daily returns. It also reports how many returns were used.
func Volatility(bars []domain.PriceBar, window int) (float64, int, error) {
	if window < 2 {
		window = 2
	}
	rets := make([]float64, 0, window)
	for i := len(bars) - 1; i >= 0 && len(rets) < window; i-- {
		if r := bars[i].DailyReturn; r != nil && finite(*r) {
			rets = append(rets, *r)
		}
	}
	if len(rets) < 2 {
		return 0, len(rets), ErrInsufficientData
	}

	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(ss / float64(len(rets)-1))
	return sd * math.Sqrt(TradingDays), len(rets), nil
}

// LastPrice returns the last finite close in bars.
func LastPrice(bars []domain.PriceBar) (float64, bool) {
	for i := len(bars) - 1; i >= 0; i-- {
		if finite(bars[i].Close) {
			return bars[i].Close, true
		}
	}
	return 0, false
}
