package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// Window keys in PerformanceWindows.
const (
	OneMonth   = "oneMonth"
	SixMonths  = "sixMonths"
	OneYear    = "oneYear"
	ThreeYears = "threeYears"
	FiveYears  = "fiveYears"
	YTD        = "ytd"
)

// trailing lists the lookback windows in calendar days. oneYear counts 252
// days, not 365, to match the figures clients already display.
var trailing = []struct {
	key  string
	days int
}{
	{OneMonth, 30},
	{SixMonths, 182},
	{OneYear, 252},
	{ThreeYears, 3 * 365},
	{FiveYears, 5 * 365},
}

// Performance computes the trailing percentage return of each window from
// the bars' cumulative returns. A window needs at least two bars and defined
// cumulative returns at both ends; windows that fail this are left out.
func Performance(bars []domain.PriceBar) domain.PerformanceWindows {
	out := domain.PerformanceWindows{}
	if len(bars) == 0 {
		return out
	}

	latest := bars[0].Date
	for _, b := range bars[1:] {
		if b.Date.After(latest) {
			latest = b.Date
		}
	}

	for _, w := range trailing {
		from := latest.AddDate(0, 0, -w.days)
		if v, ok := windowReturn(bars, func(d time.Time) bool { return !d.Before(from) }); ok {
			out[w.key] = v
		}
	}
	year := latest.Year()
	if v, ok := windowReturn(bars, func(d time.Time) bool { return d.Year() == year }); ok {
		out[YTD] = v
	}
	return out
}

// windowReturn returns (last - first) * 100 over the bars selected by keep,
// rounded half away from zero to two places.
func windowReturn(bars []domain.PriceBar, keep func(time.Time) bool) (float64, bool) {
	var first, last *domain.PriceBar
	n := 0
	for i := range bars {
		if !keep(bars[i].Date) {
			continue
		}
		if first == nil {
			first = &bars[i]
		}
		last = &bars[i]
		n++
	}
	if n < 2 || first.CumulativeReturn == nil || last.CumulativeReturn == nil {
		return 0, false
	}
	diff := (*last.CumulativeReturn - *first.CumulativeReturn) * 100
	if !finite(diff) {
		return 0, false
	}
	v, _ := decimal.NewFromFloat(diff).Round(2).Float64()
	return v, true
}
