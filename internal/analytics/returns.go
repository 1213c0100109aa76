// Package analytics derives return series and trailing performance from
// daily price bars.
package analytics

import (
	"math"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// DeriveReturns returns a copy of bars with DailyReturn and CumulativeReturn
// filled in. Bars are expected in ascending date order.
//
// A bar whose close is missing or non-finite has no daily return, and the
// daily return after it is taken against the last finite positive close. The
// cumulative return compounds every defined daily return and carries the
// previous value across gaps; it stays nil until the first defined return.
func DeriveReturns(bars []domain.PriceBar) []domain.PriceBar {
	out := make([]domain.PriceBar, len(bars))
	var (
		prevClose float64
		havePrev  bool
		cum       *float64
	)
	for i, b := range bars {
		b.DailyReturn, b.CumulativeReturn = nil, nil

		if finite(b.Close) {
			if havePrev {
				r := b.Close/prevClose - 1
				if finite(r) {
					base := 0.0
					if cum != nil {
						base = *cum
					}
					c := (1+base)*(1+r) - 1
					b.DailyReturn = &r
					cum = &c
				}
			}
			if b.Close > 0 {
				prevClose, havePrev = b.Close, true
			}
		}
		if cum != nil {
			c := *cum
			b.CumulativeReturn = &c
		}
		out[i] = b
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
