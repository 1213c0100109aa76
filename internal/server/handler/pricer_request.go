package handler

import (
	"math"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// optionBody is the wire form of a pricing request. Pointers distinguish an
// omitted field from an explicit zero. underlyingPrice and strikePrice are the
// older names of spot and strike.
type optionBody struct {
	Spot            *float64             `json:"spot"`
	UnderlyingPrice *float64             `json:"underlyingPrice"`
	Volatility      *float64             `json:"volatility"`
	RiskFreeRate    *float64             `json:"riskFreeRate"`
	DividendYield   *float64             `json:"dividendYield"`
	Strike          *float64             `json:"strike"`
	StrikePrice     *float64             `json:"strikePrice"`
	Maturity        *float64             `json:"maturity"`
	OptionFamily    *domain.OptionFamily `json:"optionFamily"`
	OptionType      *domain.OptionType   `json:"optionType"`
	ModelType       *domain.ModelType    `json:"modelType"`

	MinValue    *float64 `json:"min_value"`
	MaxValue    *float64 `json:"max_value"`
	NumPoints   *float64 `json:"num_points"`
	ParamToVary string   `json:"param_to_vary"`
}

// plotDefaults fills every field plot-data leaves out.
var plotDefaults = struct {
	req    domain.OptionPricingRequest
	bounds domain.SweepBounds
}{
	req: domain.OptionPricingRequest{
		Spot:          100,
		Volatility:    0.2,
		RiskFreeRate:  0.05,
		DividendYield: 0,
		Strike:        100,
		Maturity:      1,
		Family:        domain.European,
		Type:          domain.Call,
		Model:         domain.BlackScholes,
	},
	bounds: domain.SweepBounds{MinValue: 50, MaxValue: 150, NumPoints: 100},
}

func first(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// quoteRequest builds a request for /options/price. Every market field,
// optionType and modelType are required; dividendYield defaults to 0 and
// optionFamily to EUROPEAN. Sweep bounds are all-or-nothing.
func (b optionBody) quoteRequest() (domain.OptionPricingRequest, domain.SweepParam, error) {
	var req domain.OptionPricingRequest

	required := []struct {
		name string
		v    *float64
		dst  *float64
	}{
		{"spot", first(b.Spot, b.UnderlyingPrice), &req.Spot},
		{"volatility", b.Volatility, &req.Volatility},
		{"riskFreeRate", b.RiskFreeRate, &req.RiskFreeRate},
		{"strike", first(b.Strike, b.StrikePrice), &req.Strike},
		{"maturity", b.Maturity, &req.Maturity},
	}
	for _, f := range required {
		if f.v == nil {
			return req, "", domain.Invalid(f.name, "is required")
		}
		*f.dst = *f.v
	}
	if b.DividendYield != nil {
		req.DividendYield = *b.DividendYield
	}

	req.Family = domain.European
	if b.OptionFamily != nil {
		req.Family = *b.OptionFamily
	}
	if b.OptionType == nil {
		return req, "", domain.Invalid("optionType", "is required")
	}
	req.Type = *b.OptionType
	if b.ModelType == nil {
		return req, "", domain.Invalid("modelType", "is required")
	}
	req.Model = *b.ModelType

	if b.MinValue == nil && b.MaxValue == nil && b.NumPoints == nil {
		return req, "", nil
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"min_value", b.MinValue},
		{"max_value", b.MaxValue},
		{"num_points", b.NumPoints},
	} {
		if f.v == nil {
			return req, "", domain.Invalid(f.name, "is required when sweeping")
		}
	}
	bounds, err := b.bounds(domain.SweepBounds{})
	if err != nil {
		return req, "", err
	}
	req.Sweep = &bounds

	param, err := domain.ParseSweepParam(b.ParamToVary)
	if err != nil {
		return req, "", err
	}
	return req, param, nil
}

// plotRequest builds a request for /options/plot-data, filling every omitted
// field from plotDefaults.
func (b optionBody) plotRequest() (domain.OptionPricingRequest, domain.SweepParam, error) {
	req := plotDefaults.req

	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&req.Spot, first(b.Spot, b.UnderlyingPrice))
	set(&req.Volatility, b.Volatility)
	set(&req.RiskFreeRate, b.RiskFreeRate)
	set(&req.DividendYield, b.DividendYield)
	set(&req.Strike, first(b.Strike, b.StrikePrice))
	set(&req.Maturity, b.Maturity)
	if b.OptionFamily != nil {
		req.Family = *b.OptionFamily
	}
	if b.OptionType != nil {
		req.Type = *b.OptionType
	}
	if b.ModelType != nil {
		req.Model = *b.ModelType
	}

	bounds, err := b.bounds(plotDefaults.bounds)
	if err != nil {
		return req, "", err
	}
	req.Sweep = &bounds

	param, err := domain.ParseSweepParam(b.ParamToVary)
	if err != nil {
		return req, "", err
	}
	return req, param, nil
}

func (b optionBody) bounds(def domain.SweepBounds) (domain.SweepBounds, error) {
	out := def
	if b.MinValue != nil {
		out.MinValue = *b.MinValue
	}
	if b.MaxValue != nil {
		out.MaxValue = *b.MaxValue
	}
	if b.NumPoints != nil {
		n := *b.NumPoints
		switch {
		case n != math.Trunc(n):
			return out, domain.Invalid("num_points", "must be an integer, got %g", n)
		case n < math.MinInt32 || n > math.MaxInt32:
			return out, domain.Invalid("num_points", "out of range, got %g", n)
		}
		out.NumPoints = int(n)
	}
	return out, nil
}
