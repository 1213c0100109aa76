package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// OptionFamily is the exercise style of an option.
type OptionFamily string

const (
	European OptionFamily = "EUROPEAN"
	American OptionFamily = "AMERICAN"
)

// OptionType is the payoff direction.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// ModelType selects the pricing engine.
type ModelType string

const (
	BlackScholes ModelType = "BLACK_SCHOLES"
	MonteCarlo   ModelType = "MONTE_CARLO"
)

// canonical upper-cases s and folds spaces and dashes to underscores, so
// "Black Scholes", "black_scholes" and "BLACK-SCHOLES" compare equal.
func canonical(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// ParseOptionFamily parses s into an OptionFamily.
func ParseOptionFamily(s string) (OptionFamily, error) {
	switch f := OptionFamily(canonical(s)); f {
	case European, American:
		return f, nil
	}
	return "", Invalid("optionFamily", "unknown option family %q (valid: EUROPEAN, AMERICAN)", s)
}

// ParseOptionType parses s into an OptionType.
func ParseOptionType(s string) (OptionType, error) {
	switch t := OptionType(canonical(s)); t {
	case Call, Put:
		return t, nil
	}
	return "", Invalid("optionType", "unknown option type %q (valid: CALL, PUT)", s)
}

// ParseModelType parses s into a ModelType.
func ParseModelType(s string) (ModelType, error) {
	switch m := ModelType(canonical(s)); m {
	case BlackScholes, MonteCarlo:
		return m, nil
	case "BLACKSCHOLES":
		return BlackScholes, nil
	case "MONTECARLO":
		return MonteCarlo, nil
	}
	return "", Invalid("modelType", "unknown model %q (valid: BLACK_SCHOLES, MONTE_CARLO)", s)
}

func (f *OptionFamily) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return Invalid("optionFamily", "must be a string")
	}
	v, err := ParseOptionFamily(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (t *OptionType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return Invalid("optionType", "must be a string")
	}
	v, err := ParseOptionType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (m *ModelType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return Invalid("modelType", "must be a string")
	}
	v, err := ParseModelType(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SweepParam names the request field a sensitivity sweep varies.
type SweepParam string

const (
	SweepSpot       SweepParam = "spot"
	SweepStrike     SweepParam = "strike"
	SweepVolatility SweepParam = "volatility"
	SweepRate       SweepParam = "riskFreeRate"
	SweepDividend   SweepParam = "dividendYield"
	SweepMaturity   SweepParam = "maturity"
)

var sweepAliases = map[string]SweepParam{
	"spot":            SweepSpot,
	"underlyingprice": SweepSpot,
	"strike":          SweepStrike,
	"strikeprice":     SweepStrike,
	"volatility":      SweepVolatility,
	"vol":             SweepVolatility,
	"sigma":           SweepVolatility,
	"riskfreerate":    SweepRate,
	"rate":            SweepRate,
	"dividendyield":   SweepDividend,
	"dividend":        SweepDividend,
	"maturity":        SweepMaturity,
	"expiry":          SweepMaturity,
}

// ParseSweepParam resolves s to a SweepParam. An empty s selects spot.
func ParseSweepParam(s string) (SweepParam, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
	if key == "" {
		return SweepSpot, nil
	}
	if p, ok := sweepAliases[key]; ok {
		return p, nil
	}
	return "", Invalid("param_to_vary", "unknown parameter %q", s)
}

// SweepBounds is the sampled range of a sensitivity sweep.
type SweepBounds struct {
	MinValue  float64
	MaxValue  float64
	NumPoints int
}

// OptionPricingRequest is one vanilla option quote request.
type OptionPricingRequest struct {
	Spot          float64
	Volatility    float64
	RiskFreeRate  float64
	DividendYield float64
	Strike        float64
	Maturity      float64
	Family        OptionFamily
	Type          OptionType
	Model         ModelType

	// Sweep is set when the caller asked for sensitivity curves.
	Sweep *SweepBounds
}

// Validate checks every field and returns the first problem as a
// *ValidationError.
func (r OptionPricingRequest) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"spot", r.Spot},
		{"volatility", r.Volatility},
		{"riskFreeRate", r.RiskFreeRate},
		{"dividendYield", r.DividendYield},
		{"strike", r.Strike},
		{"maturity", r.Maturity},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return Invalid(f.name, "must be a finite number")
		}
		if f.v < 0 {
			return Invalid(f.name, "must be non-negative, got %g", f.v)
		}
	}
	if _, err := ParseOptionFamily(string(r.Family)); err != nil {
		return err
	}
	if _, err := ParseOptionType(string(r.Type)); err != nil {
		return err
	}
	if _, err := ParseModelType(string(r.Model)); err != nil {
		return err
	}
	if r.Sweep != nil {
		return r.Sweep.Validate()
	}
	return nil
}

// Validate checks the sweep invariants: num_points ≥ 2 and min < max.
func (b SweepBounds) Validate() error {
	if math.IsNaN(b.MinValue) || math.IsInf(b.MinValue, 0) {
		return Invalid("min_value", "must be a finite number")
	}
	if math.IsNaN(b.MaxValue) || math.IsInf(b.MaxValue, 0) {
		return Invalid("max_value", "must be a finite number")
	}
	if b.NumPoints < 2 {
		return Invalid("num_points", "must be at least 2, got %d", b.NumPoints)
	}
	if b.MinValue >= b.MaxValue {
		return Invalid("min_value", "must be less than max_value (%g >= %g)", b.MinValue, b.MaxValue)
	}
	return nil
}

// Get returns the value of the field named by p.
func (r OptionPricingRequest) Get(p SweepParam) (float64, error) {
	switch p {
	case SweepSpot:
		return r.Spot, nil
	case SweepStrike:
		return r.Strike, nil
	case SweepVolatility:
		return r.Volatility, nil
	case SweepRate:
		return r.RiskFreeRate, nil
	case SweepDividend:
		return r.DividendYield, nil
	case SweepMaturity:
		return r.Maturity, nil
	}
	return 0, Invalid("param_to_vary", "unknown parameter %q", string(p))
}

// With returns a copy of r with the field named by p set to v and the sweep
// bounds cleared.
func (r OptionPricingRequest) With(p SweepParam, v float64) (OptionPricingRequest, error) {
	out := r
	out.Sweep = nil
	switch p {
	case SweepSpot:
		out.Spot = v
	case SweepStrike:
		out.Strike = v
	case SweepVolatility:
		out.Volatility = v
	case SweepRate:
		out.RiskFreeRate = v
	case SweepDividend:
		out.DividendYield = v
	case SweepMaturity:
		out.Maturity = v
	default:
		return OptionPricingRequest{}, Invalid("param_to_vary", "unknown parameter %q", string(p))
	}
	return out, nil
}

// Greeks holds the five first- and second-order sensitivities. A nil field
// means the selected model did not compute it.
//
// Units: vega per 1.00 of volatility, rho per 1.00 of rate, theta per year.
type Greeks struct {
	Delta *float64 `json:"delta"`
	Gamma *float64 `json:"gamma"`
	Vega  *float64 `json:"vega"`
	Theta *float64 `json:"theta"`
	Rho   *float64 `json:"rho"`
}

// GreekNames lists the Greeks in display order.
var GreekNames = []string{"delta", "gamma", "vega", "theta", "rho"}

// Lookup returns the Greek called name, or nil when absent or unknown.
func (g Greeks) Lookup(name string) *float64 {
	switch name {
	case "delta":
		return g.Delta
	case "gamma":
		return g.Gamma
	case "vega":
		return g.Vega
	case "theta":
		return g.Theta
	case "rho":
		return g.Rho
	}
	return nil
}

// PricingResult is a priced option: value plus Greeks.
type PricingResult struct {
	Value  float64 `json:"value"`
	Greeks Greeks  `json:"greeks"`
}

// SensitivityCurve is the output of a sweep. XValues, Values and every entry
// of Greeks share one length and are aligned by sample index.
type SensitivityCurve struct {
	Param   SweepParam
	XValues []float64
	Values  []float64
	Greeks  map[string][]float64
}

// Len reports the number of samples.
func (c SensitivityCurve) Len() int { return len(c.XValues) }

func (c SensitivityCurve) String() string {
	return fmt.Sprintf("curve(%s, %d points)", c.Param, c.Len())
}
