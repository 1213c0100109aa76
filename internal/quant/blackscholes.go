package quant

import (
	"context"
	"math"
)

// minTreeSteps is the smallest tree that has a level strictly between the
// root and the leaves for gamma and theta.
const minTreeSteps = 3

// BlackScholes prices European options in closed form and American options
// on a Cox-Ross-Rubinstein tree under the same lognormal dynamics.
type BlackScholes struct {
	treeSteps int
}

// NewBlackScholes returns a BlackScholes engine. treeSteps is the number of
// binomial steps used for American exercise; values below 3 select 200.
func NewBlackScholes(treeSteps int) *BlackScholes {
	if treeSteps < minTreeSteps {
		treeSteps = 200
	}
	return &BlackScholes{treeSteps: treeSteps}
}

func (e *BlackScholes) Name() string { return "black_scholes" }

// Price implements Engine.
func (e *BlackScholes) Price(ctx context.Context, m Market, o Option) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := validate(m, o); err != nil {
		return Result{}, err
	}
	if o.Exercise == AmericanExercise {
		return binomial(m, o, e.treeSteps)
	}
	return europeanClosedForm(m, o), nil
}

func europeanClosedForm(m Market, o Option) Result {
	S, K, r, q, sigma, T := m.Spot, o.Payoff.Strike, m.Rate, m.Dividend, m.Volatility, o.Expiry
	if T == 0 {
		return atExpiry(m, o)
	}
	if sigma == 0 || S == 0 {
		return deterministicEuropean(m, o)
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r-q+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	dq := math.Exp(-q * T)
	dr := math.Exp(-r * T)
	pdf := normPDF(d1)

	gamma := dq * pdf / (S * sigma * sqrtT)
	vega := S * dq * pdf * sqrtT
	decay := -S * dq * pdf * sigma / (2 * sqrtT)

	var value, delta, theta, rho float64
	if o.Payoff.Kind == PutPayoff {
		value = K*dr*normCDF(-d2) - S*dq*normCDF(-d1)
		delta = dq * (normCDF(d1) - 1)
		theta = decay + r*K*dr*normCDF(-d2) - q*S*dq*normCDF(-d1)
		rho = -K * T * dr * normCDF(-d2)
	} else {
		value = S*dq*normCDF(d1) - K*dr*normCDF(d2)
		delta = dq * normCDF(d1)
		theta = decay - r*K*dr*normCDF(d2) + q*S*dq*normCDF(d1)
		rho = K * T * dr * normCDF(d2)
	}

	return Result{
		Value: value,
		Greeks: Sensitivities{
			Delta: ptr(delta),
			Gamma: ptr(gamma),
			Vega:  ptr(vega),
			Theta: ptr(theta),
			Rho:   ptr(rho),
		},
	}
}

// deterministicEuropean handles sigma == 0 or spot == 0, where the terminal
// price is known: the option is worth its discounted forward intrinsic value.
func deterministicEuropean(m Market, o Option) Result {
	S, K, r, q, T := m.Spot, o.Payoff.Strike, m.Rate, m.Dividend, o.Expiry
	fwdS := S * math.Exp(-q*T)
	pvK := K * math.Exp(-r*T)

	res := Result{Greeks: Sensitivities{
		Delta: ptr(0), Gamma: ptr(0), Vega: ptr(0), Theta: ptr(0), Rho: ptr(0),
	}}
	switch {
	case o.Payoff.Kind == CallPayoff && fwdS > pvK:
		res.Value = fwdS - pvK
		*res.Greeks.Delta = math.Exp(-q * T)
		*res.Greeks.Theta = q*fwdS - r*pvK
		*res.Greeks.Rho = T * pvK
	case o.Payoff.Kind == PutPayoff && pvK > fwdS:
		res.Value = pvK - fwdS
		*res.Greeks.Delta = -math.Exp(-q * T)
		*res.Greeks.Theta = r*pvK - q*fwdS
		*res.Greeks.Rho = -T * pvK
	}
	return res
}
