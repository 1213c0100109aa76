// Package quant prices vanilla options. It knows nothing about the HTTP
// request model: callers map their inputs onto Market and Option and pick an
// Engine.
package quant

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for inputs an engine cannot price.
var ErrInvalidInput = errors.New("quant: invalid input")

// InputError names the offending input. It wraps ErrInvalidInput.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("quant: invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Market is the state of the underlying at valuation time. Rates and yields
// are continuously compounded and annualised.
type Market struct {
	Spot       float64
	Rate       float64
	Volatility float64
	Dividend   float64
}

// PayoffKind is call or put.
type PayoffKind int

const (
	CallPayoff PayoffKind = iota
	PutPayoff
)

func (k PayoffKind) String() string {
	if k == PutPayoff {
		return "put"
	}
	return "call"
}

// Payoff is a vanilla payoff at a strike.
type Payoff struct {
	Kind   PayoffKind
	Strike float64
}

// At returns the exercise value for an underlying price s.
func (p Payoff) At(s float64) float64 {
	if p.Kind == PutPayoff {
		return math.Max(p.Strike-s, 0)
	}
	return math.Max(s-p.Strike, 0)
}

// Exercise is the exercise style.
type Exercise int

const (
	EuropeanExercise Exercise = iota
	AmericanExercise
)

func (e Exercise) String() string {
	if e == AmericanExercise {
		return "american"
	}
	return "european"
}

// Option is a vanilla option with an expiry in years.
type Option struct {
	Payoff   Payoff
	Exercise Exercise
	Expiry   float64
}

// Sensitivities are the Greeks an engine managed to compute; nil means not
// computed.
type Sensitivities struct {
	Delta *float64
	Gamma *float64
	Vega  *float64
	Theta *float64
	Rho   *float64
}

// Result is one engine valuation.
type Result struct {
	Value  float64
	Greeks Sensitivities
}

// Engine values an option in a market. Implementations are safe for
// concurrent use.
type Engine interface {
	Name() string
	Price(ctx context.Context, m Market, o Option) (Result, error)
}

func validate(m Market, o Option) error {
	checks := []struct {
		field string
		v     float64
	}{
		{"spot", m.Spot},
		{"rate", m.Rate},
		{"volatility", m.Volatility},
		{"dividend", m.Dividend},
		{"strike", o.Payoff.Strike},
		{"expiry", o.Expiry},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return &InputError{Field: c.field, Reason: "not finite"}
		}
		if c.v < 0 {
			return &InputError{Field: c.field, Reason: fmt.Sprintf("negative value %g", c.v)}
		}
	}
	return nil
}

func ptr(v float64) *float64 { return &v }

// atExpiry values an option with no time left: intrinsic value, a step delta
// and zero for everything else.
func atExpiry(m Market, o Option) Result {
	var delta float64
	switch o.Payoff.Kind {
	case CallPayoff:
		if m.Spot > o.Payoff.Strike {
			delta = 1
		}
	case PutPayoff:
		if m.Spot < o.Payoff.Strike {
			delta = -1
		}
	}
	return Result{
		Value: o.Payoff.At(m.Spot),
		Greeks: Sensitivities{
			Delta: ptr(delta),
			Gamma: ptr(0),
			Vega:  ptr(0),
			Theta: ptr(0),
			Rho:   ptr(0),
		},
	}
}

// deterministicAmerican values an American option when the underlying drifts
// without noise: the best discounted exercise over an even time grid.
func deterministicAmerican(m Market, o Option, steps int) Result {
	dt := o.Expiry / float64(steps)
	best := o.Payoff.At(m.Spot)
	for k := 1; k <= steps; k++ {
		t := dt * float64(k)
		s := m.Spot * math.Exp((m.Rate-m.Dividend)*t)
		if v := math.Exp(-m.Rate*t) * o.Payoff.At(s); v > best {
			best = v
		}
	}
	return Result{Value: best}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
