package quant

import (
	"context"
	"math"
)

// priceAmerican runs Longstaff-Schwartz on antithetic paths. Delta comes from
// revaluing with bumped spot on the same normals. The exercise boundary moves
// between bumps, which makes a second difference too noisy to report gamma.
func (e *MonteCarlo) priceAmerican(ctx context.Context, m Market, o Option) (Result, error) {
	pairs := e.paths / 2
	z := e.normals(pairs * e.steps)

	value, err := e.lsm(ctx, z, pairs, m, o)
	if err != nil {
		return Result{}, err
	}

	h := spotStep(m.Spot)
	var lsmErr error
	f := func(s float64) float64 {
		bm := m
		bm.Spot = s
		v, err := e.lsm(ctx, z, pairs, bm, o)
		if err != nil && lsmErr == nil {
			lsmErr = err
		}
		return v
	}
	delta, _ := bumped(f, m.Spot, h)
	if lsmErr != nil {
		return Result{}, lsmErr
	}

	return Result{
		Value: value,
		Greeks: Sensitivities{
			Delta: ptr(delta),
		},
	}, nil
}

// lsm values the option on 2*pairs paths built from z, which holds
// pairs*steps normals laid out path-major.
func (e *MonteCarlo) lsm(ctx context.Context, z []float64, pairs int, m Market, o Option) (float64, error) {
	steps := e.steps
	n := 2 * pairs
	dt := o.Expiry / float64(steps)
	drift := (m.Rate - m.Dividend - 0.5*m.Volatility*m.Volatility) * dt
	diffusion := m.Volatility * math.Sqrt(dt)
	disc := math.Exp(-m.Rate * dt)

	// spots[t][i] is the price of path i after t+1 steps.
	spots := make([][]float64, steps)
	for t := range spots {
		spots[t] = make([]float64, n)
	}
	for p := 0; p < pairs; p++ {
		up, down := m.Spot, m.Spot
		for t := 0; t < steps; t++ {
			x := z[p*steps+t]
			up *= math.Exp(drift + diffusion*x)
			down *= math.Exp(drift - diffusion*x)
			spots[t][2*p] = up
			spots[t][2*p+1] = down
		}
	}

	scale := o.Payoff.Strike
	if scale <= 0 {
		scale = math.Max(m.Spot, 1)
	}

	cash := make([]float64, n)
	for i := range cash {
		cash[i] = o.Payoff.At(spots[steps-1][i])
	}

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	idx := make([]int, 0, n)
	for t := steps - 2; t >= 0; t-- {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for i := range cash {
			cash[i] *= disc
		}

		xs, ys, idx = xs[:0], ys[:0], idx[:0]
		for i, s := range spots[t] {
			if o.Payoff.At(s) > 0 {
				xs = append(xs, s/scale)
				ys = append(ys, cash[i])
				idx = append(idx, i)
			}
		}
		beta, ok := fitQuadratic(xs, ys)
		if !ok {
			continue
		}
		for k, i := range idx {
			x := xs[k]
			continuation := beta[0] + beta[1]*x + beta[2]*x*x
			if ex := o.Payoff.At(spots[t][i]); ex > continuation {
				cash[i] = ex
			}
		}
	}

	var sum float64
	for _, c := range cash {
		sum += c
	}
	value := disc * sum / float64(n)
	return math.Max(value, o.Payoff.At(m.Spot)), nil
}

// fitQuadratic solves the least-squares fit y ≈ b0 + b1 x + b2 x² through the
// normal equations. ok is false when there are too few points or the system
// is singular.
func fitQuadratic(xs, ys []float64) (beta [3]float64, ok bool) {
	if len(xs) < 3 {
		return beta, false
	}
	var a [3][4]float64
	for k, x := range xs {
		basis := [3]float64{1, x, x * x}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				a[i][j] += basis[i] * basis[j]
			}
			a[i][3] += basis[i] * ys[k]
		}
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 3; col++ {
		pivot := col
		for r := col + 1; r < 3; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return beta, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < 3; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < 4; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	for i := 2; i >= 0; i-- {
		sum := a[i][3]
		for j := i + 1; j < 3; j++ {
			sum -= a[i][j] * beta[j]
		}
		beta[i] = sum / a[i][i]
	}
	return beta, true
}
