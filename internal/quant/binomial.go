package quant

import "math"

// binomial prices an American option on a CRR tree with n steps. Delta,
// gamma and theta are read off the first two levels of the tree; vega and rho
// are not computed.
func binomial(m Market, o Option, n int) (Result, error) {
	if o.Expiry == 0 {
		return atExpiry(m, o), nil
	}
	if m.Volatility == 0 {
		return deterministicAmerican(m, o, n), nil
	}
	if m.Spot == 0 {
		// The underlying stays at zero: exercise now or never.
		res := atExpiry(m, o)
		res.Greeks.Vega, res.Greeks.Rho = nil, nil
		return res, nil
	}

	dt := o.Expiry / float64(n)
	u, d, p := crrFactors(m, dt)
	disc := math.Exp(-m.Rate * dt)

	S := m.Spot
	node := func(i, j int) float64 {
		return S * math.Pow(u, float64(j)) * math.Pow(d, float64(i-j))
	}
	values := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		values[j] = o.Payoff.At(node(n, j))
	}

	var level1, level2 [3]float64
	for i := n - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			cont := disc * (p*values[j+1] + (1-p)*values[j])
			values[j] = math.Max(cont, o.Payoff.At(node(i, j)))
		}
		switch i {
		case 2:
			copy(level2[:], values[:3])
		case 1:
			copy(level1[:2], values[:2])
		}
	}

	fd, fu := level1[0], level1[1]
	fdd, fud, fuu := level2[0], level2[1], level2[2]
	su, sd := node(1, 1), node(1, 0)
	suu, sud, sdd := node(2, 2), node(2, 1), node(2, 0)

	up := (fuu - fud) / (suu - sud)
	down := (fud - fdd) / (sud - sdd)
	delta := (fu - fd) / (su - sd)
	gamma := (up - down) / (0.5 * (suu - sdd))

	// The middle node two steps in sits at S only on the plain CRR tree.
	slope := down
	if sud < S {
		slope = up
	}
	theta := (fud + (S-sud)*slope - values[0]) / (2 * dt)

	return Result{
		Value: values[0],
		Greeks: Sensitivities{
			Delta: ptr(delta),
			Gamma: ptr(gamma),
			Theta: ptr(theta),
		},
	}, nil
}

// crrFactors returns the up and down factors and the up probability for one
// step of length dt. When the volatility is too small for the drift the plain
// CRR probability leaves (0, 1), so the tree is centred on the forward instead.
func crrFactors(m Market, dt float64) (u, d, p float64) {
	growth := math.Exp((m.Rate - m.Dividend) * dt)
	jump := m.Volatility * math.Sqrt(dt)

	u = math.Exp(jump)
	d = 1 / u
	if p = (growth - d) / (u - d); p > 0 && p < 1 {
		return u, d, p
	}

	u, d = growth*math.Exp(jump), growth*math.Exp(-jump)
	return u, d, (growth - d) / (u - d)
}
