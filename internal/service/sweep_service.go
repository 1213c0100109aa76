package service

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// Pricer is the single-point valuation a sweep repeats.
type Pricer interface {
	Price(ctx context.Context, req domain.OptionPricingRequest) (domain.PricingResult, error)
}

// SweepService samples one request parameter over a range and prices every
// sample, producing aligned value and Greek curves.
type SweepService struct {
	pricer    Pricer
	workers   int
	maxPoints int
	logger    *slog.Logger
}

// NewSweepService creates a SweepService. workers <= 0 uses GOMAXPROCS and
// maxPoints <= 0 leaves the sample count unbounded.
func NewSweepService(pricer Pricer, workers, maxPoints int, logger *slog.Logger) *SweepService {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &SweepService{
		pricer:    pricer,
		workers:   workers,
		maxPoints: maxPoints,
		logger:    logger,
	}
}

// Sweep prices base at NumPoints evenly spaced values of param between the
// sweep bounds. The first failing point aborts the whole sweep. Greeks the
// model did not compute are reported as 0 in the curves.
func (s *SweepService) Sweep(ctx context.Context, base domain.OptionPricingRequest, param domain.SweepParam) (domain.SensitivityCurve, error) {
	if base.Sweep == nil {
		return domain.SensitivityCurve{}, domain.Invalid("num_points", "sweep bounds are required")
	}
	if param == "" {
		param = domain.SweepSpot
	}
	if _, err := base.Get(param); err != nil {
		return domain.SensitivityCurve{}, err
	}
	if err := base.Validate(); err != nil {
		return domain.SensitivityCurve{}, err
	}
	b := *base.Sweep
	if b.MinValue < 0 {
		return domain.SensitivityCurve{}, domain.Invalid("min_value", "must be non-negative for %s, got %g", param, b.MinValue)
	}
	if s.maxPoints > 0 && b.NumPoints > s.maxPoints {
		return domain.SensitivityCurve{}, domain.Invalid("num_points", "at most %d points allowed, got %d", s.maxPoints, b.NumPoints)
	}

	xs := Linspace(b.MinValue, b.MaxValue, b.NumPoints)
	results := make([]domain.PricingResult, len(xs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, x := range xs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			req, err := base.With(param, x)
			if err != nil {
				return err
			}
			res, err := s.pricer.Price(gctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.SensitivityCurve{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.SensitivityCurve{}, err
	}

	curve := domain.SensitivityCurve{
		Param:   param,
		XValues: xs,
		Values:  make([]float64, len(xs)),
		Greeks:  make(map[string][]float64, len(domain.GreekNames)),
	}
	for _, name := range domain.GreekNames {
		curve.Greeks[name] = make([]float64, len(xs))
	}
	for i, r := range results {
		curve.Values[i] = r.Value
		for _, name := range domain.GreekNames {
			if v := r.Greeks.Lookup(name); v != nil {
				curve.Greeks[name][i] = *v
			}
		}
	}

	s.logger.DebugContext(ctx, "sweep_service: swept",
		slog.String("param", string(param)),
		slog.Int("points", len(xs)),
	)
	return curve, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive. The end
// points are exact.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
