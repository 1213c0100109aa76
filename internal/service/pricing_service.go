package service

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/alanyoungcy/hiram/internal/domain"
	"github.com/alanyoungcy/hiram/internal/quant"
)

// PricingService validates option requests and hands them to the engine
// registered for the requested model. It does no numeric work of its own.
type PricingService struct {
	engines map[domain.ModelType]quant.Engine
	logger  *slog.Logger
}

// NewPricingService creates a PricingService over the given engine registry.
func NewPricingService(engines map[domain.ModelType]quant.Engine, logger *slog.Logger) *PricingService {
	reg := make(map[domain.ModelType]quant.Engine, len(engines))
	for k, v := range engines {
		reg[k] = v
	}
	return &PricingService{
		engines: reg,
		logger:  logger,
	}
}

// Price values one option. Validation problems are returned as
// *domain.ValidationError before any engine is called; engine failures and
// non-finite values as *domain.PricingError.
func (s *PricingService) Price(ctx context.Context, req domain.OptionPricingRequest) (domain.PricingResult, error) {
	if err := req.Validate(); err != nil {
		return domain.PricingResult{}, err
	}
	engine, ok := s.engines[req.Model]
	if !ok {
		return domain.PricingResult{}, &domain.PricingError{
			Reason: "no engine registered for " + string(req.Model),
			Field:  "modelType",
			Err:    domain.ErrUnknownModel,
		}
	}

	m, o := toQuant(req)
	res, err := engine.Price(ctx, m, o)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return domain.PricingResult{}, err
		}
		pe := &domain.PricingError{Reason: engine.Name() + " rejected the request", Err: err}
		var ie *quant.InputError
		if errors.As(err, &ie) {
			pe.Field = requestField(ie.Field)
		}
		return domain.PricingResult{}, pe
	}
	if math.IsNaN(res.Value) || math.IsInf(res.Value, 0) {
		return domain.PricingResult{}, &domain.PricingError{Reason: engine.Name() + " produced a non-finite value"}
	}

	s.logger.DebugContext(ctx, "pricing_service: priced",
		slog.String("model", string(req.Model)),
		slog.String("family", string(req.Family)),
		slog.String("type", string(req.Type)),
		slog.Float64("value", res.Value),
	)

	return domain.PricingResult{
		Value: res.Value,
		Greeks: domain.Greeks{
			Delta: finiteOrNil(res.Greeks.Delta),
			Gamma: finiteOrNil(res.Greeks.Gamma),
			Vega:  finiteOrNil(res.Greeks.Vega),
			Theta: finiteOrNil(res.Greeks.Theta),
			Rho:   finiteOrNil(res.Greeks.Rho),
		},
	}, nil
}

func toQuant(req domain.OptionPricingRequest) (quant.Market, quant.Option) {
	kind := quant.CallPayoff
	if req.Type == domain.Put {
		kind = quant.PutPayoff
	}
	ex := quant.EuropeanExercise
	if req.Family == domain.American {
		ex = quant.AmericanExercise
	}
	return quant.Market{
			Spot:       req.Spot,
			Rate:       req.RiskFreeRate,
			Volatility: req.Volatility,
			Dividend:   req.DividendYield,
		}, quant.Option{
			Payoff:   quant.Payoff{Kind: kind, Strike: req.Strike},
			Exercise: ex,
			Expiry:   req.Maturity,
		}
}

// requestField maps an engine input name back to the request field.
func requestField(f string) string {
	switch f {
	case "rate":
		return "riskFreeRate"
	case "dividend":
		return "dividendYield"
	case "expiry":
		return "maturity"
	}
	return f
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := *v
	return &out
}
