// Package checker runs price checks end to end: it fetches comparables from
// a listing source, evaluates them, and falls back to a synthetic estimate
// when the source is unavailable or has nothing usable.
package checker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/car-price-checker/internal/listings"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/monitoring"
	"github.com/sells-group/car-price-checker/internal/pricing"
)

const defaultTimeout = 10 * time.Second

// Fallback reasons recorded on synthetic verdicts.
const (
	ReasonUnavailable = "listing source unavailable"
	ReasonNoData      = "no usable market listings"
)

// Service is safe for concurrent use.
type Service struct {
	source    listings.Source
	eval      *pricing.Evaluator
	timeout   time.Duration
	synthOn   bool
	alerter   *monitoring.Alerter
	collector *monitoring.Collector
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each listing source call. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSynthesizeOnEmpty controls whether a source that answered with no
// usable prices falls back to a synthetic estimate. Default: true.
func WithSynthesizeOnEmpty(on bool) Option {
	return func(s *Service) { s.synthOn = on }
}

// WithAlerter sends an alert when a synthetic verdict is served because
// the source had no usable listings.
func WithAlerter(a *monitoring.Alerter) Option {
	return func(s *Service) { s.alerter = a }
}

// WithCollector records the outcome of every check.
func WithCollector(c *monitoring.Collector) Option {
	return func(s *Service) { s.collector = c }
}

// WithIDFunc overrides check ID generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service.
func New(source listings.Source, eval *pricing.Evaluator, opts ...Option) *Service {
	s := &Service{
		source:  source,
		eval:    eval,
		timeout: defaultTimeout,
		synthOn: true,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check dispatches on the descriptor's shape.
func (s *Service) Check(ctx context.Context, desc model.Descriptor) (*model.PricingVerdict, error) {
	switch {
	case desc.VIN != nil:
		return s.CheckVIN(ctx, *desc.VIN)
	case desc.Quick != nil:
		return s.CheckQuick(ctx, *desc.Quick)
	default:
		return nil, eris.New("checker: empty descriptor")
	}
}

// CheckVIN prices a vehicle identified by VIN.
func (s *Service) CheckVIN(ctx context.Context, req model.VINRequest) (*model.PricingVerdict, error) {
	desc := model.Descriptor{VIN: &req}
	return s.run(ctx, desc, func(ctx context.Context) (*listings.Result, error) {
		return s.source.ForVIN(ctx, req.VIN)
	}, func(res *listings.Result) (*model.PricingVerdict, error) {
		return s.eval.EvaluateVIN(req, res.Details, res.Comparables)
	})
}

// CheckQuick prices a manually described vehicle.
func (s *Service) CheckQuick(ctx context.Context, req model.QuickRequest) (*model.PricingVerdict, error) {
	desc := model.Descriptor{Quick: &req}
	q := listings.Query{Year: req.Year, Make: req.Make, Model: req.Model, Zip: req.ZipCode}
	return s.run(ctx, desc, func(ctx context.Context) (*listings.Result, error) {
		return s.source.ForVehicle(ctx, q)
	}, func(res *listings.Result) (*model.PricingVerdict, error) {
		return s.eval.EvaluateQuick(req, res.Comparables)
	})
}

func (s *Service) run(
	ctx context.Context,
	desc model.Descriptor,
	fetch func(context.Context) (*listings.Result, error),
	evaluate func(*listings.Result) (*model.PricingVerdict, error),
) (*model.PricingVerdict, error) {
	id := s.newID()
	flow := desc.Type()
	log := zap.L().With(zap.String("check_id", id), zap.String("flow", string(flow)))

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	res, err := fetch(fctx)
	cancel()

	var v *model.PricingVerdict
	switch {
	case err != nil:
		if ctx.Err() != nil {
			s.record(flow, monitoring.OutcomeFailed)
			return nil, eris.Wrap(ctx.Err(), "checker: request cancelled")
		}
		if !errors.Is(err, listings.ErrUpstreamUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
			s.record(flow, monitoring.OutcomeFailed)
			return nil, eris.Wrap(err, "checker: fetch listings")
		}
		log.Warn("checker: listing source unavailable, serving synthetic estimate", zap.Error(err))
		var details model.CarDetails
		var ue *listings.UnavailableError
		if errors.As(err, &ue) {
			details = ue.Details
		}
		v, err = s.eval.Synthesize(desc, details, ReasonUnavailable)
	default:
		v, err = evaluate(res)
		if err == nil {
			v.Provenance = model.Provenance{Source: res.Source}
			break
		}
		if !pricing.IsNoData(err) || !s.synthOn {
			break
		}
		log.Warn("checker: no usable listings, serving synthetic estimate",
			zap.Int("listings", len(res.Comparables)),
			zap.String("source", string(res.Source)),
		)
		v, err = s.eval.Synthesize(desc, res.Details, ReasonNoData)
	}

	if err != nil {
		if pricing.IsNoData(err) {
			s.record(flow, monitoring.OutcomeNoData)
			log.Info("checker: no market data", zap.Error(err))
			return nil, err
		}
		s.record(flow, monitoring.OutcomeFailed)
		return nil, eris.Wrap(err, "checker: evaluate")
	}

	v.Provenance.CheckID = id
	if v.Provenance.Synthetic {
		s.record(flow, monitoring.OutcomeSynthetic)
		// Unavailability is reported by circuit_open and synthetic_rate.
		if s.alerter != nil && v.Provenance.Reason == ReasonNoData {
			s.alerter.SyntheticServed(v.Provenance, flow)
		}
	} else {
		s.record(flow, monitoring.OutcomeReal)
	}

	log.Info("checker: price check complete",
		zap.String("source", string(v.Provenance.Source)),
		zap.Bool("synthetic", v.Provenance.Synthetic),
		zap.Int("market_value", v.MarketValue),
		zap.Int("adjusted_market_value", v.AdjustedMarketValue),
		zap.Int("similar_listings", v.SimilarListings),
		zap.String("classification", v.Classification()),
	)
	return v, nil
}

func (s *Service) record(flow model.CheckType, o monitoring.Outcome) {
	if s.collector != nil {
		s.collector.Record(flow, o)
	}
}
