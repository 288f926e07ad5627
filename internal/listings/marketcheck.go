package listings

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/resilience"
	"github.com/sells-group/car-price-checker/pkg/marketcheck"
)

// MarketCheckSource reads live listings through the MarketCheck API behind a
// circuit breaker.
type MarketCheckSource struct {
	client  marketcheck.Client
	breaker *resilience.CircuitBreaker
	radius  int
}

// NewMarketCheckSource wraps client. A nil breaker disables circuit
// breaking.
func NewMarketCheckSource(client marketcheck.Client, breaker *resilience.CircuitBreaker, radius int) *MarketCheckSource {
	return &MarketCheckSource{client: client, breaker: breaker, radius: radius}
}

// ForVIN decodes the VIN and searches listings for it concurrently. A
// failed decode is tolerated when the search succeeds; the details then
// come from the first listing. A failed search does not cancel the decode,
// and the decoded details ride along on the UnavailableError.
func (s *MarketCheckSource) ForVIN(ctx context.Context, vin string) (*Result, error) {
	var decoded model.CarDetails

	res, err := s.guard(ctx, func(ctx context.Context) (*Result, error) {
		var (
			spec      *marketcheck.VINSpec
			decodeErr error
			search    *marketcheck.SearchResponse
			searchErr error
		)

		var g errgroup.Group
		g.Go(func() error {
			spec, decodeErr = s.client.DecodeVIN(ctx, vin)
			return nil
		})
		g.Go(func() error {
			search, searchErr = s.client.SearchActive(ctx, marketcheck.SearchParams{VIN: vin})
			return nil
		})
		_ = g.Wait()

		if decodeErr != nil {
			zap.L().Warn("listings: vin decode failed",
				zap.String("vin", vin),
				zap.Error(decodeErr),
			)
		} else if spec != nil {
			decoded = model.CarDetails{Make: spec.Make, Model: spec.Model, Year: int(spec.Year)}
		}
		if searchErr != nil {
			return nil, searchErr
		}

		return &Result{
			Comparables: toComparables(search.Listings),
			Details:     detailsFromListings(decoded, search.Listings),
			Source:      model.PriceSourceMarketCheck,
		}, nil
	})
	if err != nil {
		return nil, &UnavailableError{Op: "vin search", Err: err, Details: decoded}
	}
	return res, nil
}

// ForVehicle searches listings by year, make, model, and location.
func (s *MarketCheckSource) ForVehicle(ctx context.Context, q Query) (*Result, error) {
	res, err := s.guard(ctx, func(ctx context.Context) (*Result, error) {
		search, err := s.client.SearchActive(ctx, marketcheck.SearchParams{
			Year:   q.Year,
			Make:   q.Make,
			Model:  q.Model,
			Zip:    q.Zip,
			Radius: s.radius,
		})
		if err != nil {
			return nil, err
		}
		return &Result{
			Comparables: toComparables(search.Listings),
			Details:     model.CarDetails{Make: q.Make, Model: q.Model, Year: q.Year},
			Source:      model.PriceSourceMarketCheck,
		}, nil
	})
	if err != nil {
		return nil, unavailable("vehicle search", err)
	}
	return res, nil
}

// Breaker returns the circuit breaker guarding the upstream, or nil.
func (s *MarketCheckSource) Breaker() *resilience.CircuitBreaker { return s.breaker }

func (s *MarketCheckSource) guard(ctx context.Context, fn func(context.Context) (*Result, error)) (*Result, error) {
	if s.breaker == nil {
		return fn(ctx)
	}
	return resilience.ExecuteVal(ctx, s.breaker, fn)
}
