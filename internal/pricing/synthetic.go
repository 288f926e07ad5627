package pricing

import (
	"math/rand/v2"
	"sync"

	"github.com/sells-group/car-price-checker/internal/model"
)

const (
	jitterMin   = 0.8
	jitterSpan  = 0.4
	synthLowPct = 0.85
	synthHiPct  = 1.15

	synthListingsMin  = 20
	synthListingsSpan = 50
)

// Synthesize produces a verdict without market data by jittering the asking
// price into a stand-in market value, then running the same adjustment and
// classification rules as the real-data path. The verdict is marked
// synthetic. Without an asking price there is nothing to estimate from and a
// *NoDataError is returned.
func (e *Evaluator) Synthesize(desc model.Descriptor, details model.CarDetails, reason string) (*model.PricingVerdict, error) {
	if e.rng == nil {
		return nil, &NoDataError{Reason: "no market data available"}
	}
	asking, ok := desc.AskingPrice()
	if !ok || asking <= 0 {
		return nil, &NoDataError{Reason: "no market data available and no asking price to estimate from"}
	}

	marketValue := float64(roundHalfUp(asking * (jitterMin + e.rng.Float64()*jitterSpan)))

	var v *model.PricingVerdict
	if desc.Quick != nil {
		v = e.quickVerdict(*desc.Quick, marketValue)
	} else {
		c := e.classify(asking, marketValue)
		v = &model.PricingVerdict{
			MarketValue:         int(marketValue),
			AdjustedMarketValue: int(marketValue),
			Recommendation:      Recommend(c.overpriced, c.fair, c.percentDiff, BaseMarketAverage),
			Difference:          roundHalfUp(c.difference),
			IsOverpriced:        c.overpriced,
			IsFairPrice:         c.fair,
			CarDetails:          details,
			CheckType:           model.CheckTypeVIN,
		}
	}

	v.PriceRange = model.Range{
		Low:  roundHalfUp(marketValue * synthLowPct),
		High: roundHalfUp(marketValue * synthHiPct),
	}
	v.SimilarListings = synthListingsMin + e.rng.IntN(synthListingsSpan)
	v.Provenance = model.Provenance{
		Source:    model.PriceSourceSynthetic,
		Synthetic: true,
		Reason:    reason,
	}
	return v, nil
}

// LockedSource is a RandomSource safe for concurrent use.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedSource seeds a PCG generator. A zero seed draws one at random.
func NewLockedSource(seed uint64) *LockedSource {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &LockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a value in [0.0, 1.0).
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// IntN returns a value in [0, n).
func (s *LockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
