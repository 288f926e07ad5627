// Package pricing turns comparable listing prices into a pricing verdict:
// market value, range, condition/accident/mileage adjustments, the
// asking-price classification, and a negotiation range.
package pricing

import (
	"math"
	"time"

	"github.com/sells-group/car-price-checker/internal/model"
)

const (
	defaultMileageBand = 20000
	defaultFairBand    = 0.02

	negotiationLowRate  = 0.90
	negotiationHighRate = 0.95
)

// Options tunes the evaluator. Zero values take the defaults.
type Options struct {
	// MileageBand is the ± mileage window used to pick comparables in the
	// quick flow. Default: 20000.
	MileageBand int

	// FairBand is the fraction of the base value within which a price is
	// classified fair. Default: 0.02.
	FairBand float64
}

// RandomSource supplies the jitter for synthetic estimates. *rand.Rand from
// math/rand/v2 satisfies it.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

// Evaluator computes pricing verdicts. It holds no mutable state of its own;
// the clock and random source are injected so results are reproducible.
type Evaluator struct {
	opts Options
	now  func() time.Time
	rng  RandomSource
}

// NewEvaluator creates an Evaluator. A nil now uses time.Now; a nil rng
// disables the synthetic path.
func NewEvaluator(opts Options, now func() time.Time, rng RandomSource) *Evaluator {
	if opts.MileageBand <= 0 {
		opts.MileageBand = defaultMileageBand
	}
	if opts.FairBand <= 0 {
		opts.FairBand = defaultFairBand
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{opts: opts, now: now, rng: rng}
}

// EvaluateVIN prices a VIN check against the raw market average. Without an
// asking price the vehicle is taken to be exactly at market.
func (e *Evaluator) EvaluateVIN(req model.VINRequest, details model.CarDetails, comps []model.Comparable) (*model.PricingVerdict, error) {
	if len(comps) == 0 {
		return nil, &NoDataError{Reason: "no market data found"}
	}
	st, ok := summarize(comps)
	if !ok {
		return nil, &NoDataError{Reason: "no valid pricing data found for this vehicle"}
	}

	asking := st.mean
	if req.AskingPrice != nil && *req.AskingPrice > 0 {
		asking = *req.AskingPrice
	}
	c := e.classify(asking, st.mean)

	return &model.PricingVerdict{
		MarketValue:         roundHalfUp(st.mean),
		AdjustedMarketValue: roundHalfUp(st.mean),
		PriceRange:          model.Range{Low: roundHalfUp(st.low), High: roundHalfUp(st.high)},
		SimilarListings:     len(comps),
		Recommendation:      Recommend(c.overpriced, c.fair, c.percentDiff, BaseMarketAverage),
		Difference:          roundHalfUp(c.difference),
		IsOverpriced:        c.overpriced,
		IsFairPrice:         c.fair,
		CarDetails:          details,
		CheckType:           model.CheckTypeVIN,
	}, nil
}

// EvaluateQuick prices a manually described vehicle. Comparables are
// narrowed to the mileage band when that leaves any, the market average is
// adjusted for accidents, condition, and mileage, and the asking price is
// compared against the adjusted value.
func (e *Evaluator) EvaluateQuick(req model.QuickRequest, comps []model.Comparable) (*model.PricingVerdict, error) {
	if len(comps) == 0 {
		return nil, &NoDataError{Reason: "not enough market data for accurate pricing"}
	}
	working := FilterByMileage(comps, req.Mileage, e.opts.MileageBand)
	st, ok := summarize(working)
	if !ok {
		return nil, &NoDataError{Reason: "no valid pricing data found for similar vehicles"}
	}

	v := e.quickVerdict(req, st.mean)
	v.PriceRange = model.Range{Low: roundHalfUp(st.low), High: roundHalfUp(st.high)}
	v.SimilarListings = len(working)
	return v, nil
}

// quickVerdict applies adjustments, classification, and the negotiation
// range on top of marketValue. Range and listing count are left to the
// caller.
func (e *Evaluator) quickVerdict(req model.QuickRequest, marketValue float64) *model.PricingVerdict {
	adj := ComputeAdjustments(marketValue, req.Condition, req.HasAccidents, req.Mileage, req.Year, e.now().Year())
	adjusted := marketValue + float64(adj.Total())
	c := e.classify(req.AskingPrice, adjusted)
	neg := NegotiationRange(adjusted)

	return &model.PricingVerdict{
		MarketValue:         roundHalfUp(marketValue),
		AdjustedMarketValue: roundHalfUp(adjusted),
		Recommendation:      Recommend(c.overpriced, c.fair, c.percentDiff, BaseAdjustedValue),
		Difference:          roundHalfUp(c.difference),
		IsOverpriced:        c.overpriced,
		IsFairPrice:         c.fair,
		Adjustments:         &adj,
		NegotiationRange:    &neg,
		CarDetails:          model.CarDetails{Make: req.Make, Model: req.Model, Year: req.Year},
		CheckType:           model.CheckTypeQuick,
	}
}

// NegotiationRange suggests an opening offer at 90% and a ceiling at 95% of
// the adjusted market value.
func NegotiationRange(adjusted float64) model.Range {
	return model.Range{
		Low:  roundHalfUp(adjusted * negotiationLowRate),
		High: roundHalfUp(adjusted * negotiationHighRate),
	}
}

// FilterByMileage keeps listings within ±band miles of mileage. When none
// qualify the full set is returned.
func FilterByMileage(comps []model.Comparable, mileage, band int) []model.Comparable {
	var kept []model.Comparable
	for _, c := range comps {
		if abs(c.Miles-mileage) <= band {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return comps
	}
	return kept
}

type classification struct {
	difference  float64
	overpriced  bool
	fair        bool
	percentDiff float64
}

func (e *Evaluator) classify(asking, base float64) classification {
	diff := asking - base
	return classification{
		difference:  diff,
		overpriced:  diff > 0,
		fair:        math.Abs(diff) < base*e.opts.FairBand,
		percentDiff: math.Abs(diff/base) * 100,
	}
}

type priceStats struct {
	mean, low, high float64
}

// summarize computes mean and extremes over usable prices. ok is false when
// no listing has a usable price.
func summarize(comps []model.Comparable) (priceStats, bool) {
	var st priceStats
	n := 0
	sum := 0.0
	for _, c := range comps {
		if !c.Usable() {
			continue
		}
		if n == 0 || c.Price < st.low {
			st.low = c.Price
		}
		if n == 0 || c.Price > st.high {
			st.high = c.Price
		}
		sum += c.Price
		n++
	}
	if n == 0 {
		return st, false
	}
	st.mean = sum / float64(n)
	return st, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
