package model

// Range is an inclusive dollar range.
type Range struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// AdjustmentSet holds the signed value reductions applied to a market value.
// A key is present only when its rule triggered; absent keys are nil.
type AdjustmentSet struct {
	Accident  *int `json:"accident,omitempty"`
	Condition *int `json:"condition,omitempty"`
	Mileage   *int `json:"mileage,omitempty"`
}

// Total sums the adjustments that are present.
func (a AdjustmentSet) Total() int {
	total := 0
	for _, v := range []*int{a.Accident, a.Condition, a.Mileage} {
		if v != nil {
			total += *v
		}
	}
	return total
}

// Empty reports whether no adjustment triggered.
func (a AdjustmentSet) Empty() bool {
	return a.Accident == nil && a.Condition == nil && a.Mileage == nil
}

// PricingVerdict is the result of a price check.
type PricingVerdict struct {
	MarketValue         int            `json:"marketValue"`
	AdjustedMarketValue int            `json:"adjustedMarketValue"`
	PriceRange          Range          `json:"priceRange"`
	SimilarListings     int            `json:"similarListings"`
	Recommendation      string         `json:"recommendation"`
	Difference          int            `json:"difference"`
	IsOverpriced        bool           `json:"isOverpriced"`
	IsFairPrice         bool           `json:"isFairPrice"`
	Adjustments         *AdjustmentSet `json:"adjustments,omitempty"`
	NegotiationRange    *Range         `json:"negotiationRange,omitempty"`
	CarDetails          CarDetails     `json:"carDetails"`
	CheckType           CheckType      `json:"checkType"`

	// Provenance is kept off the public payload.
	Provenance Provenance `json:"-"`
}

// Classification returns a short label for the verdict.
func (v PricingVerdict) Classification() string {
	switch {
	case v.IsOverpriced && !v.IsFairPrice:
		return "overpriced"
	case v.IsFairPrice:
		return "fair"
	default:
		return "good_deal"
	}
}
