package pricing

import (
	"math"

	"github.com/sells-group/car-price-checker/internal/model"
)

const (
	accidentRate      = 0.125
	fairConditionRate = 0.075
	poorConditionRate = 0.15

	milesPerYear        = 12000
	mileageRatePerYear  = 0.05
	mileageReductionCap = 0.20
)

// ComputeAdjustments applies the accident, condition, and mileage rules to
// marketValue. Each rule is independent and only reduces value; rules that
// do not trigger leave their key absent.
func ComputeAdjustments(marketValue float64, condition model.Condition, hasAccidents bool, mileage, modelYear, currentYear int) model.AdjustmentSet {
	var set model.AdjustmentSet

	if hasAccidents {
		set.Accident = reduction(marketValue * accidentRate)
	}

	switch condition {
	case model.ConditionFair:
		set.Condition = reduction(marketValue * fairConditionRate)
	case model.ConditionPoor:
		set.Condition = reduction(marketValue * poorConditionRate)
	}

	if fraction := MileageFraction(mileage, modelYear, currentYear); fraction > 0 {
		set.Mileage = reduction(marketValue * fraction)
	}

	return set
}

// MileageFraction returns the share of value lost to mileage above the
// 12,000 miles/year expectation: 5% per excess year, capped at 20%.
func MileageFraction(mileage, modelYear, currentYear int) float64 {
	age := currentYear - modelYear
	expected := age * milesPerYear
	if mileage <= expected {
		return 0
	}
	excessYears := float64(mileage-expected) / milesPerYear
	return math.Min(excessYears*mileageRatePerYear, mileageReductionCap)
}

func reduction(amount float64) *int {
	v := -roundHalfUp(amount)
	return &v
}

// roundHalfUp rounds to the nearest integer with halves going toward
// positive infinity, so -2.5 becomes -2.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
