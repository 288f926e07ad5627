package pricing

import "fmt"

// BaseLabel names the value a verdict is compared against in recommendation
// text.
type BaseLabel string

const (
	BaseMarketAverage BaseLabel = "market average"
	BaseAdjustedValue BaseLabel = "adjusted market value"
)

const (
	significantThreshold = 15.0
	moderateThreshold    = 5.0
)

// Recommend picks the recommendation text for a classified price. Inside the
// fair band the fixed fair-price message wins regardless of sign; outside it
// the sign picks the overpriced or deal wording and percentDiff the strength.
func Recommend(isOverpriced, isFairPrice bool, percentDiff float64, base BaseLabel) string {
	if isFairPrice {
		return fairMessage(base)
	}

	if isOverpriced {
		switch {
		case percentDiff > significantThreshold:
			return fmt.Sprintf("This vehicle is significantly overpriced. The asking price is %.1f%% above %s. "+
				"Consider negotiating or looking for similar vehicles at better prices.", percentDiff, base)
		case percentDiff > moderateThreshold:
			return fmt.Sprintf("This vehicle is moderately overpriced. You may be able to negotiate the price down to %s.",
				negotiateTarget(base))
		default:
			return fmt.Sprintf("The asking price is slightly above %s. "+
				"A small negotiation could bring it to fair market value.", base)
		}
	}

	switch {
	case percentDiff > significantThreshold:
		return fmt.Sprintf("Excellent deal! This vehicle is priced well below %s. "+
			"Verify the vehicle condition and history before purchasing.", base)
	case percentDiff > moderateThreshold:
		return fmt.Sprintf("Good deal! This vehicle is priced below %s. This is a fair price for this vehicle.", base)
	default:
		return fairMessage(base)
	}
}

func fairMessage(base BaseLabel) string {
	return fmt.Sprintf("Fair price. The asking price is close to %s. This is a reasonable deal.", base)
}

func negotiateTarget(base BaseLabel) string {
	if base == BaseAdjustedValue {
		return "fair market value"
	}
	return "market value"
}
