package pricing

import "errors"

// NoDataError reports that a price check had no usable comparable prices
// and nothing to estimate from.
type NoDataError struct {
	Reason string
}

func (e *NoDataError) Error() string {
	return "pricing: " + e.Reason
}

// IsNoData reports whether err (or any error it wraps) is a *NoDataError.
func IsNoData(err error) bool {
	var nd *NoDataError
	return errors.As(err, &nd)
}
