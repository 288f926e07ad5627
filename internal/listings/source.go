// Package listings supplies comparable market listings for a vehicle, either
// from the MarketCheck API or from an offline file.
package listings

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/pkg/marketcheck"
)

// ErrUpstreamUnavailable matches every failure to obtain listings: network
// errors, timeouts, non-2xx responses, and an open circuit. A source that
// answered with zero listings is not unavailable.
var ErrUpstreamUnavailable = errors.New("listings: upstream unavailable")

// UnavailableError carries the cause behind ErrUpstreamUnavailable.
// Details holds whatever was learned about the vehicle before the failure,
// such as a VIN decode that succeeded while the search did not.
type UnavailableError struct {
	Op      string
	Err     error
	Details model.CarDetails
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("listings: %s: upstream unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrUpstreamUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrUpstreamUnavailable }

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}

// ErrNotConfigured is the cause reported by Unconfigured.
var ErrNotConfigured = errors.New("listings: no listing source configured")

// Unconfigured stands in when there is neither an API key nor an offline
// file. Every lookup is unavailable, so checks get synthetic estimates.
type Unconfigured struct{}

// ForVIN implements Source.
func (Unconfigured) ForVIN(context.Context, string) (*Result, error) {
	return nil, unavailable("vin lookup", ErrNotConfigured)
}

// ForVehicle implements Source.
func (Unconfigured) ForVehicle(context.Context, Query) (*Result, error) {
	return nil, unavailable("vehicle search", ErrNotConfigured)
}

// Query describes a vehicle for a quick check search.
type Query struct {
	Year  int
	Make  string
	Model string
	Zip   string
}

// Result is what a source found. Comparables may be empty when the source
// answered but had nothing for the vehicle.
type Result struct {
	Comparables []model.Comparable
	Details     model.CarDetails
	Source      model.PriceSource
}

// Source looks up comparable listings.
type Source interface {
	ForVIN(ctx context.Context, vin string) (*Result, error)
	ForVehicle(ctx context.Context, q Query) (*Result, error)
}

func toComparables(ls []marketcheck.Listing) []model.Comparable {
	out := make([]model.Comparable, len(ls))
	for i, l := range ls {
		out[i] = model.Comparable{Price: l.ListPrice(), Miles: l.Mileage()}
	}
	return out
}

// detailsFromListings fills blank fields of d from the first listing.
func detailsFromListings(d model.CarDetails, ls []marketcheck.Listing) model.CarDetails {
	if len(ls) == 0 {
		return d
	}
	mk, md, yr := ls[0].Vehicle()
	if d.Make == "" {
		d.Make = mk
	}
	if d.Model == "" {
		d.Model = md
	}
	if d.Year == 0 {
		d.Year = yr
	}
	return d
}
