package payment

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/model"
)

const (
	defaultFeeCents = 499
	defaultMinCents = 50
	defaultCurrency = "usd"
)

// ErrAmountTooLow is returned for charges under the configured minimum.
var ErrAmountTooLow = eris.New("payment: amount below minimum")

// Rates holds per-check pricing in the smallest currency unit.
type Rates struct {
	VINFeeCents   int64
	QuickFeeCents int64
	MinCents      int64
	Currency      string
}

// RatesFromConfig copies checkout settings, filling non-positive values
// with the defaults.
func RatesFromConfig(cfg config.CheckoutConfig) Rates {
	r := Rates{
		VINFeeCents:   cfg.VINFeeCents,
		QuickFeeCents: cfg.QuickFeeCents,
		MinCents:      cfg.MinCents,
		Currency:      strings.ToLower(cfg.Currency),
	}
	def := DefaultRates()
	if r.VINFeeCents <= 0 {
		r.VINFeeCents = def.VINFeeCents
	}
	if r.QuickFeeCents <= 0 {
		r.QuickFeeCents = def.QuickFeeCents
	}
	if r.MinCents <= 0 {
		r.MinCents = def.MinCents
	}
	if r.Currency == "" {
		r.Currency = def.Currency
	}
	return r
}

// DefaultRates returns the default pricing: $4.99 per check, $0.50 minimum.
func DefaultRates() Rates {
	return Rates{
		VINFeeCents:   defaultFeeCents,
		QuickFeeCents: defaultFeeCents,
		MinCents:      defaultMinCents,
		Currency:      defaultCurrency,
	}
}

// Calculator computes check fees.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Fee returns the charge for a check of the given type.
func (c *Calculator) Fee(t model.CheckType) int64 {
	if t == model.CheckTypeVIN {
		return c.rates.VINFeeCents
	}
	return c.rates.QuickFeeCents
}

// Amount resolves the charge for a request: an explicit amount wins,
// otherwise the fee for the check type. The result must meet the minimum.
func (c *Calculator) Amount(requested int64, t model.CheckType) (int64, error) {
	amount := requested
	if amount == 0 {
		amount = c.Fee(t)
	}
	if amount < c.rates.MinCents {
		return 0, eris.Wrapf(ErrAmountTooLow, "payment: %s is under the %s minimum",
			c.Format(amount), c.Format(c.rates.MinCents))
	}
	return amount, nil
}

// Format renders cents as dollars, e.g. "$4.99".
func (c *Calculator) Format(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}

// Currency is the ISO currency code charged.
func (c *Calculator) Currency() string { return c.rates.Currency }
