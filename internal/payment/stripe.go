// Package payment prices checks and authorizes card payments through
// Stripe PaymentIntents.
package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/model"
)

// ErrNotConfigured is returned when no Stripe secret key is set.
var ErrNotConfigured = errors.New("payment: stripe secret key not configured")

// IntentRequest describes the check being paid for. Amount is in cents;
// zero charges the fee for CheckType.
type IntentRequest struct {
	Amount      int64
	CheckType   model.CheckType
	VIN         string
	AskingPrice string
	Email       string
}

// Intent is a created PaymentIntent.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// Payments creates PaymentIntents.
type Payments struct {
	calc *Calculator
	api  *client.API
}

// Option configures the Stripe backend.
type Option func(*stripe.BackendConfig)

// WithAPIURL points the client at a different Stripe endpoint.
func WithAPIURL(u string) Option {
	return func(c *stripe.BackendConfig) { c.URL = stripe.String(u) }
}

// New creates Payments. With an empty secret key CreateIntent returns
// ErrNotConfigured.
func New(sc config.StripeConfig, calc *Calculator, opts ...Option) *Payments {
	p := &Payments{calc: calc}
	if sc.SecretKey == "" {
		return p
	}

	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: 30 * time.Second},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	for _, o := range opts {
		o(bc)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	p.api = client.New(sc.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return p
}

// Configured reports whether intents can be created.
func (p *Payments) Configured() bool { return p.api != nil }

// Calculator returns the fee calculator.
func (p *Payments) Calculator() *Calculator { return p.calc }

// CreateIntent authorizes a payment for one check. The VIN, asking price,
// and email are attached as metadata.
func (p *Payments) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	amount, err := p.calc.Amount(req.Amount, req.CheckType)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(p.calc.Currency()),
	}
	params.Context = ctx
	params.AddMetadata("vin", req.VIN)
	params.AddMetadata("askingPrice", req.AskingPrice)
	params.AddMetadata("email", req.Email)
	if req.CheckType != "" {
		params.AddMetadata("checkType", string(req.CheckType))
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, eris.Wrap(err, "payment: create intent")
	}

	zap.L().Info("payment: intent created",
		zap.String("intent_id", pi.ID),
		zap.String("amount", p.calc.Format(amount)),
	)
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Amount: pi.Amount, Currency: string(pi.Currency)}, nil
}

// UserMessage turns a payment error into text safe to show a customer.
func (p *Payments) UserMessage(err error) string {
	var se *stripe.Error
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "Payments are not configured"
	case errors.Is(err, ErrAmountTooLow):
		return "Invalid amount. Minimum is " + p.calc.Format(p.calc.rates.MinCents)
	case errors.As(err, &se) && se.HTTPStatusCode == http.StatusUnauthorized:
		return "Payment provider rejected the API key"
	case errors.As(err, &se):
		return "Stripe API error: " + se.Msg
	default:
		return "Failed to create payment intent"
	}
}
