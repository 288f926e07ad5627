// Package intake validates raw check requests and turns them into typed
// descriptors for the pricing flows.
package intake

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/car-price-checker/internal/catalog"
	"github.com/sells-group/car-price-checker/internal/model"
)

const (
	minModelYear = 1981 // first year of the 17-character VIN
	maxMileage   = 300000
)

var (
	vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
	zipPattern = regexp.MustCompile(`^\d{5}$`)
)

// messages maps validator tags to user-facing text.
var messages = map[string]string{
	"required":  "is required",
	"vin":       "must be 17 letters and digits (I, O, and Q are not used)",
	"price":     "must be a dollar amount greater than zero",
	"mileage":   fmt.Sprintf("must be a whole number between 0 and %d", maxMileage),
	"zip5":      "must be a 5-digit ZIP code",
	"modelyear": "must be a model year between 1981 and next year",
	"condition": "must be one of Excellent, Good, Fair, Poor",
	"flag":      "must be true or false",
	"email":     "must be a valid email address",
}

// FieldError is one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists every invalid field of a request.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + " " + fe.Message
	}
	return "intake: invalid request: " + strings.Join(parts, "; ")
}

// Fields returns the errors keyed by field name.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		out[fe.Field] = fe.Message
	}
	return out
}

// IsValidation reports whether err carries ValidationErrors.
func IsValidation(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}

type vinForm struct {
	VIN         string `json:"vin" validate:"required,vin"`
	AskingPrice string `json:"askingPrice" validate:"omitempty,price"`
}

type quickForm struct {
	Year         string `json:"year" validate:"required,modelyear"`
	Make         string `json:"make" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Mileage      string `json:"mileage" validate:"required,mileage"`
	Condition    string `json:"condition" validate:"required,condition"`
	HasAccidents string `json:"hasAccidents" validate:"omitempty,flag"`
	ZipCode      string `json:"zipCode" validate:"required,zip5"`
	AskingPrice  string `json:"askingPrice" validate:"required,price"`
}

// Parser validates raw checks. It is safe for concurrent use.
type Parser struct {
	validate *validator.Validate
	catalog  *catalog.Catalog
	now      func() time.Time
}

// NewParser creates a Parser. A nil catalog uses the embedded one; a nil
// clock uses time.Now.
func NewParser(cat *catalog.Catalog, now func() time.Time) *Parser {
	if cat == nil {
		cat = catalog.Default()
	}
	if now == nil {
		now = time.Now
	}
	p := &Parser{validate: validator.New(validator.WithRequiredStructEnabled()), catalog: cat, now: now}

	p.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	p.register("vin", func(s string) bool { return vinPattern.MatchString(strings.ToUpper(s)) })
	p.register("price", func(s string) bool { _, err := ParsePrice(s); return err == nil })
	p.register("mileage", func(s string) bool { _, err := ParseMileage(s); return err == nil })
	p.register("zip5", zipPattern.MatchString)
	p.register("condition", func(s string) bool { _, ok := model.ParseCondition(s); return ok })
	p.register("flag", func(s string) bool { _, err := ParseFlag(s); return err == nil })
	p.register("modelyear", func(s string) bool {
		y, err := strconv.Atoi(s)
		return err == nil && y >= minModelYear && y <= p.now().Year()+1
	})
	return p
}

func (p *Parser) register(tag string, ok func(string) bool) {
	// Registration only fails on an empty tag or nil func.
	_ = p.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return ok(strings.TrimSpace(fl.Field().String()))
	})
}

// ParseCheck resolves the request shape and validates it. A non-empty VIN
// selects the VIN flow; anything else is a quick check.
func (p *Parser) ParseCheck(raw RawCheck) (model.Descriptor, error) {
	if raw.VIN.String() != "" {
		req, err := p.ParseVIN(raw)
		if err != nil {
			return model.Descriptor{}, err
		}
		return model.Descriptor{VIN: req}, nil
	}
	req, err := p.ParseQuick(raw)
	if err != nil {
		return model.Descriptor{}, err
	}
	return model.Descriptor{Quick: req}, nil
}

// ParseVIN validates the VIN flow fields.
func (p *Parser) ParseVIN(raw RawCheck) (*model.VINRequest, error) {
	form := vinForm{VIN: raw.VIN.String(), AskingPrice: raw.AskingPrice.String()}
	if err := p.check(form); err != nil {
		return nil, err
	}

	req := &model.VINRequest{VIN: strings.ToUpper(form.VIN)}
	if form.AskingPrice != "" {
		price, _ := ParsePrice(form.AskingPrice)
		req.AskingPrice = &price
	}
	return req, nil
}

// ParseQuick validates the quick flow fields and canonicalizes make and
// model against the catalog.
func (p *Parser) ParseQuick(raw RawCheck) (*model.QuickRequest, error) {
	form := quickForm{
		Year:         raw.Year.String(),
		Make:         raw.Make.String(),
		Model:        raw.Model.String(),
		Mileage:      raw.Mileage.String(),
		Condition:    raw.Condition.String(),
		HasAccidents: raw.HasAccidents.String(),
		ZipCode:      raw.ZipCode.String(),
		AskingPrice:  raw.AskingPrice.String(),
	}
	if err := p.check(form); err != nil {
		return nil, err
	}

	year, _ := strconv.Atoi(form.Year)
	mileage, _ := ParseMileage(form.Mileage)
	cond, _ := model.ParseCondition(form.Condition)
	accidents, _ := ParseFlag(form.HasAccidents)
	price, _ := ParsePrice(form.AskingPrice)
	mk, md, _ := p.catalog.Canonical(form.Make, form.Model)

	return &model.QuickRequest{
		Year:         year,
		Make:         mk,
		Model:        md,
		Trim:         raw.Trim.String(),
		Mileage:      mileage,
		Condition:    cond,
		HasAccidents: accidents,
		ZipCode:      form.ZipCode,
		AskingPrice:  price,
	}, nil
}

// ParseEmail validates a report recipient address.
func (p *Parser) ParseEmail(raw Value) (string, error) {
	addr := raw.String()
	if err := p.validate.Var(addr, "required,email"); err != nil {
		tag := "email"
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			tag = verrs[0].Tag()
		}
		return "", ValidationErrors{{Field: "email", Message: messages[tag]}}
	}
	return addr, nil
}

func (p *Parser) check(form any) error {
	err := p.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "intake: validate")
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// ParsePrice parses a dollar amount such as "$21,500.00". The amount must
// be greater than zero.
func ParsePrice(s string) (float64, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, eris.Wrapf(err, "intake: parse price %q", s)
	}
	if !d.IsPositive() {
		return 0, eris.Errorf("intake: price %q must be greater than zero", s)
	}
	return d.Round(2).InexactFloat64(), nil
}

// ParseMileage parses an odometer reading such as "45,000".
func ParseMileage(s string) (int, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	n, err := strconv.Atoi(clean)
	if err != nil {
		return 0, eris.Wrapf(err, "intake: parse mileage %q", s)
	}
	if n < 0 || n > maxMileage {
		return 0, eris.Errorf("intake: mileage %d out of range", n)
	}
	return n, nil
}

// ParseFlag parses a yes/no field. Empty means false.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "no", "n", "0":
		return false, nil
	case "true", "yes", "y", "1":
		return true, nil
	default:
		return false, eris.Errorf("intake: invalid flag %q", s)
	}
}
