// Package report turns a price check into the customer-facing report: a
// summary shared by the PDF and the email, and the PDF itself.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/car-price-checker/internal/model"
)

// Title heads every report.
const Title = "Car Price Checker Report"

var printer = message.NewPrinter(language.English)

// Report is a finished check ready to render.
type Report struct {
	Descriptor  model.Descriptor
	Verdict     model.PricingVerdict
	GeneratedAt time.Time
}

// Row is a labelled value.
type Row struct {
	Label string
	Value string
}

// Summary is the rendered text of a report.
type Summary struct {
	Headline       string
	Tone           string
	Vehicle        []Row
	Market         []Row
	Adjustments    []Row
	Recommendation string
	OpeningOffer   string
	Negotiation    string
	Footer         string
}

// Money formats whole dollars as "$21,750".
func Money(n int) string {
	if n < 0 {
		return "-$" + printer.Sprintf("%d", -n)
	}
	return "$" + printer.Sprintf("%d", n)
}

// MoneyFloat formats a dollar amount, keeping cents only when present.
func MoneyFloat(f float64) string {
	if f == math.Trunc(f) {
		return Money(int(f))
	}
	return "$" + printer.Sprintf("%.2f", f)
}

// Headline is the one-line verdict.
func Headline(v model.PricingVerdict) string {
	diff := Money(abs(v.Difference))
	switch v.Classification() {
	case "overpriced":
		return "OVERPRICED by " + diff
	case "fair":
		return "FAIR PRICE - Within market range"
	default:
		return "GOOD DEAL - " + diff + " below market"
	}
}

// Filename names the PDF attachment.
func Filename(r Report) string {
	if r.Descriptor.VIN != nil {
		return "car-price-report-" + r.Descriptor.VIN.VIN + ".pdf"
	}
	if q := r.Descriptor.Quick; q != nil {
		return fmt.Sprintf("car-price-report-%d-%s-%s.pdf", q.Year, slug(q.Make), slug(q.Model))
	}
	return "car-price-report.pdf"
}

// AskingPrice is the price the verdict was judged against. A VIN check
// without one was judged at market.
func (r Report) AskingPrice() float64 {
	if p, ok := r.Descriptor.AskingPrice(); ok {
		return p
	}
	return float64(r.Verdict.MarketValue)
}

// Summarize lays out the report text.
func (r Report) Summarize() Summary {
	v := r.Verdict
	s := Summary{
		Headline:       Headline(v),
		Tone:           v.Classification(),
		Recommendation: v.Recommendation,
		Footer:         "Generated by Car Price Checker - " + r.GeneratedAt.Format("January 2, 2006"),
	}

	if req := r.Descriptor.VIN; req != nil {
		s.Vehicle = append(s.Vehicle, Row{"VIN", req.VIN})
		if d := v.CarDetails; d.Make != "" || d.Model != "" || d.Year != 0 {
			s.Vehicle = append(s.Vehicle, Row{"Vehicle", detailsTitle(d)})
		}
	} else if req := r.Descriptor.Quick; req != nil {
		s.Vehicle = append(s.Vehicle,
			Row{"Vehicle", req.Title()},
			Row{"Mileage", printer.Sprintf("%d miles", req.Mileage)},
			Row{"Condition", string(req.Condition)},
			Row{"Accidents", yesNo(req.HasAccidents)},
		)
	}

	s.Market = append(s.Market,
		Row{"Asking Price", MoneyFloat(r.AskingPrice())},
		Row{"Market Average", Money(v.MarketValue)},
	)
	if v.AdjustedMarketValue != 0 && v.AdjustedMarketValue != v.MarketValue {
		s.Market = append(s.Market, Row{"Adjusted Market Value", Money(v.AdjustedMarketValue)})
	}
	s.Market = append(s.Market,
		Row{"Price Range", Money(v.PriceRange.Low) + " - " + Money(v.PriceRange.High)},
		Row{"Similar Listings", printer.Sprintf("%d vehicles", v.SimilarListings)},
	)

	if a := v.Adjustments; a != nil {
		for _, adj := range []struct {
			label string
			val   *int
		}{
			{"Accident History", a.Accident},
			{"Condition", a.Condition},
			{"Mileage", a.Mileage},
		} {
			if adj.val != nil && *adj.val != 0 {
				s.Adjustments = append(s.Adjustments, Row{adj.label, "-" + Money(abs(*adj.val))})
			}
		}
	}

	if n := v.NegotiationRange; n != nil {
		s.OpeningOffer = Money(n.Low)
		s.Negotiation = Money(n.Low) + " - " + Money(n.High)
	}
	return s
}

func detailsTitle(d model.CarDetails) string {
	parts := make([]string, 0, 3)
	if d.Year != 0 {
		parts = append(parts, fmt.Sprint(d.Year))
	}
	for _, p := range []string{d.Make, d.Model} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func slug(s string) string {
	return strings.Join(strings.Fields(s), "-")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
