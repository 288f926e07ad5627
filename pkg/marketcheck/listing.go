package marketcheck

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// VINSpec is the decoded vehicle returned by the VIN endpoint.
type VINSpec struct {
	VIN   string     `json:"vin"`
	Year  FlexNumber `json:"year"`
	Make  string     `json:"make"`
	Model string     `json:"model"`
	Trim  string     `json:"trim"`
}

// SearchResponse is the body of an active-listing search.
type SearchResponse struct {
	NumFound int       `json:"num_found"`
	Listings []Listing `json:"listings"`
}

// Build holds the decoded vehicle attributes nested in a listing.
type Build struct {
	Year  FlexNumber `json:"year"`
	Make  string     `json:"make"`
	Model string     `json:"model"`
	Trim  string     `json:"trim"`
}

// Listing is a single active listing. The API is inconsistent about where
// price and mileage live, so every known field is captured.
type Listing struct {
	ID           string     `json:"id"`
	VIN          string     `json:"vin"`
	Price        FlexNumber `json:"price"`
	PriceDisplay FlexNumber `json:"price_display"`
	AskingPrice  FlexNumber `json:"asking_price"`
	Miles        FlexNumber `json:"miles"`
	Odometer     FlexNumber `json:"odometer"`
	Year         FlexNumber `json:"year"`
	Make         string     `json:"make"`
	Model        string     `json:"model"`
	Build        *Build     `json:"build,omitempty"`
}

// ListPrice returns the first positive of price, price_display, and
// asking_price, or 0 when none is usable.
func (l Listing) ListPrice() float64 {
	for _, v := range []FlexNumber{l.Price, l.PriceDisplay, l.AskingPrice} {
		if v > 0 {
			return float64(v)
		}
	}
	return 0
}

// Mileage returns miles, falling back to odometer.
func (l Listing) Mileage() int {
	if l.Miles > 0 {
		return int(l.Miles)
	}
	if l.Odometer > 0 {
		return int(l.Odometer)
	}
	return 0
}

// Vehicle returns the listing's make, model, and year, preferring top-level
// fields over the nested build.
func (l Listing) Vehicle() (makeName, modelName string, year int) {
	makeName, modelName, year = l.Make, l.Model, int(l.Year)
	if l.Build != nil {
		if makeName == "" {
			makeName = l.Build.Make
		}
		if modelName == "" {
			modelName = l.Build.Model
		}
		if year == 0 {
			year = int(l.Build.Year)
		}
	}
	return makeName, modelName, year
}

// FlexNumber decodes a JSON number or a formatted string such as
// "$21,500" or "45,000 mi". Anything unparseable decodes to 0.
type FlexNumber float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = FlexNumber(ParseNumber(s))
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = FlexNumber(f)
	return nil
}

// ParseNumber keeps only digits and dots, then parses. Unparseable input
// yields 0.
func ParseNumber(s string) float64 {
	var sb strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
