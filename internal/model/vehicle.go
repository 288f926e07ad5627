package model

import (
	"fmt"
	"strings"
)

// CheckType identifies which pricing flow produced a verdict.
type CheckType string

const (
	CheckTypeVIN   CheckType = "vin"
	CheckTypeQuick CheckType = "quick"
)

// Condition is the seller-reported condition of a vehicle.
type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

// Conditions lists every valid condition in display order.
var Conditions = []Condition{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor}

// ParseCondition maps a case-insensitive condition name to a Condition.
func ParseCondition(raw string) (Condition, bool) {
	for _, c := range Conditions {
		if strings.EqualFold(strings.TrimSpace(raw), string(c)) {
			return c, true
		}
	}
	return "", false
}

// VINRequest asks for a price check keyed by vehicle identification number.
// AskingPrice is optional; nil means the buyer did not supply one.
type VINRequest struct {
	VIN         string   `json:"vin"`
	AskingPrice *float64 `json:"askingPrice,omitempty"`
}

// QuickRequest asks for a price check from manually entered vehicle details.
type QuickRequest struct {
	Year         int       `json:"year"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Trim         string    `json:"trim,omitempty"`
	Mileage      int       `json:"mileage"`
	Condition    Condition `json:"condition"`
	HasAccidents bool      `json:"hasAccidents"`
	ZipCode      string    `json:"zipCode"`
	AskingPrice  float64   `json:"askingPrice"`
}

// Title renders "2020 Toyota Camry SE".
func (q QuickRequest) Title() string {
	s := fmt.Sprintf("%d %s %s", q.Year, q.Make, q.Model)
	if q.Trim != "" {
		s += " " + q.Trim
	}
	return s
}

// Descriptor is the tagged union of the two request shapes. Exactly one of
// VIN and Quick is set.
type Descriptor struct {
	VIN   *VINRequest
	Quick *QuickRequest
}

// Type reports which flow the descriptor selects.
func (d Descriptor) Type() CheckType {
	if d.VIN != nil {
		return CheckTypeVIN
	}
	return CheckTypeQuick
}

// AskingPrice returns the buyer's asking price, if any.
func (d Descriptor) AskingPrice() (float64, bool) {
	switch {
	case d.VIN != nil:
		if d.VIN.AskingPrice == nil {
			return 0, false
		}
		return *d.VIN.AskingPrice, true
	case d.Quick != nil:
		return d.Quick.AskingPrice, true
	default:
		return 0, false
	}
}

// CarDetails is the make/model/year shown alongside a verdict.
type CarDetails struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// Comparable is one market listing contributing a price sample. A Price of
// zero or less marks a listing whose price could not be read.
type Comparable struct {
	Price float64 `json:"price"`
	Miles int     `json:"miles,omitempty"`
}

// Usable reports whether the listing carries a valid price.
func (c Comparable) Usable() bool {
	return c.Price > 0
}
