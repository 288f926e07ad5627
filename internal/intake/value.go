package intake

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Value is a raw form field. Clients send numbers, booleans, and strings
// interchangeably, so every JSON scalar decodes to its text.
type Value string

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*v = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
	default:
		*v = Value(b)
	}
	return nil
}

// String returns the trimmed text.
func (v Value) String() string { return strings.TrimSpace(string(v)) }

// RawCheck is an unvalidated check request as received from a form, the
// HTTP API, a CLI, or a batch row. A non-empty VIN selects the VIN flow.
type RawCheck struct {
	VIN          Value `json:"vin"`
	Year         Value `json:"year"`
	Make         Value `json:"make"`
	Model        Value `json:"model"`
	Trim         Value `json:"trim"`
	Mileage      Value `json:"mileage"`
	Condition    Value `json:"condition"`
	HasAccidents Value `json:"hasAccidents"`
	ZipCode      Value `json:"zipCode"`
	AskingPrice  Value `json:"askingPrice"`
	Email        Value `json:"email"`
}
