package intake

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/car-price-checker/internal/model"
)

func newTestParser() *Parser {
	return NewParser(nil, func() time.Time { return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC) })
}

func validQuick() RawCheck {
	return RawCheck{
		Year:         "2020",
		Make:         "toyota",
		Model:        "camry",
		Trim:         " SE ",
		Mileage:      "50,000",
		Condition:    "poor",
		HasAccidents: "true",
		ZipCode:      "94107",
		AskingPrice:  "$25,000",
	}
}

func TestParseCheck_Quick(t *testing.T) {
	t.Parallel()

	desc, err := newTestParser().ParseCheck(validQuick())
	require.NoError(t, err)
	require.Nil(t, desc.VIN)
	require.NotNil(t, desc.Quick)
	assert.Equal(t, model.CheckTypeQuick, desc.Type())
	assert.Equal(t, model.QuickRequest{
		Year:         2020,
		Make:         "Toyota",
		Model:        "Camry",
		Trim:         "SE",
		Mileage:      50000,
		Condition:    model.ConditionPoor,
		HasAccidents: true,
		ZipCode:      "94107",
		AskingPrice:  25000,
	}, *desc.Quick)
}

func TestParseCheck_VIN(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	desc, err := p.ParseCheck(RawCheck{VIN: " 1hgcv1f34ka000001 ", AskingPrice: "20,350.50"})
	require.NoError(t, err)
	require.NotNil(t, desc.VIN)
	assert.Equal(t, "1HGCV1F34KA000001", desc.VIN.VIN)
	require.NotNil(t, desc.VIN.AskingPrice)
	assert.InDelta(t, 20350.50, *desc.VIN.AskingPrice, 0.001)

	desc, err = p.ParseCheck(RawCheck{VIN: "1HGCV1F34KA000001"})
	require.NoError(t, err)
	assert.Nil(t, desc.VIN.AskingPrice)
	_, ok := desc.AskingPrice()
	assert.False(t, ok)
}

func TestParseVIN_Invalid(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	tests := []struct {
		name  string
		raw   RawCheck
		field string
	}{
		{"too short", RawCheck{VIN: "1HGCV1F34KA"}, "vin"},
		{"contains O", RawCheck{VIN: "1HGCV1F34KA00000O"}, "vin"},
		{"zero price", RawCheck{VIN: "1HGCV1F34KA000001", AskingPrice: "0"}, "askingPrice"},
		{"garbage price", RawCheck{VIN: "1HGCV1F34KA000001", AskingPrice: "cheap"}, "askingPrice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseCheck(tt.raw)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			var ve ValidationErrors
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields(), tt.field)
		})
	}
}

func TestParseQuick_Invalid(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	tests := []struct {
		name   string
		mutate func(*RawCheck)
		field  string
		msg    string
	}{
		{"missing make", func(r *RawCheck) { r.Make = " " }, "make", "is required"},
		{"missing price", func(r *RawCheck) { r.AskingPrice = "" }, "askingPrice", "is required"},
		{"negative price", func(r *RawCheck) { r.AskingPrice = "-5" }, "askingPrice", "greater than zero"},
		{"year too old", func(r *RawCheck) { r.Year = "1975" }, "year", "model year"},
		{"year too new", func(r *RawCheck) { r.Year = "2028" }, "year", "model year"},
		{"mileage too high", func(r *RawCheck) { r.Mileage = "300001" }, "mileage", "between 0 and 300000"},
		{"mileage not a number", func(r *RawCheck) { r.Mileage = "lots" }, "mileage", "whole number"},
		{"bad zip", func(r *RawCheck) { r.ZipCode = "9410" }, "zipCode", "5-digit"},
		{"bad condition", func(r *RawCheck) { r.Condition = "Mint" }, "condition", "Excellent, Good, Fair, Poor"},
		{"bad accident flag", func(r *RawCheck) { r.HasAccidents = "maybe" }, "hasAccidents", "true or false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validQuick()
			tt.mutate(&raw)
			_, err := p.ParseCheck(raw)
			require.Error(t, err)
			var ve ValidationErrors
			require.ErrorAs(t, err, &ve)
			require.Contains(t, ve.Fields(), tt.field)
			assert.Contains(t, ve.Fields()[tt.field], tt.msg)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseQuick_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	_, err := newTestParser().ParseCheck(RawCheck{})
	require.Error(t, err)
	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t,
		[]string{"year", "make", "model", "mileage", "condition", "zipCode", "askingPrice"},
		keys(ve.Fields()))
}

func TestParseQuick_Boundaries(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	raw := validQuick()
	raw.Year = "2027"
	raw.Mileage = "0"
	raw.HasAccidents = ""
	raw.Make = "Lada"
	raw.Model = "Niva"
	q, err := p.ParseQuick(raw)
	require.NoError(t, err)
	assert.Equal(t, 2027, q.Year)
	assert.Equal(t, 0, q.Mileage)
	assert.False(t, q.HasAccidents)
	assert.Equal(t, "Lada", q.Make)

	raw.Year = "1981"
	raw.Mileage = "300,000"
	_, err = p.ParseQuick(raw)
	require.NoError(t, err)
}

func TestParseCheck_FromJSON(t *testing.T) {
	t.Parallel()

	body := `{"year":2020,"make":"Toyota","model":"Camry","mileage":50000,"condition":"Good",
		"hasAccidents":false,"zipCode":"94107","askingPrice":24999.99}`
	var raw RawCheck
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	assert.Equal(t, Value("2020"), raw.Year)
	assert.Equal(t, Value("false"), raw.HasAccidents)

	desc, err := newTestParser().ParseCheck(raw)
	require.NoError(t, err)
	assert.InDelta(t, 24999.99, desc.Quick.AskingPrice, 0.001)
	assert.False(t, desc.Quick.HasAccidents)
}

func TestValue_UnmarshalNull(t *testing.T) {
	t.Parallel()

	var raw RawCheck
	require.NoError(t, json.Unmarshal([]byte(`{"vin":null,"askingPrice":"  "}`), &raw))
	assert.Equal(t, "", raw.VIN.String())
	assert.Equal(t, "", raw.AskingPrice.String())
}

func TestParseEmail(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	addr, err := p.ParseEmail(" buyer@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", addr)

	_, err = p.ParseEmail("not-an-email")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email address")

	_, err = p.ParseEmail("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"25000", 25000, false},
		{"$25,000", 25000, false},
		{" $1,234.567 ", 1234.57, false},
		{"0", 0, true},
		{"-100", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 0.0001, tt.in)
	}
}

func TestParseFlag(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"true", "Yes", "Y", "1"} {
		v, err := ParseFlag(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"", "false", "NO", "0"} {
		v, err := ParseFlag(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseFlag("sometimes")
	assert.Error(t, err)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
