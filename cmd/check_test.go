package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/intake"
	"github.com/sells-group/car-price-checker/internal/listings"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/report"
)

const offlineCSV = `make,model,year,price,miles
Toyota,Camry,2020,20000,40000
Toyota,Camry,2020,21000,45000
Toyota,Camry,2020,22000,50000
Honda,Civic,2020,15000,45000
`

// useConfig loads defaults from an empty directory into the package cfg.
func useConfig(t *testing.T) string {
	t.Helper()
	dir := chdirTemp(t)
	c, err := config.Load()
	require.NoError(t, err)
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	oldCfg := cfg
	t.Cleanup(func() {
		cfg = oldCfg
		checkFlags.offline, checkFlags.json, checkFlags.pdf, checkFlags.verbose = "", false, "", false
		vinInput, quickInput = intake.RawCheck{}, intake.RawCheck{}
		catalogMake = ""
		batchInput, batchOutput, batchConcurrency, batchOffline = "", "", 0, ""
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func TestInitCheck_Sources(t *testing.T) {
	dir := useConfig(t)
	path := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte(offlineCSV), 0o600))

	env, err := initCheck(context.Background(), "check", path)
	require.NoError(t, err)
	defer env.Close()
	assert.IsType(t, &listings.FileSource{}, env.Source)
	assert.Nil(t, env.Breaker)

	env, err = initCheck(context.Background(), "check", "")
	require.NoError(t, err)
	assert.IsType(t, listings.Unconfigured{}, env.Source)

	cfg.MarketCheck.Key = "mc_test"
	env, err = initCheck(context.Background(), "check", "")
	require.NoError(t, err)
	assert.IsType(t, &listings.MarketCheckSource{}, env.Source)
	require.NotNil(t, env.Breaker)
	assert.Equal(t, "marketcheck", env.Breaker.Name())
}

func TestInitCheck_InvalidConfig(t *testing.T) {
	useConfig(t)
	cfg.Batch.Concurrency = 0

	_, err := initCheck(context.Background(), "batch", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.concurrency")
}

func TestInitCheck_MissingOfflineFile(t *testing.T) {
	useConfig(t)
	_, err := initCheck(context.Background(), "check", "nope.csv")
	require.Error(t, err)
}

func TestCheckQuick_Offline(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "listings.csv"), []byte(offlineCSV), 0o600))
	pdfPath := filepath.Join(dir, "report.pdf")

	out, err := execute(t, "check", "quick", "--offline", "listings.csv",
		"--year", "2020", "--make", "toyota", "--model", "camry",
		"--mileage", "45,000", "--condition", "good", "--zip", "94107",
		"--price", "$25,000", "--verbose", "--pdf", pdfPath)
	require.NoError(t, err)

	assert.Contains(t, out, "OVERPRICED by")
	assert.Contains(t, out, "Market analysis")
	assert.Contains(t, out, "Recommendation")
	assert.Contains(t, out, "Source:")
	assert.Contains(t, out, "file")

	pdf, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestCheckQuick_JSON(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "listings.csv"), []byte(offlineCSV), 0o600))

	out, err := execute(t, "check", "quick", "--offline", "listings.csv", "--json",
		"--year", "2020", "--make", "Toyota", "--model", "Camry",
		"--mileage", "45000", "--condition", "Good", "--zip", "94107", "--price", "25000")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "quick", got["checkType"])
	assert.Equal(t, float64(21000), got["marketValue"])
	assert.Equal(t, float64(3), got["similarListings"])
	assert.Equal(t, true, got["isOverpriced"])
	assert.NotContains(t, got, "provenance")
}

func TestCheckVIN_SyntheticWithoutSource(t *testing.T) {
	chdirTemp(t)

	out, err := execute(t, "check", "vin", "--vin", "1hgcv1f34ka000001", "--price", "19500", "--json", "--verbose")
	require.NoError(t, err)

	var got struct {
		CheckType  string           `json:"checkType"`
		Provenance model.Provenance `json:"provenance"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "vin", got.CheckType)
	assert.True(t, got.Provenance.Synthetic)
	assert.Equal(t, model.PriceSourceSynthetic, got.Provenance.Source)
	assert.NotEmpty(t, got.Provenance.CheckID)
}

func TestCheckVIN_InvalidInput(t *testing.T) {
	chdirTemp(t)

	_, err := execute(t, "check", "vin", "--vin", "NOTAVIN")
	require.Error(t, err)
	assert.True(t, intake.IsValidation(err))
}

func TestFormatSummary(t *testing.T) {
	quick := &model.QuickRequest{Year: 2020, Make: "Toyota", Model: "Camry", Mileage: 45000, Condition: model.ConditionGood, ZipCode: "94107", AskingPrice: 18000}
	rep := report.Report{
		Descriptor: model.Descriptor{Quick: quick},
		Verdict: model.PricingVerdict{
			MarketValue:         21000,
			AdjustedMarketValue: 20000,
			PriceRange:          model.Range{Low: 20000, High: 22000},
			SimilarListings:     3,
			Recommendation:      "Good deal.",
			Difference:          -2000,
			NegotiationRange:    &model.Range{Low: 18000, High: 19000},
			CheckType:           model.CheckTypeQuick,
		},
		GeneratedAt: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	formatSummary(&buf, rep.Summarize())

	out := buf.String()
	assert.Contains(t, out, "GOOD DEAL - $2,000 below market")
	assert.Contains(t, out, "Vehicle")
	assert.Contains(t, out, "$21,000")
	assert.Contains(t, out, "Good deal.")
}

func TestFormatProvenance(t *testing.T) {
	var buf bytes.Buffer
	formatProvenance(&buf, model.Provenance{CheckID: "chk-1", Source: model.PriceSourceSynthetic, Synthetic: true, Reason: "listing source unavailable"})

	out := buf.String()
	assert.Contains(t, out, "chk-1")
	assert.Contains(t, out, "synthetic")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "listing source unavailable")
}

func TestWriteVerdictJSON_HidesProvenanceUnlessVerbose(t *testing.T) {
	v := &model.PricingVerdict{MarketValue: 100, Provenance: model.Provenance{CheckID: "chk-1"}}

	var plain, verbose bytes.Buffer
	require.NoError(t, writeVerdictJSON(&plain, v, false))
	require.NoError(t, writeVerdictJSON(&verbose, v, true))

	assert.NotContains(t, plain.String(), "chk-1")
	assert.Contains(t, verbose.String(), `"check_id": "chk-1"`)
	assert.Contains(t, verbose.String(), `"marketValue": 100`)
}

func TestValueVar(t *testing.T) {
	var v intake.Value
	f := valueVar{&v}
	require.NoError(t, f.Set(" 45,000 "))
	assert.Equal(t, " 45,000 ", f.String())
	assert.Equal(t, "45,000", v.String())
	assert.Equal(t, "string", f.Type())
	assert.Empty(t, valueVar{}.String())
}
