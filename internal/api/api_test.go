package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/intake"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/monitoring"
	"github.com/sells-group/car-price-checker/internal/notify"
	"github.com/sells-group/car-price-checker/internal/payment"
	"github.com/sells-group/car-price-checker/internal/pricing"
	"github.com/sells-group/car-price-checker/internal/report"
)

var testNow = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

type fakeChecker struct {
	vin   []model.VINRequest
	quick []model.QuickRequest
	err   error
}

func (f *fakeChecker) verdict(t model.CheckType) (*model.PricingVerdict, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.PricingVerdict{
		MarketValue:         22000,
		AdjustedMarketValue: 22000,
		PriceRange:          model.Range{Low: 20000, High: 24000},
		SimilarListings:     3,
		Recommendation:      "Good deal!",
		Difference:          -1000,
		CheckType:           t,
		Provenance:          model.Provenance{CheckID: "chk-1", Source: model.PriceSourceSynthetic, Synthetic: true},
	}, nil
}

func (f *fakeChecker) CheckVIN(_ context.Context, req model.VINRequest) (*model.PricingVerdict, error) {
	f.vin = append(f.vin, req)
	return f.verdict(model.CheckTypeVIN)
}

func (f *fakeChecker) CheckQuick(_ context.Context, req model.QuickRequest) (*model.PricingVerdict, error) {
	f.quick = append(f.quick, req)
	return f.verdict(model.CheckTypeQuick)
}

type fakeMailer struct {
	to   string
	rep  report.Report
	id   string
	err  error
	sent int
}

func (f *fakeMailer) SendReport(_ context.Context, to string, r report.Report) (string, error) {
	f.sent++
	f.to, f.rep = to, r
	return f.id, f.err
}

type fakePayer struct {
	req payment.IntentRequest
	err error
}

func (f *fakePayer) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil
}

func (f *fakePayer) UserMessage(err error) string { return "payer: " + err.Error() }

type testEnv struct {
	handler http.Handler
	checker *fakeChecker
	mailer  *fakeMailer
	payer   *fakePayer
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		checker: &fakeChecker{},
		mailer:  &fakeMailer{id: "msg_1"},
		payer:   &fakePayer{},
	}
	col := monitoring.NewCollector()
	col.Record(model.CheckTypeVIN, monitoring.OutcomeSynthetic)
	env.handler = NewRouter(config.ServerConfig{CORSOrigins: []string{"*"}}, Deps{
		Checker:   env.checker,
		Parser:    intake.NewParser(nil, func() time.Time { return testNow }),
		Mailer:    env.mailer,
		Payments:  env.payer,
		Collector: col,
		Now:       func() time.Time { return testNow },
	})
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	metrics := body["metrics"].(map[string]any)
	assert.EqualValues(t, 1, metrics["checks_synthetic"])
}

func TestCatalog(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Len(t, body["makes"], 30)
	years := body["years"].([]any)
	assert.EqualValues(t, 2026, years[0])
	assert.Equal(t, []any{"Excellent", "Good", "Fair", "Poor"}, body["conditions"])
}

func TestMarketData_VIN(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/market-data", `{"vin":"1hgcv1f34ka000001","askingPrice":21000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "synthetic", rec.Header().Get(HeaderPriceSource))
	assert.Equal(t, "chk-1", rec.Header().Get(HeaderCheckID))
	require.Len(t, env.checker.vin, 1)
	assert.Equal(t, "1HGCV1F34KA000001", env.checker.vin[0].VIN)
	assert.Empty(t, env.checker.quick)

	body := decode(t, rec)
	assert.EqualValues(t, 22000, body["marketValue"])
	assert.Equal(t, "vin", body["checkType"])
	assert.NotContains(t, body, "Provenance")
	assert.NotContains(t, body, "adjustments")
}

func TestMarketData_Quick(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/market-data", `{"year":"2020","make":"honda","model":"civic",
		"mileage":"30,000","condition":"Good","hasAccidents":false,"zipCode":"94107","askingPrice":"18000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, env.checker.quick, 1)
	q := env.checker.quick[0]
	assert.Equal(t, "Honda", q.Make)
	assert.Equal(t, "Civic", q.Model)
	assert.Equal(t, 30000, q.Mileage)
}

func TestMarketData_Validation(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/market-data", `{"make":"Honda"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Invalid request", body["error"])
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "model")
	assert.Contains(t, fields, "askingPrice")
	assert.Empty(t, env.checker.quick)
}

func TestMarketData_BadJSON(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/market-data", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketData_NoData(t *testing.T) {
	env := newEnv(t)
	env.checker.err = &pricing.NoDataError{Reason: "no market data found"}

	rec := env.do(http.MethodPost, "/api/market-data", `{"vin":"1HGCV1F34KA000001"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No market data found", decode(t, rec)["error"])
}

func TestMarketData_Unexpected(t *testing.T) {
	env := newEnv(t)
	env.checker.err = errors.New("boom")

	rec := env.do(http.MethodPost, "/api/market-data", `{"vin":"1HGCV1F34KA000001"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch market data", decode(t, rec)["error"])
}

func TestCreatePaymentIntent(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/create-payment-intent",
		`{"vin":"1HGCV1F34KA000001","price":21000,"email":"buyer@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "pi_1_secret", decode(t, rec)["clientSecret"])
	assert.Equal(t, payment.IntentRequest{
		CheckType:   model.CheckTypeVIN,
		VIN:         "1HGCV1F34KA000001",
		AskingPrice: "21000",
		Email:       "buyer@example.com",
	}, env.payer.req)
}

func TestCreatePaymentIntent_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"amount too low", payment.ErrAmountTooLow, http.StatusBadRequest},
		{"not configured", payment.ErrNotConfigured, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t)
			env.payer.err = tt.err
			rec := env.do(http.MethodPost, "/api/create-payment-intent", `{"amount":10}`)
			require.Equal(t, tt.status, rec.Code)
			assert.Contains(t, decode(t, rec)["error"], "payer: ")
			assert.Equal(t, model.CheckTypeQuick, env.payer.req.CheckType)
		})
	}
}

const reportBody = `{"email":"buyer@example.com","checkType":"quick",
	"formData":{"year":2020,"make":"Toyota","model":"Camry","mileage":52000,"condition":"Good","zipCode":"94107","askingPrice":21500},
	"marketData":{"marketValue":23000,"adjustedMarketValue":22000,"priceRange":{"low":20000,"high":26000},
		"similarListings":9,"recommendation":"Good deal!","difference":-500,"isOverpriced":false,"isFairPrice":false,
		"negotiationRange":{"low":19800,"high":20900},"checkType":"quick"}}`

func TestSendReport(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/send-report", reportBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "msg_1", body["messageId"])

	assert.Equal(t, "buyer@example.com", env.mailer.to)
	require.NotNil(t, env.mailer.rep.Descriptor.Quick)
	assert.Equal(t, 52000, env.mailer.rep.Descriptor.Quick.Mileage)
	assert.Equal(t, 23000, env.mailer.rep.Verdict.MarketValue)
	assert.Equal(t, testNow, env.mailer.rep.GeneratedAt)
}

func TestSendReport_NotConfigured(t *testing.T) {
	env := newEnv(t)
	env.mailer.err = notify.ErrNotConfigured

	rec := env.do(http.MethodPost, "/api/send-report", reportBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestSendReport_Failures(t *testing.T) {
	t.Run("missing market data", func(t *testing.T) {
		env := newEnv(t)
		rec := env.do(http.MethodPost, "/api/send-report", `{"email":"buyer@example.com","formData":{}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing required fields", decode(t, rec)["error"])
	})

	t.Run("bad email", func(t *testing.T) {
		env := newEnv(t)
		rec := env.do(http.MethodPost, "/api/send-report", strings.Replace(reportBody, "buyer@example.com", "nope", 1))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["fields"], "email")
		assert.Zero(t, env.mailer.sent)
	})

	t.Run("provider error", func(t *testing.T) {
		env := newEnv(t)
		env.mailer.err = errors.New("resend down")
		rec := env.do(http.MethodPost, "/api/send-report", reportBody)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestReportPDF(t *testing.T) {
	env := newEnv(t)
	rec := env.do(http.MethodPost, "/api/report.pdf", reportBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="car-price-report-2020-Toyota-Camry.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestCORSPreflight(t *testing.T) {
	env := newEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/market-data", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h := NewRouter(config.ServerConfig{RateLimitPerMinute: 2}, Deps{Now: func() time.Time { return testNow }})

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
