package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/report"
)

func intp(n int) *int { return &n }

func testReport() report.Report {
	return report.Report{
		Descriptor: model.Descriptor{Quick: &model.QuickRequest{
			Year: 2020, Make: "Toyota", Model: "Camry", Mileage: 52000,
			Condition: model.ConditionGood, ZipCode: "94107", AskingPrice: 21500,
		}},
		Verdict: model.PricingVerdict{
			MarketValue:         23000,
			AdjustedMarketValue: 22000,
			PriceRange:          model.Range{Low: 20000, High: 26000},
			SimilarListings:     9,
			Recommendation:      "Good deal! This vehicle is priced 2.3% below the adjusted market value.",
			Difference:          -500,
			Adjustments:         &model.AdjustmentSet{Mileage: intp(-1000)},
			NegotiationRange:    &model.Range{Low: 19800, High: 20900},
			CheckType:           model.CheckTypeQuick,
		},
		GeneratedAt: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Your Car Price Check Report", Subject(testReport()))

	r := report.Report{Descriptor: model.Descriptor{VIN: &model.VINRequest{VIN: "1HGCV1F34KA000001"}}}
	assert.Equal(t, "Your Car Price Check Report - 1HGCV1F34KA000001", Subject(r))
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(testReport())
	require.NoError(t, err)

	assert.Contains(t, html, "GOOD DEAL - $500 below market")
	assert.Contains(t, html, "#d1fae5")
	assert.Contains(t, html, "2020 Toyota Camry")
	assert.Contains(t, html, "52,000 miles")
	assert.Contains(t, html, "Adjusted Market Value")
	assert.Contains(t, html, "Mileage: -$1,000")
	assert.Contains(t, html, "Offer $19,800")
	assert.Contains(t, html, "&copy; 2026")
}

func TestRenderHTML_EscapesRecommendation(t *testing.T) {
	r := testReport()
	r.Verdict.Recommendation = "<script>alert(1)</script>"

	html, err := RenderHTML(r)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestSendReport_NotConfigured(t *testing.T) {
	n := New(config.ResendConfig{From: "a@b.c"})
	assert.False(t, n.Configured())

	_, err := n.SendReport(context.Background(), "buyer@example.com", testReport())
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSendReport(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	n := New(config.ResendConfig{Key: "re_test", From: "Car Price Checker <reports@example.com>"}, WithBaseURL(srv.URL+"/"))
	id, err := n.SendReport(context.Background(), "buyer@example.com", testReport())
	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)

	assert.Equal(t, "Car Price Checker <reports@example.com>", body["from"])
	assert.Equal(t, []any{"buyer@example.com"}, body["to"])
	assert.Equal(t, "Your Car Price Check Report", body["subject"])
	assert.Contains(t, body["html"], "GOOD DEAL")

	attachments, ok := body["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)
	att := attachments[0].(map[string]any)
	assert.Equal(t, "car-price-report-2020-Toyota-Camry.pdf", att["filename"])
}

func TestSendReport_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from address"}`))
	}))
	defer srv.Close()

	n := New(config.ResendConfig{Key: "re_test", From: "bad"}, WithBaseURL(srv.URL+"/"))
	_, err := n.SendReport(context.Background(), "buyer@example.com", testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify: send report")
}
