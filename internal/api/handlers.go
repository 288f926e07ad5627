package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sells-group/car-price-checker/internal/catalog"
	"github.com/sells-group/car-price-checker/internal/intake"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/monitoring"
	"github.com/sells-group/car-price-checker/internal/notify"
	"github.com/sells-group/car-price-checker/internal/payment"
	"github.com/sells-group/car-price-checker/internal/pricing"
	"github.com/sells-group/car-price-checker/internal/report"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func respondValidation(w http.ResponseWriter, r *http.Request, err error) {
	var ve intake.ValidationErrors
	errors.As(err, &ve)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: "Invalid request", Fields: ve.Fields()})
}

type healthResponse struct {
	Status  string                      `json:"status"`
	Metrics *monitoring.MetricsSnapshot `json:"metrics,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.Collector != nil {
		resp.Metrics = h.Collector.Peek()
	}
	render.JSON(w, r, resp)
}

type catalogResponse struct {
	*catalog.Catalog
	Years []int `json:"years"`
}

func (h *handler) catalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, catalogResponse{Catalog: h.Catalog, Years: h.Catalog.Years(h.Now())})
}

// marketData resolves the request shape once and calls the matching flow.
func (h *handler) marketData(w http.ResponseWriter, r *http.Request) {
	var raw intake.RawCheck
	if err := render.DecodeJSON(r.Body, &raw); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	desc, err := h.Parser.ParseCheck(raw)
	if err != nil {
		respondValidation(w, r, err)
		return
	}

	var v *model.PricingVerdict
	if desc.VIN != nil {
		v, err = h.Checker.CheckVIN(r.Context(), *desc.VIN)
	} else {
		v, err = h.Checker.CheckQuick(r.Context(), *desc.Quick)
	}
	if err != nil {
		var nd *pricing.NoDataError
		if errors.As(err, &nd) {
			respondError(w, r, http.StatusNotFound, capitalize(nd.Reason))
			return
		}
		zap.L().Error("api: market data failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Failed to fetch market data")
		return
	}

	w.Header().Set(HeaderPriceSource, string(v.Provenance.Source))
	if v.Provenance.CheckID != "" {
		w.Header().Set(HeaderCheckID, v.Provenance.CheckID)
	}
	render.JSON(w, r, v)
}

type paymentRequest struct {
	Amount    int64           `json:"amount"`
	CheckType model.CheckType `json:"checkType"`
	VIN       intake.Value    `json:"vin"`
	Price     intake.Value    `json:"price"`
	Email     intake.Value    `json:"email"`
}

func (h *handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.CheckType == "" {
		req.CheckType = model.CheckTypeQuick
		if req.VIN.String() != "" {
			req.CheckType = model.CheckTypeVIN
		}
	}

	intent, err := h.Payments.CreateIntent(r.Context(), payment.IntentRequest{
		Amount:      req.Amount,
		CheckType:   req.CheckType,
		VIN:         req.VIN.String(),
		AskingPrice: req.Price.String(),
		Email:       req.Email.String(),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, payment.ErrAmountTooLow) {
			status = http.StatusBadRequest
		} else {
			zap.L().Error("api: create payment intent failed", zap.Error(err))
		}
		respondError(w, r, status, h.Payments.UserMessage(err))
		return
	}
	render.JSON(w, r, map[string]string{"clientSecret": intent.ClientSecret})
}

// reportRequest carries a finished check back for rendering.
type reportRequest struct {
	Email      intake.Value          `json:"email"`
	CheckType  model.CheckType       `json:"checkType"`
	FormData   intake.RawCheck       `json:"formData"`
	MarketData *model.PricingVerdict `json:"marketData"`
}

func (h *handler) decodeReport(w http.ResponseWriter, r *http.Request) (*reportRequest, *report.Report, bool) {
	var req reportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return nil, nil, false
	}
	if req.MarketData == nil {
		respondError(w, r, http.StatusBadRequest, "Missing required fields")
		return nil, nil, false
	}

	var (
		desc model.Descriptor
		err  error
	)
	switch req.CheckType {
	case model.CheckTypeVIN:
		desc.VIN, err = h.Parser.ParseVIN(req.FormData)
	case model.CheckTypeQuick:
		desc.Quick, err = h.Parser.ParseQuick(req.FormData)
	default:
		desc, err = h.Parser.ParseCheck(req.FormData)
	}
	if err != nil {
		respondValidation(w, r, err)
		return nil, nil, false
	}

	return &req, &report.Report{Descriptor: desc, Verdict: *req.MarketData, GeneratedAt: h.Now()}, true
}

func (h *handler) sendReport(w http.ResponseWriter, r *http.Request) {
	req, rep, ok := h.decodeReport(w, r)
	if !ok {
		return
	}
	to, err := h.Parser.ParseEmail(req.Email)
	if err != nil {
		respondValidation(w, r, err)
		return
	}

	id, err := h.Mailer.SendReport(r.Context(), to, *rep)
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		render.JSON(w, r, map[string]any{"success": false, "error": "Email delivery is not configured"})
	case err != nil:
		zap.L().Error("api: send report failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Failed to send email")
	default:
		render.JSON(w, r, map[string]any{"success": true, "messageId": id})
	}
}

func (h *handler) reportPDF(w http.ResponseWriter, r *http.Request) {
	_, rep, ok := h.decodeReport(w, r)
	if !ok {
		return
	}
	pdf, err := report.PDFBytes(*rep)
	if err != nil {
		zap.L().Error("api: render pdf failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "Failed to render report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(*rep)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
