// Package api serves the price checker over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sells-group/car-price-checker/internal/catalog"
	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/intake"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/monitoring"
	"github.com/sells-group/car-price-checker/internal/payment"
	"github.com/sells-group/car-price-checker/internal/report"
)

// Checker runs price checks. *checker.Service satisfies it.
type Checker interface {
	CheckVIN(ctx context.Context, req model.VINRequest) (*model.PricingVerdict, error)
	CheckQuick(ctx context.Context, req model.QuickRequest) (*model.PricingVerdict, error)
}

// Mailer emails reports. *notify.Notifier satisfies it.
type Mailer interface {
	SendReport(ctx context.Context, to string, r report.Report) (string, error)
}

// Payer creates payment intents. *payment.Payments satisfies it.
type Payer interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
	UserMessage(err error) string
}

// Deps are the collaborators behind the routes. Collector may be nil.
type Deps struct {
	Checker   Checker
	Parser    *intake.Parser
	Catalog   *catalog.Catalog
	Mailer    Mailer
	Payments  Payer
	Collector *monitoring.Collector
	Now       func() time.Time
}

// Header names set on check responses.
const (
	HeaderPriceSource = "X-Price-Source"
	HeaderCheckID     = "X-Check-ID"
)

type handler struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg config.ServerConfig, d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	h := &handler{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if cfg.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{HeaderPriceSource, HeaderCheckID},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.With(render.SetContentType(render.ContentTypeJSON)).Group(func(r chi.Router) {
			r.Get("/catalog", h.catalog)
			r.Post("/market-data", h.marketData)
			r.Post("/create-payment-intent", h.createPaymentIntent)
			r.Post("/send-report", h.sendReport)
		})
		r.Post("/report.pdf", h.reportPDF)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
