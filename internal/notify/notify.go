// Package notify emails finished reports through Resend.
package notify

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/report"
)

// ErrNotConfigured is returned when no Resend API key is set.
var ErrNotConfigured = errors.New("notify: resend api key not configured")

//go:embed email.html.tmpl
var emailHTML string

var emailTemplate = template.Must(template.New("email").Parse(emailHTML))

// Notifier sends report emails. The zero value is unusable; use New.
type Notifier struct {
	client *resend.Client
	from   string
}

// Option configures a Notifier.
type Option func(*resend.Client)

// WithBaseURL points the client at a different Resend endpoint.
func WithBaseURL(raw string) Option {
	return func(c *resend.Client) {
		if u, err := url.Parse(raw); err == nil {
			c.BaseURL = u
		}
	}
}

// New creates a Notifier. With an empty key every send returns
// ErrNotConfigured.
func New(cfg config.ResendConfig, opts ...Option) *Notifier {
	n := &Notifier{from: cfg.From}
	if cfg.Key == "" {
		return n
	}
	n.client = resend.NewCustomClient(&http.Client{Timeout: 30 * time.Second}, cfg.Key)
	for _, o := range opts {
		o(n.client)
	}
	return n
}

// Configured reports whether sends can succeed.
func (n *Notifier) Configured() bool { return n.client != nil }

// Subject is the email subject line for r.
func Subject(r report.Report) string {
	if r.Descriptor.VIN != nil {
		return "Your Car Price Check Report - " + r.Descriptor.VIN.VIN
	}
	return "Your Car Price Check Report"
}

// RenderHTML renders the email body.
func RenderHTML(r report.Report) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, struct {
		Title string
		report.Summary
		Year int
	}{report.Title, r.Summarize(), r.GeneratedAt.Year()}); err != nil {
		return "", eris.Wrap(err, "notify: render email")
	}
	return buf.String(), nil
}

// SendReport emails r with its PDF attached and returns the Resend message
// ID.
func (n *Notifier) SendReport(ctx context.Context, to string, r report.Report) (string, error) {
	if !n.Configured() {
		zap.L().Warn("notify: resend api key not set, skipping email", zap.String("to", to))
		return "", ErrNotConfigured
	}

	html, err := RenderHTML(r)
	if err != nil {
		return "", err
	}
	pdf, err := report.PDFBytes(r)
	if err != nil {
		return "", eris.Wrap(err, "notify: render attachment")
	}

	sent, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: Subject(r),
		Html:    html,
		Attachments: []*resend.Attachment{{
			Filename:    report.Filename(r),
			Content:     pdf,
			ContentType: "application/pdf",
		}},
	})
	if err != nil {
		return "", eris.Wrapf(err, "notify: send report to %s", to)
	}

	zap.L().Info("notify: report sent", zap.String("to", to), zap.String("message_id", sent.Id))
	return sent.Id, nil
}
