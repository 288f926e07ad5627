package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/car-price-checker/internal/config"
	"github.com/sells-group/car-price-checker/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertCircuitOpen       AlertType = "circuit_open"
	AlertSyntheticFallback AlertType = "synthetic_fallback"
	AlertSyntheticRate     AlertType = "synthetic_rate"
)

// fallbackAlertInterval bounds synthetic_fallback alerts to one per interval.
// The periodic synthetic_rate alert reports sustained fallback.
const fallbackAlertInterval = time.Minute

// minChecksForRate is the window size below which the synthetic rate is too
// noisy to alert on.
const minChecksForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter posts alerts to a webhook. A zero WebhookURL disables delivery.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time

	fallback *rate.Limiter
	inflight sync.WaitGroup
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,

		fallback: rate.NewLimiter(rate.Every(fallbackAlertInterval), 1),
	}
}

// Enabled reports whether a webhook is configured.
func (a *Alerter) Enabled() bool {
	return a != nil && a.cfg.WebhookURL != ""
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := a.now().UTC()

	if len(snap.OpenCircuits) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertCircuitOpen,
			Severity: "high",
			Message: fmt.Sprintf("Listing circuit open: %s; checks are served from synthetic estimates",
				strings.Join(snap.OpenCircuits, ", ")),
			Details:   map[string]any{"circuits": snap.OpenCircuits},
			Timestamp: now,
		})
	}

	if snap.ChecksTotal >= minChecksForRate && a.cfg.SyntheticRateThreshold > 0 &&
		snap.SyntheticRate > a.cfg.SyntheticRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSyntheticRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Synthetic verdict rate %.1f%% exceeds threshold %.1f%% (%d of %d checks since %s)",
				snap.SyntheticRate*100, a.cfg.SyntheticRateThreshold*100,
				snap.ChecksSynthetic, snap.ChecksTotal, snap.WindowStart.Format(time.RFC3339),
			),
			Details: map[string]any{
				"synthetic_rate": snap.SyntheticRate,
				"threshold":      a.cfg.SyntheticRateThreshold,
				"synthetic":      snap.ChecksSynthetic,
				"total":          snap.ChecksTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// CircuitOpened sends a circuit_open alert in the background.
func (a *Alerter) CircuitOpened(name string) {
	a.dispatch(Alert{
		Type:      AlertCircuitOpen,
		Severity:  "high",
		Message:   fmt.Sprintf("Listing circuit %q opened; checks are served from synthetic estimates", name),
		Details:   map[string]any{"circuit": name},
		Timestamp: a.now().UTC(),
	})
}

// SyntheticServed sends a synthetic_fallback alert in the background, at
// most once per fallbackAlertInterval.
func (a *Alerter) SyntheticServed(prov model.Provenance, flow model.CheckType) {
	if !a.Enabled() {
		return
	}
	if !a.fallback.Allow() {
		zap.L().Debug("monitoring: synthetic_fallback alert suppressed",
			zap.String("check_id", prov.CheckID),
		)
		return
	}
	a.dispatch(Alert{
		Type:     AlertSyntheticFallback,
		Severity: "low",
		Message:  fmt.Sprintf("Synthetic %s verdict served: %s", flow, prov.Reason),
		Details: map[string]any{
			"check_id": prov.CheckID,
			"flow":     string(flow),
			"reason":   prov.Reason,
		},
		Timestamp: a.now().UTC(),
	})
}

// Wait blocks until background sends finish.
func (a *Alerter) Wait() {
	if a != nil {
		a.inflight.Wait()
	}
}

func (a *Alerter) dispatch(alert Alert) {
	if !a.Enabled() {
		return
	}
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.client.Timeout)
		defer cancel()
		a.SendAlerts(ctx, []Alert{alert})
	}()
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if !a.Enabled() || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
