// Package alert turns intelligence results into notifications for tenants.
package alert

import (
	"context"
	"time"

	"github.com/kilianp07/fleetintel/core/intelligence"
)

// Kind names the signal behind an alert.
type Kind string

const (
	KindTrend   Kind = "margin_trend"
	KindAnomaly Kind = "anomaly"
)

// Alert is a notification for one tenant.
type Alert struct {
	TenantID string    `json:"tenant_id"`
	Kind     Kind      `json:"kind"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	JobID    string    `json:"job_id,omitempty"`
	Time     time.Time `json:"time"`
}

// Publisher delivers alerts.
type Publisher interface {
	Publish(ctx context.Context, a Alert) error
}

// Nop drops every alert.
type Nop struct{}

func (Nop) Publish(context.Context, Alert) error { return nil }

// FromTrend returns an alert when the trend result raised one. Informational
// messages on improving trends are not alerts.
func FromTrend(tenant string, r intelligence.TrendResult, now time.Time) (Alert, bool) {
	if !r.Alert {
		return Alert{}, false
	}
	sev := string(intelligence.SeverityMedium)
	if r.Confidence == intelligence.ConfidenceHigh {
		sev = string(intelligence.SeverityHigh)
	}
	return Alert{
		TenantID: tenant,
		Kind:     KindTrend,
		Severity: sev,
		Message:  r.AlertMessage,
		Time:     now.UTC(),
	}, true
}

// FromAnomalies returns one alert per high severity anomaly, in report order.
func FromAnomalies(r intelligence.AnomalyReport, now time.Time) []Alert {
	var out []Alert
	for _, a := range r.Anomalies {
		if a.Severity != intelligence.SeverityHigh {
			continue
		}
		out = append(out, Alert{
			TenantID: r.TenantID,
			Kind:     KindAnomaly,
			Severity: string(a.Severity),
			Message:  a.Description,
			JobID:    a.JobID,
			Time:     now.UTC(),
		})
	}
	return out
}
