// Package predictionlog records what was predicted for a job, with the
// inputs it was predicted from, so the realised outcome can later be compared
// against it.
package predictionlog

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/prediction"
)

// ErrNotFound is returned when no entry exists for a job.
var ErrNotFound = errors.New("prediction log entry not found")

// Entry is one logged prediction. Actual fields stay nil until the job's
// outcome is resolved.
type Entry struct {
	ID                 string             `json:"id"`
	TenantID           string             `json:"tenant_id"`
	JobID              string             `json:"job_id"`
	CreatedAt          time.Time          `json:"created_at"`
	ModelVersion       string             `json:"model_version,omitempty"`
	UsedModel          bool               `json:"used_ml_model"`
	Features           map[string]float64 `json:"features"`
	Importances        map[string]float64 `json:"feature_importances"`
	OfferedRate        float64            `json:"offered_rate"`
	PredictedNetProfit float64            `json:"predicted_net_profit"`
	PredictedTotalCost float64            `json:"predicted_total_cost"`
	PredictedMarginPct float64            `json:"predicted_margin_pct"`
	Risk               string             `json:"risk_level"`
	Recommendation     string             `json:"recommendation"`

	ActualNetProfit *float64   `json:"actual_net_profit,omitempty"`
	ActualTotalCost *float64   `json:"actual_total_cost,omitempty"`
	ActualMarginPct *float64   `json:"actual_margin_pct,omitempty"`
	ProfitError     *float64   `json:"profit_error,omitempty"`
	ProfitErrorPct  *float64   `json:"profit_error_pct,omitempty"`
	AbsProfitError  *float64   `json:"abs_profit_error,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// NewEntry snapshots a prediction and the vector it was made from.
func NewEntry(tenant, jobID string, vec features.Vector, rate float64, r prediction.Result, now time.Time) Entry {
	imp := make(map[string]float64, len(r.Importances))
	for k, v := range r.Importances {
		imp[k] = v
	}
	return Entry{
		ID:                 uuid.NewString(),
		TenantID:           tenant,
		JobID:              jobID,
		CreatedAt:          now.UTC(),
		ModelVersion:       r.ModelVersion,
		UsedModel:          r.UsedModel,
		Features:           vec.Map(),
		Importances:        imp,
		OfferedRate:        rate,
		PredictedNetProfit: r.NetProfit,
		PredictedTotalCost: r.TotalCost,
		PredictedMarginPct: r.MarginPct,
		Risk:               string(r.Risk),
		Recommendation:     string(r.Recommendation),
	}
}

// Resolved reports whether actuals were recorded.
func (e Entry) Resolved() bool { return e.ActualNetProfit != nil }

// ResolveActuals returns a copy of e with the realised outcome and error
// metrics. The error percentage is 0 when the actual profit is 0.
func (e Entry) ResolveActuals(actualProfit, actualCost, rate float64, now time.Time) Entry {
	margin := 0.0
	if rate > 0 {
		margin = actualProfit / rate * 100
	}
	diff := actualProfit - e.PredictedNetProfit
	pct := 0.0
	if actualProfit != 0 {
		pct = diff / math.Abs(actualProfit) * 100
	}
	abs := math.Abs(diff)
	at := now.UTC()

	e.ActualNetProfit = &actualProfit
	e.ActualTotalCost = &actualCost
	e.ActualMarginPct = &margin
	e.ProfitError = &diff
	e.ProfitErrorPct = &pct
	e.AbsProfitError = &abs
	e.ResolvedAt = &at
	return e
}

// Query filters entries. Zero fields do not filter.
type Query struct {
	TenantID     string
	ResolvedOnly bool
	Since        time.Time
	Limit        int
}

// Match reports whether e satisfies q, ignoring Limit.
func (q Query) Match(e Entry) bool {
	if q.TenantID != "" && e.TenantID != q.TenantID {
		return false
	}
	if q.ResolvedOnly && !e.Resolved() {
		return false
	}
	if !q.Since.IsZero() && e.CreatedAt.Before(q.Since) {
		return false
	}
	return true
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Resolve records actuals on the entry for jobID and returns the updated
	// entry, or ErrNotFound.
	Resolve(ctx context.Context, jobID string, actualProfit, actualCost, rate float64) (Entry, error)
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}
