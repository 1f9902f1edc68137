package events

import (
	"time"

	"github.com/kilianp07/fleetintel/core/intelligence"
	"github.com/kilianp07/fleetintel/core/prediction"
	"github.com/kilianp07/fleetintel/core/registry"
)

type ModelActivated struct {
	Metadata registry.Metadata
	Time     time.Time
}

func (ModelActivated) Tenant() string  { return "" }
func (e ModelActivated) At() time.Time { return e.Time }

type PredictionMade struct {
	TenantID string
	JobID    string
	Result   prediction.Result
	Time     time.Time
}

func (e PredictionMade) Tenant() string { return e.TenantID }
func (e PredictionMade) At() time.Time  { return e.Time }

type BenchmarkComputed struct {
	TenantID string
	Result   intelligence.BenchmarkResult
	Time     time.Time
}

func (e BenchmarkComputed) Tenant() string { return e.TenantID }
func (e BenchmarkComputed) At() time.Time  { return e.Time }

type TrendDetected struct {
	TenantID string
	Result   intelligence.TrendResult
	Time     time.Time
}

func (e TrendDetected) Tenant() string { return e.TenantID }
func (e TrendDetected) At() time.Time  { return e.Time }

type AnomaliesScanned struct {
	TenantID string
	Report   intelligence.AnomalyReport
	Time     time.Time
}

func (e AnomaliesScanned) Tenant() string { return e.TenantID }
func (e AnomaliesScanned) At() time.Time  { return e.Time }
