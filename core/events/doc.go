// Package events defines the events published on the service event bus.
//
// Available event types:
//   - ModelActivated: a model version became the active one
//   - PredictionMade: a job was scored
//   - BenchmarkComputed: a tenant benchmark was produced
//   - TrendDetected: a tenant trend was analysed
//   - AnomaliesScanned: a tenant's recent jobs were scanned
package events

import "time"

// Event is implemented by every bus event.
type Event interface {
	// Tenant is empty for events not scoped to a tenant.
	Tenant() string
	At() time.Time
}
