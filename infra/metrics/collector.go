package metrics

import (
	"context"

	"github.com/kilianp07/fleetintel/core/events"
	coremetrics "github.com/kilianp07/fleetintel/core/metrics"
	"github.com/kilianp07/fleetintel/infra/logger"
	"github.com/kilianp07/fleetintel/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events. It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
}

// Record translates a domain event into the matching sink call. Sinks that do
// not implement the optional recorder for an event are skipped.
func Record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.PredictionMade:
		return sink.RecordPrediction(PredictionEvent(e))
	case events.BenchmarkComputed:
		if r, ok := sink.(coremetrics.BenchmarkRecorder); ok {
			return r.RecordBenchmark(coremetrics.BenchmarkEvent{
				TenantID:    e.TenantID,
				Bucket:      string(e.Result.Fleet.Bucket),
				Percentile:  e.Result.Percentile,
				MarginDelta: e.Result.MarginDelta,
				Time:        e.Time,
			})
		}
	case events.TrendDetected:
		if r, ok := sink.(coremetrics.TrendRecorder); ok {
			return r.RecordTrend(coremetrics.TrendEvent{
				TenantID:   e.TenantID,
				Trend:      string(e.Result.Trend),
				Confidence: string(e.Result.Confidence),
				Slope:      e.Result.Slope,
				R2:         e.Result.R2,
				Alert:      e.Result.Alert,
				Time:       e.Time,
			})
		}
	case events.AnomaliesScanned:
		if r, ok := sink.(coremetrics.AnomalyScanRecorder); ok {
			byKind := make(map[string]int)
			for _, a := range e.Report.Anomalies {
				byKind[string(a.Kind)]++
			}
			return r.RecordAnomalyScan(coremetrics.AnomalyScanEvent{
				TenantID:     e.TenantID,
				Scanned:      e.Report.JobsScanned,
				ByKind:       byKind,
				HighSeverity: e.Report.HighSeverity(),
				Insufficient: e.Report.InsufficientBaseline,
				Time:         e.Time,
			})
		}
	case events.ModelActivated:
		if r, ok := sink.(coremetrics.ModelActivationRecorder); ok {
			return r.RecordModelActivated(coremetrics.ModelActivatedEvent{
				Version:         e.Metadata.Version,
				Kind:            e.Metadata.ModelKind,
				TrainingSamples: e.Metadata.TrainingSamples,
				TrainR2:         e.Metadata.TrainR2,
				Time:            e.Time,
			})
		}
	}
	return nil
}

// PredictionEvent flattens a PredictionMade event.
func PredictionEvent(e events.PredictionMade) coremetrics.PredictionEvent {
	path := "fallback"
	if e.Result.UsedModel {
		path = "trained"
	}
	return coremetrics.PredictionEvent{
		TenantID:       e.TenantID,
		Path:           path,
		ModelVersion:   e.Result.ModelVersion,
		Risk:           string(e.Result.Risk),
		Recommendation: string(e.Result.Recommendation),
		MarginPct:      e.Result.MarginPct,
		NetProfit:      e.Result.NetProfit,
		Time:           e.Time,
	}
}
