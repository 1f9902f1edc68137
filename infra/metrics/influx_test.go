package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetintel/core/metrics"
)

type lineRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (l *lineRecorder) expectOne(t *testing.T, p *write.Point) {
	t.Helper()
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.bodies) != 1 || l.bodies[0] != exp {
		t.Errorf("bodies: %#v, want %q", l.bodies, exp)
	}
}

func TestInfluxSink_RecordPrediction(t *testing.T) {
	var rec lineRecorder
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.PredictionEvent{
		TenantID:       "t1",
		Path:           "trained",
		ModelVersion:   "v3",
		Risk:           "low",
		Recommendation: "accept",
		MarginPct:      44.6004,
		NetProfit:      534.93,
		Time:           now,
	}
	if err := sink.RecordPrediction(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("prediction").
		AddTag("tenant_id", "t1").
		AddTag("path", "trained").
		AddTag("risk", "low").
		AddTag("recommendation", "accept").
		AddTag("model_version", "v3").
		AddField("margin_pct", 44.6).
		AddField("net_profit", 534.93).
		SetTime(now)
	rec.expectOne(t, p)
}

func TestInfluxSink_RecordBenchmarkUnranked(t *testing.T) {
	var rec lineRecorder
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	if err := sink.RecordBenchmark(coremetrics.BenchmarkEvent{TenantID: "t1", Bucket: "small", Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("benchmark").
		AddTag("tenant_id", "t1").
		AddTag("bucket", "small").
		AddField("ranked", false).
		SetTime(now)
	rec.expectOne(t, p)
}

func TestInfluxSink_RecordAnomalyScan(t *testing.T) {
	var rec lineRecorder
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.AnomalyScanEvent{
		TenantID:     "t1",
		Scanned:      40,
		ByKind:       map[string]int{"margin_outlier": 2, "cost_spike": 1},
		HighSeverity: 1,
		Time:         now,
	}
	if err := sink.RecordAnomalyScan(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("anomaly_scan").
		AddTag("tenant_id", "t1").
		AddField("scanned", 40).
		AddField("high_severity", 1).
		AddField("insufficient_baseline", false).
		AddField("cost_spike", 1).
		AddField("margin_outlier", 2).
		SetTime(now)
	rec.expectOne(t, p)
}

func TestInfluxSink_RecordModelActivated(t *testing.T) {
	var rec lineRecorder
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()
	ev := coremetrics.ModelActivatedEvent{Version: "v2", Kind: "linear", TrainingSamples: 120, TrainR2: 0.91234, Time: now}
	if err := sink.RecordModelActivated(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("model_activated").
		AddTag("version", "v2").
		AddTag("kind", "linear").
		AddField("training_samples", 120).
		AddField("train_r2", 0.912).
		SetTime(now)
	rec.expectOne(t, p)
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
