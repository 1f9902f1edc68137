package scenarios

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/fleetintel/core/events"
	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/prediction"
	"github.com/kilianp07/fleetintel/core/regression"
	"github.com/kilianp07/fleetintel/core/registry"
	"github.com/kilianp07/fleetintel/infra/logger"
	"github.com/kilianp07/fleetintel/infra/metrics"
)

// RunScenario scores every job of sc and records it on a private Prometheus
// registry. It returns that registry so callers can assert on the counters.
func RunScenario(t *testing.T, sc *Scenario) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	models := registry.New(registry.NewMemoryStore(), logger.NopLogger{})
	if sc.Model != nil {
		lr := &regression.LinearRegressor{Intercept: sc.Model.NetProfit, Coef: make([]float64, len(features.Names))}
		if _, err := models.Save(context.Background(), lr, regression.IdentityScaler(features.Len), registry.Metadata{Version: sc.Model.Version}); err != nil {
			t.Fatalf("save model: %v", err)
		}
	}
	engine := prediction.NewEngine(models, logger.NopLogger{})

	for _, j := range sc.Jobs {
		res := engine.Predict(j.Job, j.Rate)
		if err := metrics.Record(sink, events.PredictionMade{TenantID: sc.Name, JobID: j.ID, Result: res}); err != nil {
			t.Fatalf("record %s: %v", j.ID, err)
		}
		check(t, sc.Name, j.ID, sc.Expected[j.ID], res)
	}
	return reg
}

func check(t *testing.T, scenario, job string, want Expected, got prediction.Result) {
	t.Helper()
	if want.Risk != "" && string(got.Risk) != want.Risk {
		t.Errorf("%s/%s: risk %s, want %s", scenario, job, got.Risk, want.Risk)
	}
	if want.Recommendation != "" && string(got.Recommendation) != want.Recommendation {
		t.Errorf("%s/%s: recommendation %s, want %s", scenario, job, got.Recommendation, want.Recommendation)
	}
	if want.MarginMin != nil && got.MarginPct < *want.MarginMin {
		t.Errorf("%s/%s: margin %.2f below %.2f", scenario, job, got.MarginPct, *want.MarginMin)
	}
	if want.MarginMax != nil && got.MarginPct > *want.MarginMax {
		t.Errorf("%s/%s: margin %.2f above %.2f", scenario, job, got.MarginPct, *want.MarginMax)
	}
	if got.UsedModel != want.UsedModel {
		t.Errorf("%s/%s: used model %v, want %v", scenario, job, got.UsedModel, want.UsedModel)
	}
}
