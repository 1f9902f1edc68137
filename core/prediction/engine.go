package prediction

import (
	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/logger"
	"github.com/kilianp07/fleetintel/core/model"
	"github.com/kilianp07/fleetintel/core/regression"
	"github.com/kilianp07/fleetintel/core/registry"
)

// Predictor estimates job profitability.
type Predictor interface {
	Predict(in model.JobInput, offeredRate float64) Result
}

// Path is one way of producing a Result.
type Path interface {
	Name() string
	Predict(in model.JobInput, offeredRate float64) Result
}

// ArtifactSource yields the model snapshot used for a call. *registry.Registry
// satisfies it.
type ArtifactSource interface {
	Active() (registry.Artifact, bool)
}

// Engine selects the trained path when a model is active and the fallback
// path otherwise.
type Engine struct {
	models ArtifactSource
	log    logger.Logger
}

func NewEngine(models ArtifactSource, log logger.Logger) *Engine {
	return &Engine{models: models, log: logger.OrNop(log)}
}

// Select returns the path for the current registry state. The trained path
// captures a single artifact so model and scaler come from the same version.
func (e *Engine) Select() Path {
	if e.models != nil {
		if a, ok := e.models.Active(); ok {
			return Trained{Artifact: a}
		}
	}
	return Fallback{}
}

// Predict runs the selected path. offeredRate overrides in.Economics.OfferedRate.
func (e *Engine) Predict(in model.JobInput, offeredRate float64) Result {
	p := e.Select()
	res := p.Predict(in, offeredRate)
	e.log.Debugw("prediction", map[string]any{
		"path":           p.Name(),
		"model_version":  res.ModelVersion,
		"margin_pct":     res.MarginPct,
		"risk":           string(res.Risk),
		"recommendation": string(res.Recommendation),
	})
	return res
}

// Trained runs a registry artifact. An artifact built for another feature
// layout is a programming error and panics rather than being served.
type Trained struct {
	Artifact registry.Artifact
}

func (Trained) Name() string { return "trained" }

func (t Trained) Predict(in model.JobInput, offeredRate float64) Result {
	in.Economics.OfferedRate = offeredRate
	raw := features.Build(in)
	scaled := features.Vector(t.Artifact.Scaler.Transform(raw))
	features.MustMatch(scaled)
	profit := t.Artifact.Regressor.Predict(scaled)
	m := margin(profit, offeredRate)

	fuel, _ := raw.Get("fuel_cost_raw")
	fuelRatio := 0.0
	if offeredRate > 0 {
		fuelRatio = fuel / offeredRate
	}
	risk, rec := AssessRisk(m, fuelRatio)
	imp := modelImportances(t.Artifact.Regressor)
	return Result{
		NetProfit:      profit,
		TotalCost:      offeredRate - profit,
		MarginPct:      m,
		Risk:           risk,
		Recommendation: rec,
		Importances:    imp,
		Explanation:    explain(m, risk, imp, true),
		UsedModel:      true,
		ModelVersion:   t.Artifact.Version,
	}
}

// modelImportances normalises native scores to sum to 1, or spreads weight
// uniformly when the regressor has none.
func modelImportances(r regression.Regressor) map[string]float64 {
	out := make(map[string]float64, features.Len)
	var scores []float64
	if s, ok := r.(regression.ImportanceScorer); ok {
		scores = s.Importances()
	}
	var total float64
	if len(scores) == features.Len {
		for _, v := range scores {
			total += v
		}
	}
	if total <= 0 {
		for _, name := range features.Names {
			out[name] = 1.0 / features.Len
		}
		return out
	}
	for i, name := range features.Names {
		out[name] = scores[i] / total
	}
	return out
}

// Fallback reconstructs trip cost from the job's own economics. Its
// importances are the fuel, driver and maintenance shares of total cost, so
// they sum to less than 1 whenever tolls, fixed allocation or other costs are
// non-zero.
type Fallback struct{}

func (Fallback) Name() string { return "fallback" }

// Hours a driver's monthly fixed cost is spread over.
const driverMonthlyHours = features.WorkingDays * 8

// CostBreakdown itemises the fallback cost model.
type CostBreakdown struct {
	Fuel        float64 `json:"fuel"`
	Driver      float64 `json:"driver"`
	Maintenance float64 `json:"maintenance"`
	Tolls       float64 `json:"tolls"`
	Fixed       float64 `json:"fixed_allocation"`
	Other       float64 `json:"other"`
}

func (c CostBreakdown) Total() float64 {
	return c.Fuel + c.Driver + c.Maintenance + c.Tolls + c.Fixed + c.Other
}

// Breakdown computes the fallback cost items for in.
func Breakdown(in model.JobInput) CostBreakdown {
	d := in.Route.DistanceKM
	return CostBreakdown{
		Fuel:        features.FuelCost(in),
		Driver:      in.Driver.HourlyRate*in.Route.DurationHours + in.Driver.MonthlyFixedCost/driverMonthlyHours,
		Maintenance: d * in.Asset.MaintenancePerKM,
		Tolls:       in.Economics.TollCosts,
		Fixed:       features.FixedCostPerKM(in) * d,
		Other:       in.Economics.OtherCosts,
	}
}

func (Fallback) Predict(in model.JobInput, offeredRate float64) Result {
	c := Breakdown(in)
	total := c.Total()
	profit := offeredRate - total
	m := margin(profit, offeredRate)

	fuelRatio := 0.0
	if offeredRate > 0 {
		fuelRatio = c.Fuel / offeredRate
	}
	risk, rec := AssessRisk(m, fuelRatio)
	if risk == RiskLow && total > 0 && c.Fuel/total > FuelRatioLimit {
		risk, rec = RiskMedium, Review
	}

	imp := map[string]float64{
		"fuel_cost_raw":           0,
		"driver_cost_raw":         0,
		"maintenance_cost_per_km": 0,
	}
	if total > 0 {
		imp["fuel_cost_raw"] = c.Fuel / total
		imp["driver_cost_raw"] = c.Driver / total
		imp["maintenance_cost_per_km"] = c.Maintenance / total
	}
	return Result{
		NetProfit:      profit,
		TotalCost:      total,
		MarginPct:      m,
		Risk:           risk,
		Recommendation: rec,
		Importances:    imp,
		Explanation:    explain(m, risk, imp, false),
	}
}

// Static always returns the same Result.
type Static struct {
	Result Result
}

func (s Static) Predict(model.JobInput, float64) Result { return s.Result }
