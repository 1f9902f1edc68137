// Package features turns raw job, asset and driver fields into the fixed
// order numeric vector consumed by profit regressors.
//
// The dimension order is part of the model contract: any change to Names
// requires training and publishing a new model version.
package features

import (
	"fmt"

	"github.com/kilianp07/fleetintel/core/model"
)

// Names lists the vector dimensions in contract order.
var Names = []string{
	// route
	"distance_km",
	"estimated_duration_hours",
	"km_per_hour",
	// economics
	"offered_rate",
	"rate_per_km",
	"toll_costs",
	"toll_ratio",
	"other_costs",
	// energy
	"fuel_price_per_unit",
	"fuel_consumption_per_100km",
	"fuel_cost_raw",
	"fuel_cost_ratio",
	// asset fixed costs
	"maintenance_cost_per_km",
	"insurance_monthly",
	"leasing_monthly",
	"fixed_cost_per_km",
	// driver
	"hourly_rate",
	"monthly_fixed_cost",
	"driver_cost_raw",
	// energy type one-hot
	"fuel_type_diesel",
	"fuel_type_electric",
	"fuel_type_hybrid",
	"fuel_type_petrol",
}

// Len is the number of dimensions of a Vector.
const Len = 23

// Amortisation assumptions for fixed monthly asset costs.
const (
	AvgDailyKM  = 350.0
	WorkingDays = 22.0
)

// Vector is a feature vector in Names order.
type Vector []float64

// Get returns the value of the named dimension.
func (v Vector) Get(name string) (float64, bool) {
	i := Index(name)
	if i < 0 || i >= len(v) {
		return 0, false
	}
	return v[i], true
}

// Map returns the vector keyed by dimension name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v))
	for i, name := range Names {
		if i < len(v) {
			m[name] = v[i]
		}
	}
	return m
}

var index = func() map[string]int {
	m := make(map[string]int, len(Names))
	for i, n := range Names {
		m[n] = i
	}
	return m
}()

// Index returns the position of name or -1.
func Index(name string) int {
	if i, ok := index[name]; ok {
		return i
	}
	return -1
}

func init() {
	if len(Names) != Len {
		panic(fmt.Sprintf("features: %d names declared for %d dimensions", len(Names), Len))
	}
}

// ratio returns num/den, or 0 when den is not positive.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// FuelCost is the energy cost of the trip: distance/100 * consumption * price.
func FuelCost(in model.JobInput) float64 {
	return in.Route.DistanceKM / 100 * in.Asset.ConsumptionPer100 * in.Economics.EnergyPricePerUnit
}

// FixedCostPerKM amortises monthly insurance and leasing over the assumed
// monthly distance.
func FixedCostPerKM(in model.JobInput) float64 {
	return ratio(in.Asset.InsuranceMonthly+in.Asset.LeasingMonthly, AvgDailyKM*WorkingDays)
}

// Build derives the feature vector for a job. Derived dimensions are computed
// from inputs only, never from realised outcomes.
//
// Build panics when the produced vector does not match Names: that means the
// code and the model contract have drifted apart.
func Build(in model.JobInput) Vector {
	d := in.Route.DistanceKM
	dur := in.Route.DurationHours
	rate := in.Economics.OfferedRate
	fuel := FuelCost(in)

	oneHot := make(map[model.EnergyType]float64, len(model.EnergyTypes))
	oneHot[in.Asset.EnergyType.Normalize()] = 1

	v := Vector{
		d,
		dur,
		ratio(d, dur),
		rate,
		ratio(rate, d),
		in.Economics.TollCosts,
		ratio(in.Economics.TollCosts, rate),
		in.Economics.OtherCosts,
		in.Economics.EnergyPricePerUnit,
		in.Asset.ConsumptionPer100,
		fuel,
		ratio(fuel, rate),
		in.Asset.MaintenancePerKM,
		in.Asset.InsuranceMonthly,
		in.Asset.LeasingMonthly,
		FixedCostPerKM(in),
		in.Driver.HourlyRate,
		in.Driver.MonthlyFixedCost,
		in.Driver.HourlyRate * dur,
		oneHot[model.EnergyDiesel],
		oneHot[model.EnergyElectric],
		oneHot[model.EnergyHybrid],
		oneHot[model.EnergyPetrol],
	}
	MustMatch(v)
	return v
}

// MustMatch panics if v does not have one value per declared name.
func MustMatch(v Vector) {
	if len(v) != len(Names) {
		panic(fmt.Sprintf("features: vector has %d values, contract declares %d", len(v), len(Names)))
	}
}
