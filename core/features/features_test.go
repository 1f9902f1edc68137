package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetintel/core/model"
)

func referenceJob() model.JobInput {
	return model.JobInput{
		Route:     model.Route{DistanceKM: 440, DurationHours: 6},
		Economics: model.Economics{OfferedRate: 1200, TollCosts: 60, OtherCosts: 15, EnergyPricePerUnit: 1.5},
		Asset: model.AssetProfile{
			ConsumptionPer100: 30,
			MaintenancePerKM:  0.5,
			InsuranceMonthly:  500,
			LeasingMonthly:    1000,
			EnergyType:        model.EnergyHybrid,
		},
		Driver: model.DriverProfile{HourlyRate: 25, MonthlyFixedCost: 2000},
	}
}

func TestBuildLengthAndOrder(t *testing.T) {
	v := Build(referenceJob())
	require.Len(t, v, Len)
	require.Len(t, Names, Len)

	got := func(name string) float64 {
		x, ok := v.Get(name)
		require.True(t, ok, name)
		return x
	}
	assert.Equal(t, 440.0, v[0])
	assert.InDelta(t, 440.0/6, got("km_per_hour"), 1e-9)
	assert.InDelta(t, 1200.0/440, got("rate_per_km"), 1e-9)
	assert.InDelta(t, 60.0/1200, got("toll_ratio"), 1e-9)
	assert.InDelta(t, 198.0, got("fuel_cost_raw"), 1e-9)
	assert.InDelta(t, 198.0/1200, got("fuel_cost_ratio"), 1e-9)
	assert.InDelta(t, 1500.0/7700, got("fixed_cost_per_km"), 1e-9)
	assert.InDelta(t, 150.0, got("driver_cost_raw"), 1e-9)
	assert.Equal(t, 1.0, got("fuel_type_hybrid"))
}

func TestBuildOneHotSumsToOne(t *testing.T) {
	for _, et := range []model.EnergyType{"", model.EnergyDiesel, model.EnergyElectric, model.EnergyHybrid, model.EnergyPetrol, "unknown"} {
		in := referenceJob()
		in.Asset.EnergyType = et
		v := Build(in)
		sum := 0.0
		for _, name := range Names[Len-4:] {
			x, _ := v.Get(name)
			sum += x
		}
		assert.Equal(t, 1.0, sum, "energy type %q", et)
	}
}

func TestBuildZeroDenominators(t *testing.T) {
	v := Build(model.JobInput{})
	for i, x := range v {
		assert.False(t, math.IsNaN(x) || math.IsInf(x, 0), "dimension %s", Names[i])
	}
	for _, name := range []string{"km_per_hour", "rate_per_km", "toll_ratio", "fuel_cost_ratio"} {
		x, _ := v.Get(name)
		assert.Zero(t, x, name)
	}
}

func TestMustMatchPanicsOnMismatch(t *testing.T) {
	assert.Panics(t, func() { MustMatch(make(Vector, Len-1)) })
	assert.NotPanics(t, func() { MustMatch(make(Vector, Len)) })
}

func TestVectorMap(t *testing.T) {
	m := Build(referenceJob()).Map()
	assert.Len(t, m, Len)
	assert.Equal(t, 25.0, m["hourly_rate"])
	assert.Equal(t, -1, Index("nope"))
}
