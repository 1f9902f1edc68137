package model

import (
	"fmt"
	"strings"
)

// EnergyType identifies how an asset is powered.
type EnergyType string

const (
	EnergyDiesel   EnergyType = "diesel"
	EnergyElectric EnergyType = "electric"
	EnergyHybrid   EnergyType = "hybrid"
	EnergyPetrol   EnergyType = "petrol"
)

// EnergyTypes lists the supported energy types in one-hot order.
var EnergyTypes = []EnergyType{EnergyDiesel, EnergyElectric, EnergyHybrid, EnergyPetrol}

// ParseEnergyType converts s into an EnergyType. The empty string maps to
// diesel.
func ParseEnergyType(s string) (EnergyType, error) {
	v := EnergyType(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return EnergyDiesel, nil
	}
	for _, t := range EnergyTypes {
		if v == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown energy type %q", s)
}

// Normalize returns a supported energy type, defaulting to diesel.
func (e EnergyType) Normalize() EnergyType {
	t, err := ParseEnergyType(string(e))
	if err != nil {
		return EnergyDiesel
	}
	return t
}

// UnmarshalText validates energy types found in JSON or YAML job files.
func (e *EnergyType) UnmarshalText(b []byte) error {
	t, err := ParseEnergyType(string(b))
	if err != nil {
		return err
	}
	*e = t
	return nil
}

// Route describes the trip geometry.
type Route struct {
	DistanceKM    float64 `json:"distance_km" yaml:"distance_km"`
	DurationHours float64 `json:"duration_hours" yaml:"duration_hours"`
}

// Economics holds the commercial terms of a single job.
type Economics struct {
	OfferedRate        float64 `json:"offered_rate" yaml:"offered_rate"`
	TollCosts          float64 `json:"toll_costs" yaml:"toll_costs"`
	OtherCosts         float64 `json:"other_costs" yaml:"other_costs"`
	EnergyPricePerUnit float64 `json:"energy_price_per_unit" yaml:"energy_price_per_unit"`
}

// AssetProfile holds the cost profile of the truck or van running the job.
type AssetProfile struct {
	// ConsumptionPer100 is energy units consumed per 100 distance units.
	ConsumptionPer100 float64    `json:"consumption_per_100" yaml:"consumption_per_100"`
	MaintenancePerKM  float64    `json:"maintenance_per_km" yaml:"maintenance_per_km"`
	InsuranceMonthly  float64    `json:"insurance_monthly" yaml:"insurance_monthly"`
	LeasingMonthly    float64    `json:"leasing_monthly" yaml:"leasing_monthly"`
	EnergyType        EnergyType `json:"energy_type" yaml:"energy_type"`
}

// DriverProfile holds the labour cost of the assigned driver.
type DriverProfile struct {
	HourlyRate       float64 `json:"hourly_rate" yaml:"hourly_rate"`
	MonthlyFixedCost float64 `json:"monthly_fixed_cost" yaml:"monthly_fixed_cost"`
}

// JobInput gathers everything known about a job before it is accepted.
type JobInput struct {
	Route     Route         `json:"route" yaml:"route"`
	Economics Economics     `json:"economics" yaml:"economics"`
	Asset     AssetProfile  `json:"asset" yaml:"asset"`
	Driver    DriverProfile `json:"driver" yaml:"driver"`
}

// Validate rejects negative physical quantities. Zero values are allowed and
// handled by the ratio rules of the feature builder.
func (j JobInput) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"distance_km", j.Route.DistanceKM},
		{"duration_hours", j.Route.DurationHours},
		{"offered_rate", j.Economics.OfferedRate},
		{"toll_costs", j.Economics.TollCosts},
		{"other_costs", j.Economics.OtherCosts},
		{"energy_price_per_unit", j.Economics.EnergyPricePerUnit},
		{"consumption_per_100", j.Asset.ConsumptionPer100},
		{"maintenance_per_km", j.Asset.MaintenancePerKM},
		{"insurance_monthly", j.Asset.InsuranceMonthly},
		{"leasing_monthly", j.Asset.LeasingMonthly},
		{"hourly_rate", j.Driver.HourlyRate},
		{"monthly_fixed_cost", j.Driver.MonthlyFixedCost},
	}
	for _, c := range checks {
		if c.v < 0 {
			return fmt.Errorf("%s must not be negative", c.name)
		}
	}
	return nil
}
