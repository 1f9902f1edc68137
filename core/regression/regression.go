// Package regression holds the numeric building blocks behind trained profit
// models: input scalers, regressors and the offline fitting routine that
// produces them.
//
// Regressors and scalers are pluggable. Each implementation has a kind name
// and can describe itself as a parameter map, so artifact stores persist a
// Descriptor and rebuild the concrete type through the kind registries.
package regression

import (
	"fmt"

	"github.com/kilianp07/fleetintel/core/factory"
)

// Regressor maps a scaled feature vector to a predicted net profit.
type Regressor interface {
	Kind() string
	Predict(x []float64) float64
	Params() map[string]any
}

// ImportanceScorer is implemented by regressors exposing native per-feature
// importance scores. Scores are not required to be normalised.
type ImportanceScorer interface {
	Importances() []float64
}

// Scaler transforms raw feature vectors into the space a regressor was
// trained in.
type Scaler interface {
	Kind() string
	Transform(x []float64) []float64
	Params() map[string]any
}

// Widther is implemented by regressors and scalers fitted to a fixed number
// of input features.
type Widther interface {
	Width() int
}

// Descriptor is the persisted form of a Regressor or Scaler.
type Descriptor = factory.ModuleConfig

var (
	regressors = factory.NewRegistry[Regressor]()
	scalers    = factory.NewRegistry[Scaler]()
)

// RegisterRegressor makes a regressor kind loadable from a Descriptor.
func RegisterRegressor(kind string, f factory.Factory[Regressor]) error {
	return regressors.Register(kind, f)
}

// RegisterScaler makes a scaler kind loadable from a Descriptor.
func RegisterScaler(kind string, f factory.Factory[Scaler]) error {
	return scalers.Register(kind, f)
}

// Describe returns the descriptor of r.
func Describe(r interface {
	Kind() string
	Params() map[string]any
}) Descriptor {
	return Descriptor{Type: r.Kind(), Conf: r.Params()}
}

// LoadRegressor rebuilds a regressor from its descriptor.
func LoadRegressor(d Descriptor) (Regressor, error) {
	r, err := regressors.Create(d)
	if err != nil {
		return nil, fmt.Errorf("load regressor: %w", err)
	}
	return r, nil
}

// LoadScaler rebuilds a scaler from its descriptor.
func LoadScaler(d Descriptor) (Scaler, error) {
	s, err := scalers.Create(d)
	if err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	return s, nil
}

func init() {
	_ = RegisterRegressor(KindLinear, func(conf map[string]any) (Regressor, error) {
		var lr LinearRegressor
		if err := factory.Decode(conf, &lr); err != nil {
			return nil, err
		}
		if len(lr.Coef) == 0 {
			return nil, fmt.Errorf("linear regressor without coefficients")
		}
		return &lr, nil
	})
	_ = RegisterScaler(KindStandard, func(conf map[string]any) (Scaler, error) {
		var s StandardScaler
		if err := factory.Decode(conf, &s); err != nil {
			return nil, err
		}
		if len(s.Mean) != len(s.Scale) {
			return nil, fmt.Errorf("standard scaler: %d means for %d scales", len(s.Mean), len(s.Scale))
		}
		return &s, nil
	})
}
