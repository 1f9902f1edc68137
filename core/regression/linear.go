package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// KindLinear identifies LinearRegressor descriptors.
const KindLinear = "linear"

// LinearRegressor predicts Intercept + Coef·x.
type LinearRegressor struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

func (l *LinearRegressor) Kind() string { return KindLinear }

// Width is the number of coefficients.
func (l *LinearRegressor) Width() int { return len(l.Coef) }

// Predict evaluates the model. It panics when x does not have one value per
// coefficient.
func (l *LinearRegressor) Predict(x []float64) float64 {
	if len(x) != len(l.Coef) {
		panic(fmt.Sprintf("regression: linear model has %d coefficients, got %d features", len(l.Coef), len(x)))
	}
	return l.Intercept + floats.Dot(l.Coef, x)
}

// Importances returns the absolute coefficients. On standardised inputs they
// are comparable across features.
func (l *LinearRegressor) Importances() []float64 {
	out := make([]float64, len(l.Coef))
	for i, c := range l.Coef {
		out[i] = math.Abs(c)
	}
	return out
}

func (l *LinearRegressor) Params() map[string]any {
	return map[string]any{"intercept": l.Intercept, "coef": l.Coef}
}
