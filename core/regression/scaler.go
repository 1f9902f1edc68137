package regression

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// KindStandard identifies StandardScaler descriptors.
const KindStandard = "standard"

// StandardScaler centres each column on its mean and divides by its
// population standard deviation. Constant columns keep a scale of 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler computes column statistics over rows.
func FitStandardScaler(rows [][]float64) *StandardScaler {
	if len(rows) == 0 {
		return &StandardScaler{}
	}
	width := len(rows[0])
	s := &StandardScaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		s.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		s.Scale[j] = std
	}
	return s
}

func (s *StandardScaler) Kind() string { return KindStandard }

// IdentityScaler returns a StandardScaler of the given width that leaves
// values unchanged.
func IdentityScaler(width int) *StandardScaler {
	s := &StandardScaler{Mean: make([]float64, width), Scale: make([]float64, width)}
	for i := range s.Scale {
		s.Scale[i] = 1
	}
	return s
}

// Width is the number of fitted columns.
func (s *StandardScaler) Width() int { return len(s.Mean) }

// Transform returns a scaled copy of x. It panics when x is not as wide as
// the fitted columns.
func (s *StandardScaler) Transform(x []float64) []float64 {
	if len(x) != len(s.Mean) {
		panic(fmt.Sprintf("regression: scaler fitted on %d columns, got %d", len(s.Mean), len(x)))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out
}

func (s *StandardScaler) Params() map[string]any {
	return map[string]any{"mean": s.Mean, "scale": s.Scale}
}
