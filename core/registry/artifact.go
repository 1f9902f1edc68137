package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/fleetintel/core/features"
	"github.com/kilianp07/fleetintel/core/regression"
)

// ErrFeatureSkew marks an artifact trained on a different feature layout than
// the one this build produces.
var ErrFeatureSkew = errors.New("feature layout mismatch")

// Metadata describes a trained model version. Holdout metrics are optional
// because a model may be trained without a test split.
type Metadata struct {
	Version         string    `json:"version"`
	ModelKind       string    `json:"model_kind,omitempty"`
	FeatureNames    []string  `json:"feature_names"`
	TrainingSamples int       `json:"training_samples"`
	TrainRMSE       float64   `json:"train_rmse"`
	TrainR2         float64   `json:"train_r2"`
	TestRMSE        *float64  `json:"test_rmse,omitempty"`
	TestR2          *float64  `json:"test_r2,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Description     string    `json:"description,omitempty"`
}

// Artifact bundles a regressor with the scaler it was trained behind. The two
// are always swapped together.
type Artifact struct {
	Version   string
	Regressor regression.Regressor
	Scaler    regression.Scaler
	Metadata  Metadata
}

func (a Artifact) validate() error {
	if a.Version == "" {
		return fmt.Errorf("artifact without version")
	}
	if _, ok := ParseVersion(a.Version); !ok {
		return fmt.Errorf("artifact version %q is not of the form v<N>", a.Version)
	}
	if a.Regressor == nil || a.Scaler == nil {
		return fmt.Errorf("artifact %s: regressor and scaler are required", a.Version)
	}
	if names := a.Metadata.FeatureNames; len(names) > 0 && !slices.Equal(names, features.Names) {
		return fmt.Errorf("artifact %s: %w: trained on %d named features, expected %d", a.Version, ErrFeatureSkew, len(names), features.Len)
	}
	for part, c := range map[string]any{"regressor": a.Regressor, "scaler": a.Scaler} {
		if w, ok := c.(regression.Widther); ok && w.Width() != features.Len {
			return fmt.Errorf("artifact %s: %w: %s expects %d features, expected %d", a.Version, ErrFeatureSkew, part, w.Width(), features.Len)
		}
	}
	return nil
}

// ParseVersion returns N for a "v<N>" label.
func ParseVersion(v string) (int, bool) {
	rest, ok := strings.CutPrefix(v, "v")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// FormatVersion is the inverse of ParseVersion.
func FormatVersion(n int) string { return "v" + strconv.Itoa(n) }

// SortVersions drops labels that are not versions and orders the rest
// numerically, newest first.
func SortVersions(labels []string) []string {
	type pair struct {
		label string
		n     int
	}
	ps := make([]pair, 0, len(labels))
	for _, l := range labels {
		if n, ok := ParseVersion(l); ok {
			ps = append(ps, pair{l, n})
		}
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].n > ps[j].n })
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.label
	}
	return out
}
