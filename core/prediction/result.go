package prediction

import (
	"fmt"
	"sort"
	"strings"
)

type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

type Recommendation string

const (
	Accept Recommendation = "accept"
	Review Recommendation = "review"
	Reject Recommendation = "reject"
)

// Conservatism orders recommendations from least (accept) to most (reject)
// cautious.
func (r Recommendation) Conservatism() int {
	switch r {
	case Accept:
		return 0
	case Review:
		return 1
	default:
		return 2
	}
}

// Result is the outcome of one prediction. It is built once and never
// mutated afterwards.
type Result struct {
	NetProfit      float64            `json:"predicted_net_profit"`
	TotalCost      float64            `json:"predicted_total_cost"`
	MarginPct      float64            `json:"margin_pct"`
	Risk           RiskTier           `json:"risk_level"`
	Recommendation Recommendation     `json:"recommendation"`
	Importances    map[string]float64 `json:"feature_importances"`
	Explanation    string             `json:"explanation"`
	UsedModel      bool               `json:"used_ml_model"`
	// ModelVersion is empty when the fallback path ran.
	ModelVersion string `json:"model_version,omitempty"`
}

// Thresholds used by the shared risk rules, in percent and ratio.
const (
	HighRiskMargin   = 5.0
	MediumRiskMargin = 15.0
	FuelRatioLimit   = 0.50
)

// AssessRisk maps a margin and fuel-to-rate ratio to a risk tier and
// recommendation. Only non-positive margins are rejected outright.
func AssessRisk(marginPct, fuelRatio float64) (RiskTier, Recommendation) {
	switch {
	case marginPct < HighRiskMargin:
		if marginPct <= 0 {
			return RiskHigh, Reject
		}
		return RiskHigh, Review
	case marginPct < MediumRiskMargin || fuelRatio > FuelRatioLimit:
		return RiskMedium, Review
	default:
		return RiskLow, Accept
	}
}

func margin(profit, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return profit / rate * 100
}

type weighted struct {
	name   string
	weight float64
}

// topDrivers returns the n heaviest entries, ties broken by name.
func topDrivers(imp map[string]float64, n int) []weighted {
	ws := make([]weighted, 0, len(imp))
	for k, v := range imp {
		ws = append(ws, weighted{k, v})
	}
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].weight != ws[j].weight {
			return ws[i].weight > ws[j].weight
		}
		return ws[i].name < ws[j].name
	})
	if len(ws) > n {
		ws = ws[:n]
	}
	return ws
}

func explain(marginPct float64, risk RiskTier, imp map[string]float64, usedModel bool) string {
	tag := "rule-based engine (no trained model yet)"
	if usedModel {
		tag = "trained model"
	}
	top := topDrivers(imp, 3)
	parts := make([]string, len(top))
	for i, w := range top {
		parts[i] = fmt.Sprintf("%s (%.1f%%)", w.name, w.weight*100)
	}
	return fmt.Sprintf("Prediction via %s. Estimated margin: %.1f%%. Risk level: %s. Top cost drivers: %s.",
		tag, marginPct, risk, strings.Join(parts, ", "))
}
