package predictionlog

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// AccuracySummary aggregates resolved entries.
type AccuracySummary struct {
	N                  int     `json:"n_resolved_predictions"`
	MAE                float64 `json:"mae"`
	RMSE               float64 `json:"rmse"`
	AvgErrorPct        float64 `json:"avg_error_pct"`
	AvgPredictedMargin float64 `json:"avg_predicted_margin_pct"`
	AvgActualMargin    float64 `json:"avg_actual_margin_pct"`
}

// Summarize computes accuracy over the resolved entries in es. Values are
// rounded to 2 decimals.
func Summarize(es []Entry) AccuracySummary {
	var abs, sq, pct, pred, act []float64
	for _, e := range es {
		if !e.Resolved() || e.ProfitError == nil {
			continue
		}
		d := *e.ProfitError
		abs = append(abs, *e.AbsProfitError)
		sq = append(sq, d*d)
		pct = append(pct, *e.ProfitErrorPct)
		pred = append(pred, e.PredictedMarginPct)
		act = append(act, *e.ActualMarginPct)
	}
	if len(abs) == 0 {
		return AccuracySummary{}
	}
	return AccuracySummary{
		N:                  len(abs),
		MAE:                round2(stat.Mean(abs, nil)),
		RMSE:               round2(math.Sqrt(stat.Mean(sq, nil))),
		AvgErrorPct:        round2(stat.Mean(pct, nil)),
		AvgPredictedMargin: round2(stat.Mean(pred, nil)),
		AvgActualMargin:    round2(stat.Mean(act, nil)),
	}
}

// Interpret describes the summary for operators.
func (s AccuracySummary) Interpret() string {
	if s.N == 0 {
		return "No resolved predictions yet. Record job actuals to enable accuracy tracking."
	}
	e := math.Abs(s.AvgErrorPct)
	switch {
	case e < 5:
		return fmt.Sprintf("Excellent accuracy across %d jobs. Average error < 5%%.", s.N)
	case e < 15:
		return fmt.Sprintf("Good accuracy across %d jobs. Average error ~%.1f%%.", s.N, e)
	default:
		return fmt.Sprintf("Model drift detected across %d jobs. Consider retraining. Average error %.1f%%.", s.N, e)
	}
}

// Drifting reports whether the average error crossed the retraining line.
func (s AccuracySummary) Drifting() bool {
	return s.N > 0 && math.Abs(s.AvgErrorPct) >= 15
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
