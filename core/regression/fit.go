package regression

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewSamples is returned when Fit cannot build a training set.
var ErrTooFewSamples = errors.New("too few samples")

// FitOptions tunes Fit.
type FitOptions struct {
	// TestFraction of the samples held out for evaluation. Zero disables the
	// holdout and leaves the test metrics unset.
	TestFraction float64
	// Seed drives the deterministic shuffle before the split.
	Seed uint64
	// Ridge is the L2 penalty added to every non-intercept coefficient. It
	// keeps the normal equations solvable when one-hot columns are collinear
	// with the intercept.
	Ridge float64
}

// FitReport summarises a training run.
type FitReport struct {
	Samples   int
	Train     int
	Test      int
	TrainRMSE float64
	TrainR2   float64
	TestRMSE  *float64
	TestR2    *float64
}

const defaultRidge = 1e-3

// Fit standardises x, fits a ridge-stabilised least squares model on net
// profit y and evaluates it on an optional holdout.
func Fit(x [][]float64, y []float64, opts FitOptions) (*LinearRegressor, *StandardScaler, FitReport, error) {
	if len(x) != len(y) {
		return nil, nil, FitReport{}, fmt.Errorf("fit: %d rows for %d targets", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, nil, FitReport{}, fmt.Errorf("fit: %w (%d)", ErrTooFewSamples, len(x))
	}
	width := len(x[0])
	for i, r := range x {
		if len(r) != width {
			return nil, nil, FitReport{}, fmt.Errorf("fit: row %d has %d columns, expected %d", i, len(r), width)
		}
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	nTest := 0
	if opts.TestFraction > 0 {
		nTest = int(math.Floor(float64(len(x)) * opts.TestFraction))
	}
	if len(x)-nTest < 2 {
		nTest = len(x) - 2
	}
	trainIdx, testIdx := order[nTest:], order[:nTest]

	trainX := pick(x, trainIdx)
	trainY := pickY(y, trainIdx)
	scaler := FitStandardScaler(trainX)

	ridge := opts.Ridge
	if ridge <= 0 {
		ridge = defaultRidge
	}
	model, err := solve(scaler, trainX, trainY, ridge)
	if err != nil {
		return nil, nil, FitReport{}, err
	}

	rep := FitReport{Samples: len(x), Train: len(trainIdx), Test: len(testIdx)}
	rep.TrainRMSE, rep.TrainR2 = evaluate(model, scaler, trainX, trainY)
	if len(testIdx) > 0 {
		rmse, r2 := evaluate(model, scaler, pick(x, testIdx), pickY(y, testIdx))
		rep.TestRMSE, rep.TestR2 = &rmse, &r2
	}
	return model, scaler, rep, nil
}

func solve(scaler *StandardScaler, x [][]float64, y []float64, ridge float64) (*LinearRegressor, error) {
	n, p := len(x), len(x[0])
	a := mat.NewDense(n, p+1, nil)
	for i, row := range x {
		a.Set(i, 0, 1)
		for j, v := range scaler.Transform(row) {
			a.Set(i, j+1, v)
		}
	}
	var ata mat.Dense
	ata.Mul(a.T(), a)
	for j := 1; j <= p; j++ {
		ata.Set(j, j, ata.At(j, j)+ridge)
	}
	var aty mat.VecDense
	aty.MulVec(a.T(), mat.NewVecDense(n, y))

	var beta mat.VecDense
	if err := beta.SolveVec(&ata, &aty); err != nil {
		return nil, fmt.Errorf("fit: solve normal equations: %w", err)
	}
	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.AtVec(j + 1)
	}
	return &LinearRegressor{Intercept: beta.AtVec(0), Coef: coef}, nil
}

func evaluate(model Regressor, scaler Scaler, x [][]float64, y []float64) (rmse, r2 float64) {
	est := make([]float64, len(x))
	var sq float64
	for i, row := range x {
		est[i] = model.Predict(scaler.Transform(row))
		d := est[i] - y[i]
		sq += d * d
	}
	rmse = math.Sqrt(sq / float64(len(x)))
	r2 = stat.RSquaredFrom(est, y, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		r2 = 0
	}
	return rmse, r2
}

func pick(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, k := range idx {
		out[i] = x[k]
	}
	return out
}

func pickY(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = y[k]
	}
	return out
}
