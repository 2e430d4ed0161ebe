package model_selection

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// CurveSummary reduces a ValidationCurveResult to per-parameter statistics.
// Standard deviations are population (biased) deviations across folds.
type CurveSummary struct {
	ParamName   string    `json:"param_name"`
	ParamValues []float64 `json:"param_values"`
	TrainMean   []float64 `json:"train_mean"`
	TrainStd    []float64 `json:"train_std"`
	TestMean    []float64 `json:"test_mean"`
	TestStd     []float64 `json:"test_std"`
	FitTimeMean []float64 `json:"fit_time_mean"`
}

// Summarize computes the mean and population standard deviation of the
// training and test scores of every parameter value. A single fold yields a
// standard deviation of 0.
func Summarize(r *ValidationCurveResult) (*CurveSummary, error) {
	if r == nil || len(r.ParamValues) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Summarize")
	}
	n := len(r.ParamValues)
	if len(r.TrainScores) != n || len(r.TestScores) != n {
		return nil, errors.NewDimensionError("Summarize", n, len(r.TrainScores), 0)
	}

	s := &CurveSummary{
		ParamName:   r.ParamName,
		ParamValues: append([]float64(nil), r.ParamValues...),
		TrainMean:   make([]float64, n),
		TrainStd:    make([]float64, n),
		TestMean:    make([]float64, n),
		TestStd:     make([]float64, n),
		FitTimeMean: make([]float64, n),
	}
	for p := 0; p < n; p++ {
		if len(r.TrainScores[p]) == 0 || len(r.TestScores[p]) == 0 {
			return nil, errors.Wrapf(errors.ErrEmptyData, "Summarize: no scores for %s=%g", r.ParamName, r.ParamValues[p])
		}
		s.TrainMean[p], s.TrainStd[p] = meanStd(r.TrainScores[p])
		s.TestMean[p], s.TestStd[p] = meanStd(r.TestScores[p])
		if p < len(r.FitTimes) && len(r.FitTimes[p]) > 0 {
			s.FitTimeMean[p] = stat.Mean(r.FitTimes[p], nil)
		}
	}

	for _, v := range [][]float64{s.TrainMean, s.TrainStd, s.TestMean, s.TestStd} {
		if err := errors.CheckNumericalStability("curve_summary", v, 0); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func meanStd(x []float64) (float64, float64) {
	mean, variance := stat.PopMeanVariance(x, nil)
	return mean, math.Sqrt(math.Max(variance, 0))
}

// Regime classifies one point of a validation curve.
type Regime string

const (
	RegimeUnderfitting Regime = "underfitting"
	RegimeGood         Regime = "good"
	RegimeOverfitting  Regime = "overfitting"
)

// Thresholds used by Diagnose.
const (
	// OverfitGap is the train-minus-validation gap above which a point is overfitting.
	OverfitGap = 0.1
	// UnderfitScore is the training score below which a point is underfitting.
	UnderfitScore = 0.8
)

// Diagnosis summarizes where a validation curve peaks and how each point behaves.
type Diagnosis struct {
	BestIndex      int       `json:"best_index"`
	BestValue      float64   `json:"best_value"`
	BestTestScore  float64   `json:"best_test_score"`
	BestTrainScore float64   `json:"best_train_score"`
	OnBoundary     bool      `json:"on_boundary"`
	Gap            []float64 `json:"gap"`
	Regimes        []Regime  `json:"regimes"`
}

// Diagnose finds the parameter value with the highest mean validation score
// (the first one on ties) and labels every point. A point is underfitting
// when its training score is below UnderfitScore, overfitting when the
// training score exceeds the validation score by more than OverfitGap, and
// good otherwise. OnBoundary reports a best value at either end of the grid,
// which suggests widening the range.
//
// A nil or empty summary yields ErrEmptyData and mean slices shorter than
// ParamValues a DimensionError.
func Diagnose(s *CurveSummary) (Diagnosis, error) {
	if s == nil || len(s.ParamValues) == 0 {
		return Diagnosis{}, errors.Wrap(errors.ErrEmptyData, "Diagnose")
	}
	n := len(s.ParamValues)
	for _, v := range [][]float64{s.TrainMean, s.TestMean} {
		if len(v) != n {
			return Diagnosis{}, errors.NewDimensionError("Diagnose", n, len(v), 0)
		}
	}
	d := Diagnosis{
		Gap:     make([]float64, n),
		Regimes: make([]Regime, n),
	}
	for p := 0; p < n; p++ {
		if s.TestMean[p] > s.TestMean[d.BestIndex] {
			d.BestIndex = p
		}
		d.Gap[p] = s.TrainMean[p] - s.TestMean[p]
		switch {
		case s.TrainMean[p] < UnderfitScore:
			d.Regimes[p] = RegimeUnderfitting
		case d.Gap[p] > OverfitGap:
			d.Regimes[p] = RegimeOverfitting
		default:
			d.Regimes[p] = RegimeGood
		}
	}
	d.BestValue = s.ParamValues[d.BestIndex]
	d.BestTestScore = s.TestMean[d.BestIndex]
	d.BestTrainScore = s.TrainMean[d.BestIndex]
	d.OnBoundary = n > 1 && (d.BestIndex == 0 || d.BestIndex == n-1)
	return d, nil
}
