package model_selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

func TestSummarize(t *testing.T) {
	res := &ValidationCurveResult{
		ParamName:   "gamma",
		ParamValues: []float64{0.1, 1},
		TrainScores: [][]float64{{0.5, 0.7}, {1, 1}},
		TestScores:  [][]float64{{0.4, 0.6}, {0.2, 0.1}},
		FitTimes:    [][]float64{{1, 3}, {2, 2}},
	}

	s, err := Summarize(res)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6, 1}, s.TrainMean, 1e-12)
	// 母標準偏差: |a-b|/2
	assert.InDeltaSlice(t, []float64{0.1, 0}, s.TrainStd, 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0.15}, s.TestMean, 1e-12)
	assert.InDeltaSlice(t, []float64{0.1, 0.05}, s.TestStd, 1e-12)
	assert.Equal(t, []float64{2, 2}, s.FitTimeMean)
	assert.Equal(t, "gamma", s.ParamName)
}

func TestSummarizeSingleFold(t *testing.T) {
	res := &ValidationCurveResult{
		ParamValues: []float64{1},
		TrainScores: [][]float64{{0.9}},
		TestScores:  [][]float64{{0.8}},
	}
	s, err := Summarize(res)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.TrainStd[0])
	assert.Equal(t, 0.0, s.TestStd[0])
	assert.False(t, math.IsNaN(s.TestStd[0]))
}

func TestSummarizeErrors(t *testing.T) {
	_, err := Summarize(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = Summarize(&ValidationCurveResult{
		ParamValues: []float64{1, 2},
		TrainScores: [][]float64{{1}},
		TestScores:  [][]float64{{1}},
	})
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	_, err = Summarize(&ValidationCurveResult{
		ParamValues: []float64{1},
		TrainScores: [][]float64{{math.NaN()}},
		TestScores:  [][]float64{{1}},
	})
	var ni *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ni))
}

func TestDiagnose(t *testing.T) {
	s := &CurveSummary{
		ParamValues: []float64{1e-6, 1e-4, 1e-2, 1},
		TrainMean:   []float64{0.2, 0.95, 1.0, 1.0},
		TestMean:    []float64{0.18, 0.93, 0.96, 0.1},
	}
	d, err := Diagnose(s)
	require.NoError(t, err)
	assert.Equal(t, 2, d.BestIndex)
	assert.Equal(t, 1e-2, d.BestValue)
	assert.Equal(t, 0.96, d.BestTestScore)
	assert.Equal(t, 1.0, d.BestTrainScore)
	assert.False(t, d.OnBoundary)
	assert.Equal(t, []Regime{RegimeUnderfitting, RegimeGood, RegimeGood, RegimeOverfitting}, d.Regimes)
	assert.InDelta(t, 0.9, d.Gap[3], 1e-12)

	edge, err := Diagnose(&CurveSummary{
		ParamValues: []float64{1, 2},
		TrainMean:   []float64{1, 1},
		TestMean:    []float64{0.9, 0.5},
	})
	require.NoError(t, err)
	assert.True(t, edge.OnBoundary)
	assert.Equal(t, 0, edge.BestIndex)

	single, err := Diagnose(&CurveSummary{
		ParamValues: []float64{1},
		TrainMean:   []float64{1},
		TestMean:    []float64{0.9},
	})
	require.NoError(t, err)
	assert.False(t, single.OnBoundary)
}

func TestDiagnoseErrors(t *testing.T) {
	_, err := Diagnose(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = Diagnose(&CurveSummary{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	var dim *errors.DimensionError
	_, err = Diagnose(&CurveSummary{
		ParamValues: []float64{1, 2, 3},
		TrainMean:   []float64{1, 1, 1},
		TestMean:    []float64{0.9},
	})
	assert.True(t, errors.As(err, &dim))

	_, err = Diagnose(&CurveSummary{
		ParamValues: []float64{1, 2},
		TestMean:    []float64{0.9, 0.8},
	})
	assert.True(t, errors.As(err, &dim), "missing training means")
}
