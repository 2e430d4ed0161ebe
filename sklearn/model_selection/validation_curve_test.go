package model_selection

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/core/model"
	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/pkg/log"
	"github.com/YuminosukeSato/valcurve/sklearn/datasets"
	"github.com/YuminosukeSato/valcurve/sklearn/svm"
)

// meanRegressor predicts the training mean shifted by "offset".
// It panics in Fit when offset is negative, to exercise panic recovery.
type meanRegressor struct {
	offset float64
	mean   float64
}

func (m *meanRegressor) Fit(X, y mat.Matrix) error {
	if m.offset < 0 {
		panic("negative offset")
	}
	r, _ := y.Dims()
	m.mean = 0
	for i := 0; i < r; i++ {
		m.mean += y.At(i, 0) / float64(r)
	}
	return nil
}

func (m *meanRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.mean+m.offset)
	}
	return out, nil
}

func (m *meanRegressor) Score(X, y mat.Matrix) (float64, error) {
	return -m.offset, nil
}

func (m *meanRegressor) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{"offset": m.offset}
}

func (m *meanRegressor) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		if k != "offset" {
			return fmt.Errorf("unknown parameter %s", k)
		}
		m.offset = v.(float64)
	}
	return nil
}

func (m *meanRegressor) Clone() model.SKLearnCompatible {
	return &meanRegressor{offset: m.offset}
}

func smallDigits(t *testing.T, n int) (*mat.Dense, *mat.Dense) {
	t.Helper()
	ds, err := datasets.GenerateDigits(n, datasets.DefaultSeed)
	require.NoError(t, err)
	return ds.X, ds.Y
}

func TestValidationCurveShape(t *testing.T) {
	X, y := smallDigits(t, 200)
	params := []float64{1e-4, 1e-3, 1e-2}

	res, err := ValidationCurve(context.Background(), svm.NewSVC(), X, y, "gamma", params,
		WithCV(4), WithSeed(0))
	require.NoError(t, err)

	assert.Equal(t, "gamma", res.ParamName)
	assert.Equal(t, params, res.ParamValues)
	assert.Equal(t, "accuracy", res.Scoring)
	assert.Contains(t, res.Splitter, "StratifiedKFold")
	require.Len(t, res.TrainScores, 3)
	require.Len(t, res.TestScores, 3)
	assert.Equal(t, 4, res.NFolds())
	for p := range params {
		require.Len(t, res.TrainScores[p], 4)
		require.Len(t, res.TestScores[p], 4)
		for f := 0; f < 4; f++ {
			assert.GreaterOrEqual(t, res.TrainScores[p][f], 0.0)
			assert.LessOrEqual(t, res.TrainScores[p][f], 1.0)
			assert.GreaterOrEqual(t, res.TestScores[p][f], 0.0)
			assert.LessOrEqual(t, res.TestScores[p][f], 1.0)
			assert.Greater(t, res.FitTimes[p][f], 0.0)
		}
	}
}

func TestValidationCurveIndependentOfNJobs(t *testing.T) {
	X, y := smallDigits(t, 150)
	params := []float64{1e-3, 1e-2}

	run := func(nJobs int) *ValidationCurveResult {
		res, err := ValidationCurve(context.Background(), svm.NewSVC(), X, y, "gamma", params,
			WithCV(3), WithSeed(5), WithNJobs(nJobs))
		require.NoError(t, err)
		return res
	}

	seq := run(1)
	par := run(4)
	all := run(0)
	assert.Equal(t, seq.TrainScores, par.TrainScores)
	assert.Equal(t, seq.TestScores, par.TestScores)
	assert.Equal(t, seq.TestScores, all.TestScores)

	again := run(1)
	assert.Equal(t, seq.TestScores, again.TestScores, "same seed gives same curve")
}

func TestValidationCurveSinglePoint(t *testing.T) {
	X, y := smallDigits(t, 100)

	res, err := ValidationCurve(context.Background(), svm.NewSVC(), X, y, "gamma", []float64{1e-3},
		WithCV(2))
	require.NoError(t, err)
	require.Len(t, res.TestScores, 1)

	summary, err := Summarize(res)
	require.NoError(t, err)
	assert.Len(t, summary.TestMean, 1)
	assert.GreaterOrEqual(t, summary.TestStd[0], 0.0)
}

func TestValidationCurveErrors(t *testing.T) {
	X, y := smallDigits(t, 60)
	ctx := context.Background()

	t.Run("empty range", func(t *testing.T) {
		_, err := ValidationCurve(ctx, svm.NewSVC(), X, y, "gamma", nil)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})

	t.Run("unknown parameter", func(t *testing.T) {
		_, err := ValidationCurve(ctx, svm.NewSVC(), X, y, "alpha", []float64{1})
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})

	t.Run("unknown scorer", func(t *testing.T) {
		_, err := ValidationCurve(ctx, svm.NewSVC(), X, y, "gamma", []float64{1e-3}, WithScoring("r2"))
		assert.True(t, errors.Is(err, errors.ErrUnknownScorer))
	})

	t.Run("invalid parameter value fails the fit", func(t *testing.T) {
		_, err := ValidationCurve(ctx, svm.NewSVC(), X, y, "C", []float64{1, -1}, WithCV(2), WithNJobs(2))
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})

	t.Run("too many folds", func(t *testing.T) {
		_, err := ValidationCurve(ctx, svm.NewSVC(), X, y, "gamma", []float64{1e-3}, WithCV(10))
		var ve *errors.ValueError
		assert.True(t, errors.As(err, &ve), "60 samples have at most 6 per class")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ValidationCurve(cctx, svm.NewSVC(), X, y, "gamma", []float64{1e-3}, WithCV(2))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestValidationCurveRecoversPanics(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	_, err := ValidationCurve(context.Background(), &meanRegressor{}, X, y, "offset", []float64{0, -1},
		WithCV(2), WithScoring(""), WithNJobs(2))
	var panicErr *errors.PanicError
	require.True(t, errors.As(err, &panicErr), "got %v", err)
	assert.Contains(t, panicErr.Operation, "offset=-1")
}

func TestValidationCurveEstimatorScore(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	res, err := ValidationCurve(context.Background(), &meanRegressor{}, X, y, "offset", []float64{0, 2},
		WithCV(4), WithScoring(""))
	require.NoError(t, err)
	assert.Contains(t, res.Splitter, "KFold(n_splits=4, shuffle=false")
	assert.Equal(t, []float64{-2, -2, -2, -2}, res.TestScores[1])
}

func TestValidationCurveLogs(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	X, y := smallDigits(t, 60)

	_, err := ValidationCurve(context.Background(), svm.NewSVC(svm.WithLogger(logger)), X, y, "gamma",
		[]float64{1e-3}, WithCV(3), WithCurveLogger(logger), WithNJobs(3))
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Validation curve started"))
	assert.True(t, logger.ContainsMessage("Validation curve finished"))
	assert.Equal(t, 3, logger.CountField(log.OperationKey, log.OperationValidationCurve)-2,
		"one debug entry per fold plus start and finish")

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	var curveID interface{}
	for _, e := range entries {
		if e[log.OperationKey] != log.OperationValidationCurve {
			continue
		}
		assert.NotContains(t, e, log.RunIDKey, "run.id belongs to the caller")
		require.Contains(t, e, log.CVRunIDKey)
		if curveID == nil {
			curveID = e[log.CVRunIDKey]
		}
		assert.Equal(t, curveID, e[log.CVRunIDKey], "one id per curve")
	}
	require.NotNil(t, curveID)
}

func TestValidationCurveKeepsCallerRunID(t *testing.T) {
	base, _ := log.NewTestLogger(log.LevelDebug)
	logger := base.With(log.RunIDKey, "cli-run")
	X, y := smallDigits(t, 60)

	_, err := ValidationCurve(context.Background(), svm.NewSVC(), X, y, "gamma",
		[]float64{1e-3}, WithCV(3), WithCurveLogger(logger))
	require.NoError(t, err)

	entries, err := base.GetLogEntries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "cli-run", e[log.RunIDKey])
		assert.NotEqual(t, "cli-run", e[log.CVRunIDKey])
	}
}

// TestValidationCurveDigits reproduces the classic SVM validation curve on the
// built-in digits: training accuracy rises with gamma while validation
// accuracy peaks inside the grid below a perfect score.
func TestValidationCurveDigits(t *testing.T) {
	if testing.Short() {
		t.Skip("fits 50 SVMs on 1797 samples")
	}
	ds, err := datasets.GenerateDigits(datasets.DefaultSamples, datasets.DefaultSeed)
	require.NoError(t, err)
	params, err := LogSpace(-6, -1, 5)
	require.NoError(t, err)

	res, err := ValidationCurve(context.Background(), svm.NewSVC(), ds.X, ds.Y, "gamma", params,
		WithCV(10), WithSeed(0), WithNJobs(0))
	require.NoError(t, err)
	summary, err := Summarize(res)
	require.NoError(t, err)

	for p := 1; p < len(params); p++ {
		assert.GreaterOrEqual(t, summary.TrainMean[p], summary.TrainMean[p-1]-1e-12,
			"training score at %g", params[p])
	}
	d, err := Diagnose(summary)
	require.NoError(t, err)
	assert.False(t, d.OnBoundary, "validation peak at %g", d.BestValue)
	last := len(params) - 1
	assert.Less(t, summary.TestMean[0], d.BestTestScore)
	assert.Less(t, summary.TestMean[last], d.BestTestScore)
	assert.Equal(t, RegimeOverfitting, d.Regimes[last])
	// 見間違えやすいサンプルがあるので検証精度は飽和しない
	assert.Less(t, d.BestTestScore, 0.995)
	assert.Greater(t, summary.TestStd[d.BestIndex], 0.0)
}
