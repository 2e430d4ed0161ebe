package model_selection

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/core/model"
	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/pkg/log"
)

// DefaultNSplits is the number of folds used when WithCV is not given.
const DefaultNSplits = 5

// ValidationCurveResult holds per-fold scores for every parameter value.
// All matrices are indexed [param][fold].
type ValidationCurveResult struct {
	ParamName   string      `json:"param_name"`
	ParamValues []float64   `json:"param_values"`
	TrainScores [][]float64 `json:"train_scores"`
	TestScores  [][]float64 `json:"test_scores"`
	FitTimes    [][]float64 `json:"fit_times"`   // seconds
	ScoreTimes  [][]float64 `json:"score_times"` // seconds
	Splitter    string      `json:"splitter"`
	Scoring     string      `json:"scoring"`
}

// NFolds returns the number of folds per parameter value.
func (r *ValidationCurveResult) NFolds() int {
	if len(r.TrainScores) == 0 {
		return 0
	}
	return len(r.TrainScores[0])
}

type curveConfig struct {
	nSplits  int
	splitter Splitter
	scoring  string
	nJobs    int
	seed     int64
	logger   log.Logger
}

// CurveOption is a functional option for ValidationCurve
type CurveOption func(*curveConfig)

// WithCV sets the number of folds. Classifiers are split with
// StratifiedKFold, other estimators with KFold.
func WithCV(nSplits int) CurveOption {
	return func(c *curveConfig) { c.nSplits = nSplits }
}

// WithSplitter sets an explicit splitter, overriding WithCV and WithSeed.
func WithSplitter(s Splitter) CurveOption {
	return func(c *curveConfig) { c.splitter = s }
}

// WithScoring selects a registered scorer by name. "" uses the estimator's
// Score method.
func WithScoring(name string) CurveOption {
	return func(c *curveConfig) { c.scoring = name }
}

// WithNJobs bounds the number of concurrent fits. 1 runs sequentially,
// values <= 0 use one job per CPU.
func WithNJobs(n int) CurveOption {
	return func(c *curveConfig) { c.nJobs = n }
}

// WithSeed shuffles the folds with the given seed. A negative seed keeps
// samples in their original order.
func WithSeed(seed int64) CurveOption {
	return func(c *curveConfig) { c.seed = seed }
}

// WithCurveLogger sets the logger for progress messages.
func WithCurveLogger(l log.Logger) CurveOption {
	return func(c *curveConfig) { c.logger = l }
}

func (c *curveConfig) resolveSplitter(est model.Estimator) Splitter {
	if c.splitter != nil {
		return c.splitter
	}
	shuffle := c.seed >= 0
	seed := max(c.seed, 0)
	if _, ok := est.(model.Classifier); ok {
		return NewStratifiedKFold(c.nSplits, shuffle, seed)
	}
	return NewKFold(c.nSplits, shuffle, seed)
}

// ValidationCurve computes training and test scores of est for every value
// of one hyperparameter.
//
// For each (value, fold) pair a fresh clone of est gets the parameter set,
// is fitted on the training part and scored on both parts. Pairs run
// concurrently up to the NJobs limit; the first failure cancels the rest.
// Results are placed by (value, fold) index, so they do not depend on NJobs.
func ValidationCurve(ctx context.Context, est model.CloneableEstimator, X, y mat.Matrix,
	paramName string, paramRange []float64, opts ...CurveOption) (*ValidationCurveResult, error) {

	cfg := &curveConfig{nSplits: DefaultNSplits, scoring: "accuracy", nJobs: 1, seed: -1}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = log.GetLogger()
	}
	logger = logger.With(
		log.ComponentKey, "model_selection",
		log.OperationKey, log.OperationValidationCurve,
		log.ParamNameKey, paramName,
	)

	nSamples, nFeatures := X.Dims()
	if len(paramRange) == 0 {
		return nil, errors.NewValidationError("param_range", "must not be empty", paramRange)
	}
	if yRows, yCols := y.Dims(); yRows != nSamples || yCols != 1 {
		return nil, errors.NewDimensionError("ValidationCurve", nSamples, yRows, 0)
	}
	if _, ok := est.GetParams(true)[paramName]; !ok {
		return nil, errors.NewValidationError("param_name",
			"unknown parameter (valid: "+model.ParamNames(est.GetParams(true))+")", paramName)
	}

	score := estimatorScore
	if cfg.scoring != "" {
		s, err := GetScorer(cfg.scoring)
		if err != nil {
			return nil, err
		}
		score = s
	}

	nJobs := cfg.nJobs
	if nJobs <= 0 {
		nJobs = runtime.NumCPU()
	}

	splitter := cfg.resolveSplitter(est)
	folds, err := splitter.Split(X, y)
	if err != nil {
		return nil, err
	}

	// 各foldのデータは全パラメータで共有する（読み取り専用）
	type foldData struct {
		XTrain, yTrain, XTest, yTest *mat.Dense
	}
	data := make([]foldData, len(folds))
	for f, fold := range folds {
		data[f].XTrain, data[f].yTrain = extractSubset(X, y, fold.TrainIndices)
		data[f].XTest, data[f].yTest = extractSubset(X, y, fold.TestIndices)
	}

	nParams, nFolds := len(paramRange), len(folds)
	result := &ValidationCurveResult{
		ParamName:   paramName,
		ParamValues: append([]float64(nil), paramRange...),
		TrainScores: newGrid(nParams, nFolds),
		TestScores:  newGrid(nParams, nFolds),
		FitTimes:    newGrid(nParams, nFolds),
		ScoreTimes:  newGrid(nParams, nFolds),
		Splitter:    fmt.Sprint(splitter),
		Scoring:     cfg.scoring,
	}

	runID := uuid.NewString()
	logger = logger.With(log.CVRunIDKey, runID)
	logger.Info("Validation curve started",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.NSplitsKey, nFolds,
		log.NJobsKey, nJobs,
		"n_params", nParams,
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nJobs)
	for p, value := range paramRange {
		for f := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				op := fmt.Sprintf("%s=%g fold %d", paramName, value, f)
				err := errors.SafeExecute(op, func() error {
					d := data[f]
					fitted, fitTime, err := fitOne(est, paramName, value, d.XTrain, d.yTrain)
					if err != nil {
						return err
					}
					scoreStart := time.Now()
					trainScore, err := score(fitted, d.XTrain, d.yTrain)
					if err != nil {
						return err
					}
					testScore, err := score(fitted, d.XTest, d.yTest)
					if err != nil {
						return err
					}
					if err := errors.CheckNumericalStability("score", []float64{trainScore, testScore}, f); err != nil {
						return err
					}

					result.TrainScores[p][f] = trainScore
					result.TestScores[p][f] = testScore
					result.FitTimes[p][f] = fitTime.Seconds()
					result.ScoreTimes[p][f] = time.Since(scoreStart).Seconds()

					logger.Debug("Fold scored",
						log.ParamValueKey, value,
						log.FoldKey, f,
						log.TrainScoreKey, trainScore,
						log.TestScoreKey, testScore,
						log.DurationMsKey, fitTime.Milliseconds(),
					)
					return nil
				})
				return errors.Wrapf(err, "validation curve %s", op)
			})
		}
	}
	if err := g.Wait(); err != nil {
		logger.Error("Validation curve failed", err)
		return nil, err
	}

	logger.Info("Validation curve finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return result, nil
}

// fitOne clones est, sets paramName=value and fits the clone.
func fitOne(est model.CloneableEstimator, paramName string, value float64, X, y mat.Matrix) (model.CloneableEstimator, time.Duration, error) {
	clone, err := model.CloneEstimator(est)
	if err != nil {
		return nil, 0, err
	}
	if err := clone.SetParams(map[string]interface{}{paramName: value}); err != nil {
		return nil, 0, err
	}
	start := time.Now()
	if err := clone.Fit(X, y); err != nil {
		return nil, 0, err
	}
	return clone, time.Since(start), nil
}

func newGrid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	backing := make([]float64, rows*cols)
	for i := range g {
		g[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return g
}
