package model_selection

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/core/model"
	"github.com/YuminosukeSato/valcurve/metrics"
	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// ScoreFunc evaluates a fitted estimator on (X, y). Higher is better.
type ScoreFunc func(est model.Predictor, X, y mat.Matrix) (float64, error)

// predictionScorer adapts a metric on (yTrue, yPred) to a ScoreFunc.
func predictionScorer(metric func(yTrue, yPred mat.Matrix) (float64, error)) ScoreFunc {
	return func(est model.Predictor, X, y mat.Matrix) (float64, error) {
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		return metric(y, pred)
	}
}

var scorers = map[string]ScoreFunc{
	"accuracy":          predictionScorer(metrics.AccuracyScore),
	"balanced_accuracy": predictionScorer(metrics.BalancedAccuracyScore),
}

// ScorerNames returns the registered scorer names, sorted.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetScorer returns the scorer registered under name.
func GetScorer(name string) (ScoreFunc, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownScorer, "%q is not a valid scoring value (valid: %s)",
			name, strings.Join(ScorerNames(), ", "))
	}
	return s, nil
}

// estimatorScore uses the estimator's own Score method.
func estimatorScore(est model.Predictor, X, y mat.Matrix) (float64, error) {
	s, ok := est.(model.Scorer)
	if !ok {
		return 0, errors.NewValueError("estimatorScore", "estimator has no Score method; set a scoring name")
	}
	return s.Score(X, y)
}
