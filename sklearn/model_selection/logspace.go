package model_selection

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// LogSpace returns num values spaced evenly on a log scale from 10^startExp
// to 10^stopExp inclusive, like numpy.logspace. num=1 returns [10^startExp].
// Integral exponents map to exact powers of ten.
func LogSpace(startExp, stopExp float64, num int) ([]float64, error) {
	if num < 1 {
		return nil, errors.NewValidationError("num", "must be at least 1", num)
	}
	if math.IsNaN(startExp) || math.IsInf(startExp, 0) || math.IsNaN(stopExp) || math.IsInf(stopExp, 0) {
		return nil, errors.NewValidationError("exponent", "must be finite", []float64{startExp, stopExp})
	}
	if num == 1 {
		return []float64{pow10(startExp)}, nil
	}
	if startExp >= stopExp {
		return nil, errors.NewValidationError("stopExp", "must be greater than startExp", stopExp)
	}

	exps := floats.Span(make([]float64, num), startExp, stopExp)
	out := make([]float64, num)
	for i, e := range exps {
		out[i] = pow10(e)
	}
	return out, nil
}

func pow10(e float64) float64 {
	if e == math.Trunc(e) && math.Abs(e) < 300 {
		return math.Pow10(int(e))
	}
	return math.Pow(10, e)
}
