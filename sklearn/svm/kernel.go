package svm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/valcurve/core/parallel"
	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// Kernel names accepted by WithKernel and SetParams("kernel", ...).
const (
	KernelRBF     = "rbf"
	KernelLinear  = "linear"
	KernelPoly    = "poly"
	KernelSigmoid = "sigmoid"
)

// Gamma rules accepted by WithGammaRule and SetParams("gamma", ...).
const (
	// GammaScale uses 1 / (n_features * X.var()).
	GammaScale = "scale"
	// GammaAuto uses 1 / n_features.
	GammaAuto = "auto"
)

// gramThreshold is the sample count below which the Gram matrix is built sequentially.
const gramThreshold = 64

// kernel evaluates K(a, b) for one kernel configuration.
type kernel struct {
	kind   string
	gamma  float64
	coef0  float64
	degree int
}

func validKernel(name string) bool {
	switch name {
	case KernelRBF, KernelLinear, KernelPoly, KernelSigmoid:
		return true
	}
	return false
}

// eval computes K(a, b). sqA and sqB are the squared norms of a and b,
// only used by the RBF kernel.
func (k kernel) eval(a, b []float64, sqA, sqB float64) float64 {
	dot := floats.Dot(a, b)
	switch k.kind {
	case KernelLinear:
		return dot
	case KernelPoly:
		return math.Pow(k.gamma*dot+k.coef0, float64(k.degree))
	case KernelSigmoid:
		return math.Tanh(k.gamma*dot + k.coef0)
	default:
		d2 := sqA + sqB - 2*dot
		if d2 < 0 {
			d2 = 0
		}
		return math.Exp(-k.gamma * d2)
	}
}

// rowNorms returns the squared Euclidean norm of every row of X.
func rowNorms(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	norms := make([]float64, n)
	for i := range norms {
		row := X.RawRowView(i)
		norms[i] = floats.Dot(row, row)
	}
	return norms
}

// gram computes the symmetric n×n kernel matrix of X, row-major.
// Rows are distributed across CPUs; each worker writes only its own rows.
func (k kernel) gram(X *mat.Dense, norms []float64) []float64 {
	n, _ := X.Dims()
	K := make([]float64, n*n)
	parallel.ParallelizeWithThreshold(n, gramThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			xi := X.RawRowView(i)
			row := K[i*n : (i+1)*n]
			for j := 0; j < n; j++ {
				row[j] = k.eval(xi, X.RawRowView(j), norms[i], norms[j])
			}
		}
	})
	return K
}

// resolveGamma turns the configured gamma into the value used for a fit.
func resolveGamma(rule string, value float64, X *mat.Dense) (float64, error) {
	_, nFeatures := X.Dims()
	switch rule {
	case "":
		if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, errors.NewValidationError("gamma", "must be positive", value)
		}
		return value, nil
	case GammaAuto:
		return 1 / float64(nFeatures), nil
	case GammaScale:
		_, variance := stat.PopMeanVariance(X.RawMatrix().Data, nil)
		if variance == 0 {
			return 1.0, nil
		}
		return 1 / (float64(nFeatures) * variance), nil
	default:
		return 0, errors.NewValidationError("gamma", "must be a positive number, \"scale\" or \"auto\"", rule)
	}
}
