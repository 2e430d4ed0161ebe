// Package svm implements a kernel support-vector classifier.
//
// SVC solves the C-SVC dual with SMO and handles more than two classes by
// one-vs-one voting, following libsvm.
package svm

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/core/model"
	"github.com/YuminosukeSato/valcurve/core/parallel"
	"github.com/YuminosukeSato/valcurve/metrics"
	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/pkg/log"
)

// SVC is a C-support vector classifier.
// Compatible with scikit-learn's SVC (decision_function_shape="ovo").
type SVC struct {
	state  *model.StateManager
	id     string
	logger log.Logger

	// Hyperparameters
	c         float64 // Penalty of the error term
	kernel    string  // "rbf", "linear", "poly", "sigmoid"
	gamma     float64 // Kernel coefficient when gammaRule is ""
	gammaRule string  // "scale", "auto" or "" for an explicit value
	degree    int     // Degree of the polynomial kernel
	coef0     float64 // Independent term of poly and sigmoid kernels
	tol       float64 // Stopping tolerance of the solver
	maxIter   int     // Solver iteration cap per class pair, -1 for the default

	// Model parameters
	classes_        []float64
	gamma_          float64
	supportVectors_ *mat.Dense
	svNorms_        []float64
	nSupport_       []int
	pairs_          []pairModel
}

// pairModel is the binary decision function between classes a < b.
// Positive values vote for a.
type pairModel struct {
	a, b int
	sv   []int     // rows of supportVectors_
	coef []float64 // α_i y_i
	rho  float64
	iter int
}

// SVCOption is a functional option for SVC
type SVCOption func(*SVC)

// NewSVC creates a new SVC with scikit-learn's defaults:
// C=1, kernel="rbf", gamma="scale", degree=3, coef0=0, tol=1e-3, max_iter=-1.
func NewSVC(opts ...SVCOption) *SVC {
	s := &SVC{
		state:     model.NewStateManager("SVC"),
		id:        uuid.NewString(),
		c:         1.0,
		kernel:    KernelRBF,
		gammaRule: GammaScale,
		degree:    3,
		coef0:     0,
		tol:       1e-3,
		maxIter:   -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithC sets the penalty parameter C.
func WithC(c float64) SVCOption {
	return func(s *SVC) { s.c = c }
}

// WithGamma sets an explicit kernel coefficient.
func WithGamma(gamma float64) SVCOption {
	return func(s *SVC) {
		s.gamma = gamma
		s.gammaRule = ""
	}
}

// WithGammaRule derives gamma from the training data: GammaScale or GammaAuto.
func WithGammaRule(rule string) SVCOption {
	return func(s *SVC) { s.gammaRule = rule }
}

// WithKernel sets the kernel type.
func WithKernel(kernel string) SVCOption {
	return func(s *SVC) { s.kernel = kernel }
}

// WithDegree sets the degree of the polynomial kernel.
func WithDegree(degree int) SVCOption {
	return func(s *SVC) { s.degree = degree }
}

// WithCoef0 sets the independent term of the poly and sigmoid kernels.
func WithCoef0(coef0 float64) SVCOption {
	return func(s *SVC) { s.coef0 = coef0 }
}

// WithTol sets the stopping tolerance.
func WithTol(tol float64) SVCOption {
	return func(s *SVC) { s.tol = tol }
}

// WithMaxIter caps solver iterations per class pair. -1 uses max(1e7, 100·n).
func WithMaxIter(maxIter int) SVCOption {
	return func(s *SVC) { s.maxIter = maxIter }
}

// WithLogger sets the logger used for fit diagnostics.
func WithLogger(l log.Logger) SVCOption {
	return func(s *SVC) { s.logger = l }
}

func (s *SVC) fitLogger() log.Logger {
	l := s.logger
	if l == nil {
		l = log.GetLogger()
	}
	return l.With(log.ModelNameKey, "SVC", log.EstimatorIDKey, s.id)
}

func (s *SVC) validate() error {
	if !(s.c > 0) {
		return errors.NewValidationError("C", "must be positive", s.c)
	}
	if !validKernel(s.kernel) {
		return errors.NewValidationError("kernel", "must be one of rbf, linear, poly, sigmoid", s.kernel)
	}
	if s.kernel == KernelPoly && s.degree < 0 {
		return errors.NewValidationError("degree", "must be non-negative", s.degree)
	}
	if !(s.tol > 0) {
		return errors.NewValidationError("tol", "must be positive", s.tol)
	}
	if s.maxIter == 0 || s.maxIter < -1 {
		return errors.NewValidationError("max_iter", "must be positive or -1", s.maxIter)
	}
	return nil
}

// Fit trains the classifier. y must be an n×1 column of class labels.
func (s *SVC) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVC.Fit")
	start := time.Now()
	s.state.Reset()

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "SVC.Fit")
	}
	if yCols != 1 {
		return errors.NewValueError("SVC.Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}
	if nSamples != yRows {
		return errors.NewDimensionError("SVC.Fit", nSamples, yRows, 0)
	}
	if err := s.validate(); err != nil {
		return err
	}
	if err := errors.CheckMatrix("SVC.Fit", X, nSamples, nFeatures, 0); err != nil {
		return err
	}

	Xd := mat.DenseCopyOf(X)
	classes, byClass := groupByClass(y)
	if len(classes) < 2 {
		return errors.NewValueError("SVC.Fit",
			fmt.Sprintf("the number of classes has to be greater than one; got %d class", len(classes)))
	}

	gamma, err := resolveGamma(s.gammaRule, s.gamma, Xd)
	if err != nil {
		return err
	}
	k := kernel{kind: s.kernel, gamma: gamma, coef0: s.coef0, degree: s.degree}
	norms := rowNorms(Xd)
	K := k.gram(Xd, norms)

	pairs, isSV := s.solvePairs(classes, byClass, K, nSamples)

	// サポートベクタをクラス順に並べる
	svRow := make(map[int]int)
	nSupport := make([]int, len(classes))
	var svIdx []int
	for c, members := range byClass {
		for _, g := range members {
			if isSV[g] {
				svRow[g] = len(svIdx)
				svIdx = append(svIdx, g)
				nSupport[c]++
			}
		}
	}
	for p := range pairs {
		for t, g := range pairs[p].sv {
			pairs[p].sv[t] = svRow[g]
		}
	}

	sv := mat.NewDense(max(len(svIdx), 1), nFeatures, nil)
	svNorms := make([]float64, len(svIdx))
	for r, g := range svIdx {
		sv.SetRow(r, Xd.RawRowView(g))
		svNorms[r] = norms[g]
	}

	s.classes_ = classes
	s.gamma_ = gamma
	s.supportVectors_ = sv
	s.svNorms_ = svNorms
	s.nSupport_ = nSupport
	s.pairs_ = pairs
	s.state.SetFitted(nFeatures, nSamples)

	s.fitLogger().Debug("SVC fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		log.KernelKey, s.kernel,
		log.GammaKey, gamma,
		log.RegularizationKey, s.c,
		log.SupportVectorsKey, len(svIdx),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// solvePairs trains one binary problem per class pair on the shared Gram
// matrix K. Support vector indices in the returned models are global sample
// indices; isSV marks every sample that is a support vector of some pair.
func (s *SVC) solvePairs(classes []float64, byClass [][]int, K []float64, n int) ([]pairModel, []bool) {
	isSV := make([]bool, n)
	pairs := make([]pairModel, 0, len(classes)*(len(classes)-1)/2)

	for a := 0; a < len(classes); a++ {
		for b := a + 1; b < len(classes); b++ {
			idx := make([]int, 0, len(byClass[a])+len(byClass[b]))
			idx = append(idx, byClass[a]...)
			idx = append(idx, byClass[b]...)
			yPair := make([]float64, len(idx))
			for t := range idx {
				if t < len(byClass[a]) {
					yPair[t] = 1
				} else {
					yPair[t] = -1
				}
			}

			maxIter := s.maxIter
			if maxIter == -1 {
				maxIter = max(10_000_000, 100*len(idx))
			}
			sol := solveSMO(&binaryProblem{
				y:       yPair,
				k:       func(i, j int) float64 { return K[idx[i]*n+idx[j]] },
				c:       s.c,
				eps:     s.tol,
				maxIter: maxIter,
			})
			if !sol.converged {
				errors.Warn(errors.NewConvergenceWarning("SVC", sol.iter,
					fmt.Sprintf("solver for classes (%v, %v) reached max_iter", classes[a], classes[b])))
			}

			pm := pairModel{a: a, b: b, rho: sol.rho, iter: sol.iter}
			for t, alpha := range sol.alpha {
				if alpha > 0 {
					pm.sv = append(pm.sv, idx[t])
					pm.coef = append(pm.coef, alpha*yPair[t])
					isSV[idx[t]] = true
				}
			}
			pairs = append(pairs, pm)
		}
	}
	return pairs, isSV
}

// groupByClass returns the sorted distinct labels and the sample indices of each.
func groupByClass(y mat.Matrix) ([]float64, [][]int) {
	n, _ := y.Dims()
	members := make(map[float64][]int)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		members[v] = append(members[v], i)
	}
	classes := make([]float64, 0, len(members))
	for c := range members {
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	byClass := make([][]int, len(classes))
	for i, c := range classes {
		byClass[i] = members[c]
	}
	return classes, byClass
}

// DecisionFunction returns the pairwise decision values, one column per
// class pair in the order (0,1), (0,2), ..., (1,2), ...
// A positive value favours the first class of the pair.
func (s *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.CheckFeatures("DecisionFunction", X); err != nil {
		return nil, err
	}
	return s.decision(X), nil
}

func (s *SVC) decision(X mat.Matrix) *mat.Dense {
	nSamples, nFeatures := X.Dims()
	nSV := len(s.svNorms_)
	k := kernel{kind: s.kernel, gamma: s.gamma_, coef0: s.coef0, degree: s.degree}
	out := mat.NewDense(nSamples, len(s.pairs_), nil)

	parallel.ParallelizeWithThreshold(nSamples, gramThreshold, func(start, end int) {
		x := make([]float64, nFeatures)
		kv := make([]float64, nSV)
		for i := start; i < end; i++ {
			mat.Row(x, i, X)
			xNorm := 0.0
			for _, v := range x {
				xNorm += v * v
			}
			for r := 0; r < nSV; r++ {
				kv[r] = k.eval(x, s.supportVectors_.RawRowView(r), xNorm, s.svNorms_[r])
			}
			row := out.RawRowView(i)
			for p, pm := range s.pairs_ {
				var sum float64
				for t, r := range pm.sv {
					sum += pm.coef[t] * kv[r]
				}
				row[p] = sum - pm.rho
			}
		}
	})
	return out
}

// Predict returns the predicted class label of each row of X (n×1).
// Each pair casts one vote; ties go to the class with the smallest label.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.CheckFeatures("Predict", X); err != nil {
		return nil, err
	}
	dec := s.decision(X)
	nSamples, _ := X.Dims()
	out := mat.NewDense(nSamples, 1, nil)
	votes := make([]int, len(s.classes_))
	for i := 0; i < nSamples; i++ {
		for c := range votes {
			votes[c] = 0
		}
		for p, pm := range s.pairs_ {
			if dec.At(i, p) > 0 {
				votes[pm.a]++
			} else {
				votes[pm.b]++
			}
		}
		best := 0
		for c := 1; c < len(votes); c++ {
			if votes[c] > votes[best] {
				best = c
			}
		}
		out.Set(i, 0, s.classes_[best])
	}
	return out, nil
}

// Score returns the mean accuracy on the given test data and labels.
func (s *SVC) Score(X, y mat.Matrix) (float64, error) {
	pred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyScore(y, pred)
}

// Classes returns the sorted class labels seen during fitting.
func (s *SVC) Classes() []float64 {
	return append([]float64(nil), s.classes_...)
}

// NSupport returns the number of support vectors of each class.
func (s *SVC) NSupport() []int {
	return append([]int(nil), s.nSupport_...)
}

// SupportVectors returns a copy of the support vectors, grouped by class.
func (s *SVC) SupportVectors() (*mat.Dense, error) {
	if err := s.state.RequireFitted("SupportVectors"); err != nil {
		return nil, err
	}
	if len(s.svNorms_) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "SVC.SupportVectors")
	}
	return mat.DenseCopyOf(s.supportVectors_), nil
}

// FittedGamma returns the kernel coefficient used by the last fit.
func (s *SVC) FittedGamma() float64 {
	return s.gamma_
}

// NIter returns the solver iterations of each class pair.
func (s *SVC) NIter() []int {
	it := make([]int, len(s.pairs_))
	for p, pm := range s.pairs_ {
		it[p] = pm.iter
	}
	return it
}

// IsFitted reports whether Fit has completed successfully.
func (s *SVC) IsFitted() bool {
	return s.state.IsFitted()
}

// GetParams returns the model hyperparameters.
func (s *SVC) GetParams(deep bool) map[string]interface{} {
	var gamma interface{} = s.gamma
	if s.gammaRule != "" {
		gamma = s.gammaRule
	}
	return map[string]interface{}{
		"C":        s.c,
		"kernel":   s.kernel,
		"gamma":    gamma,
		"degree":   s.degree,
		"coef0":    s.coef0,
		"tol":      s.tol,
		"max_iter": s.maxIter,
	}
}

// SetParams sets the model hyperparameters. "gamma" accepts a number or
// "scale" / "auto".
func (s *SVC) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "C":
			s.c, err = model.ParamFloat(key, value)
		case "kernel":
			s.kernel, err = model.ParamString(key, value)
		case "gamma":
			if rule, ok := value.(string); ok {
				if rule != GammaScale && rule != GammaAuto {
					return errors.NewValidationError(key, "must be a positive number, \"scale\" or \"auto\"", rule)
				}
				s.gammaRule = rule
				continue
			}
			s.gamma, err = model.ParamFloat(key, value)
			s.gammaRule = ""
		case "degree":
			s.degree, err = model.ParamInt(key, value)
		case "coef0":
			s.coef0, err = model.ParamFloat(key, value)
		case "tol":
			s.tol, err = model.ParamFloat(key, value)
		case "max_iter":
			s.maxIter, err = model.ParamInt(key, value)
		default:
			return errors.NewValidationError(key,
				"unknown parameter for SVC (valid: "+model.ParamNames(s.GetParams(false))+")", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted SVC with the same hyperparameters and logger.
func (s *SVC) Clone() model.SKLearnCompatible {
	return &SVC{
		state:     model.NewStateManager("SVC"),
		id:        uuid.NewString(),
		logger:    s.logger,
		c:         s.c,
		kernel:    s.kernel,
		gamma:     s.gamma,
		gammaRule: s.gammaRule,
		degree:    s.degree,
		coef0:     s.coef0,
		tol:       s.tol,
		maxIter:   s.maxIter,
	}
}

var (
	_ model.Classifier         = (*SVC)(nil)
	_ model.CloneableEstimator = (*SVC)(nil)
	_ model.DecisionFunctioner = (*SVC)(nil)
)
