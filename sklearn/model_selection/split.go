// Package model_selection provides cross-validation splitters and the
// validation curve scorer.
package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// Splitter defines interface for cross-validation splitters
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold represents a single fold in cross-validation.
// Both index lists are sorted ascending.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int64) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

func (kf *KFold) String() string {
	return fmt.Sprintf("KFold(n_splits=%d, shuffle=%t, random_state=%d)", kf.NSplits, kf.Shuffle, kf.RandomSeed)
}

// Split generates train/test indices for each fold.
// The first n_samples % n_splits folds have one extra test sample.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if kf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", kf.NSplits)
	}
	if kf.NSplits > nSamples {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot have number of splits n_splits=%d greater than the number of samples: n_samples=%d", kf.NSplits, nSamples))
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := newRand(kf.RandomSeed)
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testFold := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for f := 0; f < kf.NSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			testFold[idx] = f
		}
		current += size
	}
	return foldsFromAssignment(testFold, kf.NSplits), nil
}

// StratifiedKFold implements stratified k-fold cross-validation.
// Each fold keeps approximately the class proportions of y.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int64) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

func (skf *StratifiedKFold) String() string {
	return fmt.Sprintf("StratifiedKFold(n_splits=%d, shuffle=%t, random_state=%d)", skf.NSplits, skf.Shuffle, skf.RandomSeed)
}

// Split generates stratified train/test indices for each fold.
//
// Per-fold class counts are obtained by dealing the label-sorted samples
// round-robin over the folds, so fold sizes differ by at most one. Within a
// class, samples are assigned to folds in index order, or in shuffled order
// when Shuffle is set. A FoldWarning is emitted when the smallest class has
// fewer members than n_splits.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if skf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", skf.NSplits)
	}
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y is required for stratification")
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yRows, 0)
	}

	// Group indices by class, classes sorted
	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	classes := make([]float64, 0, len(classIndices))
	for c := range classIndices {
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	minCount, maxCount := nSamples, 0
	for _, c := range classes {
		n := len(classIndices[c])
		minCount = min(minCount, n)
		maxCount = max(maxCount, n)
	}
	if skf.NSplits > maxCount {
		return nil, errors.NewValueError("StratifiedKFold.Split",
			fmt.Sprintf("n_splits=%d cannot be greater than the number of members in each class", skf.NSplits))
	}
	if skf.NSplits > minCount {
		errors.Warn(errors.NewFoldWarning("StratifiedKFold", skf.NSplits, minCount))
	}

	// allocation[f][k]: number of class k samples in fold f
	allocation := make([][]int, skf.NSplits)
	for f := range allocation {
		allocation[f] = make([]int, len(classes))
	}
	pos := 0
	for k, c := range classes {
		for t := 0; t < len(classIndices[c]); t++ {
			allocation[(pos+t)%skf.NSplits][k]++
		}
		pos += len(classIndices[c])
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = newRand(skf.RandomSeed)
	}
	testFold := make([]int, nSamples)
	for k, c := range classes {
		indices := classIndices[c]
		if r != nil {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		t := 0
		for f := 0; f < skf.NSplits; f++ {
			for n := 0; n < allocation[f][k]; n++ {
				testFold[indices[t]] = f
				t++
			}
		}
	}
	return foldsFromAssignment(testFold, skf.NSplits), nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// foldsFromAssignment builds folds from the test fold of every sample.
func foldsFromAssignment(testFold []int, nSplits int) []Fold {
	folds := make([]Fold, nSplits)
	for i, f := range testFold {
		folds[f].TestIndices = append(folds[f].TestIndices, i)
		for g := range folds {
			if g != f {
				folds[g].TrainIndices = append(folds[g].TrainIndices, i)
			}
		}
	}
	return folds
}

// extractSubset extracts the rows of X and y at the given indices.
func extractSubset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, nFeatures := X.Dims()
	XSub := mat.NewDense(len(indices), nFeatures, nil)
	ySub := mat.NewDense(len(indices), 1, nil)
	row := make([]float64, nFeatures)
	for i, idx := range indices {
		mat.Row(row, idx, X)
		XSub.SetRow(i, row)
		ySub.Set(i, 0, y.At(idx, 0))
	}
	return XSub, ySub
}
