// Package datasets provides the 8×8 handwritten digits dataset.
//
// LoadDigits looks for the UCI optdigits files first and falls back to a
// deterministic generator that renders glyphs with the same shape, pixel
// range and class balance as the classic dataset.
package datasets

import (
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/pkg/log"
)

const (
	// ImageSize is the side length of a digit image.
	ImageSize = 8
	// NFeatures is the number of pixel features per sample.
	NFeatures = ImageSize * ImageSize
	// MaxPixel is the largest pixel value (number of on-pixels in a 4×4 block).
	MaxPixel = 16
	// NClasses is the number of digit classes.
	NClasses = 10
	// DefaultSamples is the size of the classic digits dataset.
	DefaultSamples = 1797
	// DefaultSeed seeds the built-in generator used by LoadDigits.
	DefaultSeed uint64 = 20050

	// EnvDigitsPath names an optdigits file to load instead of the built-in data.
	EnvDigitsPath = "VALCURVE_DIGITS"

	// SourceGenerated is the Source of datasets produced by GenerateDigits.
	SourceGenerated = "generated"
)

// Dataset is a labeled set of digit images. It is not modified after loading.
type Dataset struct {
	// X holds one flattened image per row (n × 64), values in [0, 16].
	X *mat.Dense
	// Y holds the class label (0-9) of each row (n × 1).
	Y *mat.Dense
	// ImageShape is the (rows, cols) shape of one image.
	ImageShape [2]int
	// Source is the file the data came from, or "generated".
	Source string
}

// NSamples returns the number of samples.
func (d *Dataset) NSamples() int {
	r, _ := d.X.Dims()
	return r
}

// Labels returns a copy of the labels as a slice.
func (d *Dataset) Labels() []float64 {
	return mat.Col(nil, 0, d.Y)
}

// ClassCounts returns the number of samples of each digit.
func (d *Dataset) ClassCounts() [NClasses]int {
	var counts [NClasses]int
	n := d.NSamples()
	for i := 0; i < n; i++ {
		counts[int(d.Y.At(i, 0))]++
	}
	return counts
}

// Subset returns a new dataset holding the given rows, in the given order.
func (d *Dataset) Subset(indices []int) (*Dataset, error) {
	if len(indices) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Subset")
	}
	n := d.NSamples()
	X := mat.NewDense(len(indices), NFeatures, nil)
	Y := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, errors.NewValidationError("indices", "index out of range", idx)
		}
		X.SetRow(i, d.X.RawRowView(idx))
		Y.Set(i, 0, d.Y.At(idx, 0))
	}
	return &Dataset{X: X, Y: Y, ImageShape: d.ImageShape, Source: d.Source}, nil
}

// Head returns the first n samples. n larger than the dataset returns it unchanged.
func (d *Dataset) Head(n int) (*Dataset, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("n", "must be positive", n)
	}
	if n >= d.NSamples() {
		return d, nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.Subset(idx)
}

func userHomeDir() string {
	dirname, err := os.UserHomeDir()
	if err != nil {
		return "~"
	}
	return dirname
}

// SearchDirectories are scanned in order by LoadDigits for optdigits files.
var SearchDirectories = []string{
	"/tmp/optdigits",
	filepath.Join(userHomeDir(), ".valcurve"),
}

// Candidate file names, the UCI training and test splits and their union.
var digitFiles = []string{"optdigits.csv", "optdigits.csv.gz", "optdigits.tra", "optdigits.tra.gz"}

// LoadDigits returns the digits dataset.
//
// Resolution order: the file named by $VALCURVE_DIGITS, the first optdigits
// file found in SearchDirectories, then GenerateDigits(DefaultSamples, DefaultSeed).
// An explicitly configured file that fails to load is an error; a file found
// by searching that fails to parse is logged at Warn and skipped.
func LoadDigits() (*Dataset, error) {
	if path := os.Getenv(EnvDigitsPath); path != "" {
		return LoadDigitsFile(path)
	}
	if path, ok := findDigitsFile(SearchDirectories); ok {
		ds, err := LoadDigitsFile(path)
		if err == nil {
			return ds, nil
		}
		log.GetLogger().Warn("Ignoring unreadable digits file, using generated digits", err,
			log.DataSourceKey, path)
	}
	return GenerateDigits(DefaultSamples, DefaultSeed)
}

// findDigitsFile returns the first existing candidate file in dirs.
func findDigitsFile(dirs []string) (string, bool) {
	for _, dir := range dirs {
		for _, name := range digitFiles {
			p := filepath.Join(dir, name)
			if st, err := os.Stat(p); err == nil && !st.IsDir() {
				return p, true
			}
		}
	}
	return "", false
}
