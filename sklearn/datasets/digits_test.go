package datasets

import (
	"bytes"
	"compress/gzip"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/pkg/log"
)

func TestGenerateDigitsShape(t *testing.T) {
	ds, err := GenerateDigits(DefaultSamples, DefaultSeed)
	require.NoError(t, err)

	r, c := ds.X.Dims()
	assert.Equal(t, DefaultSamples, r)
	assert.Equal(t, NFeatures, c)
	assert.Equal(t, [2]int{8, 8}, ds.ImageShape)
	assert.Equal(t, SourceGenerated, ds.Source)

	assert.Equal(t, classWeights, ds.ClassCounts())

	for i := 0; i < r; i++ {
		var ink float64
		for _, v := range ds.X.RawRowView(i) {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, float64(MaxPixel))
			require.Equal(t, v, float64(int(v)), "pixels are integers")
			ink += v
		}
		require.Greater(t, ink, 0.0, "sample %d is blank", i)
	}

	// 最初の10サンプルは0-9の順
	for i := 0; i < NClasses; i++ {
		assert.Equal(t, float64(i), ds.Y.At(i, 0))
	}
}

func TestGenerateDigitsDeterministic(t *testing.T) {
	a, err := GenerateDigits(200, 7)
	require.NoError(t, err)
	b, err := GenerateDigits(200, 7)
	require.NoError(t, err)
	c, err := GenerateDigits(200, 8)
	require.NoError(t, err)

	assert.True(t, mat.Equal(a.X, b.X))
	assert.True(t, mat.Equal(a.Y, b.Y))
	assert.False(t, mat.Equal(a.X, c.X), "different seeds should render different images")
}

func TestGenerateDigitsClassesDiffer(t *testing.T) {
	ds, err := GenerateDigits(500, DefaultSeed)
	require.NoError(t, err)

	// クラスごとの平均画像が互いに十分離れていること
	var means [NClasses][NFeatures]float64
	counts := ds.ClassCounts()
	for i := 0; i < ds.NSamples(); i++ {
		c := int(ds.Y.At(i, 0))
		for j, v := range ds.X.RawRowView(i) {
			means[c][j] += v / float64(counts[c])
		}
	}
	for a := 0; a < NClasses; a++ {
		for b := a + 1; b < NClasses; b++ {
			var d2 float64
			for j := 0; j < NFeatures; j++ {
				d := means[a][j] - means[b][j]
				d2 += d * d
			}
			assert.Greater(t, d2, 25.0, "classes %d and %d look alike", a, b)
		}
	}
}

func TestGenerateDigitsHasAmbiguousSamples(t *testing.T) {
	labels := cycleLabels(classQuotas(DefaultSamples))
	ambiguous := 0
	for i, label := range labels {
		r := rand.New(rand.NewPCG(DefaultSeed, uint64(i)))
		shape := sampleShape(label, r)
		if shape != label {
			assert.Equal(t, lookAlike[label], shape)
			ambiguous++
		}
	}
	// 1797 * 0.04 ≈ 72
	assert.Greater(t, ambiguous, 30)
	assert.Less(t, ambiguous, 120)

	for c, other := range lookAlike {
		assert.NotEqual(t, c, other, "class %d must look like another digit", c)
	}
}

func TestGenerateDigitsInvalid(t *testing.T) {
	_, err := GenerateDigits(5, 1)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestClassQuotas(t *testing.T) {
	for _, n := range []int{10, 100, 333, 1797, 5000} {
		q := classQuotas(n)
		total := 0
		for _, v := range q {
			assert.Positive(t, v)
			total += v
		}
		assert.Equal(t, n, total)
	}
}

func TestReadWriteDigits(t *testing.T) {
	ds, err := GenerateDigits(30, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDigits(&buf, ds))

	got, err := ReadDigits(&buf)
	require.NoError(t, err)
	assert.True(t, mat.Equal(ds.X, got.X))
	assert.True(t, mat.Equal(ds.Y, got.Y))
}

func TestReadDigitsErrors(t *testing.T) {
	row := strings.Repeat("0,", NFeatures)
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"ragged", "0,1,2\n"},
		{"non integer", strings.Repeat("0,", NFeatures-1) + "x,3\n"},
		{"pixel out of range", strings.Repeat("0,", NFeatures-1) + "17,3\n"},
		{"label out of range", row + "10\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDigits(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := ReadDigits(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestLoadDigitsFileGzip(t *testing.T) {
	ds, err := GenerateDigits(20, 1)
	require.NoError(t, err)

	var raw bytes.Buffer
	require.NoError(t, WriteDigits(&raw, ds))

	dir := t.TempDir()
	path := filepath.Join(dir, "optdigits.tra.gz")
	var gzBuf bytes.Buffer
	zw := gzip.NewWriter(&gzBuf)
	_, err = zw.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, gzBuf.Bytes(), 0o644))

	got, err := LoadDigitsFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got.Source)
	assert.True(t, mat.Equal(ds.X, got.X))

	_, err = LoadDigitsFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestLoadDigitsResolution(t *testing.T) {
	dir := t.TempDir()
	prev := SearchDirectories
	SearchDirectories = []string{dir}
	t.Cleanup(func() { SearchDirectories = prev })

	t.Setenv(EnvDigitsPath, "")
	ds, err := LoadDigits()
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, ds.Source)
	assert.Equal(t, DefaultSamples, ds.NSamples())

	small, err := GenerateDigits(15, 2)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteDigits(&buf, small))
	path := filepath.Join(dir, "optdigits.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	ds, err = LoadDigits()
	require.NoError(t, err)
	assert.Equal(t, path, ds.Source)
	assert.Equal(t, 15, ds.NSamples())

	t.Setenv(EnvDigitsPath, filepath.Join(dir, "nope.csv"))
	_, err = LoadDigits()
	assert.Error(t, err, "an explicitly configured file must exist")
}

func TestLoadDigitsWarnsOnUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	prev := SearchDirectories
	SearchDirectories = []string{dir}
	t.Cleanup(func() { SearchDirectories = prev })
	t.Setenv(EnvDigitsPath, "")

	path := filepath.Join(dir, "optdigits.csv")
	require.NoError(t, os.WriteFile(path, []byte("not,a,digit\n"), 0o644))

	logger, _ := log.NewTestLogger(log.LevelDebug)
	log.SetLogger(logger)
	t.Cleanup(func() { log.SetLogger(nil) })

	ds, err := LoadDigits()
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, ds.Source)

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, path, entries[0][log.DataSourceKey])
	assert.NotEmpty(t, entries[0][log.ErrAttrKey])
}

func TestSubsetAndHead(t *testing.T) {
	ds, err := GenerateDigits(50, 1)
	require.NoError(t, err)

	sub, err := ds.Subset([]int{4, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.NSamples())
	assert.Equal(t, ds.X.RawRowView(4), sub.X.RawRowView(0))
	assert.Equal(t, []float64{4, 2}, sub.Labels())

	_, err = ds.Subset([]int{50})
	assert.Error(t, err)
	_, err = ds.Subset(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	head, err := ds.Head(10)
	require.NoError(t, err)
	assert.Equal(t, 10, head.NSamples())

	all, err := ds.Head(1000)
	require.NoError(t, err)
	assert.Same(t, ds, all)
}
