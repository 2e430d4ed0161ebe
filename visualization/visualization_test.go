package visualization

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/sklearn/model_selection"
)

func digitsLikeSummary() *model_selection.CurveSummary {
	return &model_selection.CurveSummary{
		ParamName:   "gamma",
		ParamValues: []float64{1e-6, 1.78e-5, 3.16e-4, 5.62e-3, 1e-1},
		TrainMean:   []float64{0.11, 0.89, 0.98, 1, 1},
		TrainStd:    []float64{0.01, 0.01, 0.002, 0, 0},
		TestMean:    []float64{0.10, 0.88, 0.96, 0.95, 0.12},
		TestStd:     []float64{0.01, 0.03, 0.02, 0.02, 0.01},
	}
}

func TestNewValidationCurvePlot(t *testing.T) {
	p, err := NewValidationCurvePlot(digitsLikeSummary())
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, p.Title.Text)
	assert.Equal(t, "γ", p.X.Label.Text)
	assert.Equal(t, "Score", p.Y.Label.Text)
	assert.IsType(t, plot.LogScale{}, p.X.Scale)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.Equal(t, 1.1, p.Y.Max)
	assert.Equal(t, 1e-6, p.X.Min)
	assert.Equal(t, 1e-1, p.X.Max)
	// 検証曲線は下半分で終わるので左上
	assert.True(t, p.Legend.Top)
	assert.True(t, p.Legend.Left)
}

func TestBandColor(t *testing.T) {
	band, err := newBand([]float64{1, 2}, []float64{0.5, 0.6}, []float64{0.1, 0.1}, TrainColor, 0, 1.1)
	require.NoError(t, err)
	require.Len(t, band.XYs, 1)
	assert.Equal(t, plotter.XYs{{X: 1, Y: 0.6}, {X: 2, Y: 0.7}, {X: 2, Y: 0.5}, {X: 1, Y: 0.4}}, band.XYs[0])
	assert.Equal(t, color.NRGBA{R: 255, A: 51}, band.Color)
}

func TestBandClippedToYRange(t *testing.T) {
	band, err := newBand([]float64{1, 2}, []float64{0.05, 0.95}, []float64{0.1, 0.2}, TestColor, 0, 1.1)
	require.NoError(t, err)
	require.Len(t, band.XYs, 1)
	for _, pt := range band.XYs[0] {
		assert.GreaterOrEqual(t, pt.Y, 0.0)
		assert.LessOrEqual(t, pt.Y, 1.1)
	}
	// 2点目の上端 0.95+0.2 は 1.1 で止まる
	assert.Equal(t, 1.1, band.XYs[0][1].Y)
	// 1点目の下端 0.05-0.1 は 0 で止まる
	assert.Equal(t, 0.0, band.XYs[0][3].Y)
}

func TestLogAxisTickLabels(t *testing.T) {
	grid, err := model_selection.LogSpace(-6, -1, 5)
	require.NoError(t, err)
	s := digitsLikeSummary()
	s.ParamValues = grid

	p, err := NewValidationCurvePlot(s)
	require.NoError(t, err)

	allowed := map[string]bool{
		"1e-06": true, "1e-05": true, "0.0001": true,
		"0.001": true, "0.01": true, "0.1": true,
	}
	var labels []string
	for _, tick := range p.X.Tick.Marker.Ticks(p.X.Min, p.X.Max) {
		if tick.Label == "" {
			continue
		}
		assert.True(t, allowed[tick.Label], "unexpected tick label %q", tick.Label)
		labels = append(labels, tick.Label)
	}
	assert.Equal(t, []string{"1e-06", "1e-05", "0.0001", "0.001", "0.01", "0.1"}, labels)
}

func TestDecadeTicks(t *testing.T) {
	ticks := decadeTicks{}.Ticks(2e-3, 0.5)
	require.NotEmpty(t, ticks)
	var labels []string
	for _, tick := range ticks {
		assert.GreaterOrEqual(t, tick.Value, 2e-3*(1-1e-9))
		assert.LessOrEqual(t, tick.Value, 0.5*(1+1e-9))
		if tick.Label != "" {
			labels = append(labels, tick.Label)
		}
	}
	assert.Equal(t, []string{"0.01", "0.1"}, labels)
	// 2e-3..9e-3, 2e-2..9e-2, 2e-1..5e-1 の副目盛り + 主目盛り2本
	assert.Len(t, ticks, 8+8+4+2)

	assert.Empty(t, decadeTicks{}.Ticks(0, 1))
}

func TestLegendPlacement(t *testing.T) {
	var l plot.Legend
	placeLegend(&l, 0.9, 0, 1.1)
	assert.False(t, l.Top)
	assert.False(t, l.Left)
	placeLegend(&l, 0.2, 0, 1.1)
	assert.True(t, l.Top)
	assert.True(t, l.Left)
}

func TestSinglePointPlot(t *testing.T) {
	s := &model_selection.CurveSummary{
		ParamValues: []float64{1e-3},
		TrainMean:   []float64{0.99},
		TrainStd:    []float64{0},
		TestMean:    []float64{0.97},
		TestStd:     []float64{0},
	}
	p, err := NewValidationCurvePlot(s)
	require.NoError(t, err)
	assert.InDelta(t, 1e-4, p.X.Min, 1e-18)
	assert.InDelta(t, 1e-2, p.X.Max, 1e-18)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(p, &buf, "png", DefaultWidth, DefaultHeight))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestLinearAxisForNonPositiveValues(t *testing.T) {
	s := &model_selection.CurveSummary{
		ParamValues: []float64{0, 1, 2},
		TrainMean:   []float64{0.5, 0.6, 0.7},
		TrainStd:    []float64{0, 0, 0},
		TestMean:    []float64{0.5, 0.6, 0.7},
		TestStd:     []float64{0, 0, 0},
	}
	p, err := NewValidationCurvePlot(s, WithXLabel("C"), WithTitle("t"))
	require.NoError(t, err)
	assert.IsType(t, plot.LinearScale{}, p.X.Scale)
	assert.Equal(t, "C", p.X.Label.Text)
	assert.Equal(t, "t", p.Title.Text)
}

func TestPlotErrors(t *testing.T) {
	_, err := NewValidationCurvePlot(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	s := digitsLikeSummary()
	s.TestStd = s.TestStd[:2]
	_, err = NewValidationCurvePlot(s)
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	_, err = NewValidationCurvePlot(digitsLikeSummary(), WithYRange(1, 0))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSave(t *testing.T) {
	p, err := NewValidationCurvePlot(digitsLikeSummary())
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"curve.png", "nested/curve.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(p, path, DefaultWidth, DefaultHeight))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	err = Save(p, filepath.Join(dir, "curve.gif"), DefaultWidth, DefaultHeight)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestExportJSON(t *testing.T) {
	s := digitsLikeSummary()
	d, err := model_selection.Diagnose(s)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, s, &d))

	var got CurveExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "validation_curve", got.PlotType)
	assert.Equal(t, "log", got.XAxisScale)
	assert.Equal(t, "gamma", got.XAxisLabel)
	assert.Equal(t, s.TestMean, got.Summary.TestMean)
	require.NotNil(t, got.Diagnosis)
	assert.Equal(t, 2, got.Diagnosis.BestIndex)

	assert.Error(t, ExportJSON(&buf, nil, nil))
}
