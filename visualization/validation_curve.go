// Package visualization renders validation curves with gonum/plot and
// exports them as JSON for external plotting services.
package visualization

import (
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/sklearn/model_selection"
)

// 既定の表示設定
const (
	DefaultTitle  = "Validation Curve with SVM"
	DefaultXLabel = "γ"
	DefaultYLabel = "Score"
	TrainLabel    = "Training score"
	TestLabel     = "Cross-validation score"
	BandAlpha     = 0.2
	DefaultYMin   = 0.0
	DefaultYMax   = 1.1
)

var (
	// TrainColor は訓練スコアの色（赤）
	TrainColor = color.NRGBA{R: 255, A: 255}
	// TestColor は検証スコアの色（緑）
	TestColor = color.NRGBA{G: 128, A: 255}
)

type plotConfig struct {
	title, xLabel, yLabel string
	yMin, yMax            float64
	lineWidth             vg.Length
}

// PlotOption is a functional option for NewValidationCurvePlot
type PlotOption func(*plotConfig)

// WithTitle overrides the chart title.
func WithTitle(title string) PlotOption {
	return func(c *plotConfig) { c.title = title }
}

// WithXLabel overrides the x-axis label, usually the parameter name.
func WithXLabel(label string) PlotOption {
	return func(c *plotConfig) { c.xLabel = label }
}

// WithYRange sets the visible score range.
func WithYRange(min, max float64) PlotOption {
	return func(c *plotConfig) { c.yMin, c.yMax = min, max }
}

// WithLineWidth sets the width of both mean curves.
func WithLineWidth(w vg.Length) PlotOption {
	return func(c *plotConfig) { c.lineWidth = w }
}

// NewValidationCurvePlot draws the mean training and validation scores of s
// with shaded ±1 std bands.
//
// The x-axis is logarithmic when every parameter value is positive. A grid
// of a single value is drawn as markers on an axis padded by one decade.
func NewValidationCurvePlot(s *model_selection.CurveSummary, opts ...PlotOption) (*plot.Plot, error) {
	cfg := &plotConfig{
		title:     DefaultTitle,
		xLabel:    DefaultXLabel,
		yLabel:    DefaultYLabel,
		yMin:      DefaultYMin,
		yMax:      DefaultYMax,
		lineWidth: vg.Points(2),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if s == nil || len(s.ParamValues) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "NewValidationCurvePlot")
	}
	n := len(s.ParamValues)
	for _, v := range [][]float64{s.TrainMean, s.TrainStd, s.TestMean, s.TestStd} {
		if len(v) != n {
			return nil, errors.NewDimensionError("NewValidationCurvePlot", n, len(v), 0)
		}
	}
	if !(cfg.yMin < cfg.yMax) {
		return nil, errors.NewValidationError("y_range", "min must be smaller than max", [2]float64{cfg.yMin, cfg.yMax})
	}

	p := plot.New()
	p.Title.Text = cfg.title
	p.X.Label.Text = cfg.xLabel
	p.Y.Label.Text = cfg.yLabel

	logX := allPositive(s.ParamValues)
	if logX {
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = decadeTicks{}
	}

	// 帯を先に描いて線が上に来るようにする
	for _, series := range []struct {
		mean, std []float64
		c         color.NRGBA
	}{
		{s.TrainMean, s.TrainStd, TrainColor},
		{s.TestMean, s.TestStd, TestColor},
	} {
		band, err := newBand(s.ParamValues, series.mean, series.std, series.c, cfg.yMin, cfg.yMax)
		if err != nil {
			return nil, err
		}
		p.Add(band)
	}

	for _, series := range []struct {
		label string
		mean  []float64
		c     color.NRGBA
	}{
		{TrainLabel, s.TrainMean, TrainColor},
		{TestLabel, s.TestMean, TestColor},
	} {
		line, err := plotter.NewLine(xys(s.ParamValues, series.mean))
		if err != nil {
			return nil, errors.Wrapf(err, "%s line", series.label)
		}
		line.LineStyle.Color = series.c
		line.LineStyle.Width = cfg.lineWidth
		p.Add(line)
		if n == 1 {
			// 1点だけの線は見えないのでマーカーを添える
			marker, err := plotter.NewScatter(xys(s.ParamValues, series.mean))
			if err != nil {
				return nil, errors.Wrapf(err, "%s marker", series.label)
			}
			marker.GlyphStyle.Color = series.c
			marker.GlyphStyle.Shape = draw.CircleGlyph{}
			marker.GlyphStyle.Radius = vg.Points(3)
			p.Add(marker)
		}
		p.Legend.Add(series.label, line)
	}

	// Add で広がった範囲を上書きする
	p.X.Min, p.X.Max = xRange(s.ParamValues, logX)
	p.Y.Min, p.Y.Max = cfg.yMin, cfg.yMax
	placeLegend(&p.Legend, s.TestMean[n-1], cfg.yMin, cfg.yMax)
	return p, nil
}

// newBand returns the filled region between mean-std and mean+std,
// clipped to [yMin, yMax] so the fill never leaves the axes.
func newBand(x, mean, std []float64, c color.NRGBA, yMin, yMax float64) (*plotter.Polygon, error) {
	n := len(x)
	ring := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		ring = append(ring, plotter.XY{X: x[i], Y: errors.ClipValue(mean[i]+std[i], yMin, yMax)})
	}
	for i := n - 1; i >= 0; i-- {
		ring = append(ring, plotter.XY{X: x[i], Y: errors.ClipValue(mean[i]-std[i], yMin, yMax)})
	}
	band, err := plotter.NewPolygon(ring)
	if err != nil {
		return nil, errors.Wrap(err, "std band")
	}
	c.A = uint8(math.Round(BandAlpha * 255))
	band.Color = c
	band.LineStyle.Width = 0
	return band, nil
}

// decadeTicks labels each power of ten in range and adds unlabelled minor
// ticks at 2..9 times each decade. Labels come from math.Pow10, so they read
// "1e-06" rather than the rounding residue of a computed power.
type decadeTicks struct{}

func (decadeTicks) Ticks(min, max float64) []plot.Tick {
	if !(min > 0) || !(min <= max) {
		return nil
	}
	var ticks []plot.Tick
	lo := int(math.Floor(math.Log10(min)))
	hi := int(math.Ceil(math.Log10(max)))
	for e := lo; e <= hi; e++ {
		base := math.Pow10(e)
		for i := 1; i < 10; i++ {
			v := float64(i) * base
			if v < min*(1-1e-9) || v > max*(1+1e-9) {
				continue
			}
			t := plot.Tick{Value: v}
			if i == 1 {
				t.Label = strconv.FormatFloat(base, 'g', -1, 64)
			}
			ticks = append(ticks, t)
		}
	}
	return ticks
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X, pts[i].Y = x[i], y[i]
	}
	return pts
}

func allPositive(v []float64) bool {
	for _, x := range v {
		if !(x > 0) {
			return false
		}
	}
	return true
}

// xRange returns the data range of the grid. A degenerate range is padded
// by a decade on a log axis and by one unit on a linear axis.
func xRange(v []float64, logX bool) (float64, float64) {
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	if lo < hi {
		return lo, hi
	}
	if logX {
		return lo / 10, hi * 10
	}
	return lo - 1, hi + 1
}

// placeLegend puts the legend top-left, unless the validation curve ends in
// the upper half of the axes, where the legend would hide it.
func placeLegend(l *plot.Legend, lastTest, yMin, yMax float64) {
	if lastTest > yMin+(yMax-yMin)/2 {
		l.Top, l.Left = false, false
		return
	}
	l.Top, l.Left = true, true
}
