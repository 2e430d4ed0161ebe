package visualization

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
	"github.com/YuminosukeSato/valcurve/sklearn/model_selection"
)

// 既定の画像サイズ（matplotlib の 6.4x4.8 インチ相当）
const (
	DefaultWidth  = 6.4 * vg.Inch
	DefaultHeight = 4.8 * vg.Inch
)

var supportedFormats = map[string]bool{
	"png": true, "svg": true, "pdf": true, "jpg": true, "jpeg": true,
	"tif": true, "tiff": true, "eps": true,
}

// Format returns the image format implied by path's extension.
func Format(path string) (string, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !supportedFormats[format] {
		return "", errors.NewValidationError("output", "unsupported image format (use png, svg, pdf, jpg, tif or eps)", path)
	}
	return format, nil
}

// Save writes p to path. The format is chosen by the file extension and
// missing parent directories are created.
func Save(p *plot.Plot, path string, width, height vg.Length) error {
	if _, err := Format(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := p.Save(width, height, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}

// WriteTo renders p in the given format to w.
func WriteTo(p *plot.Plot, w io.Writer, format string, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return errors.Wrapf(err, "render %s", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart")
	}
	return nil
}

// CurveExport is the machine-readable form of a validation curve.
type CurveExport struct {
	PlotType   string                        `json:"plot_type"`
	Title      string                        `json:"title"`
	Timestamp  time.Time                     `json:"timestamp"`
	XAxisLabel string                        `json:"x_axis_label"`
	YAxisLabel string                        `json:"y_axis_label"`
	XAxisScale string                        `json:"x_axis_scale"` // "linear", "log"
	Summary    *model_selection.CurveSummary `json:"summary"`
	Diagnosis  *model_selection.Diagnosis    `json:"diagnosis,omitempty"`
}

// ExportJSON writes the summary and, if non-nil, its diagnosis as indented JSON.
func ExportJSON(w io.Writer, s *model_selection.CurveSummary, d *model_selection.Diagnosis) error {
	if s == nil {
		return errors.Wrap(errors.ErrEmptyData, "ExportJSON")
	}
	scale := "linear"
	if allPositive(s.ParamValues) {
		scale = "log"
	}
	out := CurveExport{
		PlotType:   "validation_curve",
		Title:      DefaultTitle,
		Timestamp:  time.Now().UTC(),
		XAxisLabel: s.ParamName,
		YAxisLabel: DefaultYLabel,
		XAxisScale: scale,
		Summary:    s,
		Diagnosis:  d,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(err, "encode curve")
	}
	return nil
}
