package datasets

import (
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// LoadDigitsFile reads a UCI optdigits file: one sample per line, 64 integer
// pixel columns followed by the label. Files ending in .gz are decompressed.
func LoadDigitsFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open digits file %q", path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "gunzip digits file %q", path)
		}
		defer gz.Close()
		r = gz
	}

	ds, err := ReadDigits(r)
	if err != nil {
		return nil, errors.Wrapf(err, "parse digits file %q", path)
	}
	ds.Source = path
	return ds, nil
}

// ReadDigits parses optdigits records from r.
func ReadDigits(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = NFeatures + 1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var xs, ys []float64
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewValueError("ReadDigits", err.Error())
		}
		for j, field := range rec {
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, errors.NewValueError("ReadDigits",
					"line "+strconv.Itoa(line)+": non-integer value "+strconv.Quote(field))
			}
			if j < NFeatures {
				if v < 0 || v > MaxPixel {
					return nil, errors.NewValidationError("pixel", "must be in [0, 16] (line "+strconv.Itoa(line)+")", v)
				}
				xs = append(xs, float64(v))
				continue
			}
			if v < 0 || v >= NClasses {
				return nil, errors.NewValidationError("label", "must be in [0, 9] (line "+strconv.Itoa(line)+")", v)
			}
			ys = append(ys, float64(v))
		}
	}

	if len(ys) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "ReadDigits")
	}
	return &Dataset{
		X:          mat.NewDense(len(ys), NFeatures, xs),
		Y:          mat.NewDense(len(ys), 1, ys),
		ImageShape: [2]int{ImageSize, ImageSize},
	}, nil
}

// WriteDigits writes ds in the optdigits format read by ReadDigits.
func WriteDigits(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	rec := make([]string, NFeatures+1)
	n := ds.NSamples()
	for i := 0; i < n; i++ {
		row := ds.X.RawRowView(i)
		for j, v := range row {
			rec[j] = strconv.Itoa(int(v))
		}
		rec[NFeatures] = strconv.Itoa(int(ds.Y.At(i, 0)))
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write digits")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write digits")
}
