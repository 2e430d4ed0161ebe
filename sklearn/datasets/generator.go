package datasets

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/valcurve/pkg/errors"
)

// classWeights are the per-class sample counts of the classic 1797-sample set.
var classWeights = [NClasses]int{178, 182, 177, 183, 181, 182, 181, 179, 174, 180}

type point struct{ x, y float64 }

// stroke is a polyline in unit glyph coordinates (x right, y down).
type stroke []point

func ellipse(cx, cy, rx, ry float64, n int) stroke {
	s := make(stroke, n+1)
	for i := 0; i <= n; i++ {
		t := 2 * math.Pi * float64(i) / float64(n)
		s[i] = point{cx + rx*math.Sin(t), cy - ry*math.Cos(t)}
	}
	return s
}

var glyphs = [NClasses][]stroke{
	0: {ellipse(0.5, 0.5, 0.28, 0.42, 16)},
	1: {
		{{0.52, 0.08}, {0.5, 0.92}},
		{{0.32, 0.26}, {0.52, 0.08}},
	},
	2: {{{0.22, 0.28}, {0.32, 0.12}, {0.5, 0.07}, {0.7, 0.13}, {0.77, 0.3}, {0.68, 0.48}, {0.22, 0.92}, {0.8, 0.92}}},
	3: {{{0.22, 0.15}, {0.5, 0.07}, {0.74, 0.17}, {0.72, 0.37}, {0.46, 0.49}, {0.75, 0.61}, {0.78, 0.8}, {0.52, 0.93}, {0.22, 0.85}}},
	4: {
		{{0.66, 0.92}, {0.66, 0.08}, {0.18, 0.64}, {0.84, 0.64}},
	},
	5: {{{0.78, 0.08}, {0.3, 0.08}, {0.26, 0.44}, {0.55, 0.39}, {0.76, 0.54}, {0.75, 0.8}, {0.5, 0.93}, {0.22, 0.85}}},
	6: {{{0.7, 0.08}, {0.45, 0.2}, {0.29, 0.44}, {0.25, 0.72}, {0.4, 0.92}, {0.64, 0.89}, {0.75, 0.7}, {0.62, 0.52}, {0.4, 0.52}, {0.27, 0.66}}},
	7: {{{0.2, 0.08}, {0.8, 0.08}, {0.62, 0.45}, {0.44, 0.92}}},
	8: {
		ellipse(0.5, 0.28, 0.22, 0.2, 12),
		ellipse(0.5, 0.7, 0.27, 0.22, 12),
	},
	9: {
		ellipse(0.48, 0.3, 0.24, 0.21, 12),
		{{0.72, 0.3}, {0.7, 0.6}, {0.56, 0.92}},
	},
}

// lookAlike pairs each class with the digit its sloppy renditions are
// mistaken for (an open 4 for a 9, a short-tailed 7 for a 1, ...).
var lookAlike = [NClasses]int{0: 6, 1: 7, 2: 7, 3: 8, 4: 9, 5: 6, 6: 5, 7: 1, 8: 3, 9: 4}

// ambiguousRate is the share of samples drawn with the glyph of their
// look-alike class while keeping their own label. Without them the rendered
// classes separate perfectly and cross-validation saturates at 1.0.
const ambiguousRate = 0.04

const (
	canvasSize   = ImageSize * 4
	canvasMargin = 4.0
	canvasSpan   = canvasSize - 2*canvasMargin
)

// jitter holds the random deformation applied to one glyph.
type jitter struct {
	scaleX, scaleY float64
	shear          float64
	rotation       float64
	dx, dy         float64
	thickness      float64
}

func newJitter(r *rand.Rand) jitter {
	return jitter{
		scaleX:    0.8 + 0.3*r.Float64(),
		scaleY:    0.85 + 0.2*r.Float64(),
		shear:     -0.3 + 0.6*r.Float64(),
		rotation:  -0.18 + 0.36*r.Float64(),
		dx:        -0.08 + 0.16*r.Float64(),
		dy:        -0.06 + 0.12*r.Float64(),
		thickness: 1.3 + 1.2*r.Float64(),
	}
}

// apply maps a unit-coordinate point to canvas coordinates.
func (j jitter) apply(p point) point {
	x, y := p.x-0.5, p.y-0.5
	x, y = x*j.scaleX, y*j.scaleY
	x += j.shear * y
	sin, cos := math.Sincos(j.rotation)
	x, y = x*cos-y*sin, x*sin+y*cos
	x, y = x+0.5+j.dx, y+0.5+j.dy
	return point{canvasMargin + x*canvasSpan, canvasMargin + y*canvasSpan}
}

// GenerateDigits renders nSamples digit images. Labels cycle through 0-9,
// skipping a class once it reaches its share of the classic class balance.
// Each sample is drawn from its own random stream, so the output depends only
// on (nSamples, seed). About ambiguousRate of the samples are rendered as
// their look-alike digit, so like the scanned set the data is not perfectly
// separable.
func GenerateDigits(nSamples int, seed uint64) (*Dataset, error) {
	if nSamples < NClasses {
		return nil, errors.NewValidationError("nSamples", "must be at least 10", nSamples)
	}

	labels := cycleLabels(classQuotas(nSamples))
	X := mat.NewDense(nSamples, NFeatures, nil)
	Y := mat.NewDense(nSamples, 1, nil)

	var canvas [canvasSize * canvasSize]bool
	for i, label := range labels {
		r := rand.New(rand.NewPCG(seed, uint64(i)))
		renderGlyph(&canvas, glyphs[sampleShape(label, r)], r)
		downsample(&canvas, X.RawRowView(i))
		Y.Set(i, 0, float64(label))
	}

	return &Dataset{
		X:          X,
		Y:          Y,
		ImageShape: [2]int{ImageSize, ImageSize},
		Source:     SourceGenerated,
	}, nil
}

// sampleShape picks the glyph drawn for a sample labelled label.
func sampleShape(label int, r *rand.Rand) int {
	if r.Float64() < ambiguousRate {
		return lookAlike[label]
	}
	return label
}

// classQuotas splits n samples across classes in proportion to classWeights
// (largest remainder).
func classQuotas(n int) [NClasses]int {
	var quotas [NClasses]int
	var rem [NClasses]float64
	assigned := 0
	for c, w := range classWeights {
		exact := float64(n) * float64(w) / DefaultSamples
		quotas[c] = int(exact)
		rem[c] = exact - float64(quotas[c])
		assigned += quotas[c]
	}
	for ; assigned < n; assigned++ {
		best := 0
		for c := 1; c < NClasses; c++ {
			if rem[c] > rem[best] {
				best = c
			}
		}
		quotas[best]++
		rem[best] = -1
	}
	return quotas
}

func cycleLabels(quotas [NClasses]int) []int {
	total := 0
	for _, q := range quotas {
		total += q
	}
	labels := make([]int, 0, total)
	for len(labels) < total {
		for c := 0; c < NClasses; c++ {
			if quotas[c] > 0 {
				labels = append(labels, c)
				quotas[c]--
			}
		}
	}
	return labels
}

// renderGlyph draws the deformed strokes on the 32×32 canvas and adds pixel noise.
func renderGlyph(canvas *[canvasSize * canvasSize]bool, strokes []stroke, r *rand.Rand) {
	for i := range canvas {
		canvas[i] = false
	}
	j := newJitter(r)

	for _, s := range strokes {
		pts := make([]point, len(s))
		for k, p := range s {
			p.x += 0.08 * (r.Float64() - 0.5)
			p.y += 0.08 * (r.Float64() - 0.5)
			pts[k] = j.apply(p)
		}
		for k := 1; k < len(pts); k++ {
			drawSegment(canvas, pts[k-1], pts[k], j.thickness)
		}
	}

	for i := range canvas {
		if canvas[i] {
			if r.Float64() < 0.04 {
				canvas[i] = false
			}
		} else if r.Float64() < 0.01 {
			canvas[i] = true
		}
	}
}

// drawSegment turns on every pixel whose center lies within radius of segment ab.
func drawSegment(canvas *[canvasSize * canvasSize]bool, a, b point, radius float64) {
	minX := int(math.Floor(math.Min(a.x, b.x) - radius))
	maxX := int(math.Ceil(math.Max(a.x, b.x) + radius))
	minY := int(math.Floor(math.Min(a.y, b.y) - radius))
	maxY := int(math.Ceil(math.Max(a.y, b.y) + radius))

	dx, dy := b.x-a.x, b.y-a.y
	lenSq := dx*dx + dy*dy
	r2 := radius * radius

	for py := max(minY, 0); py <= min(maxY, canvasSize-1); py++ {
		for px := max(minX, 0); px <= min(maxX, canvasSize-1); px++ {
			cx, cy := float64(px)+0.5, float64(py)+0.5
			t := 0.0
			if lenSq > 0 {
				t = ((cx-a.x)*dx + (cy-a.y)*dy) / lenSq
				t = math.Max(0, math.Min(1, t))
			}
			ex, ey := a.x+t*dx-cx, a.y+t*dy-cy
			if ex*ex+ey*ey <= r2 {
				canvas[py*canvasSize+px] = true
			}
		}
	}
}

// downsample counts on-pixels in each non-overlapping 4×4 block, as the
// optdigits preprocessing does.
func downsample(canvas *[canvasSize * canvasSize]bool, dst []float64) {
	for by := 0; by < ImageSize; by++ {
		for bx := 0; bx < ImageSize; bx++ {
			n := 0
			for y := by * 4; y < by*4+4; y++ {
				for x := bx * 4; x < bx*4+4; x++ {
					if canvas[y*canvasSize+x] {
						n++
					}
				}
			}
			dst[by*ImageSize+bx] = float64(n)
		}
	}
}
