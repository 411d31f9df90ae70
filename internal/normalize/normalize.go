// Package normalize implements the size, position and density normalizations
// applied to character strokes before feature extraction.
//
// # Bi-Moment Normalization
//
// BiMoment rescales each axis separately for deviations above and below the
// centroid, using the mean squared deviation of each side. This corrects
// characters whose ink is skewed to one side of the centre. A slant-corrected
// variant shears x by the second-order moment ratio before rescaling.
//
// # Density Equalization
//
// LineDensity and PointDensity remap coordinates through cumulative
// histograms so densely drawn regions are expanded and empty background is
// compressed. Both expect strokes already in canvas space.
//
// # Significant Points
//
// SignificantPoints keeps stroke endpoints and sharp corners; it feeds the
// cheap coarse comparison in the recognizer.
package normalize

import (
	"math"

	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
	"gonum.org/v1/gonum/floats"
)

// significantAngle is the turning angle (degrees) below which an interior
// point counts as a corner.
const significantAngle = 150.0

// Normalizer holds the canvas size every normalization maps into.
type Normalizer struct {
	size int
}

// New returns a Normalizer for a square canvas of the given size.
func New(canvasSize int) Normalizer {
	return Normalizer{size: canvasSize}
}

// Size returns the canvas size.
func (n Normalizer) Size() int { return n.size }

// Moments holds the first and second order statistics of a point set.
type Moments struct {
	// MeanX and MeanY are the centroid, rounded to two decimals.
	MeanX, MeanY float64
	// DiffX and DiffY are per-point deviations from the centroid.
	DiffX, DiffY []float64
	// Slant is -Σ(dx·dy)/Σ(dy²), the shear that removes slant.
	Slant float64
}

// MeansAndDiffs computes the centroid, the per-axis deviations and the slant
// slope over all points of all strokes.
func (n Normalizer) MeansAndDiffs(strokes []stroke.Stroke) Moments {
	points := stroke.Flatten(strokes)
	if len(points) == 0 {
		return Moments{}
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}

	count := float64(len(points))
	m := Moments{
		MeanX: stroke.Round(floats.Sum(xs)/count, 2),
		MeanY: stroke.Round(floats.Sum(ys)/count, 2),
		DiffX: make([]float64, len(points)),
		DiffY: make([]float64, len(points)),
	}

	floats.AddConst(-m.MeanX, xs)
	floats.AddConst(-m.MeanY, ys)
	copy(m.DiffX, xs)
	copy(m.DiffY, ys)

	u02 := floats.Dot(ys, ys)
	if u02 != 0 {
		m.Slant = -floats.Dot(xs, ys) / u02
	}
	return m
}

// sideScales holds the bi-moment denominators 4·√delta for the
// non-negative and negative deviation subsets of one axis.
type sideScales struct {
	pos, neg float64
}

func newSideScales(diffs []float64) sideScales {
	return sideScales{pos: sideScale(diffs, true), neg: sideScale(diffs, false)}
}

// sideScale returns round(4·√delta, 2) for one subset, or 0 when the subset
// is empty or has zero spread.
func sideScale(diffs []float64, positive bool) float64 {
	var acc float64
	count := 0
	for _, d := range diffs {
		if (d >= 0) == positive {
			acc += d * d
			count++
		}
	}
	if count == 0 || acc == 0 {
		return 0
	}
	return stroke.Round(4*math.Sqrt(acc/float64(count)), 2)
}

// apply maps a deviation onto the canvas. A degenerate subset is not
// rescaled; its points are only re-centred.
func (s sideScales) apply(dev float64, size int) float64 {
	scale := s.neg
	if dev >= 0 {
		scale = s.pos
	}
	centre := float64(size / 2)
	if scale == 0 {
		return dev + centre
	}
	return float64(size)*dev/scale + centre
}

// BiMoment normalizes strokes with bi-moment normalization.
//
// It returns the plain normalized strokes and the slant-corrected variant.
// Points that map outside [0, size] are dropped and strokes left empty are
// removed, independently for each variant.
func (n Normalizer) BiMoment(strokes []stroke.Stroke) (normed, slanted []stroke.Stroke) {
	m := n.MeansAndDiffs(strokes)
	return n.BiMomentWith(strokes, m)
}

// BiMomentWith is BiMoment with precomputed moments.
func (n Normalizer) BiMomentWith(strokes []stroke.Stroke, m Moments) (normed, slanted []stroke.Stroke) {
	xs := newSideScales(m.DiffX)
	ys := newSideScales(m.DiffY)
	size := float64(n.size)
	inside := func(v float64) bool { return v >= 0 && v <= size }

	normed = make([]stroke.Stroke, 0, len(strokes))
	slanted = make([]stroke.Stroke, 0, len(strokes))
	for _, s := range strokes {
		var plain, shear stroke.Stroke
		for _, p := range s {
			y := ys.apply(p.Y-m.MeanY, n.size)
			x := xs.apply(p.X-m.MeanX, n.size)
			xSlant := p.X + (p.Y-m.MeanY)*m.Slant
			xs2 := xs.apply(xSlant-m.MeanX, n.size)

			if inside(x) && inside(y) {
				plain = append(plain, stroke.Point{X: stroke.Round(x, 3), Y: stroke.Round(y, 3)})
			}
			if inside(xs2) && inside(y) {
				shear = append(shear, stroke.Point{X: stroke.Round(xs2, 3), Y: stroke.Round(y, 3)})
			}
		}
		if len(plain) > 0 {
			normed = append(normed, plain)
		}
		if len(shear) > 0 {
			slanted = append(slanted, shear)
		}
	}
	return normed, slanted
}

// SignificantPoints returns the endpoints of every stroke plus interior
// points whose turning angle is sharper than 150 degrees.
func (n Normalizer) SignificantPoints(strokes []stroke.Stroke) []stroke.Point {
	return SignificantPoints(strokes)
}

// SignificantPoints is the canvas-independent implementation behind
// Normalizer.SignificantPoints.
func SignificantPoints(strokes []stroke.Stroke) []stroke.Point {
	var out []stroke.Point
	for _, s := range strokes {
		if len(s) == 0 {
			continue
		}
		out = append(out, s[0])
		for i := 1; i < len(s)-1; i++ {
			prev := s[i-1].Sub(s[i])
			next := s[i+1].Sub(s[i])
			cross := prev.X*next.Y - prev.Y*next.X
			dot := prev.X*next.X + prev.Y*next.Y
			angle := math.Atan2(cross, dot) * 180 / math.Pi
			if math.Abs(angle) < significantAngle {
				out = append(out, s[i])
			}
		}
		if len(s) > 1 {
			out = append(out, s[len(s)-1])
		}
	}
	return out
}
