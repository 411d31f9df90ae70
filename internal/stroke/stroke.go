// Package stroke defines the point and stroke types consumed by the
// recognizer and the resampling steps applied to raw pen input.
//
// All coordinates are canvas-space real values. A Stroke is one pen-down
// motion; point order is the drawing order and is significant.
package stroke

import "math"

// Point is a canvas-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is a time-ordered sequence of points.
type Stroke []Point

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PathLength returns the summed segment lengths of s.
func PathLength(s Stroke) float64 {
	var d float64
	for i := 1; i < len(s); i++ {
		d += Distance(s[i-1], s[i])
	}
	return d
}

// Flatten concatenates the points of all strokes in order.
func Flatten(strokes []Stroke) []Point {
	n := CountPoints(strokes)
	out := make([]Point, 0, n)
	for _, s := range strokes {
		out = append(out, s...)
	}
	return out
}

// CountPoints returns the total number of points across strokes.
func CountPoints(strokes []Stroke) int {
	n := 0
	for _, s := range strokes {
		n += len(s)
	}
	return n
}

// Clone returns a deep copy of strokes.
func Clone(strokes []Stroke) []Stroke {
	out := make([]Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = append(Stroke(nil), s...)
	}
	return out
}

// FromPairs converts the [[[x,y],...],...] form used by glyph files and
// tool arguments. Pairs with fewer than two components are skipped.
func FromPairs(pairs [][][]float64) []Stroke {
	out := make([]Stroke, 0, len(pairs))
	for _, sp := range pairs {
		s := make(Stroke, 0, len(sp))
		for _, p := range sp {
			if len(p) < 2 {
				continue
			}
			s = append(s, Point{X: p[0], Y: p[1]})
		}
		out = append(out, s)
	}
	return out
}

// ToPairs is the inverse of FromPairs.
func ToPairs(strokes []Stroke) [][][]float64 {
	out := make([][][]float64, len(strokes))
	for i, s := range strokes {
		out[i] = make([][]float64, len(s))
		for j, p := range s {
			out[i][j] = []float64{p.X, p.Y}
		}
	}
	return out
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
