package features

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/kanji-match-mcp/internal/grid"
	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// Vec4 holds the weights on the four basis directions e1..e4.
type Vec4 [4]float64

// Add returns v + w.
func (v Vec4) Add(w Vec4) Vec4 {
	return Vec4{v[0] + w[0], v[1] + w[1], v[2] + w[2], v[3] + w[3]}
}

// Scale returns v * s.
func (v Vec4) Scale(s float64) Vec4 {
	return Vec4{v[0] * s, v[1] * s, v[2] * s, v[3] * s}
}

var (
	e1 = [2]float64{1, 0}
	e2 = [2]float64{1 / math.Sqrt2, 1 / math.Sqrt2}
	e3 = [2]float64{0, 1}
	e4 = [2]float64{-1 / math.Sqrt2, 1 / math.Sqrt2}
)

// sector pairs two adjacent basis vectors with the channels they feed.
type sector struct {
	basis  *mat.Dense
	first  int
	second int
}

func newSector(a, b [2]float64, first, second int) sector {
	return sector{
		basis:  mat.NewDense(2, 2, []float64{a[0], b[0], a[1], b[1]}),
		first:  first,
		second: second,
	}
}

var sectors = [4]sector{
	newSector(e1, e2, 0, 1),
	newSector(e2, e3, 1, 2),
	newSector(e3, e4, 2, 3),
	newSector(e4, e1, 3, 0),
}

// sectorOf picks the basis pair for a direction angle in degrees.
//
//	[0,45)   ∪ [-180,-135] → (e1, e2)
//	[45,90)  ∪ (-135,-90]  → (e2, e3)
//	[90,135) ∪ (-90,-45]   → (e3, e4)
//	[135,180)∪ (-45,0)     → (e4, e1)
//
// atan2 can return exactly 180, which is the same direction as -180.
func sectorOf(deg float64) sector {
	if deg >= 180 {
		deg = -180
	}
	switch {
	case (deg >= 0 && deg < 45) || deg <= -135:
		return sectors[0]
	case (deg >= 45 && deg < 90) || deg <= -90:
		return sectors[1]
	case (deg >= 90 && deg < 135) || deg <= -45:
		return sectors[2]
	default:
		return sectors[3]
	}
}

// Decompose splits v into non-zero weights on at most two adjacent basis
// directions. The zero vector decomposes to zeros.
func Decompose(v stroke.Point) Vec4 {
	var out Vec4
	if v.X == 0 && v.Y == 0 {
		return out
	}

	s := sectorOf(math.Atan2(v.Y, v.X) * 180 / math.Pi)
	var w mat.VecDense
	if err := w.SolveVec(s.basis, mat.NewVecDense(2, []float64{v.X, v.Y})); err != nil {
		// adjacent basis vectors are never collinear
		return out
	}
	out[s.first] = w.AtVec(0)
	out[s.second] = w.AtVec(1)
	return out
}

// DirectionalFeatureDensities accumulates the decomposed direction of every
// consecutive point pair into the cell of the pair's first point.
func DirectionalFeatureDensities(strokes []stroke.Stroke, gridCount int, size float64) *grid.Grid[Vec4] {
	g := grid.New(gridCount, gridCount, Vec4{})
	if size <= 0 {
		return g
	}
	for _, s := range strokes {
		for i := 0; i+1 < len(s); i++ {
			current, next := s[i], s[i+1]
			row, col, ok := cellOf(current, gridCount, size)
			if !ok {
				continue
			}
			g.Set(row, col, g.At(row, col).Add(Decompose(next.Sub(current))))
		}
	}
	return g
}

// SpatialWeightFilter reduces an N x N direction map to ceil(N/2) x ceil(N/2)
// by a Gaussian-weighted average centred on every even cell.
func SpatialWeightFilter(g *grid.Grid[Vec4]) *grid.Grid[Vec4] {
	k := GaussianKernel()
	rows := (g.Rows() + 1) / 2
	cols := (g.Cols() + 1) / 2
	out := grid.New(rows, cols, Vec4{})

	for r := 0; r < g.Rows(); r += 2 {
		for c := 0; c < g.Cols(); c += 2 {
			var acc Vec4
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if !g.InBounds(r+dr, c+dc) {
						continue
					}
					acc = acc.Add(g.At(r+dr, c+dc).Scale(k.weight(dr, dc)))
				}
			}
			out.Set(r/2, c/2, acc)
		}
	}
	return out
}

// Channels splits a direction map into one flattened sequence per basis
// direction, each in the grid's column-major order.
func Channels(g *grid.Grid[Vec4]) [4][]float64 {
	flat := g.Flat()
	var out [4][]float64
	for ch := range out {
		out[ch] = make([]float64, len(flat))
		for i, v := range flat {
			out[ch][i] = v[ch]
		}
	}
	return out
}
