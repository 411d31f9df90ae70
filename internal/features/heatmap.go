package features

import (
	"math"

	"github.com/ironsheep/kanji-match-mcp/internal/grid"
	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// Form selects how much each point adds to its heatmap cell.
type Form int

const (
	// Count adds 1 per point.
	Count Form = iota
	// Density adds 1/len(points) per point.
	Density
)

// String returns the form name.
func (f Form) String() string {
	switch f {
	case Count:
		return "count"
	case Density:
		return "density"
	default:
		return "unknown"
	}
}

// Heatmap accumulates points into a gridCount x gridCount grid spanning a
// square canvas of the given size.
func Heatmap(points []stroke.Point, gridCount int, size float64, form Form) *grid.Grid[float64] {
	g := grid.New(gridCount, gridCount, 0.0)
	if len(points) == 0 || size <= 0 {
		return g
	}

	inc := 1.0
	if form == Density {
		inc = 1 / float64(len(points))
	}

	for _, p := range points {
		row, col, ok := cellOf(p, gridCount, size)
		if !ok {
			continue
		}
		g.Set(row, col, g.At(row, col)+inc)
	}
	return g
}

// cellOf maps p to its (row, col) cell. ok is false when p lies outside
// [0, size) on either axis.
func cellOf(p stroke.Point, gridCount int, size float64) (row, col int, ok bool) {
	if p.X < 0 || p.Y < 0 || p.X >= size || p.Y >= size {
		return 0, 0, false
	}
	step := size / float64(gridCount)
	row = int(math.Floor(p.Y / step))
	col = int(math.Floor(p.X / step))
	// guards against p just below size rounding up to gridCount
	if row >= gridCount {
		row = gridCount - 1
	}
	if col >= gridCount {
		col = gridCount - 1
	}
	return row, col, true
}

// SmoothHeatmap convolves g with k at full resolution. Neighbours outside
// the grid contribute zero.
func SmoothHeatmap(g *grid.Grid[float64], k Kernel) *grid.Grid[float64] {
	rows, cols := g.Rows(), g.Cols()
	out := grid.New(rows, cols, 0.0)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var acc float64
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if !g.InBounds(r+dr, c+dc) {
						continue
					}
					acc += k.weight(dr, dc) * g.At(r+dr, c+dc)
				}
			}
			out.Set(r, c, acc)
		}
	}
	return out
}

// Concat flattens grids in order into one sequence.
func Concat(grids ...*grid.Grid[float64]) []float64 {
	n := 0
	for _, g := range grids {
		n += g.Rows() * g.Cols()
	}
	out := make([]float64, 0, n)
	for _, g := range grids {
		out = append(out, g.Flat()...)
	}
	return out
}
