// Package grid provides the fixed-size two-dimensional container that backs
// every feature map in the recognizer.
//
// # Layout
//
// A Grid stores its cells in a single linear buffer in column-major order:
// the cell at (row, col) lives at index col*rows + row. Flat returns the
// buffer in exactly that order, so serialized feature sequences keep the same
// layout across templates and queries. Callers must not assume row-major
// ordering when consuming Flat output.
//
// # Cell Types
//
// Grid is generic over its element type. Heatmaps use Grid[float64] with a
// default of 0; directional feature densities use a 4-component vector with
// a zero default. The default is supplied explicitly at construction.
//
// # Thread Safety
//
// A Grid is not safe for concurrent mutation. Grids produced by the feature
// pipeline are not modified after construction and may be read concurrently.
package grid

import "fmt"

// Grid is a rows x cols container addressed by (row, col).
type Grid[T any] struct {
	rows  int
	cols  int
	def   T
	cells []T
}

// New creates a grid with every cell set to def.
//
// Panics if rows or cols is not positive.
func New[T any](rows, cols int, def T) *Grid[T] {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("grid: invalid dimensions %dx%d", rows, cols))
	}
	cells := make([]T, rows*cols)
	for i := range cells {
		cells[i] = def
	}
	return &Grid[T]{rows: rows, cols: cols, def: def, cells: cells}
}

// FromFlat rebuilds a grid from a column-major sequence produced by Flat.
func FromFlat[T any](rows, cols int, def T, flat []T) (*Grid[T], error) {
	if len(flat) != rows*cols {
		return nil, fmt.Errorf("grid: flat length %d does not match %dx%d", len(flat), rows, cols)
	}
	g := New(rows, cols, def)
	copy(g.cells, flat)
	return g, nil
}

// Rows returns the row count.
func (g *Grid[T]) Rows() int { return g.rows }

// Cols returns the column count.
func (g *Grid[T]) Cols() int { return g.cols }

// Default returns the value every cell was initialized with.
func (g *Grid[T]) Default() T { return g.def }

// InBounds reports whether (row, col) addresses a cell of the grid.
func (g *Grid[T]) InBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// At returns the value at (row, col).
func (g *Grid[T]) At(row, col int) T {
	return g.cells[g.index(row, col)]
}

// Set stores v at (row, col).
func (g *Grid[T]) Set(row, col int, v T) {
	g.cells[g.index(row, col)] = v
}

// Flat returns a copy of the backing buffer in column-major order.
func (g *Grid[T]) Flat() []T {
	out := make([]T, len(g.cells))
	copy(out, g.cells)
	return out
}

// Clone returns an independent copy of the grid.
func (g *Grid[T]) Clone() *Grid[T] {
	return &Grid[T]{rows: g.rows, cols: g.cols, def: g.def, cells: g.Flat()}
}

func (g *Grid[T]) index(row, col int) int {
	if !g.InBounds(row, col) {
		panic(fmt.Sprintf("grid: index (%d,%d) out of range %dx%d", row, col, g.rows, g.cols))
	}
	return col*g.rows + row
}
