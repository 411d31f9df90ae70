// Package features extracts fixed-resolution feature grids from normalized
// strokes.
//
// # Grids and Orientation
//
// Every feature map is a grid.Grid addressed by (row, col) where the row is
// derived from the y coordinate and the column from x. A point at (x, y)
// falls into the cell (floor(y/cell), floor(x/cell)) with cell = size/grid.
// Only points with both coordinates in [0, size) are accumulated; anything
// else is ignored without error.
//
// # Heatmaps
//
// Heatmap supports two forms. Count adds 1 per point and is used for the
// coarse significant-point map. Density adds 1/len(points) per point so a
// map sums to at most 1 regardless of how densely a character was sampled;
// the fine heatmap channels use it.
//
// # Directional Feature Densities
//
// Each segment of a stroke is decomposed onto the two adjacent basis
// directions of the 45 degree sector that contains it:
//
//	e1 = (1, 0)
//	e2 = (1/√2, 1/√2)
//	e3 = (0, 1)
//	e4 = (-1/√2, 1/√2)
//
// The weights are accumulated in the cell of the segment's start point.
// SpatialWeightFilter then halves the resolution with a 3x3 weighted
// average centred on every even cell.
//
// # Kernels
//
// The 3x3 kernels are held as bild convolution kernels and normalized
// through them. SmoothHeatmap applies a kernel at full resolution with zero
// padding, so it is linear in its input.
package features
