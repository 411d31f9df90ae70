package render

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultCellSize is the edge length in pixels of one heatmap cell.
	DefaultCellSize = 16
	// MaxCellSize caps the cell edge length.
	MaxCellSize = 32
)

// Heatmap draws a column-major heatmap of rows×cols cells, cellSize pixels
// each. Colors are scaled to the largest value; a heatmap without positive
// values is drawn entirely in the lowest color. Cell sizes above MaxCellSize
// are capped.
func Heatmap(values []float64, rows, cols, cellSize int) (*Result, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid heatmap shape %dx%d", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("heatmap has %d values, want %d for %dx%d", len(values), rows*cols, rows, cols)
	}
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	cellSize = min(cellSize, MaxCellSize)

	var peak float64
	if len(values) > 0 {
		peak = floats.Max(values)
	}

	cells := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			var t float64
			if peak > 0 {
				t = values[col*rows+row] / peak
			}
			cells.SetNRGBA(col, row, Ramp(t))
		}
	}

	scaled := imaging.Resize(cells, cols*cellSize, rows*cellSize, imaging.NearestNeighbor)
	return encode(scaled, cellSize)
}

// SquareHeatmap draws a heatmap whose side is the square root of its length,
// as every feature heatmap is. Multi-channel heatmaps are split into
// channels and drawn side by side.
func SquareHeatmap(values []float64, channels, cellSize int) (*Result, error) {
	if channels <= 0 {
		channels = 1
	}
	if len(values)%channels != 0 {
		return nil, fmt.Errorf("%d values do not split into %d channels", len(values), channels)
	}
	per := len(values) / channels
	side := 0
	for side*side < per {
		side++
	}
	if side == 0 || side*side != per {
		return nil, fmt.Errorf("channel of %d values is not square", per)
	}

	// channels stacked horizontally are one grid with channels*side columns
	return Heatmap(values, side, side*channels, cellSize)
}
