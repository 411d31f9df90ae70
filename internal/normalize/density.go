package normalize

import (
	"math"

	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// LineDensity equalizes line density along both axes.
//
// Points with a coordinate at or beyond the canvas size are passed through
// unchanged. If an axis histogram totals zero the axis is left as is.
func (n Normalizer) LineDensity(strokes []stroke.Stroke) []stroke.Stroke {
	histX, histY := n.lineDensityHistograms(strokes)
	size := float64(n.size)
	lastX, lastY := histX[len(histX)-1], histY[len(histY)-1]

	out := make([]stroke.Stroke, len(strokes))
	for i, s := range strokes {
		mapped := make(stroke.Stroke, len(s))
		for j, p := range s {
			if p.X >= size || p.Y >= size || p.X < 0 || p.Y < 0 {
				mapped[j] = p
				continue
			}
			q := p
			if lastX > 0 {
				q.X = size * histX[int(math.Floor(p.X))] / lastX
			}
			if lastY > 0 {
				q.Y = size * histY[int(math.Floor(p.Y))] / lastY
			}
			mapped[j] = q
		}
		out[i] = mapped
	}
	return out
}

// lineDensityHistograms returns the cumulative background run-length
// histograms for the x and y axes.
//
// rows[y][x] marks occupied cells scanned along x; cols[x][y] the same cells
// scanned along y. An empty position contributes 1/runlength, where the run
// is bounded by the nearest occupied neighbours (or 0 and size).
func (n Normalizer) lineDensityHistograms(strokes []stroke.Stroke) (histX, histY []float64) {
	size := n.size
	if size <= 0 {
		return []float64{0}, []float64{0}
	}

	rows := make([][]bool, size)
	cols := make([][]bool, size)
	for i := range rows {
		rows[i] = make([]bool, size)
		cols[i] = make([]bool, size)
	}
	for _, s := range strokes {
		for _, p := range s {
			x, y := int(math.Floor(p.X)), int(math.Floor(p.Y))
			if x < 0 || y < 0 || x >= size || y >= size {
				continue
			}
			rows[y][x] = true
			cols[x][y] = true
		}
	}

	sumX := make([]float64, size)
	sumY := make([]float64, size)
	for j := 0; j < size; j++ {
		addRunlengths(sumX, rows[j], size)
		addRunlengths(sumY, cols[j], size)
	}

	histX = make([]float64, size)
	histY = make([]float64, size)
	var accX, accY float64
	for i := 0; i < size; i++ {
		accX += sumX[i]
		accY += sumY[i]
		histX[i] = accX
		histY[i] = accY
	}
	return histX, histY
}

// addRunlengths adds 1/runlength for every empty position of line into sums.
func addRunlengths(sums []float64, line []bool, size int) {
	left := make([]int, size)
	right := make([]int, size)

	nearest := 0
	for i := 0; i < size; i++ {
		left[i] = nearest
		if line[i] && i > nearest {
			nearest = i
		}
	}
	nearest = size
	for i := size - 1; i >= 0; i-- {
		right[i] = nearest
		if line[i] {
			nearest = i
		}
	}

	for i := 0; i < size; i++ {
		if line[i] {
			continue
		}
		sums[i] += 1 / float64(right[i]-left[i])
	}
}

// PointDensity equalizes point density along both axes using cumulative
// counts of points per rounded integer coordinate.
func (n Normalizer) PointDensity(strokes []stroke.Stroke) []stroke.Stroke {
	total := stroke.CountPoints(strokes)
	if total == 0 {
		return stroke.Clone(strokes)
	}
	hx, hy := n.accumulatedHistograms(strokes)
	size := float64(n.size)
	count := float64(total)

	out := make([]stroke.Stroke, len(strokes))
	for i, s := range strokes {
		mapped := make(stroke.Stroke, len(s))
		for j, p := range s {
			mapped[j] = stroke.Point{
				X: stroke.Round(size*float64(hx[clampIndex(p.X, len(hx))])/count, 2),
				Y: stroke.Round(size*float64(hy[clampIndex(p.Y, len(hy))])/count, 2),
			}
		}
		out[i] = mapped
	}
	return out
}

// accumulatedHistograms counts points per rounded coordinate in [0, size+1]
// and accumulates the counts.
func (n Normalizer) accumulatedHistograms(strokes []stroke.Stroke) (hx, hy []int) {
	bins := n.size + 2
	hx = make([]int, bins)
	hy = make([]int, bins)
	for _, s := range strokes {
		for _, p := range s {
			if x := int(math.Round(p.X)); x >= 0 && x < bins {
				hx[x]++
			}
			if y := int(math.Round(p.Y)); y >= 0 && y < bins {
				hy[y]++
			}
		}
	}
	for i := 1; i < bins; i++ {
		hx[i] += hx[i-1]
		hy[i] += hy[i-1]
	}
	return hx, hy
}

func clampIndex(v float64, n int) int {
	i := int(math.Round(v))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
