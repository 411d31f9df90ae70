package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// MaxScale is the largest canvas multiplier Rasterize honors.
const MaxScale = 32

// StrokeOptions control how strokes are drawn.
type StrokeOptions struct {
	// Scale multiplies the canvas size; values below 1 mean 1 and values
	// above MaxScale mean MaxScale.
	Scale int
	// PenWidth is the ink width in output pixels. Zero picks one from Scale.
	PenWidth float64
	// Blur softens the ink with a Gaussian of this sigma when positive.
	Blur float64
	// GridCount draws a GridCount×GridCount overlay when above 1.
	GridCount int
	// ShowCells labels every grid cell with its "row,col" index.
	ShowCells bool
	// GridColor is a hex color; invalid or empty values use semi-transparent red.
	GridColor string
}

var ink = color.NRGBA{0, 0, 0, 255}

// Rasterize draws strokes in black on a white square canvas of size×scale
// pixels. Points are canvas coordinates; anything off the canvas is clipped.
func Rasterize(strokes []stroke.Stroke, size int, opts StrokeOptions) *image.NRGBA {
	scale := min(max(opts.Scale, 1), MaxScale)
	pen := opts.PenWidth
	if pen <= 0 {
		pen = math.Max(1, 1.5*float64(scale))
	}

	side := size * scale
	img := imaging.New(side, side, color.White)
	s := float64(scale)
	for _, st := range strokes {
		if len(st) == 1 {
			dot(img, st[0].X*s, st[0].Y*s, pen/2)
		}
		for i := 1; i < len(st); i++ {
			line(img, st[i-1].X*s, st[i-1].Y*s, st[i].X*s, st[i].Y*s, pen/2)
		}
	}

	if opts.Blur > 0 {
		img = imaging.Blur(img, opts.Blur)
	}
	return img
}

// Strokes renders strokes with the optional feature-grid overlay.
func Strokes(strokes []stroke.Stroke, size int, opts StrokeOptions) (*Result, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid canvas size %d", size)
	}
	img := Rasterize(strokes, size, opts)

	spacing := 0
	if opts.GridCount > 1 {
		gridColor, err := parseHexColor(opts.GridColor)
		if err != nil {
			gridColor = color.NRGBA{255, 0, 0, 128} // Default: semi-transparent red
		}
		spacing = drawGrid(img, opts.GridCount, gridColor, opts.ShowCells)
	}
	return encode(img, spacing)
}

// drawGrid splits img into count×count cells and returns the nominal cell
// width in pixels. Lines fall on the rounded cell boundaries so the cells
// match the heatmap's floor(coord/step) binning.
func drawGrid(img *image.NRGBA, count int, c color.NRGBA, labels bool) int {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	step := float64(w) / float64(count)

	over := image.NewUniform(c)
	for k := 1; k < count; k++ {
		x := int(math.Round(float64(k) * step))
		draw.Draw(img, image.Rect(x, 0, x+1, h), over, image.Point{}, draw.Over)
		y := int(math.Round(float64(k) * float64(h) / float64(count)))
		draw.Draw(img, image.Rect(0, y, w, y+1), over, image.Point{}, draw.Over)
	}

	if labels {
		labelColor := color.NRGBA{255, 255, 255, 255}
		bgColor := color.NRGBA{0, 0, 0, 180}
		for row := 0; row < count; row++ {
			for col := 0; col < count; col++ {
				x := int(math.Round(float64(col)*step)) + 2
				y := int(math.Round(float64(row)*float64(h)/float64(count))) + 2
				drawLabel(img, x, y, fmt.Sprintf("%d,%d", row, col), labelColor, bgColor)
			}
		}
	}
	return int(math.Round(step))
}

// drawLabel draws text on a filled box whose top-left corner is (x, y).
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	box := image.Rect(x-1, y-1, x+width+1, y+face.Height+1).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}

// line stamps discs of radius r along the segment at half-pixel steps.
// line stamps discs of radius r along the part of the segment that can
// touch img.
func line(img *image.NRGBA, x0, y0, x1, y1, r float64) {
	b := img.Bounds()
	x0, y0, x1, y1, ok := clipSegment(x0, y0, x1, y1,
		float64(b.Min.X)-r-1, float64(b.Min.Y)-r-1, float64(b.Max.X)+r+1, float64(b.Max.Y)+r+1)
	if !ok {
		return
	}
	n := int(math.Ceil(math.Hypot(x1-x0, y1-y0)*2)) + 1
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		dot(img, x0+(x1-x0)*t, y0+(y1-y0)*t, r)
	}
}

// clipSegment clips the segment to the rectangle [minX,maxX]×[minY,maxY]
// (Liang-Barsky). It reports false when nothing of the segment is inside.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY float64) (float64, float64, float64, float64, bool) {
	if !finite(x0, y0, x1, y1) {
		return 0, 0, 0, 0, false
	}
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return 0, 0, 0, 0, false
		}
	}
	return x0 + dx*t0, y0 + dy*t0, x0 + dx*t1, y0 + dy*t1, true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func dot(img *image.NRGBA, cx, cy, r float64) {
	b := img.Bounds()
	if !finite(cx, cy) || cx+r < float64(b.Min.X) || cx-r > float64(b.Max.X) ||
		cy+r < float64(b.Min.Y) || cy-r > float64(b.Max.Y) {
		return
	}
	minX := max(int(math.Floor(cx-r)), b.Min.X)
	maxX := min(int(math.Ceil(cx+r)), b.Max.X-1)
	minY := max(int(math.Floor(cy-r)), b.Min.Y)
	maxY := min(int(math.Ceil(cy+r)), b.Max.Y-1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy <= r*r+0.25 {
				img.SetNRGBA(x, y, ink)
			}
		}
	}
}
