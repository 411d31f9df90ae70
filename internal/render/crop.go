package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// inkThreshold is the gray level below which a pixel counts as ink.
const inkThreshold = 128

// InkBounds returns the smallest rectangle holding every ink pixel, or an
// empty rectangle for a blank image.
func InkBounds(img image.Image) image.Rectangle {
	b := img.Bounds()
	box := image.Rectangle{}
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y >= inkThreshold {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if !found {
				box, found = px, true
			} else {
				box = box.Union(px)
			}
		}
	}
	return box
}

// TrimToInk crops img to its ink and centers the crop on a white square
// with margin pixels on the longer side. A blank image is returned as a
// white square of 2×margin.
func TrimToInk(img image.Image, margin int) *image.NRGBA {
	if margin < 0 {
		margin = 0
	}
	box := InkBounds(img)
	if box.Empty() {
		return imaging.New(2*margin, 2*margin, color.White)
	}

	cropped := imaging.Crop(img, box)
	side := max(box.Dx(), box.Dy()) + 2*margin
	return imaging.PasteCenter(imaging.New(side, side, color.White), cropped)
}
