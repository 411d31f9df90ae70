package render

import (
	"fmt"
	"image/color"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// Ramp endpoints: deep blue for empty cells, pale yellow for the densest.
var (
	rampLow  = colorful.Color{R: 0.05, G: 0.03, B: 0.33}
	rampHigh = colorful.Color{R: 0.94, G: 0.98, B: 0.13}
)

// Ramp maps t in [0,1] onto the heatmap color scale. Values outside the
// range are clamped.
func Ramp(t float64) color.NRGBA {
	if t < 0 || t != t {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	r, g, b := rampLow.BlendHcl(rampHigh, t).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
