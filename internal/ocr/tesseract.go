package ocr

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/kanji-match-mcp/internal/render"
	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// ErrNoInk is returned when the strokes leave nothing on the canvas.
var ErrNoInk = errors.New("no ink to read")

// Symbol is one character Tesseract found, with its confidence.
type Symbol struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Result contains what Tesseract read.
type Result struct {
	// Text is the recognized text with surrounding whitespace removed.
	Text string `json:"text"`

	// Confidence is the confidence of the best symbol (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Symbols are the individual characters, in reading order.
	Symbols []Symbol `json:"symbols"`

	// Language is the Tesseract language used.
	Language string `json:"language"`
}

// Options control rasterization and recognition.
type Options struct {
	Language string
	// Scale multiplies the canvas size before trimming.
	Scale int
	// Margin is the white border in pixels around the trimmed ink.
	Margin int
	// Blur is the Gaussian sigma softening the pen edges. Negative disables it.
	Blur float64
}

// DefaultOptions returns the options ReadGlyph uses for zero fields.
func DefaultOptions() Options {
	return Options{Language: "jpn", Scale: 3, Margin: 24, Blur: 0.6}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.Scale <= 0 {
		o.Scale = d.Scale
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	switch {
	case o.Blur < 0:
		o.Blur = 0
	case o.Blur == 0:
		o.Blur = d.Blur
	}
	return o
}

// Prepare rasterizes strokes on a size×size canvas and trims the result to
// the ink. It returns ErrNoInk for a blank drawing.
func Prepare(strokes []stroke.Stroke, size int, opts Options) (image.Image, error) {
	opts = opts.withDefaults()
	img := render.Rasterize(strokes, size, render.StrokeOptions{
		Scale:    opts.Scale,
		PenWidth: 2.5 * float64(opts.Scale),
		Blur:     opts.Blur,
	})
	if render.InkBounds(img).Empty() {
		return nil, ErrNoInk
	}
	return render.TrimToInk(img, opts.Margin), nil
}

// ReadGlyph rasterizes strokes and reads them as a single character.
func ReadGlyph(strokes []stroke.Stroke, size int, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	img, err := Prepare(strokes, size, opts)
	if err != nil {
		return nil, err
	}
	return ReadImage(img, opts.Language)
}

// ReadImage performs single-character OCR on an in-memory image.
func ReadImage(img image.Image, language string) (*Result, error) {
	data, err := render.PNG(img)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	result := &Result{
		Text:     strings.TrimSpace(text),
		Symbols:  []Symbol{},
		Language: language,
	}

	// Return just text if boxes fail
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return result, nil
	}
	result.Symbols = symbols(boxes)
	for _, s := range result.Symbols {
		if s.Confidence > result.Confidence {
			result.Confidence = s.Confidence
		}
	}
	return result, nil
}

func symbols(boxes []gosseract.BoundingBox) []Symbol {
	out := make([]Symbol, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		out = append(out, Symbol{Text: word, Confidence: box.Confidence / 100.0})
	}
	return out
}

// Info reports whether Tesseract can be used.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
}

// GetInfo returns information about OCR availability.
func GetInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()

	version := client.Version()
	return Info{
		Available: version != "",
		Version:   version,
		Backend:   "gosseract",
	}
}
