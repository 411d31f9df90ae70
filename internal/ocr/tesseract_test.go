package ocr

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// ten draws 十 on a 109 canvas.
func ten() []stroke.Stroke {
	return []stroke.Stroke{
		{{X: 15, Y: 54}, {X: 94, Y: 54}},
		{{X: 54, Y: 12}, {X: 54, Y: 98}},
	}
}

func skipWithoutTesseract(t *testing.T, err error) {
	t.Helper()
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "tesseract") ||
		strings.Contains(msg, "language") ||
		strings.Contains(msg, "library") {
		t.Skipf("Tesseract not available: %v", err)
	}
}

func TestDefaultOptions(t *testing.T) {
	o := Options{}.withDefaults()
	if o != DefaultOptions() {
		t.Errorf("zero options: got %+v, want %+v", o, DefaultOptions())
	}

	o = Options{Language: "chi_sim", Scale: 5, Margin: 3, Blur: -1}.withDefaults()
	if o.Language != "chi_sim" || o.Scale != 5 || o.Margin != 3 || o.Blur != 0 {
		t.Errorf("explicit options not kept: %+v", o)
	}
}

func TestPrepare(t *testing.T) {
	img, err := Prepare(ten(), 109, Options{Scale: 2, Margin: 10, Blur: -1})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	b := img.Bounds()
	if b.Dx() != b.Dy() {
		t.Errorf("prepared image should be square, got %v", b)
	}
	// the vertical stroke is longest: 86 units * 2 plus pen and margins
	if b.Dx() < 172+20 || b.Dx() > 172+20+12 {
		t.Errorf("prepared size: got %d", b.Dx())
	}

	corner := color.GrayModel.Convert(img.At(0, 0)).(color.Gray)
	if corner.Y != 255 {
		t.Errorf("margin should be white, got %v", corner)
	}
	center := color.GrayModel.Convert(img.At(b.Dx()/2, b.Dy()/2)).(color.Gray)
	if center.Y > 64 {
		t.Errorf("crossing should be inked, got %v", center)
	}
}

func TestPrepare_NoInk(t *testing.T) {
	_, err := Prepare(nil, 109, Options{})
	if !errors.Is(err, ErrNoInk) {
		t.Errorf("blank drawing: got %v, want ErrNoInk", err)
	}

	// strokes entirely off the canvas
	_, err = ReadGlyph([]stroke.Stroke{{{X: -40, Y: -40}, {X: -20, Y: -20}}}, 109, Options{})
	if !errors.Is(err, ErrNoInk) {
		t.Errorf("off-canvas drawing: got %v, want ErrNoInk", err)
	}
}

func TestSymbols(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(0, 0, 10, 10), Word: "十", Confidence: 91},
		{Box: image.Rect(10, 0, 20, 10), Word: " ", Confidence: 50},
		{Box: image.Rect(20, 0, 30, 10), Word: "千", Confidence: 12.5},
	}
	got := symbols(boxes)
	want := []Symbol{{Text: "十", Confidence: 0.91}, {Text: "千", Confidence: 0.125}}
	if len(got) != len(want) {
		t.Fatalf("symbols: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbol %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadGlyph(t *testing.T) {
	result, err := ReadGlyph(ten(), 109, Options{})
	if err != nil {
		skipWithoutTesseract(t, err)
		t.Fatalf("ReadGlyph failed: %v", err)
	}

	// Tesseract's answer for a synthetic glyph is not guaranteed, only its shape
	if result.Language != "jpn" {
		t.Errorf("Language: got %q, want jpn", result.Language)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		t.Errorf("Confidence out of range: %f", result.Confidence)
	}
	if result.Symbols == nil {
		t.Error("Symbols should never be nil")
	}
}

func TestReadImage_InvalidLanguage(t *testing.T) {
	img, err := Prepare(ten(), 109, Options{})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if _, err := ReadImage(img, "not_a_language"); err == nil {
		t.Error("ReadImage should fail for an unknown language")
	}
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.Backend != "gosseract" {
		t.Errorf("Backend: got %q, want gosseract", info.Backend)
	}
	if info.Available && info.Version == "" {
		t.Error("available Tesseract should report a version")
	}
}
