package recognizer

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ironsheep/kanji-match-mcp/internal/config"
	"github.com/ironsheep/kanji-match-mcp/internal/store"
	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// Glyph is one reference character in a glyph file.
type Glyph struct {
	Value     string        `json:"value"`
	Codepoint int           `json:"codepoint"`
	Strokes   [][][]float64 `json:"strokes"`

	parsed []stroke.Stroke
}

// StrokeList returns the glyph's strokes.
func (g Glyph) StrokeList() []stroke.Stroke {
	if g.parsed != nil {
		return g.parsed
	}
	return stroke.FromPairs(g.Strokes)
}

// NewGlyph builds a glyph from strokes already in memory.
func NewGlyph(value string, codepoint int, strokes []stroke.Stroke) Glyph {
	if codepoint == 0 {
		if runes := []rune(value); len(runes) == 1 {
			codepoint = int(runes[0])
		}
	}
	return Glyph{Value: value, Codepoint: codepoint, parsed: strokes}
}

const maxGlyphFileSize = 256 * 1024 * 1024

// LoadGlyphs reads a JSON array of glyphs. A glyph without a codepoint takes
// the codepoint of its single-rune value.
func LoadGlyphs(path string) ([]Glyph, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat glyph file: %w", err)
	}
	if info.Size() > maxGlyphFileSize {
		return nil, fmt.Errorf("glyph file too large: %d bytes (max %d)", info.Size(), maxGlyphFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glyph file: %w", err)
	}

	var glyphs []Glyph
	if err := json.Unmarshal(data, &glyphs); err != nil {
		return nil, fmt.Errorf("failed to parse glyph file: %w", err)
	}
	for i := range glyphs {
		if glyphs[i].Value == "" {
			return nil, fmt.Errorf("glyph %d has no value", i)
		}
		if glyphs[i].Codepoint == 0 {
			if runes := []rune(glyphs[i].Value); len(runes) == 1 {
				glyphs[i].Codepoint = int(runes[0])
			}
		}
	}
	return glyphs, nil
}

// Trainer computes template features and writes them to a store. Writes
// are serialized.
type Trainer struct {
	pipeline *Pipeline
	store    store.Store

	mu sync.Mutex
}

// NewTrainer returns a Trainer for cfg writing into s.
func NewTrainer(cfg config.Config, s store.Store) (*Trainer, error) {
	if s == nil {
		return nil, fmt.Errorf("trainer: nil store")
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return &Trainer{pipeline: p, store: s}, nil
}

// Add builds the template for g and stores it without persisting.
// Template strokes are never smoothed.
func (t *Trainer) Add(g Glyph) (*store.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.add(g)
}

func (t *Trainer) add(g Glyph) (*store.Template, error) {
	c := t.pipeline.Build(g.StrokeList(), Options{Value: g.Value, Codepoint: g.Codepoint})
	tpl := c.Template()
	if err := t.store.Store(tpl); err != nil {
		return nil, fmt.Errorf("store template %q: %w", g.Value, err)
	}
	return tpl, nil
}

// Populate stores a template for every glyph and persists once at the end.
// It returns the number of templates stored.
func (t *Trainer) Populate(glyphs []Glyph) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, g := range glyphs {
		if _, err := t.add(g); err != nil {
			return i, err
		}
		debugf("stored template %s (U+%04X)", g.Value, g.Codepoint)
	}
	if err := t.store.Persist(); err != nil {
		return len(glyphs), fmt.Errorf("persist templates: %w", err)
	}
	log.Printf("Populated %d templates", len(glyphs))
	return len(glyphs), nil
}

// Persist flushes the store.
func (t *Trainer) Persist() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Persist()
}
