// Package recognizer ranks stored templates by similarity to a hand-drawn
// character.
//
// Recognition runs in three passes. SelectTemplates narrows the store to
// templates with a similar stroke and point count. CoarseRecognize compares
// the cheap significant-point heatmaps, and Scores keeps the better half of
// those candidates and ranks them by a finer distance. All distances are
// Euclidean.
//
// Two scoring policies are available. "combined" averages the direction
// distance (scaled down by DirectionScale) with the 3-channel heatmap
// distance. "slant-variants" scores by the smallest distance among four
// heatmap variants, which tolerates slanted handwriting better.
//
// A Recognizer holds no mutable state and may be used concurrently as long
// as its store supports concurrent reads. Trainer is the only write path.
package recognizer

import (
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/kanji-match-mcp/internal/config"
	"github.com/ironsheep/kanji-match-mcp/internal/store"
	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

var debug = os.Getenv("KANJI_MCP_LOG_LEVEL") == "debug"

func debugf(format string, args ...any) {
	if debug {
		log.Printf(format, args...)
	}
}

// Candidate pairs a template with its coarse distance to the query.
type Candidate struct {
	Distance float64
	Template *store.Template
}

// Score is one ranked result. Smaller distances are more similar.
type Score struct {
	Distance   float64 `json:"distance"`
	TemplateID string  `json:"template_id"`
	Value      string  `json:"value"`
}

// Recognizer scores queries against a template store.
type Recognizer struct {
	pipeline *Pipeline
	store    store.Store
}

// New returns a Recognizer for cfg reading from s.
func New(cfg config.Config, s store.Store) (*Recognizer, error) {
	if s == nil {
		return nil, fmt.Errorf("recognizer: nil store")
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return &Recognizer{pipeline: p, store: s}, nil
}

// Pipeline returns the feature pipeline used for queries.
func (r *Recognizer) Pipeline() *Pipeline { return r.pipeline }

// Character builds the query character for raw strokes. Smoothing follows
// the smooth_query setting.
func (r *Recognizer) Character(strokes []stroke.Stroke) *Character {
	return r.pipeline.Build(strokes, Options{Smooth: r.pipeline.cfg.SmoothQuery})
}

// SelectTemplates returns templates whose stroke count lies within the
// configured window around c's, and, when point_window is positive, whose
// point count lies within ±point_window (untracked counts always pass).
func (r *Recognizer) SelectTemplates(c *Character) ([]*store.Template, error) {
	cfg := r.pipeline.cfg
	strokes := store.Range{
		Min: c.NumberOfStrokes - cfg.StrokeWindowBelow,
		Max: c.NumberOfStrokes + cfg.StrokeWindowAbove,
	}

	var (
		templates []*store.Template
		err       error
	)
	if cfg.PointWindow > 0 {
		points := store.Range{
			Min: c.NumberOfPoints - cfg.PointWindow,
			Max: c.NumberOfPoints + cfg.PointWindow,
		}
		templates, err = r.store.CharactersInRange(points, strokes)
	} else {
		templates, err = r.store.CharactersInStrokeRange(strokes)
	}
	if err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	return templates, nil
}

// CoarseRecognize returns the significant-point heatmap distance of every
// selected template, in selection order. Templates whose heatmap has a
// different resolution are skipped.
func (r *Recognizer) CoarseRecognize(c *Character) ([]Candidate, error) {
	templates, err := r.SelectTemplates(c)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(templates))
	for _, t := range templates {
		d, ok := distance(c.SignificantHeatmap, t.SignificantHeatmap)
		if !ok {
			debugf("skipping template %s (%s): significant heatmap has %d cells, want %d",
				t.ID, t.Value, len(t.SignificantHeatmap), len(c.SignificantHeatmap))
			continue
		}
		candidates = append(candidates, Candidate{Distance: d, Template: t})
	}
	return candidates, nil
}

// Scores builds the query character for strokes and ranks the templates.
func (r *Recognizer) Scores(strokes []stroke.Stroke) ([]Score, error) {
	return r.ScoreCharacter(r.Character(strokes))
}

// ScoreCharacter ranks templates against an already built character.
func (r *Recognizer) ScoreCharacter(c *Character) ([]Score, error) {
	candidates, err := r.CoarseRecognize(c)
	if err != nil {
		return nil, err
	}
	survivors := coarseCut(candidates)

	scoreFn := r.combinedScore
	if r.pipeline.cfg.ScoringPolicy == config.PolicySlantVariants {
		scoreFn = slantVariantScore
	}

	scores := make([]Score, 0, len(survivors))
	for _, cand := range survivors {
		d, ok := scoreFn(c, cand.Template)
		if !ok {
			debugf("skipping template %s (%s): incompatible feature lengths", cand.Template.ID, cand.Template.Value)
			continue
		}
		scores = append(scores, Score{Distance: d, TemplateID: cand.Template.ID, Value: cand.Template.Value})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Distance < scores[j].Distance
	})
	return scores, nil
}

// coarseCut sorts candidates by coarse distance and keeps the better half,
// but at least one.
func coarseCut(candidates []Candidate) []Candidate {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})
	return sorted[:CoarseKeep(len(sorted))]
}

// CoarseKeep is how many of n coarse candidates survive to fine scoring:
// half, but at least one when there are any.
func CoarseKeep(n int) int {
	if n <= 0 {
		return 0
	}
	return max(n/2, 1)
}

// combinedScore is (mean direction distance / DirectionScale + heatmap
// distance) / 2.
func (r *Recognizer) combinedScore(c *Character, t *store.Template) (float64, bool) {
	var dir float64
	for i, channel := range t.Direction() {
		d, ok := distance(c.Direction[i], channel)
		if !ok {
			return 0, false
		}
		dir += d
	}
	dir /= 4

	heat, ok := distance(c.Heatmap, t.Heatmap)
	if !ok {
		return 0, false
	}
	return (dir/r.pipeline.cfg.DirectionScale + heat) / 2, true
}

// slantVariantScore is the smallest distance among the four heatmap
// variants the template carries.
func slantVariantScore(c *Character, t *store.Template) (float64, bool) {
	pairs := [4][2][]float64{
		{c.Variants.Granular, t.HeatmapGranular},
		{c.Variants.Coarse, t.HeatmapCoarse},
		{c.Variants.GranularSlant, t.HeatmapGranularSlant},
		{c.Variants.CoarseSlant, t.HeatmapCoarseSlant},
	}
	best := math.Inf(1)
	found := false
	for _, pair := range pairs {
		if d, ok := distance(pair[0], pair[1]); ok && d < best {
			best = d
			found = true
		}
	}
	return best, found
}

// distance is the Euclidean distance between equal-length, non-empty
// sequences.
func distance(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	return floats.Distance(a, b, 2), true
}
