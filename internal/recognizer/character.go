package recognizer

import (
	"fmt"

	"github.com/ironsheep/kanji-match-mcp/internal/config"
	"github.com/ironsheep/kanji-match-mcp/internal/features"
	"github.com/ironsheep/kanji-match-mcp/internal/grid"
	"github.com/ironsheep/kanji-match-mcp/internal/normalize"
	"github.com/ironsheep/kanji-match-mcp/internal/store"
	"github.com/ironsheep/kanji-match-mcp/internal/stroke"
)

// Variants are the four heatmaps compared by the slant-variants policy.
type Variants struct {
	Granular      []float64 `json:"granular"`
	Coarse        []float64 `json:"coarse"`
	GranularSlant []float64 `json:"granular_slant"`
	CoarseSlant   []float64 `json:"coarse_slant"`
}

// Character is a set of strokes with every feature the recognizer compares.
// It is built once by Pipeline.Build and not modified afterwards.
type Character struct {
	Value     string `json:"value,omitempty"`
	Codepoint int    `json:"codepoint,omitempty"`

	// Strokes are the bi-moment normalized, resampled strokes.
	Strokes         []stroke.Stroke `json:"strokes"`
	NumberOfStrokes int             `json:"number_of_strokes"`
	NumberOfPoints  int             `json:"number_of_points"`

	// Heatmap is the smoothed bi-moment, line-density and point-density
	// density heatmaps concatenated in that order.
	Heatmap []float64 `json:"heatmap"`
	// Direction holds one spatially filtered channel per basis direction.
	Direction [4][]float64 `json:"direction"`
	// SignificantHeatmap counts significant points on a coarse grid.
	SignificantHeatmap []float64 `json:"significant_heatmap"`
	Variants           Variants  `json:"variants"`
}

// Options describe one Build invocation.
type Options struct {
	Value     string
	Codepoint int
	// Smooth applies stroke smoothing before interpolation.
	Smooth bool
}

// Pipeline turns raw strokes into Characters under one configuration.
type Pipeline struct {
	cfg    config.Config
	norm   normalize.Normalizer
	kernel features.Kernel
}

// NewPipeline validates cfg and returns a pipeline for it.
func NewPipeline(cfg config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	kernel, err := features.KernelByName(cfg.HeatmapKernel)
	if err != nil {
		return nil, err
	}
	cfg.SmoothWeights = append([]float64(nil), cfg.SmoothWeights...)
	return &Pipeline{cfg: cfg, norm: normalize.New(cfg.Size), kernel: kernel}, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() config.Config { return p.cfg }

// Normalizer returns the normalizer for the pipeline's canvas.
func (p *Pipeline) Normalizer() normalize.Normalizer { return p.norm }

// Build runs the canonical pipeline: bi-moment normalization (plain and
// slant-corrected), resampling, line- and point-density equalization and
// feature extraction. Strokes that end up with fewer than two points are
// dropped; if none remain every feature is zero.
func (p *Pipeline) Build(strokes []stroke.Stroke, opts Options) *Character {
	normed, slanted := p.norm.BiMoment(strokes)

	pre := p.preprocess(normed, opts.Smooth)
	preSlant := p.preprocess(slanted, opts.Smooth)
	if dropped := len(strokes) - len(pre); dropped > 0 {
		debugf("dropped %d malformed stroke(s) of %d", dropped, len(strokes))
	}

	lineDensity := p.norm.LineDensity(pre)
	pointDensity := p.norm.PointDensity(pre)

	size := float64(p.cfg.Size)
	points := stroke.Flatten(pre)

	c := &Character{
		Value:           opts.Value,
		Codepoint:       opts.Codepoint,
		Strokes:         pre,
		NumberOfStrokes: len(pre),
		NumberOfPoints:  len(points),
	}

	c.Heatmap = features.Concat(
		p.smoothedHeatmap(points, p.cfg.SmoothedHeatmapGrid),
		p.smoothedHeatmap(stroke.Flatten(lineDensity), p.cfg.SmoothedHeatmapGrid),
		p.smoothedHeatmap(stroke.Flatten(pointDensity), p.cfg.SmoothedHeatmapGrid),
	)

	densities := features.DirectionalFeatureDensities(pre, p.cfg.DirectionGrid, size)
	c.Direction = features.Channels(features.SpatialWeightFilter(densities))

	significant := normalize.SignificantPoints(pre)
	c.SignificantHeatmap = features.Heatmap(significant, p.cfg.SignificantPointsHeatmapGrid, size, features.Count).Flat()

	slantPoints := stroke.Flatten(preSlant)
	c.Variants = Variants{
		Granular:      p.smoothedHeatmap(points, p.cfg.SmoothedHeatmapGrid).Flat(),
		Coarse:        p.smoothedHeatmap(points, p.cfg.CoarseHeatmapGrid).Flat(),
		GranularSlant: p.smoothedHeatmap(slantPoints, p.cfg.SmoothedHeatmapGrid).Flat(),
		CoarseSlant:   p.smoothedHeatmap(slantPoints, p.cfg.CoarseHeatmapGrid).Flat(),
	}
	return c
}

func (p *Pipeline) preprocess(strokes []stroke.Stroke, smooth bool) []stroke.Stroke {
	return stroke.Preprocess(strokes, stroke.PreprocessOptions{
		Distance: p.cfg.InterpolateDistance,
		Interval: p.cfg.DownsampleInterval,
		Smooth:   smooth,
		Weights:  p.cfg.SmoothWeights,
	})
}

func (p *Pipeline) smoothedHeatmap(points []stroke.Point, gridCount int) *grid.Grid[float64] {
	h := features.Heatmap(points, gridCount, float64(p.cfg.Size), features.Density)
	return features.SmoothHeatmap(h, p.kernel)
}

// Template converts c into a store record.
func (c *Character) Template() *store.Template {
	var serialized [][3]float64
	for i, s := range c.Strokes {
		for _, pt := range s {
			serialized = append(serialized, [3]float64{float64(i), pt.X, pt.Y})
		}
	}
	return &store.Template{
		Value:                c.Value,
		Codepoint:            c.Codepoint,
		NumberOfStrokes:      c.NumberOfStrokes,
		NumberOfPoints:       c.NumberOfPoints,
		Strokes:              serialized,
		DirectionE1:          c.Direction[0],
		DirectionE2:          c.Direction[1],
		DirectionE3:          c.Direction[2],
		DirectionE4:          c.Direction[3],
		Heatmap:              c.Heatmap,
		SignificantHeatmap:   c.SignificantHeatmap,
		HeatmapGranular:      c.Variants.Granular,
		HeatmapCoarse:        c.Variants.Coarse,
		HeatmapGranularSlant: c.Variants.GranularSlant,
		HeatmapCoarseSlant:   c.Variants.CoarseSlant,
	}
}

// TemplateStrokes rebuilds the strokes serialized in t.
func TemplateStrokes(t *store.Template) []stroke.Stroke {
	var out []stroke.Stroke
	for _, triple := range t.Strokes {
		i := int(triple[0])
		if i < 0 {
			continue
		}
		for len(out) <= i {
			out = append(out, stroke.Stroke{})
		}
		out[i] = append(out[i], stroke.Point{X: triple[1], Y: triple[2]})
	}
	return out
}
