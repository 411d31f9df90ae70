// Package config holds the recognizer's tuning knobs.
//
// A Config is a plain value: components copy what they need at construction
// and never observe later changes. Default returns the stock values; Load
// overlays a JSON or YAML file on top of them. Keys the file sets that no
// field knows about are logged and ignored.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scoring policies.
const (
	// PolicyCombined averages direction and heatmap distances.
	PolicyCombined = "combined"
	// PolicySlantVariants takes the best of four heatmap variants.
	PolicySlantVariants = "slant-variants"
)

// Heatmap smoothing kernels.
const (
	KernelGaussian = "gaussian"
	KernelUniform  = "uniform"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the immutable recognizer configuration.
type Config struct {
	// Canvas and resampling
	Size                int       `json:"size" yaml:"size"`
	DownsampleInterval  int       `json:"downsample_interval" yaml:"downsample_interval"`
	InterpolateDistance float64   `json:"interpolate_distance" yaml:"interpolate_distance"`
	SmoothWeights       []float64 `json:"smooth_weights" yaml:"smooth_weights"`
	SmoothQuery         bool      `json:"smooth_query" yaml:"smooth_query"`

	// Feature grids
	DirectionGrid                int    `json:"direction_grid" yaml:"direction_grid"`
	SmoothedHeatmapGrid          int    `json:"smoothed_heatmap_grid" yaml:"smoothed_heatmap_grid"`
	SignificantPointsHeatmapGrid int    `json:"significant_points_heatmap_grid" yaml:"significant_points_heatmap_grid"`
	CoarseHeatmapGrid            int    `json:"coarse_heatmap_grid" yaml:"coarse_heatmap_grid"`
	HeatmapKernel                string `json:"heatmap_kernel" yaml:"heatmap_kernel"`

	// Candidate selection and scoring
	StrokeWindowBelow int     `json:"stroke_window_below" yaml:"stroke_window_below"`
	StrokeWindowAbove int     `json:"stroke_window_above" yaml:"stroke_window_above"`
	PointWindow       int     `json:"point_window" yaml:"point_window"`
	DirectionScale    float64 `json:"direction_scale" yaml:"direction_scale"`
	ScoringPolicy     string  `json:"scoring_policy" yaml:"scoring_policy"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Size:                         109,
		DownsampleInterval:           4,
		InterpolateDistance:          0.8,
		SmoothWeights:                []float64{1, 3, 1},
		SmoothQuery:                  true,
		DirectionGrid:                15,
		SmoothedHeatmapGrid:          20,
		SignificantPointsHeatmapGrid: 3,
		CoarseHeatmapGrid:            10,
		HeatmapKernel:                KernelGaussian,
		StrokeWindowBelow:            5,
		StrokeWindowAbove:            10,
		PointWindow:                  100,
		DirectionScale:               100,
		ScoringPolicy:                PolicyCombined,
	}
}

// Load reads a .json, .yaml or .yml file over Default.
//
// A missing file is not an error: the defaults are returned and a warning
// is logged. The result is validated before it is returned.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return cfg, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: config file %s not found, using defaults", cleanPath)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if ext == ".json" {
		cfg, err = parse(data, json.Unmarshal)
	} else {
		cfg, err = parse(data, yaml.Unmarshal)
	}
	if err != nil {
		return Default(), err
	}

	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes JSON config data over Default without touching the
// filesystem. It is used for configuration passed inline.
func Parse(data []byte) (Config, error) {
	cfg, err := parse(data, json.Unmarshal)
	if err != nil {
		return Default(), err
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parse(data []byte, unmarshal func([]byte, any) error) (Config, error) {
	cfg := Default()

	var raw map[string]any
	if err := unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	knownKeys := getKnownKeys(Config{})
	for key := range raw {
		if !knownKeys[key] {
			log.Printf("Warning: unrecognised config key '%s' ignored", key)
		}
	}

	if err := unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func getKnownKeys(v any) map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		if jsonTag := t.Field(i).Tag.Get("json"); jsonTag != "" {
			tagName := strings.Split(jsonTag, ",")[0]
			if tagName != "-" {
				keys[tagName] = true
			}
		}
	}
	return keys
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	if c.DownsampleInterval < 1 {
		return fmt.Errorf("downsample_interval must be at least 1, got %d", c.DownsampleInterval)
	}
	if c.InterpolateDistance <= 0 {
		return fmt.Errorf("interpolate_distance must be positive, got %g", c.InterpolateDistance)
	}

	grids := []struct {
		key   string
		value int
	}{
		{"direction_grid", c.DirectionGrid},
		{"smoothed_heatmap_grid", c.SmoothedHeatmapGrid},
		{"significant_points_heatmap_grid", c.SignificantPointsHeatmapGrid},
		{"coarse_heatmap_grid", c.CoarseHeatmapGrid},
	}
	for _, g := range grids {
		if g.value <= 0 || g.value > c.Size {
			return fmt.Errorf("%s must be between 1 and size (%d), got %d", g.key, c.Size, g.value)
		}
	}

	if len(c.SmoothWeights) > 0 {
		if len(c.SmoothWeights)%2 == 0 {
			return fmt.Errorf("smooth_weights must have odd length, got %d", len(c.SmoothWeights))
		}
		var sum float64
		for _, w := range c.SmoothWeights {
			sum += w
		}
		if sum <= 0 {
			return fmt.Errorf("smooth_weights must sum to a positive value, got %g", sum)
		}
	}

	switch c.HeatmapKernel {
	case KernelGaussian, KernelUniform:
	default:
		return fmt.Errorf("heatmap_kernel must be %q or %q, got %q", KernelGaussian, KernelUniform, c.HeatmapKernel)
	}

	if c.StrokeWindowBelow < 0 || c.StrokeWindowAbove < 0 {
		return fmt.Errorf("stroke windows must be non-negative, got below=%d above=%d",
			c.StrokeWindowBelow, c.StrokeWindowAbove)
	}
	if c.PointWindow < 0 {
		return fmt.Errorf("point_window must be non-negative, got %d", c.PointWindow)
	}
	if c.DirectionScale <= 0 {
		return fmt.Errorf("direction_scale must be positive, got %g", c.DirectionScale)
	}

	switch c.ScoringPolicy {
	case PolicyCombined, PolicySlantVariants:
	default:
		return fmt.Errorf("scoring_policy must be %q or %q, got %q", PolicyCombined, PolicySlantVariants, c.ScoringPolicy)
	}
	return nil
}
