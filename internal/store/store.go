// Package store persists template feature records and answers the range
// queries the recognizer uses to pick candidates.
//
// Two backends implement Store: JSONStore keeps every template in memory and
// writes a single JSON file on Persist; SQLiteStore keeps them in a SQLite
// database whose schema is managed by embedded migrations. Open picks one by
// file extension.
//
// Templates are written once during population and read-only afterwards.
// Both backends are safe for concurrent readers. Any backend failure is
// reported wrapped with ErrUnavailable.
package store

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies within r.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Template is the persisted feature record of one reference character.
//
// Feature sequences are flat and column-major, exactly as produced by the
// recognizer. NumberOfPoints is 0 when point counts are not tracked.
type Template struct {
	ID              string       `json:"id"`
	Value           string       `json:"value"`
	Codepoint       int          `json:"codepoint"`
	NumberOfStrokes int          `json:"number_of_strokes"`
	NumberOfPoints  int          `json:"number_of_points"`
	Strokes         [][3]float64 `json:"serialized_strokes"`

	DirectionE1 []float64 `json:"direction_e1"`
	DirectionE2 []float64 `json:"direction_e2"`
	DirectionE3 []float64 `json:"direction_e3"`
	DirectionE4 []float64 `json:"direction_e4"`

	Heatmap            []float64 `json:"heatmap"`
	SignificantHeatmap []float64 `json:"significant_heatmap"`

	HeatmapGranular      []float64 `json:"heatmap_granular,omitempty"`
	HeatmapCoarse        []float64 `json:"heatmap_coarse,omitempty"`
	HeatmapGranularSlant []float64 `json:"heatmap_granular_slant,omitempty"`
	HeatmapCoarseSlant   []float64 `json:"heatmap_coarse_slant,omitempty"`
}

// Direction returns the four direction channels in basis order.
func (t *Template) Direction() [4][]float64 {
	return [4][]float64{t.DirectionE1, t.DirectionE2, t.DirectionE3, t.DirectionE4}
}

// Store is the template store contract.
//
// Query results keep insertion order. CharactersInRange treats templates
// whose NumberOfPoints is 0 as matching any point range.
type Store interface {
	// Store adds t, assigning an ID when t.ID is empty.
	Store(t *Template) error
	// CharactersInStrokeRange returns templates whose stroke count lies in strokes.
	CharactersInStrokeRange(strokes Range) ([]*Template, error)
	// CharactersInRange additionally filters by point count.
	CharactersInRange(points, strokes Range) ([]*Template, error)
	// Persist flushes pending writes to durable storage.
	Persist() error
}

// Backend is a Store that holds resources until closed.
type Backend interface {
	Store
	io.Closer
}

// Open returns the backend matching the path's extension: .json for
// JSONStore, .db, .sqlite or .sqlite3 for SQLiteStore.
func Open(path string) (Backend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONStore(path), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported template store %q: %w", path, ErrUnsupportedBackend)
	}
}

// matches reports whether t passes the stroke and point filters.
func matches(t *Template, points *Range, strokes Range) bool {
	if !strokes.Contains(t.NumberOfStrokes) {
		return false
	}
	if points == nil || t.NumberOfPoints == 0 {
		return true
	}
	return points.Contains(t.NumberOfPoints)
}
