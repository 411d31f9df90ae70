// Package render draws characters and feature grids as PNG images.
//
// Strokes are rasterized onto a square canvas of the normalizer's size,
// scaled up by an integer factor, optionally with the feature grid drawn
// over them so a heatmap cell can be matched to the ink it counted.
// Heatmaps are drawn one block per cell with a perceptual color ramp.
//
// Every renderer returns a Result carrying the PNG base64 encoded, ready to
// be embedded in an MCP tool response.
package render
