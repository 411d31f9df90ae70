package server

import "github.com/ironsheep/kanji-match-mcp/internal/render"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// strokesSchema describes the [[[x,y],...],...] stroke argument.
func strokesSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "array",
				"items":    map[string]interface{}{"type": "number"},
				"minItems": 2,
				"maxItems": 2,
			},
		},
		"description": "Strokes in drawing order, each a list of [x, y] canvas points",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Recognition
		{
			Name:        "character_recognize",
			Description: "Rank stored templates by similarity to a hand-drawn character. Smaller distances are more similar.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"strokes": strokesSchema(),
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of results. Default 10, 0 for all",
						"default":     10,
					},
				},
				"required": []string{"strokes"},
			},
		},
		{
			Name:        "character_coarse_candidates",
			Description: "List the templates that pass stroke/point selection with their significant-point heatmap distance, before the coarse cut.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"strokes": strokesSchema(),
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of candidates. Default 20, 0 for all",
						"default":     20,
					},
				},
				"required": []string{"strokes"},
			},
		},
		{
			Name:        "character_features",
			Description: "Compute the normalized strokes and every feature vector the recognizer compares.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"strokes": strokesSchema(),
					"smooth": map[string]interface{}{
						"type":        "boolean",
						"description": "Smooth strokes before resampling. Defaults to the smooth_query setting",
					},
				},
				"required": []string{"strokes"},
			},
		},

		// Visualization
		{
			Name:        "character_render",
			Description: "Render a character or one of its feature heatmaps as a base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"strokes": strokesSchema(),
					"view": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"raw", "normalized", "heatmap", "significant_heatmap", "direction"},
						"description": "What to draw. Default normalized",
						"default":     "normalized",
					},
					"grid": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"none", "heatmap", "significant", "direction"},
						"description": "Feature grid drawn over stroke views. Default none",
						"default":     "none",
					},
					"show_cells": map[string]interface{}{
						"type":        "boolean",
						"description": "Label grid cells with row,col. Default false",
						"default":     false,
					},
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Grid line color in hex format (e.g., '#FF000080'). Default semi-transparent red",
						"default":     "#FF000080",
					},
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels per canvas unit for stroke views, or per cell edge for heatmaps. Default 4 and 16",
						"minimum":     0,
						"maximum":     render.MaxScale,
					},
				},
				"required": []string{"strokes"},
			},
		},

		// OCR
		{
			Name:        "character_ocr_check",
			Description: "Read the normalized character with Tesseract OCR and compare the answer with the top recognizer candidates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"strokes": strokesSchema(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default jpn",
					},
					"top": map[string]interface{}{
						"type":        "integer",
						"description": "Number of recognizer candidates to compare against. Default 5",
						"default":     5,
					},
				},
				"required": []string{"strokes"},
			},
		},

		// Template store
		{
			Name:        "template_add",
			Description: "Compute a template from reference strokes and add it to the store.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"value": map[string]interface{}{
						"type":        "string",
						"description": "The character the strokes draw",
					},
					"codepoint": map[string]interface{}{
						"type":        "integer",
						"description": "Unicode codepoint. Derived from a single-character value when omitted",
					},
					"strokes": strokesSchema(),
					"persist": map[string]interface{}{
						"type":        "boolean",
						"description": "Persist the store after adding. Default false",
						"default":     false,
					},
				},
				"required": []string{"value", "strokes"},
			},
		},
		{
			Name:        "template_query",
			Description: "List stored templates within a stroke-count range and, optionally, a point-count range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"min_strokes": map[string]interface{}{"type": "integer", "description": "Inclusive lower stroke bound. Default 0"},
					"max_strokes": map[string]interface{}{"type": "integer", "description": "Inclusive upper stroke bound. Default 64"},
					"min_points":  map[string]interface{}{"type": "integer", "description": "Inclusive lower point bound"},
					"max_points":  map[string]interface{}{"type": "integer", "description": "Inclusive upper point bound; enables the point filter"},
					"include_strokes": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the normalized template strokes. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "store_persist",
			Description: "Flush the template store to durable storage.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
