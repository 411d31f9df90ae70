package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	want := []string{
		"character_recognize",
		"character_coarse_candidates",
		"character_features",
		"character_render",
		"character_ocr_check",
		"template_add",
		"template_query",
		"store_persist",
	}
	if len(tools) != len(want) {
		t.Fatalf("tool count: got %d, want %d", len(tools), len(want))
	}

	names := make(map[string]bool)
	for _, tool := range tools {
		if names[tool.Name] {
			t.Errorf("duplicate tool name: %s", tool.Name)
		}
		names[tool.Name] = true
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("missing tool: %s", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Description should not be empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema.type: got %v, want object", tool.InputSchema["type"])
			}
			if _, ok := tool.InputSchema["properties"].(map[string]interface{}); !ok {
				t.Error("InputSchema.properties should be a map")
			}
		})
	}
}

func TestToolDefinitions_RequiredStrokes(t *testing.T) {
	needStrokes := map[string]bool{
		"character_recognize":         true,
		"character_coarse_candidates": true,
		"character_features":          true,
		"character_render":            true,
		"character_ocr_check":         true,
		"template_add":                true,
	}

	for _, tool := range GetToolDefinitions() {
		required, _ := tool.InputSchema["required"].([]string)
		has := false
		for _, r := range required {
			if r == "strokes" {
				has = true
			}
		}
		if has != needStrokes[tool.Name] {
			t.Errorf("%s: strokes required = %v, want %v", tool.Name, has, needStrokes[tool.Name])
		}
		if has {
			props := tool.InputSchema["properties"].(map[string]interface{})
			if _, ok := props["strokes"]; !ok {
				t.Errorf("%s: strokes is required but not described", tool.Name)
			}
		}
	}
}

func TestToolDefinitions_RenderViews(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		if tool.Name != "character_render" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		view := props["view"].(map[string]interface{})
		views := view["enum"].([]string)
		if len(views) != 5 {
			t.Errorf("views: got %v", views)
		}
		if view["default"] != "normalized" {
			t.Errorf("default view: got %v, want normalized", view["default"])
		}
		return
	}
	t.Fatal("character_render not defined")
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 7})

	if resp.ID != 7 {
		t.Errorf("ID: got %v, want 7", resp.ID)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("tools: got %d", len(tools))
	}
}
